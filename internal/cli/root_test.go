package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "jfuzz 0.1.0\n", out)
}

func TestSeedReproducesProgram(t *testing.T) {
	a, _, err := run(t, "--seed", "7")
	require.NoError(t, err)
	b, _, err := run(t, "-s", "7")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, " * Seed:      7\n")
	assert.Contains(t, a, "public class Test")
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Test.java")
	out, logs, err := run(t, "--seed", "3", "--output", path, "--verify")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, logs, "program.written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "public class Test")
}

func TestConfigUnderFlags(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "jfuzz.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("mainClassName: Foo\nmax_size: 60\n"), 0o644))

	out, _, err := run(t, "--seed", "5", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "public class Foo")
	assert.Contains(t, out, "public static final int N = 60;")

	out, _, err = run(t, "--seed", "5", "--config", cfg, "--main-class", "Bar")
	require.NoError(t, err)
	assert.Contains(t, out, "public class Bar")
	assert.Contains(t, out, "public static final int N = 60;")
}

func TestInvalidOptions(t *testing.T) {
	_, _, err := run(t, "--max-size", "2")
	assert.Error(t, err)

	_, _, err = run(t, "--mode", "turbo")
	assert.Error(t, err)

	_, _, err = run(t, "extra")
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	_, logs, err := run(t, "--seed", "40", "--count", "3", "--workers", "2", "--output-dir", dir, "--verify")
	require.NoError(t, err)
	assert.Contains(t, logs, "batch.written")

	first := filepath.Join(dir, "40", "Test.java")
	assert.FileExists(t, first)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assert.LessOrEqual(t, len(entries), 3)
}

func TestBatchNeedsDirectory(t *testing.T) {
	_, _, err := run(t, "--count", "2")
	assert.Error(t, err)

	_, _, err = run(t, "--count", "2", "--output-dir", t.TempDir(), "--output", "x.java")
	assert.Error(t, err)
}

func TestNegatedBool(t *testing.T) {
	on, _, err := run(t, "--seed", "11")
	require.NoError(t, err)
	off, _, err := run(t, "--seed", "11", "--no-outer-control")
	require.NoError(t, err)

	assert.Contains(t, on, "FuzzerUtils.seed(")
	assert.NotContains(t, off, "FuzzerUtils.seed(")
}
