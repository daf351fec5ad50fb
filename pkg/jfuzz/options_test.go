package jfuzz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestValidateRejects(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Options)
		errMsg string
	}{
		{"mode", func(o *Options) { o.Mode = "fast" }, "mode must be"},
		{"class name", func(o *Options) { o.MainClassName = "class" }, "not a Java identifier"},
		{"small size", func(o *Options) { o.MaxSize = 9 }, "max_size"},
		{"nested below size", func(o *Options) { o.MaxNestedSizeNotMainTest = 50 }, "nested size"},
		{"percent", func(o *Options) { o.PElse = 101 }, "p_else"},
		{"zero table", func(o *Options) { o.IndKinds = Weights{{"0", 0}} }, "all weights are zero"},
		{"unknown type", func(o *Options) { o.Types = Weights{{"int", 1}, {"void", 1}} }, "unknown type"},
		{"zero step", func(o *Options) { o.ForStep = Weights{{"0", 1}} }, "non-zero"},
		{"bad operator", func(o *Options) { o.Operators = map[string]Weights{"arith": {{"&&", 1}}} }, "not an operator"},
		{"bad statement", func(o *Options) { o.Statements = StmtWeights{{Kind: "GotoStmt", Weight: 1, LoopWeight: 1, Scale: 1}} }, "unknown statement"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := Defaults()
			tc.modify(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestParseOptionsOverlay(t *testing.T) {
	doc := []byte(`
mode: MM_extreme
max_stmts: 7
mainClassName: Foo
types:
  int: 3
  long: 1
operators:
  arith:
    "+": 1
statements:
  IfStmt: [5, 6, 2]
`)
	base := Defaults()
	base.Seed = 99
	o, err := ParseOptions(doc, base)
	require.NoError(t, err)

	assert.Equal(t, uint64(99), o.Seed)
	assert.Equal(t, "MM_extreme", o.Mode)
	assert.Equal(t, 7, o.MaxStmts)
	assert.Equal(t, "Foo", o.MainClassName)
	assert.Equal(t, base.MaxSize, o.MaxSize)

	assert.Equal(t, Weights{{"int", 3}, {"long", 1}}, o.Types)
	assert.Equal(t, Weights{{"+", 1}}, o.Operators["arith"])
	assert.Equal(t, base.Operators["integral"], o.Operators["integral"])

	assert.Len(t, o.Statements, len(base.Statements))
	ifw, ok := o.Statements.lookup("IfStmt")
	require.True(t, ok)
	assert.Equal(t, StmtWeight{Kind: "IfStmt", Weight: 5, LoopWeight: 6, Scale: 2}, ifw)
	assert.Equal(t, base.Statements[0], o.Statements[0])
	assert.NoError(t, o.Validate())
}

func TestParseOptionsErrors(t *testing.T) {
	_, err := ParseOptions([]byte("no_such_key: 1\n"), Defaults())
	assert.Error(t, err)

	_, err = ParseOptions([]byte("types: [int]\n"), Defaults())
	assert.Error(t, err)

	_, err = ParseOptions([]byte("statements:\n  IfStmt: [1, 2]\n"), Defaults())
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "IfStmt")
	}
}

func TestParseOptionsEmptyDocument(t *testing.T) {
	o, err := ParseOptions(nil, Defaults())
	require.NoError(t, err)
	assert.Equal(t, Defaults().MaxStmts, o.MaxStmts)
	assert.Equal(t, Defaults().Statements, o.Statements)
}

func TestLoadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_size: 50\n"), 0o644))

	o, err := LoadOptionsFile(path, Defaults())
	require.NoError(t, err)
	assert.Equal(t, 50, o.MaxSize)

	_, err = LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"), Defaults())
	assert.Error(t, err)
}

func TestWeightsHelpers(t *testing.T) {
	w := Weights{{"a", 1}, {"b", 2}}
	v, ok := w.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = w.Get("c")
	assert.False(t, ok)

	w2 := w.With("a", 5).With("c", 3)
	assert.Equal(t, Weights{{"a", 5}, {"b", 2}, {"c", 3}}, w2)
	assert.Equal(t, Weights{{"a", 1}, {"b", 2}}, w)
}

func TestNormalizeDefaultMode(t *testing.T) {
	o := Defaults()
	o.PBigArray = 50
	o.MaxThreads = 3
	o = o.normalize()
	assert.Equal(t, 0, o.PBigArray)
	assert.Equal(t, 0, o.MaxThreads)
	assert.NotNil(t, o.Logger)

	o = Defaults()
	o.Mode = "MM_extreme"
	o.MaxThreads = 3
	assert.Equal(t, 3, o.normalize().MaxThreads)
}

func TestIsJavaIdent(t *testing.T) {
	for s, want := range map[string]bool{
		"Test":   true,
		"_x1":    true,
		"$a":     true,
		"1abc":   false,
		"":       false,
		"int":    false,
		"a-b":    false,
		"Object": false,
	} {
		assert.Equal(t, want, isJavaIdent(s), s)
	}
}
