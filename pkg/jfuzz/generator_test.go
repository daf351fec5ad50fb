package jfuzz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateSeed(t *testing.T, seed uint64) *Program {
	t.Helper()
	opts := Defaults()
	opts.Seed = seed
	p, err := Generate(opts)
	require.NoError(t, err, "seed %d", seed)
	return p
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, seed := range []uint64{1, 2, 17, 123456789} {
		a := generateSeed(t, seed)
		b := generateSeed(t, seed)
		assert.Equal(t, a.Source, b.Source, "seed %d", seed)
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	}
}

func TestGenerateLayout(t *testing.T) {
	p := generateSeed(t, 42)

	assert.True(t, strings.HasPrefix(p.Source, "/*\n * This is a RANDOMLY GENERATED PROGRAM.\n"))
	assert.Contains(t, p.Source, " * Seed:      42\n")
	assert.NotContains(t, p.Body(), "Seed:")
	assert.Contains(t, p.Body(), "public class Test")
	assert.Contains(t, p.Body(), "public static final int N = 100;")
	assert.Contains(t, p.Body(), "public static void main(String[] ")
	assert.Equal(t, "Test.java", p.FileName())
	assert.GreaterOrEqual(t, p.Attempts, 1)
	assert.LessOrEqual(t, p.Attempts, Defaults().MaxAttempts)
	assert.GreaterOrEqual(t, p.Classes, 1)
}

func TestGeneratePackageAndClassName(t *testing.T) {
	opts := Defaults()
	opts.Seed = 8
	opts.Package = "org.example.fuzz"
	opts.MainClassName = "Main"
	p, err := Generate(opts)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p.Body(), "package org.example.fuzz;\n"))
	assert.Contains(t, p.Body(), "public class Main")
	assert.Equal(t, "Main.java", p.FileName())
}

func TestGenerateRejectsInvalidOptions(t *testing.T) {
	opts := Defaults()
	opts.MaxSize = 3
	p, err := Generate(opts)
	assert.Nil(t, p)
	assert.Error(t, err)
}

func TestGeneratedProgramsVerify(t *testing.T) {
	last := uint64(3000)
	if testing.Short() {
		last = 200
	}
	for seed := uint64(1); seed <= last; seed++ {
		opts := Defaults()
		opts.Seed = seed
		p, err := Generate(opts)
		require.NoError(t, err, "seed %d", seed)
		require.NoError(t, p.Verify(), "seed %d", seed)
	}
}

// Seeds and settings under which a nested field lookup used to close a
// containment cycle, sending the containment check into endless recursion.
func TestGenerateContainmentCycleSeeds(t *testing.T) {
	for _, tc := range []struct {
		name string
		seed uint64
		tune func(*Options)
	}{
		{"seed 331", 331, nil},
		{"seed 352", 352, nil},
		{"seed 630", 630, nil},
		{"one method per class", 28, func(o *Options) { o.MaxMeths = 1 }},
		{"deep loops", 116, func(o *Options) { o.MaxLoopDepth = 5; o.MaxStmts = 40 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts := Defaults()
			opts.Seed = tc.seed
			if tc.tune != nil {
				tc.tune(&opts)
			}
			p, err := Generate(opts)
			require.NoError(t, err)
			assert.NoError(t, p.Verify())
		})
	}
}

func TestGeneratedProgramsVerifyTuned(t *testing.T) {
	for _, tc := range []struct {
		name string
		tune func(*Options)
	}{
		{"one method per class", func(o *Options) { o.MaxMeths = 1 }},
		{"deep loops", func(o *Options) { o.MaxLoopDepth = 5; o.MaxStmts = 40 }},
		{"long call chains", func(o *Options) { o.MaxCallersChain = 4 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for seed := uint64(1); seed <= 150; seed++ {
				opts := Defaults()
				opts.Seed = seed
				tc.tune(&opts)
				p, err := Generate(opts)
				require.NoError(t, err, "seed %d", seed)
				require.NoError(t, p.Verify(), "seed %d", seed)
			}
		})
	}
}

func TestGeneratedProgramsVerifyExtreme(t *testing.T) {
	opts := Defaults()
	opts.Mode = "MM_extreme"
	for seed := uint64(1); seed <= 10; seed++ {
		opts.Seed = seed
		p, err := Generate(opts)
		require.NoError(t, err, "seed %d", seed)
		assert.NoError(t, p.Verify(), "seed %d", seed)
	}
}

func TestInvariantErrorMessage(t *testing.T) {
	err := &InvariantError{Op: "pick", Detail: "no eligible type"}
	assert.Equal(t, "internal error in pick: no eligible type", err.Error())
}
