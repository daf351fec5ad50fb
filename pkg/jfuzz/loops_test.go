package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		init     bound
		max      bound
		step     int
		expected int
	}{
		{"unit step", bound{n: 1}, bound{n: 98}, 1, 97},
		{"rounds up", bound{n: 0}, bound{n: 5}, 2, 3},
		{"negative step", bound{n: 1}, bound{n: 10}, -3, 3},
		{"empty range counts once", bound{n: 10}, bound{n: 10}, 1, 1},
		{"variable limit counts as N", bound{n: 1}, bound{v: &Var{name: "i"}}, 1, 100},
		{"variable start", bound{v: &Var{name: "i"}}, bound{n: 40}, 1, 40},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, estimate(tc.init, tc.max, tc.step, 100))
		})
	}
}

func loopSession(t *testing.T) (*session, *Stmt) {
	t.Helper()
	opts, err := Defaults().validate()
	require.NoError(t, err)
	s := newSession(opts, newRNG(5))
	m := &Method{kind: methodPlain, class: &Class{Name: "Cls"}}
	return s, &Stmt{method: m}
}

func TestMaxBoundWithRoom(t *testing.T) {
	s, root := loopSession(t)
	o := s.opts
	lo := int(float64(o.MaxSize) * o.MinSizeFraction)
	for i := 0; i < 500; i++ {
		b := s.maxBound(root, nil)
		require.True(t, b.known())
		assert.Greater(t, b.n, lo)
		assert.LessOrEqual(t, b.n, o.MaxSize-2)
	}
}

func TestMaxBoundClipsToCeiling(t *testing.T) {
	s, root := loopSession(t)
	outer := &Stmt{parent: root, method: root.method, loop: true, body: &forBody{est: 5000}}
	room := s.opts.MaxNestedSizeNotMainTest / 5000
	for i := 0; i < 500; i++ {
		b := s.maxBound(outer, []*Var{{name: "i"}})
		require.True(t, b.known(), "triangular limits need room for N iterations")
		assert.GreaterOrEqual(t, b.n, 1)
		assert.LessOrEqual(t, b.n, room)
		assert.LessOrEqual(t, mulClamp(outer.outerIterations(), estimate(bound{n: 0}, b, 1, s.opts.MaxSize)), s.opts.MaxNestedSizeNotMainTest)
	}
}

func TestMulClamp(t *testing.T) {
	assert.Equal(t, 12, mulClamp(3, 4))
	assert.Equal(t, 0, mulClamp(5, 0))
	assert.Equal(t, 1<<31-1, mulClamp(1<<20, 1<<20))
}

func TestMaxBoundThirdLevelClip(t *testing.T) {
	s, root := loopSession(t)
	s.opts.MaxNestedSizeNotMainTest = 250000
	first := &Stmt{parent: root, method: root.method, loop: true, body: &forBody{est: 100}}
	second := &Stmt{parent: first, method: root.method, loop: true, body: &forBody{est: 100}}
	want := s.opts.MaxNestedSizeNotMainTest / (100 * 100)
	for _, ivars := range [][]*Var{nil, {{name: "i"}, {name: "j"}}} {
		for i := 0; i < 200; i++ {
			b := s.maxBound(second, ivars)
			require.True(t, b.known())
			assert.Equal(t, want, b.n)
		}
	}
}

func TestForLoopGuaranteedOutOfBounds(t *testing.T) {
	for seed := uint64(1); seed <= 30; seed++ {
		s := tunedSession(t, seed, func(o *Options) {
			o.ForStep = Weights{{"1", 1}}
			o.PGuaranteedAIOOB = 100
			o.PInequalityInLoopCondition = 100
			o.PAIOOBLoopWhenCaught = 100
			o.PNegativeLoopStart = 0
			o.PUnknownLoopLimit = 0
		})
		c := s.newClass(false)
		m := s.newMethod(c, methodSpec{kind: methodPlain, typ: TypeInt})
		m.root = &Stmt{kind: stmtRoot, scope: m.scope, method: m}
		try := &Stmt{kind: stmtTry, parent: m.root, scope: m.scope, method: m,
			body: &tryBody{s: s, handlers: []*handler{{exc: excAIOOB, name: "exc"}}}}
		st := &Stmt{kind: stmtFor, parent: try, scope: try.scope, method: m}

		require.True(t, s.buildFor(st), "seed %d", seed)
		b := st.body.(*forBody)
		require.NotNil(t, b.aioob, "seed %d", seed)
		assert.Equal(t, 1, b.step)
		assert.True(t, b.max.known(), "the loop runs down to the former start")
		assert.False(t, b.init.known(), "the loop starts past N")
		assert.Contains(t, b.cond.String(), " != ")
		assert.Contains(t, b.aioob.String(), b.ivar.ref())
	}
}
