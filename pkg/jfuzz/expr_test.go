package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawKindPastDepthCeiling(t *testing.T) {
	s := tunedSession(t, 11, nil)
	deep := s.opts.MaxExpDepth + 1
	for _, typ := range []Type{TypeInt, TypeLong, TypeDouble, TypeBoolean, TypeString, TypeArray} {
		t.Run(typ.String(), func(t *testing.T) {
			for i := 0; i < 300; i++ {
				assert.Contains(t, terminalKinds, s.drawKind(typ, nil, deep))
			}
		})
	}

	// within the ceiling, operators show up
	seen := map[exprKind]bool{}
	for i := 0; i < 300; i++ {
		seen[s.drawKind(TypeInt, nil, 1)] = true
	}
	assert.True(t, seen[kindOper])
}

func TestTransferGuardsDivisors(t *testing.T) {
	s := tunedSession(t, 1, nil)
	div, ok := lookupOperator("/", "arith")
	require.True(t, ok)
	plus, ok := lookupOperator("+", "arith")
	require.True(t, ok)

	st := &Stmt{}
	caught := &Stmt{parent: &Stmt{body: &tryBody{s: s, handlers: []*handler{{exc: excArithmetic}}}}}
	d := &Var{name: "d", typ: TypeDouble}

	guarded := func(t *testing.T, got *Expr, x *Expr) {
		t.Helper()
		require.Equal(t, kindOper, got.kind)
		assert.Equal(t, "|", got.op.sign)
		assert.Equal(t, TypeLong, got.typ)
		require.Len(t, got.args, 2)
		assert.Equal(t, "1", got.args[1].text)
		assert.Equal(t, TypeLong, got.args[0].typ)
		assert.True(t, got.args[0].has(exprCast))
		assert.Equal(t, x.kind, got.args[0].kind)
	}

	t.Run("variable", func(t *testing.T) {
		x := scalarOf(d, 0)
		got := s.transfer(st, x, div)
		guarded(t, got, x)
		assert.Equal(t, "((long)(d) | 1)", got.operand())
	})
	t.Run("zero literal", func(t *testing.T) {
		x := intLit(0)
		guarded(t, s.transfer(st, x, div), x)
	})
	t.Run("nonzero literal", func(t *testing.T) {
		x := intLit(7)
		assert.Same(t, x, s.transfer(st, x, div))
		assert.Equal(t, "7", x.text)
	})
	t.Run("literal with a zero low byte", func(t *testing.T) {
		x := intLit(512)
		assert.Same(t, x, s.transfer(st, x, div))
		assert.Equal(t, "513", x.text)
	})
	t.Run("final value", func(t *testing.T) {
		x := scalarOf(d, exprFinal)
		assert.Same(t, x, s.transfer(st, x, div))
	})
	t.Run("arithmetic exception handled", func(t *testing.T) {
		x := scalarOf(d, 0)
		assert.Same(t, x, s.transfer(caught, x, div))
	})
	t.Run("not a division", func(t *testing.T) {
		x := intLit(0)
		assert.Same(t, x, s.transfer(st, x, plus))
	})
}
