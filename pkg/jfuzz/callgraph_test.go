package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphOf(kinds ...methodKind) (*callGraph, []*Method) {
	g := newCallGraph()
	c := &Class{Name: "Cls"}
	ms := make([]*Method, len(kinds))
	for i, k := range kinds {
		ms[i] = &Method{ID: i, name: "m" + itoa(i), class: c, kind: k}
		g.register(ms[i])
	}
	return g, ms
}

func TestCallGraphClosure(t *testing.T) {
	g, m := graphOf(methodPlain, methodPlain, methodPlain, methodPlain)
	g.add(m[0], m[1])
	g.add(m[1], m[2])

	assert.True(t, g.isCaller(m[0], m[2]))
	assert.True(t, g.isCaller(m[1], m[2]))
	assert.True(t, g.isCaller(m[2], m[2]))
	assert.False(t, g.isCaller(m[2], m[0]))
	assert.False(t, g.isCaller(m[3], m[2]))

	// a caller added above an existing chain reaches its bottom too
	g.add(m[3], m[0])
	assert.True(t, g.isCaller(m[3], m[2]))
	assert.Equal(t, 3, g.depth(m[2]))
	assert.Equal(t, 3, g.maxDepth())
	assert.Len(t, g.edges, 3)
}

func TestCallGraphRejectsCycles(t *testing.T) {
	g, m := graphOf(methodPlain, methodPlain, methodPlain)
	g.add(m[0], m[1])
	g.add(m[1], m[2])

	assert.False(t, g.canAdd(m[2], m[0], 10))
	assert.False(t, g.canAdd(m[1], m[1], 10))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*InvariantError)
		assert.True(t, ok)
	}()
	g.add(m[2], m[0])
}

func TestCallGraphDepthCountsConstructors(t *testing.T) {
	g, m := graphOf(methodPlain, methodCtor, methodPlain)
	g.add(m[0], m[1])
	g.add(m[1], m[2])

	assert.Equal(t, 1, g.depth(m[1]))
	assert.Equal(t, 2, g.depth(m[2]))
}

func TestCallGraphHeight(t *testing.T) {
	g, m := graphOf(methodCtor, methodCtor, methodPlain, methodPlain)
	g.add(m[0], m[1])
	g.add(m[1], m[2])
	g.add(m[0], m[3])

	assert.Equal(t, 2, g.height(m[0]))
	assert.Equal(t, 1, g.height(m[1]))
	assert.Equal(t, 0, g.height(m[2]))
	assert.Equal(t, 0, g.height(m[3]))
}

func TestCallGraphCanAddRespectsLimit(t *testing.T) {
	g, m := graphOf(methodPlain, methodPlain, methodPlain, methodPlain)
	g.add(m[0], m[1])
	g.add(m[1], m[2])

	assert.False(t, g.canAdd(m[2], m[3], 2))
	assert.True(t, g.canAdd(m[2], m[3], 3))
	assert.True(t, g.canAdd(m[0], m[3], 2))
	// an edge the closure already holds is always fine
	assert.True(t, g.canAdd(m[0], m[2], 0))
	// a constructor in the middle of the chain is a step like any other
	m[1].kind = methodCtor
	assert.False(t, g.canAdd(m[2], m[3], 2))

	// canAdd works on a copy
	assert.False(t, g.isCaller(m[2], m[3]))
	assert.Equal(t, 2, g.maxDepth())
}
