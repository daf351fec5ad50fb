package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbTableSkipsZeroWeights(t *testing.T) {
	p := newProbTable[string]()
	p.Reweight("never", 0)
	p.Reweight("always", 3)
	r := newRNG(9)
	for i := 0; i < 200; i++ {
		v, ok := p.Pick(r, nil, nil)
		require.True(t, ok)
		assert.Equal(t, "always", v)
	}
}

func TestProbTableFilters(t *testing.T) {
	p := newProbTable[int]()
	for i := 1; i <= 5; i++ {
		p.Reweight(i, i)
	}
	r := newRNG(4)
	for i := 0; i < 200; i++ {
		v, ok := p.Pick(r, []int{2, 3, 4}, []int{3})
		require.True(t, ok)
		assert.Contains(t, []int{2, 4}, v)
	}

	_, ok := p.Pick(r, []int{9}, nil)
	assert.False(t, ok)
	_, ok = p.Pick(r, nil, []int{1, 2, 3, 4, 5})
	assert.False(t, ok)
}

func TestProbTableReweight(t *testing.T) {
	p := newProbTable[string]()
	p.Reweight("b", 2)
	p.Reweight("a", 1)
	p.Reweight("b", -4)

	assert.Equal(t, []string{"b", "a"}, p.Values())
	assert.Equal(t, 0, p.Weight("b"))
	assert.Equal(t, 1, p.Weight("a"))

	c := p.clone()
	c.Reweight("a", 7)
	assert.Equal(t, 1, p.Weight("a"))
	assert.Equal(t, 7, c.Weight("a"))
}
