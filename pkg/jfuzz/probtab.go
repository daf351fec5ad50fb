package jfuzz

// ProbTable is a weighted discrete distribution. A weight is the number of
// selection slots a value owns; zero-weight values are never picked.
type ProbTable[T comparable] struct {
	keys    []T
	weights map[T]int
}

func newProbTable[T comparable]() *ProbTable[T] {
	return &ProbTable[T]{weights: map[T]int{}}
}

// Reweight replaces the slots of v with w slots, adding v if it is new.
func (p *ProbTable[T]) Reweight(v T, w int) {
	if w < 0 {
		w = 0
	}
	if _, ok := p.weights[v]; !ok {
		p.keys = append(p.keys, v)
	}
	p.weights[v] = w
}

func (p *ProbTable[T]) Weight(v T) int { return p.weights[v] }

// Values lists the table keys in insertion order.
func (p *ProbTable[T]) Values() []T {
	out := make([]T, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *ProbTable[T]) clone() *ProbTable[T] {
	c := newProbTable[T]()
	for _, k := range p.keys {
		c.Reweight(k, p.weights[k])
	}
	return c
}

// Pick draws a slot among values present in include (when non-nil) and
// absent from exclude. ok is false when no slot survives the filter.
func (p *ProbTable[T]) Pick(r *rng, include, exclude []T) (T, bool) {
	var zero T
	total := 0
	for _, k := range p.keys {
		if p.eligible(k, include, exclude) {
			total += p.weights[k]
		}
	}
	if total == 0 {
		return zero, false
	}
	n := r.upto(total)
	for _, k := range p.keys {
		if !p.eligible(k, include, exclude) {
			continue
		}
		if n < p.weights[k] {
			return k, true
		}
		n -= p.weights[k]
	}
	return zero, false
}

func (p *ProbTable[T]) eligible(k T, include, exclude []T) bool {
	if p.weights[k] == 0 {
		return false
	}
	if include != nil && !contains(include, k) {
		return false
	}
	return !contains(exclude, k)
}

func contains[T comparable](items []T, v T) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}
