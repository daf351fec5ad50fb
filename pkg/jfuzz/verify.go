package jfuzz

import (
	"errors"
	"fmt"
)

// Verify re-checks a finished program from its recorded structure rather
// than from the bookkeeping the engine used while building it:
//
//   - the call graph, constructors included, has no cycle;
//   - no caller chain is longer than max_callers_chain, constructor calls
//     included;
//   - no class instantiates itself through instance field initializers or
//     inheritance;
//   - inside every method, the iteration counts of nested loops multiply to
//     at most the nested-size ceiling of that method.
//
// All violations are joined into one error.
func (p *Program) Verify() error {
	s := p.s
	if s == nil {
		return errors.New("program carries no generation state")
	}
	var errs []error
	errs = append(errs, s.verifyCalls()...)
	errs = append(errs, s.verifyContainment()...)
	for _, m := range s.methods {
		errs = append(errs, s.verifyLoops(m)...)
	}
	return errors.Join(errs...)
}

// callees builds the adjacency lists of the recorded call edges.
func (s *session) callees() [][]int {
	out := make([][]int, len(s.methods))
	for _, e := range s.calls.edges {
		out[e[0]] = append(out[e[0]], e[1])
	}
	return out
}

func (s *session) verifyCalls() []error {
	var errs []error
	next := s.callees()
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(s.methods))
	var visit func(id int) bool
	visit = func(id int) bool {
		color[id] = grey
		for _, n := range next[id] {
			switch color[n] {
			case grey:
				errs = append(errs, fmt.Errorf("call cycle through %s -> %s", s.methods[id].qualified(), s.methods[n].qualified()))
				return false
			case white:
				if !visit(n) {
					return false
				}
			}
		}
		color[id] = black
		return true
	}
	for id := range s.methods {
		if color[id] == white && !visit(id) {
			return errs
		}
	}

	// longest chains, in topological order
	depth := make([]int, len(s.methods))
	order := topoOrder(next)
	for _, id := range order {
		for _, n := range next[id] {
			if d := depth[id] + 1; d > depth[n] {
				depth[n] = d
			}
		}
	}
	for id, d := range depth {
		if d > s.opts.MaxCallersChain {
			errs = append(errs, fmt.Errorf("call chain of depth %d ends at %s, ceiling is %d",
				d, s.methods[id].qualified(), s.opts.MaxCallersChain))
		}
	}
	return errs
}

// topoOrder lists the nodes of an acyclic graph so that every edge points
// forward.
func topoOrder(next [][]int) []int {
	in := make([]int, len(next))
	for _, ns := range next {
		for _, n := range ns {
			in[n]++
		}
	}
	var queue, order []int
	for id, k := range in {
		if k == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, n := range next[id] {
			in[n]--
			if in[n] == 0 {
				queue = append(queue, n)
			}
		}
	}
	return order
}

// verifyContainment follows what constructing an object runs: the
// superclass constructor and the initializers of instance fields. A field
// leads to its declared class and to the class allocated for it.
func (s *session) verifyContainment() []error {
	var errs []error
	next := make(map[*Class][]*Class)
	for _, c := range s.classes {
		if c.super != nil {
			next[c] = append(next[c], c.super)
		}
		for _, v := range c.scope.objects() {
			if !v.has(flagMember) || v.has(flagStatic) {
				continue
			}
			if v.class != nil {
				next[c] = append(next[c], v.class)
			}
			if v.inst != nil && v.inst != v.class {
				next[c] = append(next[c], v.inst)
			}
		}
	}
	done := map[*Class]bool{}
	onPath := map[*Class]bool{}
	var visit func(c *Class) bool
	visit = func(c *Class) bool {
		onPath[c] = true
		for _, k := range next[c] {
			if onPath[k] {
				errs = append(errs, fmt.Errorf("class %s contains an instance of %s, which leads back to it", c.Name, k.Name))
				return false
			}
			if !done[k] && !visit(k) {
				return false
			}
		}
		onPath[c] = false
		done[c] = true
		return true
	}
	for _, c := range s.classes {
		if !done[c] && !visit(c) {
			break
		}
	}
	return errs
}

func (s *session) verifyLoops(m *Method) []error {
	if m.root == nil {
		return nil
	}
	ceiling := s.opts.MaxNestedSizeNotMainTest
	if m.kind == methodMainTest {
		ceiling = s.opts.MaxNestedSize
	}
	var errs []error
	var walk func(st *Stmt, product int)
	walk = func(st *Stmt, product int) {
		if lb, ok := st.body.(loopBody); ok {
			product = mulClamp(product, lb.iterations())
			if product > ceiling {
				errs = append(errs, fmt.Errorf("%s: nested loops run %d iterations, ceiling is %d", m.qualified(), product, ceiling))
				return
			}
		}
		if st.body == nil {
			return
		}
		for _, c := range st.body.children() {
			walk(c, product)
		}
	}
	walk(m.root, 1)
	return errs
}
