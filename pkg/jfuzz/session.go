package jfuzz

import (
	"fmt"
	"log/slog"
	"strconv"
)

// InvariantError reports a violated engine invariant. It is raised with
// panic inside the engine and turned into an ordinary error by Generate.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal error in %s: %s", e.Op, e.Detail)
}

func fail(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// session is the state of one generation run: the random source, the
// class registry, the call graph and the naming counters. Nothing in it
// outlives a run and nothing is shared between runs.
type session struct {
	opts Options
	r    *rng
	log  *slog.Logger

	global  *Scope
	head    *Class
	classes []*Class
	methods []*Method
	calls   *callGraph

	names      map[string]int
	scopeIDs   int
	runMethods int
	ctorNesting int

	// auxiliary top-level types, emitted once
	aux            []string
	userExcAdded   bool
	testClassAdded bool

	types       *ProbTable[Type]
	expKinds    *ProbTable[exprKind]
	opCats      *ProbTable[string]
	operators   map[string]*ProbTable[string]
	indKinds    *ProbTable[string]
	varTypes    *ProbTable[string]
	forSteps    *ProbTable[int]
	indVarTypes *ProbTable[Type]
	libMethods  []libMethod
}

func newSession(opts Options, r *rng) *session {
	s := &session{
		opts:      opts,
		r:         r,
		log:       opts.Logger,
		calls:     newCallGraph(),
		names:     map[string]int{},
		operators: map[string]*ProbTable[string]{},
	}
	s.global = s.newScope(nil, scopeGlobal, nil, nil)
	s.scopeIDs = 1

	s.types = newProbTable[Type]()
	for _, w := range opts.Types {
		t, _ := ParseType(w.Key)
		s.types.Reweight(t, w.Weight)
	}
	s.expKinds = newProbTable[exprKind]()
	for _, w := range opts.ExpKinds {
		k, _ := parseExprKind(w.Key)
		s.expKinds.Reweight(k, w.Weight)
	}
	s.opCats = weightsTable(opts.OpCats)
	for _, cat := range opCategoryNames {
		if tab, ok := opts.Operators[cat]; ok {
			s.operators[cat] = weightsTable(tab)
		}
	}
	s.indKinds = weightsTable(opts.IndKinds)
	s.varTypes = weightsTable(opts.VarTypes)
	s.forSteps = newProbTable[int]()
	for _, w := range opts.ForStep {
		step, _ := strconv.Atoi(w.Key)
		s.forSteps.Reweight(step, w.Weight)
	}
	s.indVarTypes = newProbTable[Type]()
	for _, w := range opts.IndVarTypes {
		t, _ := ParseType(w.Key)
		s.indVarTypes.Reweight(t, w.Weight)
	}
	s.libMethods = defaultLibMethods()
	return s
}

func (s *session) extreme() bool { return s.opts.Mode == "MM_extreme" }

func weightsTable(w Weights) *ProbTable[string] {
	p := newProbTable[string]()
	for _, e := range w {
		p.Reweight(e.Key, e.Weight)
	}
	return p
}

// pick wraps ProbTable.Pick for tables that must never come up empty.
func pick[T comparable](s *session, p *ProbTable[T], what string, include, exclude []T) T {
	v, ok := p.Pick(s.r, include, exclude)
	if !ok {
		fail("pick", "no eligible %s (include=%v exclude=%v)", what, include, exclude)
	}
	return v
}

// randType draws from the type table, never yielding Object once the class
// ceiling is reached.
func (s *session) randType(include, exclude []Type) Type {
	if len(s.classes) >= s.opts.MaxClasses {
		exclude = append(append([]Type(nil), exclude...), TypeObject)
	}
	if t, ok := s.types.Pick(s.r, include, exclude); ok {
		return t
	}
	// the restricted sets below carry zero weights by default
	if include != nil {
		if t, ok := pickOne(s.r, without(include, exclude)); ok {
			return t
		}
	}
	fail("randType", "no eligible type (include=%v exclude=%v)", include, exclude)
	return TypeNone
}

func without[T comparable](items, exclude []T) []T {
	var out []T
	for _, it := range items {
		if !contains(exclude, it) {
			out = append(out, it)
		}
	}
	return out
}

// uniqueName returns prefix followed by the per-prefix counter; the first
// use of a prefix gets no number.
func (s *session) uniqueName(prefix string) string {
	n := s.names[prefix]
	s.names[prefix] = n + 1
	if n == 0 {
		return prefix
	}
	return prefix + strconv.Itoa(n)
}

func (s *session) nextScopeID() int {
	s.scopeIDs++
	return s.scopeIDs
}

func (s *session) registerMethod(m *Method) {
	m.ID = len(s.methods)
	s.methods = append(s.methods, m)
	s.calls.register(m)
}

// depthExceeded reports whether the call graph already reached the chain
// ceiling, which switches off every invocation-producing construct.
func (s *session) depthExceeded() bool {
	return s.calls.maxDepth() >= s.opts.MaxCallersChain
}

// link adds a call edge after the caller side has been vetted. A nil end
// means "no code runs there" and is ignored.
func (s *session) link(caller, callee *Method) {
	if caller == nil || callee == nil || s.calls.isCaller(caller, callee) {
		return
	}
	s.calls.add(caller, callee)
}

// canLink reports whether caller may call callee without closing a cycle or
// pushing any chain past the ceiling.
func (s *session) canLink(caller, callee *Method) bool {
	if caller == nil || callee == nil {
		return true
	}
	return s.calls.canAdd(caller, callee, s.opts.MaxCallersChain)
}

// roomBelow reports whether m may call a method that calls nothing yet.
func (s *session) roomBelow(m *Method) bool {
	return m == nil || s.calls.depth(m) < s.opts.MaxCallersChain
}
