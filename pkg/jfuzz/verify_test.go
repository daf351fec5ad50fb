package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifySession(t *testing.T, methods int) *session {
	t.Helper()
	opts, err := Defaults().validate()
	require.NoError(t, err)
	s := newSession(opts, newRNG(1))
	c := &Class{Name: "Cls", scope: s.newScope(s.global, scopeClass, nil, nil)}
	s.classes = append(s.classes, c)
	for i := 0; i < methods; i++ {
		s.registerMethod(&Method{name: "m" + itoa(i), class: c})
	}
	return s
}

func TestVerifyCallsFindsCycle(t *testing.T) {
	s := verifySession(t, 3)
	s.calls.edges = [][2]int{{0, 1}, {1, 2}, {2, 0}}
	errs := s.verifyCalls()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "call cycle")
}

func TestVerifyCallsChainDepth(t *testing.T) {
	s := verifySession(t, 4)
	s.calls.edges = [][2]int{{0, 1}, {1, 2}, {2, 3}}
	errs := s.verifyCalls()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "depth 3")

	// constructor calls are steps too
	s.methods[2].kind = methodCtor
	errs = s.verifyCalls()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "depth 3")

	s.calls.edges = [][2]int{{0, 1}, {1, 2}}
	assert.Empty(t, s.verifyCalls())
}

func TestVerifyContainment(t *testing.T) {
	s := verifySession(t, 0)
	a := s.classes[0]
	b := &Class{Name: "Cls1", scope: s.newScope(s.global, scopeClass, nil, nil)}
	s.classes = append(s.classes, b)
	a.super = b
	assert.Empty(t, s.verifyContainment())

	b.scope.objClasses = []*Class{a}
	b.scope.objs[a] = []*Var{{name: "obj", typ: TypeObject, flags: flagMember, class: a, inst: a}}
	errs := s.verifyContainment()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "leads back")

	// a static field is initialized once, with the class
	b.scope.objs[a][0].flags |= flagStatic
	assert.Empty(t, s.verifyContainment())
}

func TestVerifyContainmentFollowsDeclaredClass(t *testing.T) {
	s := verifySession(t, 0)
	a := s.classes[0]
	b := &Class{Name: "Cls1", scope: s.newScope(s.global, scopeClass, nil, nil)}
	s.classes = append(s.classes, b)

	// Cls1 holds a Cls, initialized to null
	b.scope.objClasses = []*Class{a}
	b.scope.objs[a] = []*Var{{name: "obj", typ: TypeObject, flags: flagMember, class: a}}
	assert.Empty(t, s.verifyContainment())

	// Cls holds a Cls1, allocated as something else
	c := &Class{Name: "Cls2", scope: s.newScope(s.global, scopeClass, nil, nil)}
	s.classes = append(s.classes, c)
	a.scope.objClasses = []*Class{b}
	a.scope.objs[b] = []*Var{{name: "back", typ: TypeObject, flags: flagMember, class: b, inst: c}}
	errs := s.verifyContainment()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "leads back")
}

func TestVerifyLoops(t *testing.T) {
	s := verifySession(t, 1)
	m := s.methods[0]
	m.root = &Stmt{method: m}
	loop := func(parent *Stmt, est int) *Stmt {
		st := &Stmt{parent: parent, method: m, loop: true}
		st.body = &forBody{st: st, est: est}
		return st
	}
	outer := loop(m.root, 200)
	inner := loop(outer, 100)
	outer.body.(*forBody).body = []*Stmt{inner}
	m.root.body = &seqBody{stmts: []*Stmt{outer}}
	assert.Empty(t, s.verifyLoops(m))

	inner.body.(*forBody).est = 101
	errs := s.verifyLoops(m)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "20200")

	m.kind = methodMainTest
	assert.Empty(t, s.verifyLoops(m))
}

func TestVerifyWithoutState(t *testing.T) {
	assert.Error(t, (&Program{}).Verify())
}
