package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tunedSession is a fresh session on Defaults adjusted by tune.
func tunedSession(t *testing.T, seed uint64, tune func(*Options)) *session {
	t.Helper()
	opts, err := Defaults().validate()
	require.NoError(t, err)
	if tune != nil {
		tune(&opts)
	}
	return newSession(opts, newRNG(seed))
}

func bareClass(s *session, name string) *Class {
	c := &Class{Name: name, memberFlags: map[string]bool{}}
	c.scope = s.newScope(s.global, scopeClass, nil, c)
	return c
}

// holds declares an instance field of class k in c without initializer.
func holds(c, k *Class) {
	c.scope.objClasses = append(c.scope.objClasses, k)
	c.scope.objs[k] = append(c.scope.objs[k], &Var{name: "f" + k.Name, typ: TypeObject, flags: flagMember | flagPublic, class: k})
}

func TestExcludedCategories(t *testing.T) {
	for _, tc := range []struct {
		name     string
		mode     string
		scope    scopeKind
		noBlock  bool
		met      *Method
		expected []string
	}{
		{"class scope", "default", scopeClass, false, nil, []string{"block", "local", "local_other"}},
		{"plain method", "default", scopeMethod, false, &Method{kind: methodPlain}, nil},
		{"static method", "default", scopeMethod, true, &Method{kind: methodPlain, static: true}, []string{"block", "non_static"}},
		{"run method", "default", scopeStmt, false, &Method{kind: methodRun},
			[]string{"non_static", "local_other", "static_other", "static"}},
		{"run method in extreme mode", "MM_extreme", scopeStmt, false, &Method{kind: methodRun}, []string{"static"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := tunedSession(t, 1, func(o *Options) { o.Mode = tc.mode })
			sc := s.newScope(s.global, tc.scope, tc.met, nil)
			assert.ElementsMatch(t, tc.expected, sc.excludedCategories(tc.noBlock, tc.met))
		})
	}
}

func TestCanContain(t *testing.T) {
	s := tunedSession(t, 1, nil)
	a, b, x := bareClass(s, "A"), bareClass(s, "B"), bareClass(s, "X")
	holds(b, a)

	assert.False(t, a.canContain(a))
	assert.False(t, a.canContain(b), "B already holds an A")
	assert.True(t, b.canContain(x))
	assert.False(t, a.canContain(nil))

	sub := bareClass(s, "Sub")
	sub.super = a
	a.children = append(a.children, sub)
	assert.False(t, a.canContain(sub), "a subclass runs the field initializers of A")
	assert.True(t, b.canContain(sub))

	y := bareClass(s, "Y")
	holds(a, y)
	assert.False(t, y.canContain(sub), "Sub inherits the Y field of A")

	// cycles already present elsewhere end the walk
	holds(a, b)
	assert.True(t, x.canContain(a))
	holds(x, x)
	assert.True(t, a.canContain(x))
	assert.False(t, x.canContain(x))
}

func TestGetVarFallsBackToLocalOnContainmentCycle(t *testing.T) {
	s := tunedSession(t, 3, func(o *Options) {
		o.PExtendsClass = 0
		o.VarTypes = Weights{{"non_static", 1}}
	})
	a := s.newClass(false)
	b := s.newClass(false)
	other := s.newClass(false)
	s.newVar(b.scope, TypeObject, flagMember|flagPublic, a, "")
	require.False(t, a.canContain(b))
	m := s.newMethod(a, methodSpec{kind: methodPlain, typ: TypeInt})

	v := m.scope.getVar(varQuery{typ: TypeObject, class: b})
	assert.Same(t, b, v.class)
	assert.False(t, v.has(flagMember), "a field of B in A would close a cycle")
	assert.NotContains(t, a.scope.objects(), v)

	w := m.scope.getVar(varQuery{typ: TypeObject, class: other})
	assert.Same(t, other, w.class)
	assert.True(t, w.has(flagMember))
	assert.Contains(t, a.scope.objects(), w)
}
