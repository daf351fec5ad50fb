package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInvocationLinksOnlyWithReceiver(t *testing.T) {
	s := tunedSession(t, 2, func(o *Options) {
		o.PExtendsClass = 0
		o.VarTypes = Weights{{"local", 1}}
	})
	own := s.newClass(false)
	blocked := s.newClass(false)
	open := s.newClass(false)
	m := s.newMethod(own, methodSpec{kind: methodPlain, typ: TypeInt})
	st := &Stmt{kind: stmtRoot, scope: m.scope, method: m}

	// the constructor of blocked calls m, so m cannot allocate a receiver
	s.link(blocked.ctor, m)
	unreachable := s.newMethod(blocked, methodSpec{kind: methodPlain, typ: TypeInt})
	blocked.methods = append(blocked.methods, unreachable)
	edges := len(s.calls.edges)

	assert.False(t, s.buildInvocation(st, &Expr{}, TypeInt, 1, unreachable))
	assert.False(t, s.calls.isCaller(m, unreachable))
	assert.Len(t, s.calls.edges, edges)

	target := s.newMethod(open, methodSpec{kind: methodPlain, typ: TypeInt})
	open.methods = append(open.methods, target)
	e := &Expr{}
	require.True(t, s.buildInvocation(st, e, TypeInt, 1, target))
	assert.True(t, s.calls.isCaller(m, target))
	assert.Equal(t, kindInvoc, e.kind)
	assert.Contains(t, e.String(), "."+target.name+"(")
}
