package jfuzz

// libMethod is a fixed JDK routine the engine may call.
type libMethod struct {
	name string
	typ  Type
	args []Type
}

func defaultLibMethods() []libMethod {
	return []libMethod{
		{"Math.abs", TypeInt, []Type{TypeInt}},
		{"Math.abs", TypeLong, []Type{TypeLong}},
		{"Math.abs", TypeFloat, []Type{TypeFloat}},
		{"Math.abs", TypeDouble, []Type{TypeDouble}},
		{"Math.max", TypeInt, []Type{TypeInt, TypeInt}},
		{"Math.max", TypeLong, []Type{TypeLong, TypeLong}},
		{"Math.min", TypeInt, []Type{TypeInt, TypeInt}},
		{"Math.min", TypeLong, []Type{TypeLong, TypeLong}},
		{"Math.sqrt", TypeDouble, []Type{TypeDouble}},
		{"Double.longBitsToDouble", TypeDouble, []Type{TypeLong}},
		{"Float.intBitsToFloat", TypeFloat, []Type{TypeInt}},
		{"Integer.reverseBytes", TypeInt, []Type{TypeInt}},
		{"Long.reverseBytes", TypeLong, []Type{TypeLong}},
		{"Short.reverseBytes", TypeShort, []Type{TypeShort}},
	}
}

// The inlinable accessor trio added to a class the first time one of its
// methods uses an inlinvoc expression.
const (
	inlineMembersTag = "inline-accessors"
	inlineFieldName  = "statIntField"
)

var inlineMembers = []string{
	"static int " + inlineFieldName + " = 3;",
	"static void statSet(int value) {" + inlineFieldName + " = value;}",
	"static int  statGet() {return " + inlineFieldName + ";}",
}

func (s *session) buildCall(st *Stmt, e *Expr, kind exprKind, depth int) bool {
	switch kind {
	case kindLibInvoc:
		return s.buildLibCall(st, e, depth)
	case kindInlInvoc:
		if !isArith(e.typ) {
			return false
		}
		st.method.class.addMember(inlineMembersTag, inlineMembers...)
		e.kind = kindInlInvoc
		e.text = "statGet()"
		e.res = TypeInt
		return true
	}
	return s.buildInvocation(st, e, e.typ, depth, nil)
}

func (s *session) buildLibCall(st *Stmt, e *Expr, depth int) bool {
	var cands []int
	for i, lm := range s.libMethods {
		if lm.typ == e.typ {
			cands = append(cands, i)
		}
	}
	i, ok := pickOne(s.r, cands)
	if !ok {
		return false
	}
	lm := &s.libMethods[i]
	e.kind = kindLibInvoc
	e.lib = lm
	e.res = lm.typ
	for _, t := range lm.args {
		e.args = append(e.args, s.newExpr(st, exprReq{typ: t, depth: depth + 1, flags: exprCast}))
	}
	return true
}

// buildInvocation turns e into a call of m, or of a method acquired for
// want when m is nil. It fails when calls are not allowed from st or when
// an instance method of another class has no object to be called on.
func (s *session) buildInvocation(st *Stmt, e *Expr, want Type, depth int, m *Method) bool {
	if st.loopDepth() > s.opts.ExpInvocLoopDepth {
		return false
	}
	caller := st.method
	if m == nil {
		if s.depthExceeded() {
			return false
		}
		var good []*Class
		for _, c := range s.classes {
			if caller.static || c == caller.class || caller.class.canContain(c) {
				good = append(good, c)
			}
		}
		cls, ok := pickOne(s.r, good)
		if !ok {
			return false
		}
		if m = s.method(cls, caller, want); m == nil {
			return false
		}
	}
	prefix := ""
	if m.class != caller.class {
		if m.static {
			prefix = m.class.Name + "."
		} else {
			v := st.scope.getVar(varQuery{reuse: s.opts.PVarReuse, typ: TypeObject, class: m.class, notNull: true})
			if !v.has(flagNotNull) {
				return false
			}
			prefix = v.ref() + "."
		}
	}
	// the receiver may have allocated, so the edge is vetted afterwards
	if !s.canLink(caller, m) {
		return false
	}
	s.link(caller, m)
	e.kind = kindInvoc
	e.call = m
	e.prefix = prefix
	e.typ = m.typ
	e.res = m.typ
	e.args = nil
	for _, a := range m.args {
		e.args = append(e.args, s.newExpr(st, exprReq{typ: a.typ, depth: depth + 1, flags: exprCast, class: a.class}))
	}
	return true
}
