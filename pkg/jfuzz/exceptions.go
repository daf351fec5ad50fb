package jfuzz

import "strings"

type exception int

const (
	excArithmetic exception = iota
	excAIOOB
	excNegativeArraySize
	excNullPointer
	excUser
)

var allExceptions = []exception{excArithmetic, excAIOOB, excNegativeArraySize, excNullPointer, excUser}

func (s *session) exceptionName(e exception) string {
	switch e {
	case excArithmetic:
		return "ArithmeticException"
	case excAIOOB:
		return "ArrayIndexOutOfBoundsException"
	case excNegativeArraySize:
		return "NegativeArraySizeException"
	case excNullPointer:
		return "NullPointerException"
	}
	return s.opts.userExceptionName()
}

// handler is one catch clause, or the finally clause when finally is set.
type handler struct {
	exc     exception
	finally bool
	name    string
	st      *Stmt
}

type tryBody struct {
	s        *session
	block    []*Stmt
	handlers []*handler
}

func (b *tryBody) children() []*Stmt {
	out := append([]*Stmt(nil), b.block...)
	for _, h := range b.handlers {
		out = append(out, h.st)
	}
	return out
}

func (b *tryBody) render(p *printer) {
	p.line("try {")
	p.shift(1)
	renderAll(p, b.block)
	p.shift(-1)
	for _, h := range b.handlers {
		if h.finally {
			p.line("} finally {")
		} else {
			p.linef("} catch (%s %s) {", b.s.exceptionName(h.exc), h.name)
		}
		p.shift(1)
		h.st.renderChildren(p)
		p.shift(-1)
	}
	p.line("}")
}

// catches reports whether the catch clauses of a try statement handle exc.
func (b *tryBody) catches(exc exception) bool {
	for _, h := range b.handlers {
		if !h.finally && h.exc == exc {
			return true
		}
	}
	return false
}

// isCaught reports whether exc raised at st lands in a catch clause. Catch
// and finally blocks hang off the parent of their try statement, so they
// are not covered by it.
func (st *Stmt) isCaught(exc exception) bool {
	for a := st; a != nil; a = a.parent {
		if tb, ok := a.body.(*tryBody); ok && tb.catches(exc) {
			return true
		}
	}
	return false
}

// caughtExceptions lists what the try statements around st catch.
func (st *Stmt) caughtExceptions() []exception {
	var out []exception
	for a := st.parent; a != nil; a = a.parent {
		tb, ok := a.body.(*tryBody)
		if !ok {
			continue
		}
		for _, h := range tb.handlers {
			if !h.finally {
				out = append(out, h.exc)
			}
		}
	}
	return out
}

func (s *session) buildTry(st *Stmt) bool {
	o := s.opts
	if st.remainder() < 4 || st.loopNesting() > 3 {
		return false
	}
	b := &tryBody{s: s}
	st.body = b
	exc, _ := pickOne(s.r, allExceptions)
	// the handlers are listed before the block is drawn so that statements
	// inside it can see what is caught
	main := s.afterTry(st, exc, false)
	b.handlers = append(b.handlers, main)
	if s.r.prob(15) {
		extra, _ := pickOne(s.r, without(allExceptions, []exception{exc}))
		h := s.afterTry(st, extra, false)
		if s.r.prob(50) {
			b.handlers = []*handler{h, main}
		} else {
			b.handlers = append(b.handlers, h)
		}
	}
	b.block = s.genStmtSeq(st, o.MaxTryStmts, false)
	for _, h := range b.handlers {
		h.st.body = &seqBody{stmts: s.genStmtSeq(h.st, o.MaxElStmts, true)}
	}
	if s.r.prob(30) {
		h := s.afterTry(st, 0, true)
		h.st.body = &seqBody{stmts: s.genStmtSeq(h.st, o.MaxElStmts, true)}
		b.handlers = append(b.handlers, h)
	}
	for _, h := range b.handlers {
		if !h.finally && h.exc == excUser {
			s.addUserException()
		}
	}
	return true
}

func (s *session) afterTry(try *Stmt, exc exception, finally bool) *handler {
	h := &handler{exc: exc, finally: finally, st: child(stmtAfterTry, try.parent)}
	if !finally {
		h.name = try.scope.genName("exc", TypeNone, false)
	}
	return h
}

func (s *session) addUserException() {
	if s.userExcAdded {
		return
	}
	s.userExcAdded = true
	s.aux = append(s.aux, strings.Join([]string{
		"class " + s.opts.userExceptionName() + " extends RuntimeException {",
		"    public int field;",
		"}",
	}, "\n"))
}

func (s *session) addTestClass() {
	if s.testClassAdded {
		return
	}
	s.testClassAdded = true
	s.aux = append(s.aux, strings.Join([]string{
		"class " + s.opts.testClassName() + " {",
		"    public int field;",
		"    public void meth() {field = 1;}",
		"}",
	}, "\n"))
}

// excBody is a short run of lines and statements that raises an exception
// some enclosing try statement catches.
type excBody struct {
	items []any // string lines and *Stmt
}

func (b *excBody) children() []*Stmt {
	var out []*Stmt
	for _, it := range b.items {
		if st, ok := it.(*Stmt); ok {
			out = append(out, st)
		}
	}
	return out
}

func (b *excBody) render(p *printer) {
	for _, it := range b.items {
		switch v := it.(type) {
		case string:
			if strings.HasPrefix(v, "}") {
				p.shift(-1)
			}
			p.line(v)
			if strings.HasSuffix(v, "{") {
				p.shift(1)
			}
		case *Stmt:
			v.body.render(p)
		}
	}
}

func (s *session) buildExc(st *Stmt) bool {
	excs := st.caughtExceptions()
	exc, ok := pickOne(s.r, excs)
	if !ok {
		return false
	}
	b := &excBody{}
	st.body = b
	intDest := func(kind exprKind) *Expr {
		return s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: kind, flags: exprDest})
	}
	switch exc {
	case excArithmetic:
		zero := s.newVar(st.scope, TypeInt, flagNull, nil, "")
		zero.induction = true
		divisor := scalarOf(zero, exprFinal)
		dest := intDest(s.pickKind(destKinds, nil))
		var val *Expr
		if s.r.prob(30) {
			val = s.newExpr(st, exprReq{typ: TypeInt, depth: 2})
		} else {
			val = s.newExpr(st, exprReq{typ: TypeInt, depth: 2, kind: s.pickKind(destKinds, nil)})
		}
		sign, _ := pickOne(s.r, []string{"/", "%"})
		op, _ := lookupOperator(sign, "arith")
		div := &Expr{kind: kindOper, typ: TypeInt, op: op, flags: exprCast, args: []*Expr{val, divisor}}
		div.settle()
		b.items = append(b.items, assignStmt(st, assignExpr(dest, "=", "integral_assn", div)))
	case excAIOOB:
		var dest, val *Expr
		if s.r.prob(50) {
			dest = intDest(s.pickKind(destKinds, nil))
			val = s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: kindArray, flags: exprAnyIndex})
		} else {
			dest = s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: kindArray, flags: exprDest | exprAnyIndex})
			val = s.newExpr(st, exprReq{typ: TypeInt, depth: 1})
		}
		b.items = append(b.items, assignStmt(st, assignExpr(dest, "=", "integral_assn", val)))
	case excNegativeArraySize:
		size := intDest(kindScalar)
		b.items = append(b.items, assignStmt(st, assignExpr(size, "=", "integral_assn", intLit(-10))))
		arr := st.scope.getArr(arrQuery{reuse: s.opts.PVarReuse, elem: TypeInt, dims: 1})
		b.items = append(b.items, arr.ref()+" = new int["+size.String()+"];")
	case excNullPointer:
		b.items = append(b.items, s.nullPointer(st)...)
	case excUser:
		cond := s.newExpr(st, exprReq{typ: TypeInt})
		b.items = append(b.items, "if (("+cond.String()+") < "+itoa(s.opts.MaxNum)+") throw new "+s.opts.userExceptionName()+"();")
	}
	return true
}

// nullPointer dereferences a fresh null object or array.
func (s *session) nullPointer(st *Stmt) []any {
	var items []any
	intDest := func() *Expr {
		return s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: kindScalar, flags: exprDest})
	}
	if s.r.prob(50) {
		s.addTestClass()
		obj := st.scope.genName("obj", TypeNone, false)
		items = append(items, s.opts.testClassName()+" "+obj+" = null;")
		switch s.r.upto(4) {
		case 0:
			if asg := s.assignAttempt(st); asg != nil {
				return append(items, "synchronized("+obj+") {", asg, "}")
			}
			items = append(items, obj+".meth();")
		case 1:
			items = append(items, intDest().String()+" = "+obj+".field;")
		case 2:
			items = append(items, obj+".field = 3;")
		default:
			items = append(items, obj+".meth();")
		}
		return items
	}
	arr := st.scope.genName("Null", TypeInt, true)
	items = append(items, "int[] "+arr+" = null;")
	switch s.r.upto(4) {
	case 0, 1:
		items = append(items, intDest().String()+" = "+arr+"[1];")
	case 2:
		items = append(items, arr+"[2] = 3;")
	default:
		items = append(items, intDest().String()+" = "+arr+".length;")
	}
	return items
}

func (s *session) assignAttempt(parent *Stmt) *Stmt {
	for i := 0; i < 3; i++ {
		st := child(stmtAssign, parent)
		if s.buildAssign(st) {
			return st
		}
	}
	return nil
}
