package jfuzz

// bound is a loop limit: a constant, an enclosing induction variable or a
// composite expression.
type bound struct {
	n int
	v *Var
	e *Expr
}

func (b bound) known() bool { return b.v == nil && b.e == nil }

func (b bound) expr() *Expr {
	switch {
	case b.e != nil:
		return b.e
	case b.v != nil:
		return scalarOf(b.v, 0)
	}
	return intLit(b.n)
}

func (b bound) plus(sign string, x *Expr) bound {
	return bound{e: binary(b.expr(), sign, x)}
}

// render prints the bound as the initial value of ivar.
func (b bound) render(ivar *Var) string {
	if b.known() {
		return itoa(b.n)
	}
	e := b.expr()
	if needsCast(ivar.typ, e.effRes()) {
		return "(" + ivar.typ.String() + ")(" + e.String() + ")"
	}
	return e.String()
}

func (s *session) nestedCeiling(st *Stmt) int {
	if st.method.kind == methodMainTest {
		return s.opts.MaxNestedSize
	}
	return s.opts.MaxNestedSizeNotMainTest
}

// maxBound draws the upper limit of a new loop under parent. Triangular
// loops reuse an enclosing induction variable. Near the nested-size
// ceiling the limit is clipped to what the outer loops leave, and never
// above N-2 so that i+1 stays a valid index.
func (s *session) maxBound(parent *Stmt, ivars []*Var) bound {
	o := s.opts
	outer := parent.outerIterations()
	room := s.nestedCeiling(parent) / outer
	lo := int(float64(o.MaxSize) * o.MinSizeFraction)
	clip := func(n int) bound {
		if n > o.MaxSize-2 {
			n = o.MaxSize - 2
		}
		if n > room {
			n = room
		}
		if n < 1 {
			n = 1
		}
		return bound{n: n}
	}
	fresh := s.r.upto(o.MaxSize-2-lo) + lo + 1
	roomy := o.MaxSize <= room
	if len(ivars) > 0 && s.r.prob(o.PTriang) {
		if roomy {
			v, _ := pickOne(s.r, ivars)
			return bound{v: v}
		}
		return clip(room)
	}
	if roomy {
		return clip(fresh)
	}
	return clip(room)
}

type forBody struct {
	st      *Stmt
	ivar    *Var
	step    int
	init    bound
	max     bound
	unknown bool
	est     int // iteration count charged against the nested-size ceiling
	cond    *Expr
	prefix  bool // ++i rather than i++

	zero      *Var
	aioob     *Expr
	aioobOnly bool
	body      []*Stmt
}

func (b *forBody) inductionVar() *Var { return b.ivar }

func (b *forBody) iterations() int { return b.est }

// estimate counts the iterations of a loop running from init to max by
// step. Bounds that are not constants count as N.
func estimate(init, max bound, step, n int) int {
	if !max.known() {
		return n
	}
	span := max.n
	if init.known() {
		span = max.n - init.n
	}
	if step < 0 {
		step = -step
	}
	if span < 0 {
		span = -span
	}
	if n := (span + step - 1) / step; n > 1 {
		return n
	}
	return 1
}

func (b *forBody) children() []*Stmt { return b.body }

func (b *forBody) render(p *printer) {
	ivar := b.ivar.ref()
	if b.zero != nil {
		p.linef("%s = FuzzerUtils.UnknownZero;", b.zero.ref())
	}
	var inc string
	switch {
	case b.step == 1 || b.step == -1:
		sign := "++"
		if b.step < 0 {
			sign = "--"
		}
		if b.prefix {
			inc = sign + ivar
		} else {
			inc = ivar + sign
		}
	case b.step > 0:
		inc = ivar + " += " + itoa(b.step)
	default:
		inc = ivar + " -= " + itoa(-b.step)
	}
	p.linef("for (%s = %s; %s; %s) {", ivar, b.init.render(b.ivar), b.cond, inc)
	p.shift(1)
	b.st.scope.renderDeclarations(p)
	if b.aioob != nil {
		p.line(b.aioob.String() + ";")
	}
	if b.aioob == nil || !b.aioobOnly {
		renderAll(p, b.body)
	}
	p.shift(-1)
	p.line("}")
}

func (s *session) buildFor(st *Stmt) bool {
	o := s.opts
	if st.remainder() < 2 || st.loopNesting() >= o.MaxLoopDepth {
		return false
	}
	parent := st.parent
	st.loop = true
	st.scope = s.newScope(parent.scope, scopeStmt, nil, nil)
	b := &forBody{st: st}
	st.body = b

	b.ivar = s.newVar(st.scope, pick(s, s.indVarTypes, "induction type", nil, nil), 0, nil, "")
	b.ivar.induction = true
	b.step = pick(s, s.forSteps, "for step", nil, nil)
	b.unknown = s.r.prob(o.PUnknownLoopLimit)
	ivars := parent.inductionVars()
	b.max = s.maxBound(parent, ivars)
	var others []*Var
	for _, v := range ivars {
		if v != b.max.v && v != b.ivar {
			others = append(others, v)
		}
	}
	switch {
	case s.r.prob(o.PTriang) && len(others) > 0:
		v, _ := pickOne(s.r, others)
		b.init = bound{v: v}
	case b.max.v != nil:
		b.init = bound{n: 1}
	default:
		b.init = bound{n: s.r.upto(b.max.n/o.StartFrac) + 1}
	}

	cond := "<"
	if b.step < 0 {
		cond = ">"
	}
	if !b.unknown && s.r.prob(o.PInequalityInLoopCondition) && (b.step == 1 || b.step == -1) && b.init.known() && b.max.known() {
		cond = "!="
	}

	b.est = estimate(b.init, b.max, b.step, o.MaxSize)

	if b.unknown {
		b.zero = s.newVar(st.scope, TypeInt, 0, nil, "")
		b.zero.induction = true
		var x *Expr
		if s.r.prob(50) {
			x = intLit(1)
		} else {
			x = s.newExpr(parent, exprReq{typ: s.randType(append(append([]Type(nil), integralTypes...), TypeFloat), nil), depth: 3})
		}
		zeroed := binary(x, "*", scalarOf(b.zero, 0))
		if s.r.prob(50) {
			b.init = b.init.plus("+", zeroed)
		} else {
			b.max = b.max.plus("+", zeroed)
		}
	}

	caught := parent.isCaught(excAIOOB)
	longer := mulClamp(parent.outerIterations(), b.est+o.MaxSize) <= s.nestedCeiling(parent)
	if longer && ((caught && s.r.prob(o.PAIOOBLoopWhenCaught)) || s.r.prob(o.PLoopIterNumGtMaxSize)) {
		b.est += o.MaxSize
		if s.r.prob(o.PNegativeLoopStart) {
			b.init = b.init.plus("-", intLit(o.MaxSize))
		} else {
			b.max = b.max.plus("+", intLit(o.MaxSize))
		}
		if s.r.prob(o.PGuaranteedAIOOB) && cond == "!=" && caught {
			b.init, b.max = b.max, b.init
			b.aioob = s.aioobAssign(st, b.ivar)
			b.aioobOnly = s.r.prob(50)
		}
	}
	if b.step < 0 {
		b.init, b.max = b.max, b.init
	}

	if s.r.prob(80) {
		b.cond = binary(scalarOf(b.ivar, 0), cond, b.max.expr())
	} else {
		switch cond {
		case "<":
			cond = ">"
		case ">":
			cond = "<"
		}
		b.cond = binary(b.max.expr(), cond, scalarOf(b.ivar, 0))
	}
	if b.step == 1 || b.step == -1 {
		b.prefix = s.r.prob(50)
	}
	b.body = s.genStmtSeq(st, o.MaxLoopStmts, false)
	return true
}

// aioobAssign reads or writes an N-sized array at the raw induction
// variable, which the surrounding loop drives out of bounds.
func (s *session) aioobAssign(st *Stmt, ivar *Var) *Expr {
	var arr *Var
	for i := 0; i < 3 && (arr == nil || arr.size != 0); i++ {
		arr = st.scope.getArr(arrQuery{reuse: s.opts.PVarReuse, elem: TypeInt, dims: 1, notNull: true})
	}
	if arr.size != 0 || !arr.has(flagNotNull) {
		arr = s.newArr(st.scope, 1, TypeInt, flagNotNull, "", 0)
	}
	ix := scalarOf(ivar, exprCast)
	ix.typ = TypeInt
	elem := &Expr{kind: kindArray, typ: TypeInt, res: TypeInt, v: arr, args: []*Expr{ix}}
	if s.r.prob(50) {
		dest := s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: s.pickKind(destKinds, nil), flags: exprDest})
		return assignExpr(dest, "=", "integral_assn", elem)
	}
	elem.flags |= exprDest
	kind := kindScalar
	if !s.r.prob(80) {
		kind = s.pickKind(destKinds, nil)
	}
	val := s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: kind})
	return assignExpr(elem, "=", "integral_assn", val)
}

type whileBody struct {
	st   *Stmt
	ivar *Var
	step int
	max  bound
	do   bool
	body []*Stmt
}

func (b *whileBody) inductionVar() *Var { return b.ivar }

func (b *whileBody) iterations() int {
	if !b.max.known() {
		return b.st.scope.s.opts.MaxSize
	}
	step := b.step
	if step < 0 {
		step = -step
	}
	if n := (b.max.n + step - 1) / step; n > 1 {
		return n
	}
	return 1
}

func (b *whileBody) children() []*Stmt { return b.body }

func (b *whileBody) render(p *printer) {
	ivar := b.ivar.ref()
	max := b.max.render(b.ivar)
	var inc, cond string
	switch {
	case b.step == 1:
		inc = "++" + ivar
	case b.step == -1:
		inc = "--" + ivar
	case b.step > 0:
		inc = "(" + ivar + " += " + itoa(b.step) + ")"
	default:
		inc = "(" + ivar + " -= " + itoa(-b.step) + ")"
	}
	start := "1"
	if b.step > 0 {
		cond = " < " + max
	} else {
		cond = " > 0"
		start = max
	}
	p.linef("%s = %s;", ivar, start)
	if b.do {
		p.line("do {")
	} else {
		p.linef("while (%s%s) {", inc, cond)
	}
	p.shift(1)
	b.st.scope.renderDeclarations(p)
	renderAll(p, b.body)
	p.shift(-1)
	if b.do {
		p.linef("} while (%s%s);", inc, cond)
	} else {
		p.line("}")
	}
}

func (s *session) buildWhile(st *Stmt) bool {
	o := s.opts
	if st.remainder() < 2 || st.loopNesting() >= o.MaxLoopDepth {
		return false
	}
	st.loop = true
	st.scope = s.newScope(st.parent.scope, scopeStmt, nil, nil)
	b := &whileBody{st: st, do: !s.r.prob(50)}
	st.body = b
	b.ivar = s.newVar(st.scope, pick(s, s.indVarTypes, "induction type", nil, nil), 0, nil, "")
	b.ivar.induction = true
	b.step = pick(s, s.forSteps, "for step", nil, nil)
	b.max = s.maxBound(st.parent, st.parent.inductionVars())
	b.body = s.genStmtSeq(st, o.MaxLoopStmts, false)
	return true
}

type enhancedForBody struct {
	st   *Stmt
	v    *Var
	arr  *Var
	body []*Stmt
}

func (b *enhancedForBody) inductionVar() *Var { return nil }

func (b *enhancedForBody) iterations() int { return b.st.scope.s.opts.MaxSize }

func (b *enhancedForBody) children() []*Stmt { return b.body }

func (b *enhancedForBody) render(p *printer) {
	p.linef("for (%s %s : %s) {", b.v.typ, b.v.name, b.arr.ref())
	p.shift(1)
	b.st.scope.renderDeclarations(p)
	renderAll(p, b.body)
	p.shift(-1)
	p.line("}")
}

// buildEnhancedFor iterates over a one-dimensional N-sized array. The
// element count cannot be clipped, so the loop is skipped when N more
// iterations would break the nested-size ceiling.
func (s *session) buildEnhancedFor(st *Stmt) bool {
	o := s.opts
	parent := st.parent
	if st.remainder() < 2 || st.loopNesting() >= o.MaxLoopDepth {
		return false
	}
	if mulClamp(parent.outerIterations(), o.MaxSize) > s.nestedCeiling(parent) {
		return false
	}
	st.loop = true
	st.scope = s.newScope(parent.scope, scopeStmt, nil, nil)
	b := &enhancedForBody{st: st}
	st.body = b
	t := s.randType(arithTypes, nil)
	b.v = s.newVar(st.scope, t, flagLocal, nil, "")
	b.arr = st.scope.getArr(arrQuery{reuse: 100, elem: t, dims: 1, notBlock: true})
	if b.arr.size != 0 {
		return false
	}
	b.body = s.genStmtSeq(st, o.MaxLoopStmts, false)
	return true
}
