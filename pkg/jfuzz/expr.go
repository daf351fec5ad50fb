package jfuzz

import (
	"regexp"
	"strconv"
	"strings"
)

type exprKind int

// kindAny asks newExpr to draw the kind from the exp_kind table.
const (
	kindAny exprKind = iota
	kindLiteral
	kindScalar
	kindArray
	kindField
	kindOper
	kindAssign
	kindCond
	kindInlInvoc
	kindInvoc
	kindLibInvoc
)

var expKindNames = []string{"literal", "scalar", "array", "field", "oper", "assign", "cond", "inlinvoc", "invoc", "libinvoc"}

func parseExprKind(name string) (exprKind, bool) {
	for i, n := range expKindNames {
		if n == name {
			return exprKind(i + 1), true
		}
	}
	return kindAny, false
}

func (k exprKind) String() string {
	if k > kindAny && int(k) <= len(expKindNames) {
		return expKindNames[k-1]
	}
	return "any"
}

var (
	terminalKinds = []exprKind{kindLiteral, kindScalar, kindField}
	destKinds     = []exprKind{kindScalar, kindArray}
)

type exprFlag int

const (
	// exprCast renders a narrowing cast to the declared type when the
	// computed result is wider.
	exprCast exprFlag = 1 << iota
	// exprDest marks an assignment target.
	exprDest
	exprNotNull
	// exprFinal marks a value that is never rewritten for division safety.
	exprFinal
	// exprAnyIndex makes array elements use free-form index expressions.
	exprAnyIndex
)

// Expr is one node of an expression tree. typ is the type the consumer
// asked for, res the Java type the rendered text actually has (or a wider
// one).
type Expr struct {
	kind  exprKind
	typ   Type
	res   Type
	flags exprFlag
	class *Class
	shape *ArrayShape

	text string
	v    *Var
	op   *operator
	args []*Expr

	call   *Method
	lib    *libMethod
	prefix string
}

func (e *Expr) has(f exprFlag) bool { return e.flags&f != 0 }

// effRes is the type of the rendered text, the cast included.
func (e *Expr) effRes() Type {
	if e.has(exprCast) && needsCast(e.typ, e.res) {
		return e.typ
	}
	return e.res
}

// exprReq is what a statement or a parent expression asks for.
type exprReq struct {
	typ   Type // TypeNone: any type
	depth int
	kind  exprKind
	flags exprFlag
	class *Class
	shape *ArrayShape
}

func narrowRes(t Type) Type {
	if isArith(t) && wider(TypeInt, t) {
		return TypeInt
	}
	return t
}

func litExpr(t Type, text string) *Expr {
	return &Expr{kind: kindLiteral, typ: t, res: narrowRes(t), text: text}
}

func intLit(n int) *Expr { return litExpr(TypeInt, itoa(n)) }

func scalarOf(v *Var, flags exprFlag) *Expr {
	e := &Expr{kind: kindScalar, typ: v.typ, res: v.typ, flags: flags, v: v, class: v.class}
	if v.isArr {
		e.typ, e.res = TypeArray, TypeArray
		e.shape = &ArrayShape{Elem: v.typ, Dims: v.dims, Size: v.size}
	}
	if v.has(flagNotNull) {
		e.flags |= exprNotNull
	}
	return e
}

// binary builds "a sign b" from ready operands. Operands are trusted: no
// division rewriting happens here.
func binary(a *Expr, sign string, b *Expr) *Expr {
	op := infixOp(sign, a.effRes())
	e := &Expr{kind: kindOper, typ: a.effRes(), op: op, args: []*Expr{a, b}}
	if contains(op.res, TypeBoolean) {
		e.typ = TypeBoolean
	}
	e.settle()
	return e
}

// newExpr synthesizes an expression for q. Kinds that cannot be honored
// (no callable method, no operator for the type) degrade to a scalar.
func (s *session) newExpr(st *Stmt, q exprReq) *Expr {
	e := &Expr{typ: q.typ, flags: q.flags, class: q.class, shape: q.shape}
	if e.typ == TypeNone {
		e.typ = s.randType(nil, nil)
	}
	e.res = e.typ
	if e.typ == TypeArray && e.shape == nil {
		e.shape = s.randShape()
	}
	kind := q.kind
	if kind == kindAny {
		kind = s.drawKind(e.typ, e.class, q.depth)
	}
	switch kind {
	case kindInvoc, kindLibInvoc, kindInlInvoc:
		if s.buildCall(st, e, kind, q.depth) {
			return e
		}
		kind = kindScalar
	}
	e.kind = kind
	switch kind {
	case kindLiteral:
		s.buildLiteral(st, e)
	case kindScalar, kindField:
		s.buildScalar(st, e, q.depth, kind == kindField)
	case kindArray:
		s.buildElem(st, e, q.depth)
	case kindOper, kindAssign:
		oper, assn := opCategories(e.typ)
		cats := assn
		if kind == kindOper {
			cats = append(append([]string(nil), oper...), assn...)
		}
		op, ok := s.pickOperator(cats)
		if !ok {
			e.kind = kindScalar
			s.buildScalar(st, e, q.depth, false)
			break
		}
		s.applyOperator(st, e, op, q.depth)
	case kindCond:
		s.buildCond(st, e, q.depth)
	default:
		fail("newExpr", "unexpected expression kind %s", kind)
	}
	return e
}

// drawKind draws an expression kind suited to t. Past the depth ceiling, or
// once call chains are full, only leaves are drawn.
func (s *session) drawKind(t Type, cls *Class, depth int, extra ...exprKind) exprKind {
	var include []exprKind
	if depth > s.opts.MaxExpDepth || s.depthExceeded() {
		include = terminalKinds
	}
	return s.pickKind(include, append(excludedKinds(t, cls), extra...))
}

func (s *session) pickKind(include, exclude []exprKind) exprKind {
	if k, ok := s.expKinds.Pick(s.r, include, exclude); ok {
		return k
	}
	if k, ok := pickOne(s.r, without(include, exclude)); ok {
		return k
	}
	return kindScalar
}

func excludedKinds(t Type, cls *Class) []exprKind {
	switch t {
	case TypeString:
		return []exprKind{kindArray, kindOper, kindAssign, kindInlInvoc, kindInvoc, kindLibInvoc}
	case TypeArray, TypeObject:
		return []exprKind{kindArray, kindInlInvoc, kindInvoc, kindLibInvoc}
	case TypeBoolean:
		return []exprKind{kindInlInvoc}
	}
	if cls != nil {
		return []exprKind{kindArray, kindInvoc, kindLibInvoc}
	}
	return nil
}

// randShape draws an array shape for an Array-typed value with no fixed
// shape yet.
func (s *session) randShape() *ArrayShape {
	dims, _ := pickOne(s.r, []int{1, 1, 1, s.r.upto(s.opts.MaxArrDim) + 1})
	elem := s.randType(nil, []Type{TypeArray, TypeObject, TypeString})
	return &ArrayShape{Elem: elem, Dims: dims}
}

func (s *session) buildLiteral(st *Stmt, e *Expr) {
	switch e.typ {
	case TypeObject:
		text, inst := s.objectLiteral(e.class, st.scope, e.has(exprNotNull), false)
		e.text = text
		if inst == nil {
			e.flags &^= exprNotNull
		} else if e.class == nil {
			e.class = inst
		}
	case TypeArray:
		e.text = s.arrayLiteral(*e.shape)
		e.flags |= exprNotNull
	default:
		e.text = s.literal(e.typ)
		e.res = narrowRes(e.typ)
	}
}

func (s *session) buildScalar(st *Stmt, e *Expr, depth int, field bool) {
	sc := st.scope
	notNull := e.has(exprNotNull)
	e.flags &^= exprNotNull
	if e.typ == TypeArray {
		v := sc.getArr(arrQuery{reuse: s.opts.PVarReuse, notNull: notNull, shape: e.shape})
		e.v = v
		for i := e.shape.Dims; i < v.dims; i++ {
			e.args = append(e.args, s.index(st, depth, e.has(exprAnyIndex)))
		}
		if v.has(flagNotNull) {
			e.flags |= exprNotNull
		}
		return
	}
	q := varQuery{reuse: s.opts.PVarReuse, typ: e.typ, dest: e.has(exprDest), class: e.class, notNull: notNull}
	var v *Var
	if field {
		v = sc.subVar(q, []*Method{st.method})
	}
	if v == nil {
		v = sc.getVar(q)
	}
	e.v = v
	e.res = v.typ
	if e.typ == TypeObject && e.class == nil {
		e.class = v.class
	}
	if v.has(flagNotNull) {
		e.flags |= exprNotNull
	}
}

// buildElem resolves an array holding e.typ and indexes every dimension.
func (s *session) buildElem(st *Stmt, e *Expr, depth int) {
	arr := st.scope.getArr(arrQuery{reuse: s.opts.PVarReuse, elem: e.typ, notNull: e.has(exprNotNull)})
	e.v = arr
	e.flags &^= exprNotNull
	for i := 0; i < arr.dims; i++ {
		e.args = append(e.args, s.index(st, depth, e.has(exprAnyIndex)))
	}
	if arr.has(flagNotNull) {
		e.flags |= exprNotNull
	}
	e.res = e.typ
}

// index builds one array subscript: an enclosing induction variable,
// possibly shifted by one, or an expression folded into [0, N).
func (s *session) index(st *Stmt, depth int, anyIndex bool) *Expr {
	if anyIndex {
		return s.newExpr(st, exprReq{typ: TypeInt, depth: depth + 1, flags: exprCast})
	}
	ivars := st.inductionVars()
	kind, _ := s.indKinds.Pick(s.r, nil, nil)
	if kind == "any" || kind == "" || len(ivars) == 0 {
		return s.indExp(st, depth+1, tripCountName)
	}
	iv, _ := pickOne(s.r, ivars)
	var idx *Expr
	switch kind {
	case "-1":
		idx = binary(scalarOf(iv, 0), "-", intLit(1))
	case "+1":
		idx = binary(scalarOf(iv, 0), "+", intLit(1))
	default:
		idx = scalarOf(iv, 0)
	}
	idx.typ = TypeInt
	idx.flags |= exprCast
	return idx
}

// indExp folds a random int into [0, divisor): ((int)(x) >>> 1) % divisor.
func (s *session) indExp(st *Stmt, depth int, divisor string) *Expr {
	x := s.newExpr(st, exprReq{typ: TypeInt, depth: depth + 2, flags: exprCast | exprFinal})
	shifted := binary(x, ">>>", intLit(1))
	d := litExpr(TypeInt, divisor)
	d.flags |= exprFinal
	e := binary(shifted, "%", d)
	e.typ = TypeInt
	return e
}

// applyOperator fills e with op and synthesized operands.
func (s *session) applyOperator(st *Stmt, e *Expr, op *operator, depth int) {
	e.op = op
	notNull := e.flags & exprNotNull
	var a *Expr
	if op.lhsVar {
		kind := s.pickKind(destKinds, excludedKinds(e.typ, e.class))
		a = s.newExpr(st, exprReq{typ: e.typ, depth: depth + 1, kind: kind, flags: exprDest | notNull, class: e.class, shape: e.shape})
	} else {
		t := s.operandType(op.lhs)
		kind := kindAny
		if op.form == opPrefix {
			kind = s.drawKind(t, nil, depth+1, kindLiteral)
		}
		a = s.newExpr(st, exprReq{typ: t, depth: depth + 1, kind: kind})
	}
	e.args = []*Expr{a}
	if e.typ == TypeObject && e.class == nil {
		e.class = a.class
	}
	if op.form == opInfix {
		var b *Expr
		if op.lhsVar {
			b = s.newExpr(st, exprReq{typ: s.operandType(op.rhs), depth: depth + 1, flags: notNull, class: e.class, shape: e.shape})
			if a.has(exprNotNull) && b.kind == kindLiteral && b.text == "null" {
				b = scalarOf(a.v, 0)
			}
		} else {
			t := s.operandType(op.rhs)
			kind := kindAny
			if a.kind == kindLiteral {
				kind = s.drawKind(t, nil, depth+1, kindLiteral)
			}
			b = s.newExpr(st, exprReq{typ: t, depth: depth + 1, kind: kind})
		}
		b = s.transfer(st, b, op)
		if op.assigns() && isIntegral(a.res) {
			properNumeric(b)
		}
		e.args = append(e.args, b)
	}
	e.flags &^= exprNotNull
	if a.has(exprNotNull) {
		e.flags |= exprNotNull
	}
	e.settle()
}

func (s *session) operandType(set []Type) Type {
	if len(set) == 1 {
		return set[0]
	}
	return s.randType(set, nil)
}

// settle computes the result type of an operator node from its operands,
// counting the (long) casts render will insert.
func (e *Expr) settle() {
	op := e.op
	a := e.args[0]
	if op.lhsVar {
		e.res = a.res
		return
	}
	if !isArith(e.typ) {
		e.res = e.typ
		return
	}
	res := a.effRes()
	if e.lhsCast() {
		res = TypeLong
	}
	if op.form == opInfix {
		rb := e.args[1].effRes()
		if e.rhsCast() == "(long)" {
			rb = TypeLong
		}
		if wider(rb, res) {
			res = rb
		}
	}
	if !contains(op.res, res) {
		res = TypeLong
	}
	e.res = narrowRes(res)
}

func (e *Expr) lhsCast() bool {
	a := e.args[0]
	return !e.op.lhsVar && !a.has(exprDest|exprCast) && !contains(e.op.lhs, a.effRes())
}

func (e *Expr) rhsCast() string {
	a, b := e.args[0], e.args[1]
	br := b.effRes()
	if e.op.assigns() {
		if needsCast(a.res, br) {
			return "(" + a.res.String() + ")"
		}
		if e.op.sign != "=" && !contains(e.op.rhs, br) && !b.has(exprCast) {
			return "(long)"
		}
		return ""
	}
	if !contains(e.op.rhs, br) && !b.has(exprCast) {
		return "(long)"
	}
	return ""
}

var nonZeroDigit = regexp.MustCompile(`[1-9]`)

// transfer keeps divisors away from zero. A divisor that is neither final,
// nor a literal with a nonzero digit, nor inside a handler for
// ArithmeticException becomes ((long)(x) | 1). Integral literal divisors
// whose low byte is zero are bumped so that no narrowing cast can turn
// them into zero.
func (s *session) transfer(st *Stmt, b *Expr, op *operator) *Expr {
	if !op.divides() {
		return b
	}
	lit := b.kind == kindLiteral
	if !b.has(exprFinal) && (!lit || !nonZeroDigit.MatchString(b.text)) && !st.isCaught(excArithmetic) {
		x := *b
		x.typ = TypeLong
		x.flags |= exprCast
		one := &Expr{kind: kindLiteral, typ: TypeLong, res: TypeLong, text: "1"}
		or, _ := lookupOperator("|", "integral")
		return &Expr{kind: kindOper, typ: TypeLong, res: TypeLong, op: or, args: []*Expr{&x, one}}
	}
	if lit && (isIntegral(b.typ) || b.typ == TypeChar) {
		digits := strings.TrimSuffix(b.text, "L")
		if v, err := strconv.ParseInt(digits, 10, 64); err == nil {
			abs := v
			if abs < 0 {
				abs = -abs
			}
			if abs&0xFF == 0 {
				b.text = strconv.FormatInt(v+1, 10) + b.text[len(digits):]
			}
		}
	}
	return b
}

var zeroFraction = regexp.MustCompile(`^-?0\.`)

// properNumeric keeps a fractional literal stored into an integral
// location from truncating to zero.
func properNumeric(b *Expr) {
	if b.kind != kindLiteral || (b.typ != TypeFloat && b.typ != TypeDouble) {
		return
	}
	if zeroFraction.MatchString(b.text) {
		b.text = strings.Replace(b.text, "0.", "1.", 1)
	}
}

func (s *session) buildCond(st *Stmt, e *Expr, depth int) {
	c := s.newExpr(st, exprReq{typ: TypeBoolean, depth: depth + 1})
	notNull := e.flags & exprNotNull
	a := s.newExpr(st, exprReq{typ: e.typ, depth: depth + 1, flags: notNull, class: e.class, shape: e.shape})
	if e.typ == TypeObject && e.class == nil {
		e.class = a.class
	}
	b := s.newExpr(st, exprReq{typ: e.typ, depth: depth + 1, flags: notNull, class: e.class, shape: e.shape})
	e.args = []*Expr{c, a, b}
	e.flags &^= exprNotNull
	if a.has(exprNotNull) && b.has(exprNotNull) {
		e.flags |= exprNotNull
	}
	e.res = e.typ
	if isArith(e.typ) {
		e.res = ternaryType(a.effRes(), b.effRes())
	}
}

// ternaryType is the type of c ? x : y for numeric operands.
func ternaryType(x, y Type) Type {
	if x == y {
		return x
	}
	small := []Type{TypeByte, TypeShort, TypeChar}
	if contains(small, x) && contains(small, y) {
		if (x == TypeByte && y == TypeShort) || (x == TypeShort && y == TypeByte) {
			return TypeShort
		}
		return TypeInt
	}
	if wider(y, x) {
		return narrowRes(y)
	}
	return narrowRes(x)
}

// String renders the expression as Java source.
func (e *Expr) String() string {
	var out string
	switch e.kind {
	case kindLiteral, kindInlInvoc:
		out = e.text
	case kindScalar, kindField, kindArray:
		var b strings.Builder
		b.WriteString(e.v.ref())
		for _, ix := range e.args {
			b.WriteString("[" + ix.String() + "]")
		}
		out = b.String()
	case kindOper, kindAssign:
		out = e.renderOp()
	case kindCond:
		out = "(" + e.args[0].String() + ") ? (" + e.args[1].String() + ") : (" + e.args[2].String() + ")"
	case kindInvoc:
		out = e.prefix + e.call.name + "(" + joinExprs(e.args) + ")"
	case kindLibInvoc:
		out = e.lib.name + "(" + joinExprs(e.args) + ")"
	}
	if e.has(exprCast) && needsCast(e.typ, e.res) {
		out = "(" + e.typ.String() + ")(" + out + ")"
	}
	return out
}

// operand renders e as part of an enclosing operator.
func (e *Expr) operand() string {
	switch e.kind {
	case kindOper, kindAssign, kindCond:
		if e.has(exprCast) && needsCast(e.typ, e.res) {
			return e.String()
		}
		return "(" + e.String() + ")"
	}
	return e.String()
}

func (e *Expr) renderOp() string {
	op := e.op
	a := e.args[0]
	var b strings.Builder
	if op.form == opPrefix {
		b.WriteString(op.sign)
	}
	if e.lhsCast() {
		b.WriteString("(long)")
	}
	b.WriteString(a.operand())
	switch op.form {
	case opPostfix:
		b.WriteString(op.sign)
	case opInfix:
		b.WriteString(" " + op.sign + " ")
		b.WriteString(e.rhsCast())
		b.WriteString(e.args[1].operand())
	}
	return b.String()
}

func joinExprs(es []*Expr) string {
	parts := make([]string, len(es))
	for i, x := range es {
		parts[i] = x.String()
	}
	return strings.Join(parts, ", ")
}
