package jfuzz

import (
	"math"
)

type stmtKind int

const (
	stmtRoot stmtKind = iota
	stmtFor
	stmtWhileDo
	stmtEnhancedFor
	stmtContinue
	stmtBreak
	stmtIf
	stmtSwitch
	stmtAssign
	stmtIntDiv
	stmtReturn
	stmtTry
	stmtExc
	stmtVect
	stmtInvocation
	stmtCondInvoc
	stmtSmallMeth
	stmtNewThread
	stmtAfterTry
)

var stmtKindNames = []string{
	stmtFor:         "ForLoopStmt",
	stmtWhileDo:     "WhileDoStmt",
	stmtEnhancedFor: "EnhancedForStmt",
	stmtContinue:    "ContinueStmt",
	stmtBreak:       "BreakStmt",
	stmtIf:          "IfStmt",
	stmtSwitch:      "SwitchStmt",
	stmtAssign:      "AssignmentStmt",
	stmtIntDiv:      "IntDivStmt",
	stmtReturn:      "ReturnStmt",
	stmtTry:         "TryStmt",
	stmtExc:         "ExcStmt",
	stmtVect:        "VectStmt",
	stmtInvocation:  "InvocationStmt",
	stmtCondInvoc:   "CondInvocStmt",
	stmtSmallMeth:   "SmallMethStmt",
	stmtNewThread:   "NewThreadStmt",
}

func parseStmtKind(name string) (stmtKind, bool) {
	for k := stmtFor; k <= stmtNewThread; k++ {
		if stmtKindNames[k] == name {
			return k, true
		}
	}
	return stmtRoot, false
}

func (k stmtKind) String() string {
	switch {
	case k == stmtRoot:
		return "root"
	case k == stmtAfterTry:
		return "catch"
	case int(k) < len(stmtKindNames):
		return stmtKindNames[k]
	}
	return "stmt"
}

// maxStmtAttempts bounds the redraws of a statement that elected to stay
// empty.
const maxStmtAttempts = 10000

// Stmt is one statement node. parent is a back reference; the children are
// owned by body.
type Stmt struct {
	kind   stmtKind
	parent *Stmt
	scope  *Scope
	method *Method
	loop   bool
	body   stmtBody
}

type stmtBody interface {
	render(p *printer)
	children() []*Stmt
}

// loopBody is implemented by statements that run an induction variable.
type loopBody interface {
	inductionVar() *Var
	iterations() int
}

type seqBody struct{ stmts []*Stmt }

func (b *seqBody) render(p *printer)   { renderAll(p, b.stmts) }
func (b *seqBody) children() []*Stmt { return b.stmts }

func renderAll(p *printer, stmts []*Stmt) {
	for _, st := range stmts {
		st.body.render(p)
	}
}

func (st *Stmt) renderChildren(p *printer) {
	if st.body != nil {
		st.body.render(p)
	}
}

// loopNesting counts the loops enclosing st.
func (st *Stmt) loopNesting() int {
	n := 0
	for a := st.parent; a != nil; a = a.parent {
		if a.loop {
			n++
		}
	}
	return n
}

// loopDepth is loopNesting with st itself counted.
func (st *Stmt) loopDepth() int {
	n := st.loopNesting()
	if st.loop {
		n++
	}
	return n
}

// inductionVars lists the counters of the loops around st, innermost first.
func (st *Stmt) inductionVars() []*Var {
	var out []*Var
	for a := st; a != nil; a = a.parent {
		if lb, ok := a.body.(loopBody); ok && lb.inductionVar() != nil {
			out = append(out, lb.inductionVar())
		}
	}
	return out
}

// outerIterations is the product of the iteration counts of st and the
// loops around it.
func (st *Stmt) outerIterations() int {
	n := 1
	for a := st; a != nil; a = a.parent {
		if lb, ok := a.body.(loopBody); ok {
			n = mulClamp(n, lb.iterations())
		}
	}
	return n
}

func mulClamp(a, b int) int {
	if b != 0 && a > math.MaxInt32/b {
		return math.MaxInt32
	}
	return a * b
}

func (st *Stmt) withinSwitch() bool {
	for a := st.parent; a != nil; a = a.parent {
		if a.kind == stmtSwitch {
			return true
		}
	}
	return false
}

// remainder is what is left of the method's statement budget.
func (st *Stmt) remainder() int {
	if st.method.budget <= 0 {
		return 0
	}
	return st.method.budget
}

// pickNested charges one statement to the method budget and draws a
// statement nested in parent, redrawing while the drawn kind elects to stay
// empty.
func (s *session) pickNested(parent *Stmt) *Stmt {
	m := parent.method
	m.budget--
	depth := parent.loopDepth()
	tab := newProbTable[stmtKind]()
	for _, w := range s.opts.Statements {
		k, _ := parseStmtKind(w.Kind)
		weight := w.Weight
		if depth > 0 {
			weight = int(float64(w.LoopWeight) / math.Pow(w.Scale, float64(depth)))
		}
		tab.Reweight(k, weight)
	}
	var excl []stmtKind
	if s.runMethods >= s.opts.MaxThreads || !m.driver() {
		excl = append(excl, stmtNewThread)
	}
	if !m.driver() {
		excl = append(excl, stmtSmallMeth)
	}
	if s.depthExceeded() {
		excl = append(excl, stmtInvocation, stmtSmallMeth, stmtCondInvoc)
	}
	for i := 0; i < maxStmtAttempts; i++ {
		k, ok := tab.Pick(s.r, nil, excl)
		if !ok {
			fail("pickNested", "no statement kind left at loop depth %d in %s", depth, m.qualified())
		}
		if st := s.newStmt(k, parent); st != nil {
			return st
		}
	}
	fail("pickNested", "no statement could be built in %s after %d attempts", m.qualified(), maxStmtAttempts)
	return nil
}

// genStmtSeq draws up to max statements under parent. The sequence stops
// early once the method budget runs out.
func (s *session) genStmtSeq(parent *Stmt, max int, canBeEmpty bool) []*Stmt {
	n := 0
	if !s.r.prob(s.opts.PEmptySeq) {
		n = s.r.upto(max) + 1
	}
	if n == 0 && !canBeEmpty {
		n = 1
	}
	var out []*Stmt
	for i := 0; i < n; i++ {
		out = append(out, s.pickNested(parent))
		if parent.remainder() <= 0 {
			break
		}
	}
	return out
}

func (s *session) newStmt(kind stmtKind, parent *Stmt) *Stmt {
	st := &Stmt{kind: kind, parent: parent, scope: parent.scope, method: parent.method}
	var ok bool
	switch kind {
	case stmtFor:
		ok = s.buildFor(st)
	case stmtWhileDo:
		ok = s.buildWhile(st)
	case stmtEnhancedFor:
		ok = s.buildEnhancedFor(st)
	case stmtContinue:
		ok = s.buildContinue(st)
	case stmtBreak:
		ok = s.buildBreak(st, true)
	case stmtIf:
		ok = s.buildIf(st)
	case stmtSwitch:
		ok = s.buildSwitch(st)
	case stmtAssign:
		ok = s.buildAssign(st)
	case stmtIntDiv:
		ok = s.buildIntDiv(st)
	case stmtReturn:
		ok = s.buildReturn(st, true)
	case stmtTry:
		ok = s.buildTry(st)
	case stmtExc:
		ok = s.buildExc(st)
	case stmtVect:
		ok = s.buildVect(st)
	case stmtInvocation:
		ok = s.buildInvocStmt(st, false)
	case stmtCondInvoc:
		ok = s.buildInvocStmt(st, true)
	case stmtSmallMeth:
		ok = s.buildSmallMeth(st)
	case stmtNewThread:
		ok = s.buildNewThread(st)
	default:
		fail("newStmt", "statement kind %s cannot be drawn", kind)
	}
	if !ok {
		return nil
	}
	return st
}

// child creates a statement node under parent that is filled in by the
// caller instead of going through the kind dispatch.
func child(kind stmtKind, parent *Stmt) *Stmt {
	return &Stmt{kind: kind, parent: parent, scope: parent.scope, method: parent.method}
}

// countNested counts the statements and loops below st.
func countNested(st *Stmt) (stmts, loops int) {
	if st == nil || st.body == nil {
		return 0, 0
	}
	for _, c := range st.body.children() {
		stmts++
		if c.loop {
			loops++
		}
		n, l := countNested(c)
		stmts += n
		loops += l
	}
	return stmts, loops
}

// exprBody is a statement made of one expression.
type exprBody struct {
	e    *Expr
	cond string // optional "if (...) " guard
}

func (b *exprBody) render(p *printer)   { p.line(b.cond + b.e.String() + ";") }
func (b *exprBody) children() []*Stmt { return nil }

func (s *session) buildAssign(st *Stmt) bool {
	t := s.randType(nil, []Type{TypeString})
	e := s.newExpr(st, exprReq{typ: t, kind: kindAssign})
	if e.kind != kindAssign {
		return false
	}
	st.body = &exprBody{e: e}
	return true
}

// assignStmt wraps a ready assignment expression into a statement.
func assignStmt(parent *Stmt, e *Expr) *Stmt {
	st := child(stmtAssign, parent)
	st.body = &exprBody{e: e}
	return st
}

// assignExpr builds "dest = val" with the given assignment operator.
func assignExpr(dest *Expr, sign, cat string, val *Expr) *Expr {
	op, ok := lookupOperator(sign, cat)
	if !ok {
		fail("assignExpr", "no operator %s in %s", sign, cat)
	}
	e := &Expr{kind: kindAssign, typ: dest.typ, op: op, args: []*Expr{dest, val}}
	e.settle()
	return e
}

type returnBody struct {
	m    *Method
	cond *Expr
}

func (b *returnBody) children() []*Stmt { return nil }

func (b *returnBody) render(p *printer) {
	if b.cond != nil {
		p.line("if (" + b.cond.String() + ") {")
		p.shift(1)
	}
	m := b.m
	sum := m.scope.methCheckSum()
	switch {
	case m.kind == methodCtor:
		p.line("return;")
	case m.typ == TypeVoid:
		p.linef("%s += %s;", m.checkSum, sum)
		p.line("return;")
	case m.typ == TypeBoolean:
		p.linef("return ((int)(%s)) %% 2 > 0;", sum)
	default:
		p.linef("return (%s)(%s);", m.typ, sum)
	}
	if b.cond != nil {
		p.shift(-1)
		p.line("}")
	}
}

// buildReturn makes an early return. Drawn returns sit under a condition;
// the unconditional form only ends the branches of an if statement.
func (s *session) buildReturn(st *Stmt, guarded bool) bool {
	m := st.method
	if m.driver() {
		return false
	}
	if !s.r.prob(s.opts.PReturn) && !guarded {
		return false
	}
	b := &returnBody{m: m}
	if guarded {
		v := s.newExpr(st, exprReq{typ: TypeInt, kind: kindScalar})
		b.cond = binary(v, "!=", intLit(0))
	}
	st.body = b
	return true
}

func (s *session) buildInvocStmt(st *Stmt, conditional bool) bool {
	want := TypeNone
	if s.r.prob(90) {
		want = TypeVoid
	}
	e := &Expr{}
	if !s.buildInvocation(st, e, want, 0, nil) {
		return false
	}
	b := &exprBody{e: e}
	if conditional {
		b.cond = "if (FuzzerUtils.seed % " + itoa(s.opts.OuterControlProb) + " == " + itoa(s.r.upto(s.opts.OuterControlProb)) + ") "
	}
	st.body = b
	return true
}

type smallMethBody struct {
	e      *Expr
	guard  string
	length int
}

func (b *smallMethBody) children() []*Stmt { return nil }

func (b *smallMethBody) render(p *printer) {
	if b.guard != "" {
		p.line(b.guard)
		p.shift(1)
	}
	p.linef("for (int smallinvoc=0; smallinvoc<%d; smallinvoc++) %s;", b.length, b.e)
	if b.guard != "" {
		p.shift(-1)
	}
}

// buildSmallMeth calls a small static method in a counted loop. The count
// is clipped so that the enclosing loops times the count stays under the
// nested-size ceiling.
func (s *session) buildSmallMeth(st *Stmt) bool {
	m := s.smallMethod(st.method.class, st.method)
	if m == nil {
		return false
	}
	e := &Expr{}
	if !s.buildInvocation(st, e, TypeVoid, 0, m) {
		return false
	}
	b := &smallMethBody{e: e}
	if s.opts.OuterControl {
		b.guard = "if (FuzzerUtils.seed % " + itoa(s.opts.OuterControlProb) + " == " + itoa(s.r.upto(s.opts.OuterControlProb)) + ")"
	}
	o := s.opts
	n := s.r.upto(o.MaxSmallMethCalls-o.MinSmallMethCalls) + o.MinSmallMethCalls
	outer := math.Pow(float64(o.MaxSize), float64(st.loopNesting()))
	if float64(n)*outer >= float64(o.MaxNestedSize) {
		n = int(float64(o.MaxNestedSize) / outer)
	}
	if n < 1 {
		n = 1
	}
	b.length = n
	st.body = b
	return true
}

func (s *session) buildNewThread(st *Stmt) bool {
	v := st.scope.getVar(varQuery{reuse: s.opts.PVarReuse, typ: TypeObject, notNull: true})
	if !v.has(flagNotNull) || v.class == nil {
		return false
	}
	if s.runMethod(v.class, st.method) == nil {
		return false
	}
	st.body = &exprBody{e: &Expr{kind: kindLiteral, typ: TypeVoid, res: TypeVoid, text: "FuzzerUtils.runThread(" + v.ref() + ")"}}
	return true
}

type intDivBody struct{ stmts []*Stmt }

func (b *intDivBody) children() []*Stmt { return b.stmts }

func (b *intDivBody) render(p *printer) {
	p.block("try {", "} catch (ArithmeticException a_e) {}", func() { renderAll(p, b.stmts) })
}

// buildIntDiv emits three narrow int divisions by constants or by
// unchecked values, all under an ArithmeticException handler.
func (s *session) buildIntDiv(st *Stmt) bool {
	if st.loopNesting() > 3 {
		return false
	}
	b := &intDivBody{}
	st.body = b
	operand := func(flags exprFlag) *Expr {
		return s.newExpr(st, exprReq{typ: TypeInt, depth: 2, kind: s.pickKind(destKinds, nil), flags: flags})
	}
	arith, _ := lookupOperator("/", "arith")
	mod, _ := lookupOperator("%", "arith")
	for i := 0; i < 3; i++ {
		var op1, op2 *Expr
		switch s.r.upto(3) {
		case 0:
			op1 = litExpr(TypeInt, s.sizedIntLit(0))
			op2 = operand(exprFinal)
		case 1:
			op1 = operand(0)
			op2 = litExpr(TypeInt, s.sizedIntLit(1))
		default:
			op1 = operand(0)
			op2 = operand(exprFinal)
		}
		op := arith
		if s.r.upto(2) == 1 {
			op = mod
		}
		div := &Expr{kind: kindOper, typ: TypeInt, op: op, args: []*Expr{op1, op2}}
		div.settle()
		dest := s.newExpr(st, exprReq{typ: TypeInt, depth: 1, kind: s.pickKind(destKinds, nil), flags: exprDest})
		b.stmts = append(b.stmts, assignStmt(st, assignExpr(dest, "=", "integral_assn", div)))
	}
	return true
}
