package jfuzz

// ifPart is one branch of an if statement. cond is nil for else.
type ifPart struct {
	cond  *Expr
	stmts []*Stmt
}

type ifBody struct{ parts []*ifPart }

func (b *ifBody) children() []*Stmt {
	var out []*Stmt
	for _, part := range b.parts {
		out = append(out, part.stmts...)
	}
	return out
}

func (b *ifBody) render(p *printer) {
	for i, part := range b.parts {
		switch {
		case i == 0:
			p.line("if (" + part.cond.String() + ") {")
		case part.cond != nil:
			p.line("} else if (" + part.cond.String() + ") {")
		default:
			p.line("} else {")
		}
		p.shift(1)
		renderAll(p, part.stmts)
		p.shift(-1)
	}
	p.line("}")
}

// buildIf makes if / else if / else. Each branch may end with an
// unconditional return; when every branch of a complete chain does, the
// first one loses it so the code after the statement stays reachable.
func (s *session) buildIf(st *Stmt) bool {
	o := s.opts
	if st.remainder() < 2 {
		return false
	}
	b := &ifBody{}
	st.body = b
	b.parts = append(b.parts, &ifPart{stmts: s.genStmtSeq(st, o.MaxIfStmts, true)})
	elifs, _ := pickOne(s.r, []int{0, 0, 0, 0, 1, 1, 2})
	for i := 0; i < elifs; i++ {
		b.parts = append(b.parts, &ifPart{stmts: s.genStmtSeq(st, o.MaxIfStmts, true)})
	}
	for _, part := range b.parts {
		part.cond = s.newExpr(st, exprReq{typ: TypeBoolean})
	}
	hasElse := s.r.prob(o.PElse)
	if hasElse {
		b.parts = append(b.parts, &ifPart{stmts: s.genStmtSeq(st, o.MaxElStmts, true)})
	}
	returns := 0
	for _, part := range b.parts {
		ret := child(stmtReturn, st)
		if s.buildReturn(ret, false) {
			part.stmts = append(part.stmts, ret)
			returns++
		}
	}
	if hasElse && returns >= len(b.parts) {
		first := b.parts[0]
		first.stmts = first.stmts[:len(first.stmts)-1]
	}
	return true
}

type switchCase struct {
	value int
	stmts []*Stmt
}

type switchBody struct {
	value   *Expr
	cases   []*switchCase
	deflt   []*Stmt
	hasDflt bool
}

func (b *switchBody) children() []*Stmt {
	var out []*Stmt
	for _, c := range b.cases {
		out = append(out, c.stmts...)
	}
	return append(out, b.deflt...)
}

func (b *switchBody) render(p *printer) {
	val := b.value.String()
	if b.value.effRes() != TypeInt {
		val = "(int)(" + val + ")"
	}
	p.line("switch (" + val + ") {")
	for _, c := range b.cases {
		p.linef("case %d:", c.value)
		p.shift(1)
		renderAll(p, c.stmts)
		p.shift(-1)
	}
	if b.hasDflt {
		p.line("default:")
		p.shift(1)
		renderAll(p, b.deflt)
		p.shift(-1)
	}
	p.line("}")
}

// buildSwitch makes a packed or sparse switch. The selector is folded onto
// the case values: an induction variable modulo the case count, or a
// random value folded the same way. Big switches use the raw induction
// variable over 70 cases.
func (s *session) buildSwitch(st *Stmt) bool {
	o := s.opts
	if st.remainder() < 3 {
		return false
	}
	b := &switchBody{hasDflt: s.r.prob(50)}
	st.body = b
	ivars := st.parent.inductionVars()
	big := len(ivars) > 0 && s.r.prob(o.PBigSwitch)
	packed := s.r.prob(o.PPackedSwitch)
	step := 5
	if packed {
		step = 1
	}
	minValue := s.r.upto(128)
	count := 70
	if !big {
		count, _ = pickOne(s.r, []int{1, 1, 2, 2, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	}
	values := make([]int, 0, count)
	if packed {
		for i := 0; i < count; i++ {
			values = append(values, minValue+i)
		}
	} else {
		pool := make([]int, count*step)
		for i := range pool {
			pool[i] = i + 1
		}
		for i := 0; i < count; i++ {
			k := s.r.upto(len(pool))
			values = append(values, minValue+pool[k])
			pool = append(pool[:k], pool[k+1:]...)
		}
	}

	var value *Expr
	if big || (len(ivars) > 0 && s.r.prob(70)) {
		iv, _ := pickOne(s.r, ivars)
		value = scalarOf(iv, 0)
		if !big {
			value = binary(value, "%", intLit(count))
		}
	} else {
		value = s.indExp(st, 1, itoa(count))
	}
	if !packed {
		value = binary(value, "*", intLit(step))
	}
	if minValue > 0 {
		value = binary(value, "+", intLit(minValue))
	}
	b.value = value

	for _, v := range values {
		c := &switchCase{value: v}
		if !s.r.prob(o.PSwitchEmptyCase) {
			c.stmts = s.genStmtSeq(st, o.MaxIfStmts, true)
		}
		if s.r.prob(75) && len(c.stmts) > 0 {
			brk := child(stmtBreak, st)
			if s.buildBreak(brk, false) {
				c.stmts = append(c.stmts, brk)
			}
		}
		b.cases = append(b.cases, c)
	}
	if b.hasDflt {
		b.deflt = s.genStmtSeq(st, o.MaxElStmts, true)
	}
	return true
}

type jumpBody struct {
	word string
	cond *Expr
}

func (b *jumpBody) children() []*Stmt { return nil }

func (b *jumpBody) render(p *printer) {
	if b.cond == nil {
		p.line(b.word + ";")
		return
	}
	p.line("if (" + b.cond.String() + ") " + b.word + ";")
}

func (s *session) buildContinue(st *Stmt) bool {
	if st.loopNesting() == 0 {
		return false
	}
	st.body = &jumpBody{word: "continue", cond: s.newExpr(st, exprReq{typ: TypeBoolean})}
	return true
}

// buildBreak leaves the innermost loop or switch. Only the last statement
// of a switch case breaks unconditionally.
func (s *session) buildBreak(st *Stmt, guarded bool) bool {
	if st.loopNesting() == 0 && !st.withinSwitch() {
		return false
	}
	b := &jumpBody{word: "break"}
	if guarded {
		b.cond = s.newExpr(st, exprReq{typ: TypeBoolean})
	}
	st.body = b
	return true
}
