package jfuzz

import (
	"strings"
)

type methodKind int

const (
	methodPlain methodKind = iota
	methodCtor
	methodMain
	methodMainTest
	methodRun
	methodSmall
)

// methodSpec is what a caller asks for when it needs a new method.
type methodSpec struct {
	kind    methodKind
	typ     Type // TypeNone: any non-void type
	static  bool
	fictive bool
	callers []*Method
}

// Method is one generated method. Fictive methods only exist as call-graph
// nodes: the implicit default constructor is the usual case.
type Method struct {
	ID    int
	name  string
	class *Class
	kind  methodKind
	typ   Type

	static   bool
	fictive  bool
	override bool

	args     []*Var
	scope    *Scope
	root     *Stmt
	budget   int // statements left to generate
	checkSum string
	seedSalt int
}

func (m *Method) qualified() string {
	if m == nil {
		return "<none>"
	}
	return m.class.Name + "." + m.name
}

// driver reports whether m is one of the two fixed entry points of the
// head class.
func (m *Method) driver() bool {
	return m.kind == methodMain || m.kind == methodMainTest
}

var argExcludedTypes = []Type{TypeArray, TypeObject}

func (s *session) newMethod(c *Class, spec methodSpec) *Method {
	m := &Method{class: c, kind: spec.kind, typ: spec.typ, static: spec.static, fictive: spec.fictive}
	s.registerMethod(m)
	switch m.kind {
	case methodMain:
		m.static = true
	case methodMainTest, methodRun:
		m.static = false
	case methodCtor:
		m.static = false
		m.typ = TypeNone
	}
	if m.kind == methodRun {
		s.runMethods++
	}
	if !m.fictive {
		m.budget = s.opts.MaxStmts
		if !m.driver() {
			m.budget /= 2
		}
		if m.kind == methodSmall {
			m.budget = 2
		}
	}
	m.scope = s.newScope(c.scope, scopeMethod, m, nil)

	if m.driver() {
		m.name = "main"
		if m.kind == methodMainTest {
			m.name = "mainTest"
			m.seedSalt = s.r.upto(100000000)
		}
		m.args = []*Var{s.newArr(m.scope, 1, TypeString, flagArg|flagLocal|flagAux, "args", 0)}
		s.log.Debug("method.create", "method", m.qualified())
		return m
	}

	switch m.kind {
	case methodCtor:
		m.name = c.Name
	case methodRun:
		m.name = "run"
	default:
		if !s.overrideParent(m, spec.typ) {
			if m.typ == TypeNone {
				m.typ = s.randType(nil, []Type{TypeArray, TypeObject, TypeString})
			}
			sort := "Meth"
			if m.kind == methodSmall {
				sort = "SmallMeth"
			}
			m.name = c.scope.genName(sort, m.typ, false)
			excl := argExcludedTypes
			if s.opts.AllowObjectArgs {
				excl = []Type{TypeArray}
			}
			for n := s.r.upto(s.opts.MaxArgs + 1); n > 0; n-- {
				t := s.randType(nil, excl)
				m.args = append(m.args, s.newVar(m.scope, t, flagArg|flagLocal, nil, ""))
			}
		}
	}
	if m.kind != methodCtor {
		for _, caller := range spec.callers {
			if caller != nil && s.canLink(caller, m) {
				s.link(caller, m)
			}
		}
	}
	if !m.fictive {
		m.checkSum = m.name + "_check_sum"
		c.addMember("", "public static long "+m.checkSum+" = 0;")
	}
	s.log.Debug("method.create", "method", m.qualified(), "type", m.typ.String(),
		"static", m.static, "override", m.override, "fictive", m.fictive)
	return m
}

// overrideParent turns m into an override of a non-static method declared
// by an ancestor of its class, with probability p_method_override. The
// virtual dispatch is recorded as a call edge from the overridden method.
func (s *session) overrideParent(m *Method, want Type) bool {
	c := m.class
	if !s.r.prob(s.opts.PMethodOverride) || c.super == nil || m.static {
		return false
	}
	taken := map[string]bool{}
	for _, k := range c.methods {
		taken[k.name] = true
	}
	var cands []*Method
	for a := c.super; a != nil; a = a.super {
		for _, pm := range a.methods {
			switch {
			case pm.kind != methodPlain || pm.static:
			case want == TypeNone && pm.typ == TypeVoid:
			case want != TypeNone && pm.typ != want:
			case taken[pm.name]:
			case !s.roomBelow(pm):
			default:
				cands = append(cands, pm)
			}
		}
	}
	pm, ok := pickOne(s.r, cands)
	if !ok {
		return false
	}
	m.name = pm.name
	m.typ = pm.typ
	m.override = true
	for _, a := range pm.args {
		m.args = append(m.args, s.newVar(m.scope, a.typ, flagArg|flagLocal, a.class, a.name))
	}
	s.link(pm, m)
	return true
}

// buildBody generates the statements of m. Fictive methods and main have
// none.
func (s *session) buildBody(m *Method) {
	if m.fictive || m.kind == methodMain {
		return
	}
	m.root = &Stmt{kind: stmtRoot, scope: m.scope, method: m}
	m.root.body = &seqBody{stmts: s.genStmtSeq(m.root, m.budget, false)}
}

func (m *Method) signature() string {
	var b strings.Builder
	if m.override {
		b.WriteString("@Override ")
	}
	b.WriteString("public ")
	if m.static {
		b.WriteString("static ")
	}
	if m.kind != methodCtor {
		b.WriteString(m.typ.String() + " ")
	}
	b.WriteString(m.name + "(")
	for i, a := range m.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.typeName() + strings.Repeat("[]", a.dims) + " " + a.name)
	}
	b.WriteString(") {")
	return b.String()
}

func (m *Method) render(p *printer) {
	s := m.scope.s
	p.line(m.signature())
	p.shift(1)
	if m.kind == methodMainTest && s.opts.OuterControl {
		arg := m.args[0].name
		p.linef("if (%s.length > 0) FuzzerUtils.seed(%d + Long.parseLong(%s[0]));", arg, m.seedSalt, arg)
	}
	if m.kind == methodCtor {
		p.line("instanceCount++;")
	}
	if m.kind == methodMain {
		m.renderMain(p)
	} else {
		m.scope.renderDeclarations(p)
		if m.root != nil {
			m.root.renderChildren(p)
		}
	}
	switch m.kind {
	case methodMainTest:
		if s.runMethods > 0 {
			p.line("FuzzerUtils.joinThreads();")
		}
		m.scope.renderResPrint(p, false)
		m.class.scope.renderResPrint(p, true)
		p.blank()
		m.class.globCheckSums(p)
	case methodMain:
	default:
		m.renderEnding(p)
	}
	p.shift(-1)
	p.line("}")
}

// renderEnding folds the method's locals into its checksum field and
// returns a value derived from them.
func (m *Method) renderEnding(p *printer) {
	sum := m.scope.methCheckSum()
	if m.typ == TypeVoid {
		p.linef("%s += %s;", m.checkSum, sum)
		return
	}
	p.linef("long meth_res = %s;", sum)
	p.linef("%s += meth_res;", m.checkSum)
	switch {
	case m.kind == methodCtor:
		p.line("return;")
	case m.typ == TypeBoolean:
		p.line("return meth_res % 2 > 0;")
	default:
		p.linef("return (%s)meth_res;", m.typ)
	}
}

// renderMain prints the warm-up driver: two batches of payload calls with
// an optional pause between them so an external harness can tell the
// compilation tiers apart.
func (m *Method) renderMain(p *printer) {
	o := m.scope.s.opts
	c := m.class
	arg := m.args[0].name
	p.line("try {")
	p.shift(1)
	p.linef("%s _instance = new %s();", c.Name, c.Name)
	p.linef("for (int i = 0; i < %d; i++ ) {", o.MainTestCallsNum)
	p.shift(1)
	p.linef("_instance.%s(%s);", c.mainTest.name, arg)
	p.shift(-1)
	p.line("}")
	if o.TimeSleepCompleteTier1 > 0 {
		p.line("try {")
		p.linef("Thread.sleep(%d);", o.TimeSleepCompleteTier1)
		p.line(" } catch (InterruptedException ie) {")
		p.shift(1)
		p.line("ie.printStackTrace();")
		p.shift(-1)
		p.line("}")
	}
	if o.MainTestCallsNumTier2 > 0 {
		p.linef("for (int i = 0; i < %d; i++ ) {", o.MainTestCallsNumTier2)
		p.shift(1)
		p.linef("_instance.%s(%s);", c.mainTest.name, arg)
		p.shift(-1)
		p.line("}")
	}
	p.shift(-1)
	p.line(" } catch (Exception ex) {")
	p.shift(1)
	p.line("FuzzerUtils.out.println(ex.getClass().getCanonicalName());")
	p.shift(-1)
	p.line(" }")
}
