package jfuzz

import (
	"strings"
)

// maxCtorNesting bounds constructors whose bodies create further classes
// with real constructors. A constructor body is built before the
// allocation that asked for its class is linked, so the chain ceiling alone
// does not stop that recursion.
const maxCtorNesting = 2

// Class is one generated top-level class. The head class is the public
// test driver; every other class is a plain data holder with methods.
type Class struct {
	Name string
	ID   int

	head     bool
	scope    *Scope
	super    *Class
	children []*Class // every transitive subclass

	methods  []*Method
	ctor     *Method
	main     *Method
	mainTest *Method

	// members are extra source lines emitted after the field declarations.
	members     []string
	memberFlags map[string]bool
	runnable    bool
	numMethods  int
}

// newClass creates and registers a class. The superclass is drawn from the
// existing non-head classes; the constructor is real with probability
// p_constructor while the call chains still have room, fictive otherwise.
func (s *session) newClass(head bool) *Class {
	c := &Class{head: head, memberFlags: map[string]bool{}}
	c.scope = s.newScope(s.global, scopeClass, nil, c)
	if head {
		c.Name = s.opts.MainClassName
		s.head = c
	} else {
		c.Name = s.global.genName("Cls", TypeNone, false)
	}
	c.ID = len(s.classes)
	s.classes = append(s.classes, c)

	if s.r.prob(s.opts.PExtendsClass) {
		// the new constructor calls the superclass one, one step above its
		// deepest callee chain
		var supers []*Class
		for _, k := range s.classes {
			if !k.head && k != c && k.ctor != nil && s.calls.height(k.ctor) < s.opts.MaxCallersChain {
				supers = append(supers, k)
			}
		}
		if sup, ok := pickOne(s.r, supers); ok && !c.isExtendedBy(sup) {
			c.super = sup
			for a := sup; a != nil; a = a.super {
				a.children = append(a.children, c)
			}
		}
	}
	c.addMember("", "public static long instanceCount = 0;")
	s.log.Debug("class.create", "class", c.Name, "head", head, "extends", c.superName())

	if head {
		c.ctor = s.newMethod(c, methodSpec{kind: methodCtor, fictive: true})
		c.scope.method = c.ctor
		c.main = s.newMethod(c, methodSpec{kind: methodMain, typ: TypeVoid, static: true})
		s.link(c.main, c.ctor)
		c.mainTest = s.newMethod(c, methodSpec{kind: methodMainTest, typ: TypeVoid})
		s.buildBody(c.mainTest)
		return c
	}

	real := s.r.prob(s.opts.PConstructor) && !s.depthExceeded() && s.ctorNesting < maxCtorNesting
	c.ctor = s.newMethod(c, methodSpec{kind: methodCtor, fictive: !real})
	c.scope.method = c.ctor
	if c.super != nil {
		s.link(c.ctor, c.super.ctor)
	}
	if real {
		c.methods = append(c.methods, c.ctor)
		s.ctorNesting++
		s.buildBody(c.ctor)
		s.ctorNesting--
	}
	return c
}

func (c *Class) superName() string {
	if c.super == nil {
		return ""
	}
	return c.super.Name
}

// isExtendedBy reports whether k is a strict descendant of c.
func (c *Class) isExtendedBy(k *Class) bool {
	if k == nil {
		return false
	}
	for a := k.super; a != nil; a = a.super {
		if a == c {
			return true
		}
	}
	return false
}

// canContain reports whether c may declare a field of class k without
// making an instance of c hold (directly or through further fields or
// inheritance) an instance of c again. Fields are followed by declared
// class and by the class actually allocated for them; every class is
// expanded once, so a cycle already present elsewhere ends the walk.
func (c *Class) canContain(k *Class) bool {
	if k == nil {
		return false
	}
	seen := map[*Class]bool{}
	var reaches func(k *Class) bool
	reaches = func(k *Class) bool {
		if k == c || c.isExtendedBy(k) {
			return true
		}
		if seen[k] {
			return false
		}
		seen[k] = true
		for t := k; t != nil; t = t.super {
			if t == c {
				return true
			}
			for _, obj := range t.scope.objects() {
				if obj.class != nil && reaches(obj.class) {
					return true
				}
				if obj.inst != nil && reaches(obj.inst) {
					return true
				}
			}
		}
		return false
	}
	return !reaches(k)
}

// selectableClasses lists non-head classes whose constructor is not a caller
// of any method in fwd and not called by any method in rev.
func (s *session) selectableClasses(fwd, rev []*Method) []*Class {
	var out []*Class
	for _, k := range s.classes {
		if k.head {
			continue
		}
		ok := true
		for _, m := range fwd {
			if m != nil && s.calls.isCaller(k.ctor, m) {
				ok = false
				break
			}
		}
		for _, m := range rev {
			if !ok {
				break
			}
			if m != nil && s.calls.isCaller(m, k.ctor) {
				ok = false
			}
		}
		if ok {
			out = append(out, k)
		}
	}
	return out
}

// acquireClass returns an existing class with probability reuse (always once
// the class ceiling is reached) or a new one. A class is only offered to the
// code running sc if its constructor can be called from there.
func (s *session) acquireClass(reuse int, sc *Scope, fwd, rev []*Method) *Class {
	var met *Method
	if sc != nil {
		met = sc.contMethod()
	}
	if s.r.prob(reuse) || len(s.classes) >= s.opts.MaxClasses {
		cands := s.selectableClasses(fwd, rev)
		if met == nil {
			var roots []*Class
			for _, k := range cands {
				if k.super == nil {
					roots = append(roots, k)
				}
			}
			if k, ok := pickOne(s.r, roots); ok {
				return k
			}
			if k, ok := pickOne(s.r, cands); ok {
				return k
			}
		} else {
			var ok []*Class
			for _, k := range cands {
				if k == met.class || contains(met.class.children, k) {
					continue
				}
				if s.calls.isCaller(k.ctor, met) || !s.canLink(met, k.ctor) {
					continue
				}
				ok = append(ok, k)
			}
			if k, found := pickOne(s.r, ok); found {
				return k
			}
		}
	}
	for i := 0; i < s.opts.MaxAttempts; i++ {
		k := s.newClass(false)
		if met == nil || !s.calls.isCaller(k.ctor, met) {
			return k
		}
	}
	fail("acquireClass", "no class constructor callable from %s after %d attempts", met.qualified(), s.opts.MaxAttempts)
	return nil
}

// addMember appends source lines to the class body. A non-empty tag makes
// the addition happen once.
func (c *Class) addMember(tag string, lines ...string) {
	if tag != "" {
		if c.memberFlags[tag] {
			return
		}
		c.memberFlags[tag] = true
	}
	c.members = append(c.members, lines...)
}

// runMethod returns the class's background method, creating it on first
// use. forMeth is the code that starts the thread. Nil means the call would
// break the chain ceiling.
func (s *session) runMethod(c *Class, forMeth *Method) *Method {
	if c.runnable {
		for _, m := range c.methods {
			if m.kind == methodRun {
				if !s.canLink(forMeth, m) {
					return nil
				}
				s.link(forMeth, m)
				return m
			}
		}
	}
	if !s.roomBelow(forMeth) {
		return nil
	}
	c.runnable = true
	c.numMethods++
	m := s.newMethod(c, methodSpec{kind: methodRun, typ: TypeVoid, callers: []*Method{forMeth, c.ctor}})
	c.methods = append(c.methods, m)
	s.buildBody(m)
	return m
}

// smallMethod returns a short static void method of c for a repeated call
// from forMeth, reusing one with probability p_meth_reuse.
func (s *session) smallMethod(c *Class, forMeth *Method) *Method {
	if s.r.prob(s.opts.PMethReuse) {
		var cands []*Method
		for _, m := range c.methods {
			if m.kind == methodSmall && s.canLink(forMeth, m) {
				cands = append(cands, m)
			}
		}
		if m, ok := pickOne(s.r, cands); ok {
			return m
		}
	}
	if !s.roomBelow(forMeth) {
		return nil
	}
	c.numMethods++
	m := s.newMethod(c, methodSpec{kind: methodSmall, typ: TypeVoid, static: true, callers: []*Method{forMeth, c.ctor}})
	c.methods = append(c.methods, m)
	s.buildBody(m)
	return m
}

// method returns a method of the requested type for a call from forMeth:
// a new one, an existing compatible one from any class, or nil when the
// chain ceiling or the method ceiling leaves no choice. TypeNone asks for
// any non-void type.
func (s *session) method(c *Class, forMeth *Method, want Type) *Method {
	if !s.roomBelow(forMeth) {
		return nil
	}
	full := len(c.methods) >= s.opts.MaxMeths || c.numMethods >= s.opts.MaxMeths
	if !s.r.prob(s.opts.PMethReuse) && !full {
		return s.addMethod(c, forMeth, want)
	}
	var matching []*Method
	for _, k := range s.classes {
		for _, m := range k.methods {
			switch {
			case want != TypeNone && m.typ != want:
			case want == TypeNone && m.typ == TypeVoid:
			case m.kind == methodCtor:
			case s.calls.isCaller(forMeth, m):
			case !m.static && s.calls.isCaller(m.class.ctor, forMeth):
			case !m.static && forMeth.static:
			case !s.canLink(forMeth, m):
			default:
				matching = append(matching, m)
			}
		}
	}
	if m, ok := pickOne(s.r, matching); ok {
		return m
	}
	if full {
		return nil
	}
	return s.addMethod(c, forMeth, want)
}

func (s *session) addMethod(c *Class, forMeth *Method, want Type) *Method {
	c.numMethods++
	static := !s.r.prob(s.opts.PNonStaticMethod) || forMeth.static
	m := s.newMethod(c, methodSpec{kind: methodPlain, typ: want, static: static, callers: []*Method{forMeth}})
	c.methods = append(c.methods, m)
	s.buildBody(m)
	return m
}

// globCheckSums prints every method checksum field of the class.
func (c *Class) globCheckSums(p *printer) {
	for _, m := range c.methods {
		if m.kind == methodMainTest || m.checkSum == "" {
			continue
		}
		p.linef(`FuzzerUtils.out.println("%s: " + %s);`, m.checkSum, m.checkSum)
	}
	if c.memberFlags[inlineMembersTag] {
		p.linef(`FuzzerUtils.out.println("%s: " + %s);`, inlineFieldName, inlineFieldName)
	}
}

func (c *Class) header() string {
	var b strings.Builder
	if c.head {
		b.WriteString("public ")
	}
	b.WriteString("class " + c.Name)
	if c.super != nil {
		b.WriteString(" extends " + c.super.Name)
	}
	if c.runnable {
		b.WriteString(" implements Runnable ")
	}
	b.WriteString(" {")
	return b.String()
}

// render prints the class declaration. Methods are printed in creation
// order, the drivers last.
func (c *Class) render(p *printer) {
	p.line(c.header())
	p.blank()
	p.shift(1)
	p.linef("public static final int %s = %d;", tripCountName, c.scope.s.opts.MaxSize)
	p.blank()
	c.scope.renderDeclarations(p)
	if len(c.members) > 0 {
		for _, m := range c.members {
			p.line(m)
		}
		p.blank()
	}
	for _, m := range c.methods {
		if m.fictive {
			continue
		}
		m.render(p)
		p.blank()
	}
	if c.head {
		c.mainTest.render(p)
		c.main.render(p)
	}
	p.shift(-1)
	p.line("}")
}

// strongEnough reports whether the class holds enough code to be worth
// emitting: more than two thirds of max_stmts statements and more than one
// loop, counted over all of its methods.
func (s *session) strongEnough(c *Class) bool {
	ms := append([]*Method(nil), c.methods...)
	if c.head {
		ms = append(ms, c.main, c.mainTest)
	}
	stmts, loops := 0, 0
	for _, m := range ms {
		if m.root == nil {
			continue
		}
		n, l := countNested(m.root)
		stmts += n
		loops += l
	}
	return stmts > s.opts.MaxStmts*2/3 && loops > 1
}
