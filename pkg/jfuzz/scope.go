package jfuzz

import "strings"

type scopeKind int

// Kinds are ordered: a scope below scopeMethod hands naming and most
// registrations to its parent.
const (
	scopeStmt   scopeKind = 3
	scopeBlock  scopeKind = 4
	scopeMethod scopeKind = 5
	scopeClass  scopeKind = 10
	scopeGlobal scopeKind = 20
)

// Scope is one node of the lexical tree. It owns the variables registered
// in it; parent is a plain back reference.
type Scope struct {
	ID     int
	kind   scopeKind
	parent *Scope
	s      *session

	// method is the code that runs this scope. A class body runs in its
	// constructor.
	method *Method
	class  *Class

	vars       []*Var
	arrs       []*Var
	objClasses []*Class
	objs       map[*Class][]*Var
}

func (s *session) newScope(parent *Scope, kind scopeKind, m *Method, c *Class) *Scope {
	sc := &Scope{kind: kind, parent: parent, s: s, method: m, class: c, objs: map[*Class][]*Var{}}
	if parent == nil {
		sc.ID = 1
	} else {
		sc.ID = s.nextScopeID()
	}
	return sc
}

func (sc *Scope) contMethod() *Method {
	for c := sc; c != nil; c = c.parent {
		if c.method != nil {
			return c.method
		}
	}
	return nil
}

// ownerClass is the class whose body or method encloses sc.
func (sc *Scope) ownerClass() *Class {
	for c := sc; c != nil; c = c.parent {
		if c.class != nil {
			return c.class
		}
		if c.method != nil {
			return c.method.class
		}
	}
	return nil
}

func (sc *Scope) register(v *Var, name string) {
	if sc.kind != scopeClass && sc.kind != scopeMethod && !v.has(flagLocal) && !v.has(flagBlock) && sc.parent != nil {
		sc.parent.register(v, name)
		return
	}
	if !v.has(flagAux) {
		switch {
		case v.isArr:
			sc.arrs = append(sc.arrs, v)
		case v.typ == TypeObject:
			if _, ok := sc.objs[v.class]; !ok {
				sc.objClasses = append(sc.objClasses, v.class)
			}
			sc.objs[v.class] = append(sc.objs[v.class], v)
		default:
			sc.vars = append(sc.vars, v)
		}
	}
	v.scope = sc
	if name == "" {
		name = sc.genName("var", v.typ, v.isArr)
	}
	v.name = name
}

// genName builds "<type letter>[Arr]<sort>" and appends the per-prefix
// counter. Variables declared in a class body get the Fld suffix.
func (sc *Scope) genName(sort string, t Type, arr bool) string {
	if sc.kind < scopeMethod && sc.parent != nil {
		return sc.parent.genName(sort, t, arr)
	}
	var pref string
	switch t {
	case TypeNone:
	case TypeString:
		pref = "str"
	case TypeByte:
		pref = "by"
	default:
		pref = t.String()[:1]
	}
	if arr {
		pref += "Arr"
	}
	if sort != "var" {
		pref += sort
	} else if sc.kind == scopeClass {
		pref += "Fld"
	}
	return sc.s.uniqueName(pref)
}

func (sc *Scope) objects() []*Var {
	var out []*Var
	for _, c := range sc.objClasses {
		out = append(out, sc.objs[c]...)
	}
	return out
}

func (sc *Scope) visibleVars() []*Var {
	var out []*Var
	for c := sc; c != nil; c = c.parent {
		out = append(out, c.vars...)
	}
	return out
}

func (sc *Scope) visibleArrs() []*Var {
	var out []*Var
	for c := sc; c != nil; c = c.parent {
		out = append(out, c.arrs...)
	}
	return out
}

func (sc *Scope) visibleObjects() []*Var {
	var out []*Var
	for c := sc; c != nil; c = c.parent {
		out = append(out, c.objects()...)
	}
	return out
}

// reachableClass reports whether static members of c may be touched from
// met: c's static initialization must not be part of a chain leading to met.
func (s *session) reachableClass(c *Class, met *Method) bool {
	return c.ctor == met || !s.calls.isCaller(c.ctor, met)
}

func (sc *Scope) staticVars(met *Method) []*Var {
	var out []*Var
	for _, c := range sc.s.classes {
		if !sc.s.reachableClass(c, met) {
			continue
		}
		for _, v := range c.scope.vars {
			if v.has(flagStatic) {
				out = append(out, v)
			}
		}
	}
	return out
}

func (sc *Scope) staticObjects(met *Method) []*Var {
	var out []*Var
	for _, c := range sc.s.classes {
		if !sc.s.reachableClass(c, met) {
			continue
		}
		for _, v := range c.scope.objects() {
			if v.has(flagStatic) && sc.s.reachableClass(v.class, met) {
				out = append(out, v)
			}
		}
	}
	return out
}

func uniqueVars(vs []*Var) []*Var {
	seen := make(map[*Var]bool, len(vs))
	out := vs[:0:0]
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// anyCaller reports whether m calls one of ms.
func (s *session) anyCaller(m *Method, ms []*Method) bool {
	for _, x := range ms {
		if s.calls.isCaller(m, x) {
			return true
		}
	}
	return false
}

type varQuery struct {
	reuse    int
	typ      Type
	dest     bool
	class    *Class
	notNull  bool
	methods  []*Method
	notBlock bool
}

// getVar resolves a variable of q.typ visible from sc, or creates one in a
// randomly chosen place.
func (sc *Scope) getVar(q varQuery) *Var {
	s := sc.s
	met := sc.contMethod()
	metlist := append([]*Method(nil), q.methods...)
	if met != nil {
		metlist = append(metlist, met)
	}
	if s.r.prob(q.reuse) || (q.typ == TypeObject && len(s.classes) >= s.opts.MaxClasses) {
		if v, ok := pickOne(s.r, sc.reusableVars(q, met, metlist)); ok {
			return v
		}
	}
	return sc.createVar(q, met, metlist)
}

func (sc *Scope) reusableVars(q varQuery, met *Method, metlist []*Method) []*Var {
	s := sc.s
	var pool []*Var
	if q.typ != TypeObject {
		pool = uniqueVars(append(sc.staticVars(met), sc.visibleVars()...))
	} else {
		for _, v := range uniqueVars(append(sc.staticObjects(met), sc.visibleObjects()...)) {
			if (q.class == nil && !s.anyCaller(v.class.ctor, metlist)) || v.class == q.class {
				pool = append(pool, v)
			}
		}
	}
	static := met != nil && met.static
	run := met != nil && met.kind == methodRun && !s.extreme()
	var out []*Var
	for _, v := range pool {
		switch {
		case q.typ != TypeObject && v.typ != q.typ:
		case q.notNull && !v.has(flagNotNull):
		case static && v.has(flagMember) && !v.has(flagStatic):
		case q.dest && (v.induction || v.has(flagNull)):
		case run && (v.has(flagStatic) || !(v.has(flagBlock) || v.has(flagLocal))):
		default:
			out = append(out, v)
		}
	}
	return out
}

// excludedCategories prunes the creation sites that make no sense from sc.
func (sc *Scope) excludedCategories(noBlock bool, met *Method) []string {
	var ex []string
	run := met != nil && met.kind == methodRun
	lax := run && !sc.s.extreme()
	if noBlock {
		ex = append(ex, "block")
	}
	if (met != nil && met.static) || lax {
		ex = append(ex, "non_static")
	}
	if sc.kind == scopeClass {
		ex = append(ex, "block", "local", "local_other")
	}
	if lax {
		ex = append(ex, "local_other", "static_other")
	}
	if run {
		ex = append(ex, "static")
	}
	return ex
}

func (sc *Scope) createVar(q varQuery, met *Method, metlist []*Method) *Var {
	s := sc.s
	flags := varFlag(0)
	if q.notNull {
		flags |= flagNotNull
	}
	var v *Var
	cat, _ := s.varTypes.Pick(s.r, nil, sc.excludedCategories(q.notBlock || sc.kind >= scopeMethod, met))
	switch cat {
	case "non_static":
		if met != nil && !met.static && (q.typ != TypeObject || met.class.canContain(q.class)) {
			v = s.newVar(met.class.scope, q.typ, flags|flagMember|flagPublic, q.class, "")
		}
	case "static":
		owner := sc.ownerClass()
		if met != nil {
			owner = met.class
		}
		if q.typ != TypeObject || owner.canContain(q.class) {
			v = s.newVar(owner.scope, q.typ, flags|flagMember|flagPublic|flagStatic, q.class, "")
		}
	case "local":
		v = s.newVar(sc, q.typ, flags, q.class, "")
	case "block":
		v = s.newVar(sc, q.typ, flags|flagBlock, q.class, "")
	case "local_other":
		v = sc.subVar(q, metlist)
	case "static_other":
		v = sc.foreignStatic(q, metlist)
	}
	if v == nil {
		if sc.kind == scopeClass {
			flags |= flagPublic | flagStatic | flagMember
		}
		v = s.newVar(sc, q.typ, flags, q.class, "")
	}
	return v
}

// subVar creates a field in another class and reaches it through a
// non-null object of that class: outer.inner.
func (sc *Scope) subVar(q varQuery, metlist []*Method) *Var {
	s := sc.s
	cls := q.class
	if q.typ == TypeObject && cls == nil {
		cls = s.acquireClass(s.opts.PClassReuse, sc, metlist, nil)
	}
	var rev []*Method
	if cls != nil {
		rev = append(rev, cls.ctor)
	}
	outerClass := s.acquireClass(s.opts.PClassReuse, sc, metlist, rev)
	if q.typ == TypeObject && !outerClass.canContain(cls) {
		return nil
	}
	outer := sc.getVar(varQuery{
		reuse: q.reuse, typ: TypeObject, dest: true, class: outerClass,
		notNull: true, methods: metlist, notBlock: q.notBlock,
	})
	if !outer.has(flagNotNull) {
		return nil
	}
	// resolving outer may have added fields that now lead back to outerClass
	if q.typ == TypeObject && !outerClass.canContain(cls) {
		return nil
	}
	inner := s.newVar(outerClass.scope, q.typ, flagPublic|flagMember|q.nullFlag(), cls, "")
	flags := flagSub | inner.flags&flagNotNull | outer.flags&flagBlock
	return s.newVar(sc, q.typ, flags, inner.class, outer.ref()+"."+inner.name)
}

func (q varQuery) nullFlag() varFlag {
	if q.notNull {
		return flagNotNull
	}
	return 0
}

func (sc *Scope) foreignStatic(q varQuery, metlist []*Method) *Var {
	s := sc.s
	cls := q.class
	if q.typ == TypeObject && cls == nil {
		cls = s.acquireClass(s.opts.PClassReuse, sc, metlist, nil)
	}
	var rev []*Method
	if cls != nil {
		rev = append(rev, cls.ctor)
	}
	outerClass := s.acquireClass(s.opts.PClassReuse, sc, metlist, rev)
	if q.typ == TypeObject && !outerClass.canContain(cls) {
		return nil
	}
	return s.newVar(outerClass.scope, q.typ, q.nullFlag()|flagPublic|flagMember|flagStatic, cls, "")
}

type arrQuery struct {
	reuse    int
	elem     Type
	dims     int
	notNull  bool
	notBlock bool
	// shape is set for sub-array values; it fixes element type and size,
	// and a one-dimensional shape accepts an array of any dimension.
	shape *ArrayShape
}

func (sc *Scope) getArr(q arrQuery) *Var {
	s := sc.s
	size := 0
	if q.shape != nil {
		q.elem, q.dims, size = q.shape.Elem, q.shape.Dims, q.shape.Size
		if q.dims == 1 {
			q.dims = 0
		}
	} else if q.dims == 0 && s.r.prob(s.opts.PBigArray) {
		size = s.r.upto(s.opts.MaxBigArray) + s.opts.MinBigArray
	}
	met := sc.contMethod()
	static := met != nil && met.static
	if s.r.prob(q.reuse) {
		var cands []*Var
		for _, v := range sc.visibleArrs() {
			switch {
			case q.notNull && !v.has(flagNotNull):
			case v.typ != q.elem:
			case q.dims != 0 && v.dims != q.dims:
			case v.has(flagNull):
			case static && v.has(flagMember) && !v.has(flagStatic):
			default:
				cands = append(cands, v)
			}
		}
		if v, ok := pickOne(s.r, cands); ok {
			return v
		}
	}

	flags := varFlag(0)
	if q.notNull {
		flags |= flagNotNull
	}
	noBlock := q.notBlock || sc.kind >= scopeMethod || !s.extreme()
	var metlist []*Method
	if met != nil {
		metlist = append(metlist, met)
	}
	var arr *Var
	cat, _ := s.varTypes.Pick(s.r, nil, sc.excludedCategories(noBlock, met))
	switch cat {
	case "local":
		arr = s.newArr(sc, q.dims, q.elem, flags, "", size)
	case "block":
		arr = s.newArr(sc, q.dims, q.elem, flags|flagBlock, "", size)
	case "non_static":
		arr = s.newArr(sc, q.dims, q.elem, flags|flagMember|flagPublic, "", size)
	case "static":
		arr = s.newArr(sc, q.dims, q.elem, flags|flagMember|flagPublic|flagStatic, "", size)
	case "static_other":
		outerClass := s.acquireClass(s.opts.PClassReuse, sc, metlist, nil)
		arr = s.newArr(outerClass.scope, q.dims, q.elem, flags|flagMember|flagPublic|flagStatic, "", size)
	case "local_other":
		outerClass := s.acquireClass(s.opts.PClassReuse, sc, metlist, nil)
		outer := sc.getVar(varQuery{
			reuse: q.reuse, typ: TypeObject, dest: true, class: outerClass,
			notNull: true, methods: metlist, notBlock: q.notBlock,
		})
		if outer.has(flagNotNull) {
			inner := s.newArr(outerClass.scope, q.dims, q.elem, flags|flagMember|flagPublic, "", size)
			arr = s.newArr(sc, inner.dims, q.elem, flags|flagSub|outer.flags&flagBlock, outer.ref()+"."+inner.name, size)
		}
	}
	if arr == nil {
		arr = s.newArr(sc, q.dims, q.elem, flags, "", size)
	}
	return arr
}

// renderDeclarations prints local declarations grouped by type, then class
// member declarations, then array fills. Class bodies fill static arrays in
// a static initializer.
func (sc *Scope) renderDeclarations(p *printer) {
	var keys []string
	groups := map[string][]string{}
	var members []string
	add := func(v *Var) {
		switch {
		case v.has(flagMember) && !v.has(flagSub):
			members = append(members, v.modifiers()+v.typeName()+" "+v.decl()+";")
		case v.has(flagArg) || v.has(flagMember) || v.has(flagSub) || v.has(flagLocal):
		default:
			k := v.typeName()
			if _, ok := groups[k]; !ok {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], v.decl())
		}
	}
	for _, v := range sc.vars {
		add(v)
	}
	for _, v := range sc.arrs {
		add(v)
	}
	for _, v := range sc.objects() {
		add(v)
	}
	for _, k := range keys {
		p.line(k + " " + strings.Join(groups[k], ", ") + ";")
	}
	for _, m := range members {
		p.line(m)
	}
	if sc.kind < scopeMethod {
		return
	}
	p.blank()

	var fills []string
	for _, a := range sc.arrs {
		if a.has(flagArg) || a.fill == "" || (sc.kind == scopeClass && !a.has(flagStatic)) {
			continue
		}
		fills = append(fills, a.fill)
	}
	if len(fills) == 0 {
		return
	}
	if sc.kind == scopeClass {
		p.line("static {")
		p.shift(1)
	}
	for _, f := range fills {
		p.line(f)
	}
	if sc.kind == scopeClass {
		p.shift(-1)
		p.line("}")
	}
	p.blank()
}

type checkItem struct {
	name string
	sum  string
}

func (sc *Scope) checkItems() []checkItem {
	var out []checkItem
	for _, v := range sc.vars {
		out = append(out, checkItem{v.ref(), v.checksum()})
	}
	for _, v := range sc.arrs {
		out = append(out, checkItem{v.ref(), v.checksum()})
	}
	for _, v := range sc.objects() {
		out = append(out, checkItem{v.ref(), v.checksum()})
	}
	return out
}

// renderResPrint prints the checksums of the scope's variables, three per
// line. withClasses adds every class instance counter.
func (sc *Scope) renderResPrint(p *printer, withClasses bool) {
	p.blank()
	items := sc.checkItems()
	if withClasses {
		for _, c := range sc.s.classes {
			if c.head {
				continue
			}
			items = append(items, checkItem{c.Name, c.Name + ".instanceCount"})
		}
	}
	for i := 0; i < len(items); i += 3 {
		end := i + 3
		if end > len(items) {
			end = len(items)
		}
		var names, sums []string
		for _, it := range items[i:end] {
			names = append(names, it.name)
			sums = append(sums, it.sum)
		}
		p.line(`FuzzerUtils.out.println("` + strings.Join(names, " ") + ` = " + ` + strings.Join(sums, ` + "," + `) + ");")
	}
}

func (sc *Scope) methCheckSum() string {
	var sums []string
	for _, it := range sc.checkItems() {
		sums = append(sums, it.sum)
	}
	if len(sums) == 0 {
		return "0"
	}
	return strings.Join(sums, " + ")
}
