package jfuzz

import "strings"

type varFlag int

const (
	flagLocal varFlag = 1 << iota // owned by the scope that created it
	flagArg
	flagNull // holds zero/null on purpose
	flagStatic
	flagAux // never offered for reuse
	flagMember
	flagPublic
	flagFinal
	flagSub // field of a local object, reached as outer.inner
	flagNotNull
	flagBlock
	flagVolatile
)

var varCategoryNames = []string{"non_static", "static", "local", "static_other", "local_other", "block"}

// Var is a named scalar, object or array.
type Var struct {
	name  string
	typ   Type
	flags varFlag
	scope *Scope // owning scope
	class *Class // declared class of an Object value
	inst  *Class // class created by the initializer

	isArr bool
	dims  int
	size  int // fixed array length, 0 for N

	// induction marks loop counters; they are never assignment targets.
	induction bool

	init string
	fill string
}

func (v *Var) has(f varFlag) bool { return v.flags&f != 0 }

// ref is the name as it must appear in code: static fields are qualified
// with their class.
func (v *Var) ref() string {
	if v.has(flagStatic) && v.scope != nil && v.scope.class != nil {
		return v.scope.class.Name + "." + v.name
	}
	return v.name
}

func (v *Var) typeName() string {
	if v.typ == TypeObject && v.class != nil {
		return v.class.Name
	}
	return v.typ.String()
}

func (v *Var) modifiers() string {
	var b strings.Builder
	if v.has(flagPublic) {
		b.WriteString("public ")
	} else {
		b.WriteString("private ")
	}
	if v.has(flagStatic) {
		b.WriteString("static ")
	}
	if v.has(flagFinal) {
		b.WriteString("final ")
	}
	if v.has(flagVolatile) {
		b.WriteString("volatile ")
	}
	return b.String()
}

func (v *Var) newExpr(dim string) string {
	if v.size != 0 {
		dim = itoa(v.size)
	}
	return "new " + v.typ.String() + strings.Repeat("["+dim+"]", v.dims)
}

// decl renders "name=init" as used in a declaration list.
func (v *Var) decl() string {
	if v.isArr {
		init := v.newExpr(tripCountName)
		if v.has(flagNull) {
			init = "null"
		}
		return v.name + strings.Repeat("[]", v.dims) + "=" + init
	}
	return v.name + "=" + v.init
}

func (v *Var) checksum() string {
	if v.isArr {
		if v.has(flagNull) {
			return "0"
		}
		if v.typ == TypeFloat || v.typ == TypeDouble {
			return "Double.doubleToLongBits(FuzzerUtils.checkSum(" + v.ref() + "))"
		}
		return "FuzzerUtils.checkSum(" + v.ref() + ")"
	}
	switch v.typ {
	case TypeBoolean:
		return "(" + v.ref() + " ? 1 : 0)"
	case TypeChar:
		return "(int)" + v.ref()
	case TypeFloat:
		return "Float.floatToIntBits(" + v.ref() + ")"
	case TypeDouble:
		return "Double.doubleToLongBits(" + v.ref() + ")"
	case TypeString:
		return v.ref() + ".length()"
	case TypeObject:
		return "FuzzerUtils.checkSum(" + v.ref() + ")"
	}
	return v.ref()
}

// newVar creates a scalar or object variable in sc and registers it with
// the scope that owns it. Class members created below a class body climb
// to the class body first.
func (s *session) newVar(sc *Scope, t Type, flags varFlag, cls *Class, name string) *Var {
	v := &Var{typ: t, flags: flags, class: cls}
	if s.r.prob(s.opts.PVolatile) {
		v.flags |= flagVolatile
	}
	sc = v.climb(sc)
	if t == TypeObject && v.class == nil {
		v.class = s.acquireClass(s.opts.PClassReuse, sc, nil, nil)
	}
	sc.register(v, name)
	if !v.has(flagSub) && !v.has(flagArg) {
		s.initVar(v, sc)
	}
	return v
}

// newArr is newVar for arrays. dims 0 draws a dimension count; a fixed
// size always means a one-dimensional array.
func (s *session) newArr(sc *Scope, dims int, t Type, flags varFlag, name string, size int) *Var {
	v := &Var{typ: t, flags: flags, isArr: true}
	if s.r.prob(s.opts.PVolatile) {
		v.flags |= flagVolatile
	}
	sc = v.climb(sc)
	v.size = size
	v.dims = dims
	if dims == 0 && size == 0 {
		v.dims, _ = pickOne(s.r, []int{1, 1, 1, s.r.upto(s.opts.MaxArrDim) + 1})
	}
	if size != 0 {
		v.dims = 1
	}
	sc.register(v, name)
	if !v.has(flagArg) {
		s.initVar(v, sc)
	}
	return v
}

func (v *Var) climb(sc *Scope) *Scope {
	if sc.kind < scopeClass && v.has(flagMember) {
		v.flags |= flagPublic
		for sc.kind < scopeClass {
			sc = sc.parent
		}
	}
	return sc
}

// initVar fixes the initial value. Object initializers are charged to the
// code that runs them: the enclosing method for locals, the class
// constructor for fields.
func (s *session) initVar(v *Var, sc *Scope) {
	if v.isArr {
		if v.has(flagNull) {
			return
		}
		val := ""
		if s.opts.OuterControl {
			val = "FuzzerUtils.next" + v.typ.boxName() + "()"
		} else {
			if v.typ == TypeShort || v.typ == TypeChar || v.typ == TypeByte {
				val = "(" + v.typ.String() + ")"
			}
			val += s.literal(v.typ)
		}
		v.fill = "FuzzerUtils.init(" + v.ref() + ", " + val + ");"
		return
	}
	switch {
	case v.has(flagNull):
		v.init = "0"
		if v.typ == TypeObject {
			v.init = "null"
		}
	case v.typ == TypeObject:
		field := v.has(flagMember) && !v.has(flagStatic)
		v.init, v.inst = s.objectLiteral(v.class, sc, v.has(flagNotNull), field)
		if v.inst == nil {
			v.flags &^= flagNotNull
		}
	case !s.opts.OuterControl:
		v.init = s.literal(v.typ)
	default:
		v.init = "FuzzerUtils.next" + v.typ.boxName() + "()"
	}
}
