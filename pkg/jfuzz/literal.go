package jfuzz

import (
	"fmt"
	"strconv"
)

var stringLiterals = []string{`"one"`, `"two"`, `"three"`, `"four"`}

// literal renders a random constant of a primitive or String type.
func (s *session) literal(t Type) string {
	r := s.r
	switch t {
	case TypeInt:
		span, _ := pickOne(r, []int{0xF, 0xFF, s.opts.MaxNum})
		return strconv.Itoa(r.upto(span) * r.sign())
	case TypeLong:
		span, _ := pickOne(r, []int64{0xF, 0xFF, 0xFFFF, 0xFFFFFFFF, 0x7FFFFFFFFFFFFFFF})
		return strconv.FormatInt(r.upto63(span)*int64(r.sign()), 10) + "L"
	case TypeDouble:
		span, _ := pickOne(r, []int{3, 128})
		whole := r.upto(span) * r.sign()
		return fmt.Sprintf("%d.%d", whole, r.upto(1024*128))
	case TypeFloat:
		span, _ := pickOne(r, []int{3, 128})
		whole := r.upto(span) * r.sign()
		return fmt.Sprintf("%d.%dF", whole, r.upto(1024))
	case TypeShort:
		return strconv.Itoa(r.upto(32768) * r.sign())
	case TypeChar:
		return strconv.Itoa(r.upto(65536))
	case TypeByte:
		return strconv.Itoa(r.upto(128) * r.sign())
	case TypeBoolean:
		b, _ := pickOne(r, []string{"true", "false"})
		return b
	case TypeString:
		str, _ := pickOne(r, stringLiterals)
		return str
	}
	fail("literal", "no literal form for type %s", t)
	return ""
}

// sizedIntLit draws an int constant of 8, 16 or 31 significant bits, the
// widths narrow-division strength reduction cares about.
func (s *session) sizedIntLit(add int) string {
	var v int
	switch s.r.upto(5) {
	case 0, 1:
		v = s.r.upto(0x100)
	case 2, 3:
		v = s.r.upto(0x10000)
	default:
		v = s.r.upto(0x80000000)
	}
	v += add
	if v > 0x7FFFFFFF {
		v = 0x7FFFFFFF
	}
	return strconv.Itoa(v * s.r.sign())
}

// objectLiteral renders an allocation of cls or one of its subclasses, or
// null. The allocation runs in the code owning sc, so a call edge to the
// chosen constructor is recorded; classes that would close a call cycle
// are skipped. field marks an instance field initializer, which also has to
// pass the containment check.
func (s *session) objectLiteral(cls *Class, sc *Scope, notNull, field bool) (string, *Class) {
	if !notNull && s.r.prob(s.opts.PNullLiteral) {
		return "null", nil
	}
	if cls == nil {
		cls = s.acquireClass(s.opts.PClassReuse, sc, nil, nil)
	}
	builder := sc.contMethod()
	owner := sc.ownerClass()
	eligible := func(k *Class) bool {
		if k.head {
			return false
		}
		if field && !owner.canContain(k) {
			return false
		}
		return s.canLink(builder, k.ctor)
	}
	var kids []*Class
	for _, k := range cls.children {
		if eligible(k) {
			kids = append(kids, k)
		}
	}
	var pick *Class
	switch {
	case eligible(cls) && (len(kids) == 0 || s.r.upto(2) == 0):
		pick = cls
	case len(kids) > 0:
		pick, _ = pickOne(s.r, kids)
	default:
		return "null", nil
	}
	s.link(builder, pick.ctor)
	return "new " + pick.Name + "()", pick
}

// arrayLiteral renders a freshly filled array of the given shape.
func (s *session) arrayLiteral(a ArrayShape) string {
	size := tripCountName
	if a.Size != 0 {
		size = strconv.Itoa(a.Size)
	}
	return fmt.Sprintf("FuzzerUtils.%s%darray(%s, (%s)%s)", a.Elem, a.Dims, size, a.Elem, s.literal(a.Elem))
}
