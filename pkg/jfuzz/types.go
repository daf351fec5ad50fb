package jfuzz

import "fmt"

// Type is a Java type tag. Array and Object are pseudo-types: the element
// type or class travels next to the tag.
type Type int

const (
	TypeNone Type = iota // constructors
	TypeVoid
	TypeArray
	TypeObject
	TypeBoolean
	TypeString
	TypeByte
	TypeChar
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
)

var typeNames = map[Type]string{
	TypeNone:    "",
	TypeVoid:    "void",
	TypeArray:   "Array",
	TypeObject:  "Object",
	TypeBoolean: "boolean",
	TypeString:  "String",
	TypeByte:    "byte",
	TypeChar:    "char",
	TypeShort:   "short",
	TypeInt:     "int",
	TypeLong:    "long",
	TypeFloat:   "float",
	TypeDouble:  "double",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps a configuration name to a type tag.
func ParseType(name string) (Type, bool) {
	for t, s := range typeNames {
		if s == name && t != TypeNone {
			return t, true
		}
	}
	return TypeNone, false
}

// boxName is the suffix used by the FuzzerUtils.next<X>() helpers.
func (t Type) boxName() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeBoolean:
		return "Boolean"
	case TypeByte:
		return "Byte"
	case TypeChar:
		return "Char"
	case TypeShort:
		return "Short"
	case TypeLong:
		return "Long"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	}
	return t.String()
}

// typeWeight orders numeric types by width; non-numeric types weigh 0.
func typeWeight(t Type) int {
	switch t {
	case TypeByte:
		return 1
	case TypeChar:
		return 2
	case TypeShort:
		return 3
	case TypeInt:
		return 4
	case TypeLong:
		return 5
	case TypeFloat:
		return 6
	case TypeDouble:
		return 7
	}
	return 0
}

// wider reports whether a is strictly wider than b.
func wider(a, b Type) bool {
	return typeWeight(a) > typeWeight(b)
}

// widens reports whether Java converts a from value to a to value without
// a cast.
func widens(from, to Type) bool {
	if from == to {
		return true
	}
	switch from {
	case TypeByte:
		return to == TypeShort || to == TypeInt || to == TypeLong || to == TypeFloat || to == TypeDouble
	case TypeShort, TypeChar:
		return to == TypeInt || to == TypeLong || to == TypeFloat || to == TypeDouble
	case TypeInt:
		return to == TypeLong || to == TypeFloat || to == TypeDouble
	case TypeLong:
		return to == TypeFloat || to == TypeDouble
	case TypeFloat:
		return to == TypeDouble
	}
	return false
}

// needsCast reports whether a numeric value of type from must be cast
// explicitly before it can be stored as to.
func needsCast(to, from Type) bool {
	return isArith(to) && isArith(from) && !widens(from, to)
}

var (
	integralTypes = []Type{TypeByte, TypeShort, TypeInt, TypeLong}
	arithTypes    = []Type{TypeByte, TypeShort, TypeInt, TypeLong, TypeChar, TypeFloat, TypeDouble}
	boolTypes     = []Type{TypeBoolean}
	objectTypes   = []Type{TypeObject}
	arrayTypes    = []Type{TypeArray}
)

func isIntegral(t Type) bool { return contains(integralTypes, t) }
func isArith(t Type) bool    { return contains(arithTypes, t) }

// ArrayShape describes an Array-typed value: element type, dimension
// count and fixed length (0 for the N constant). Dims 0 accepts any
// dimension.
type ArrayShape struct {
	Elem Type
	Dims int
	Size int
}
