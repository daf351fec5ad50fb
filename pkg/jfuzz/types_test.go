package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWidening(t *testing.T) {
	for _, tc := range []struct {
		from, to Type
		want     bool
	}{
		{TypeByte, TypeShort, true},
		{TypeByte, TypeChar, false},
		{TypeChar, TypeInt, true},
		{TypeShort, TypeChar, false},
		{TypeInt, TypeLong, true},
		{TypeLong, TypeInt, false},
		{TypeLong, TypeFloat, true},
		{TypeDouble, TypeFloat, false},
		{TypeInt, TypeInt, true},
	} {
		assert.Equal(t, tc.want, widens(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNeedsCast(t *testing.T) {
	assert.True(t, needsCast(TypeInt, TypeLong))
	assert.True(t, needsCast(TypeByte, TypeInt))
	assert.True(t, needsCast(TypeChar, TypeShort))
	assert.False(t, needsCast(TypeLong, TypeInt))
	assert.False(t, needsCast(TypeDouble, TypeFloat))
	assert.False(t, needsCast(TypeBoolean, TypeInt))
	assert.False(t, needsCast(TypeInt, TypeBoolean))
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"Array", "Object", "boolean", "String", "byte", "char", "short", "int", "long", "float", "double", "void"} {
		typ, ok := ParseType(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, name, typ.String())
		}
	}
	_, ok := ParseType("")
	assert.False(t, ok)
	_, ok = ParseType("Integer")
	assert.False(t, ok)
}
