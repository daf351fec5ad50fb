package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfixOpResolvesByOperandType(t *testing.T) {
	for _, tc := range []struct {
		sign string
		typ  Type
		cat  string
	}{
		{"|", TypeInt, "integral"},
		{"|", TypeBoolean, "boolean"},
		{"^", TypeLong, "integral"},
		{"&", TypeFloat, "integral"},
		{"==", TypeBoolean, "boolean"},
		{"==", TypeDouble, "relational"},
		{"<", TypeInt, "relational"},
		{"+", TypeShort, "arith"},
		{"%", TypeDouble, "arith"},
	} {
		op := infixOp(tc.sign, tc.typ)
		assert.Equal(t, tc.cat, op.cat, "%s on %s", tc.sign, tc.typ)
		assert.Equal(t, tc.sign, op.sign)
	}
}

func TestInfixOpRejectsAssignments(t *testing.T) {
	assert.Panics(t, func() { infixOp("+=", TypeInt) })
	assert.Panics(t, func() { infixOp("++", TypeInt) })
}

func TestLookupOperator(t *testing.T) {
	op, ok := lookupOperator("+=", "arith_assn")
	if assert.True(t, ok) {
		assert.True(t, op.assigns())
		assert.True(t, op.lhsVar)
	}
	_, ok = lookupOperator("+=", "integral_assn")
	assert.False(t, ok)

	div, _ := lookupOperator("%", "arith")
	assert.True(t, div.divides())
	neg, _ := lookupOperator("-", "uarith")
	assert.Equal(t, opPrefix, neg.form)
}

func TestOpCategories(t *testing.T) {
	oper, assn := opCategories(TypeFloat)
	assert.NotContains(t, oper, "integral")
	assert.Equal(t, []string{"arith_assn"}, assn)

	oper, assn = opCategories(TypeBoolean)
	assert.Equal(t, []string{"relational", "boolean"}, oper)
	assert.Equal(t, []string{"boolean_assn"}, assn)

	oper, _ = opCategories(TypeArray)
	assert.Empty(t, oper)
}
