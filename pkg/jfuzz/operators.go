package jfuzz

type opForm int

const (
	opPrefix opForm = iota
	opInfix
	opPostfix
)

// operator is one Java operator as seen by the expression engine: its
// category, the types it yields and the types it accepts on each side.
// lhsVar marks operators that write their left operand.
type operator struct {
	sign   string
	cat    string
	form   opForm
	res    []Type
	lhs    []Type
	rhs    []Type
	lhsVar bool
}

func (op *operator) divides() bool {
	switch op.sign {
	case "/", "%", "/=", "%=":
		return true
	}
	return false
}

func (op *operator) assigns() bool {
	switch op.cat {
	case "boolean_assn", "integral_assn", "arith_assn", "object_assn", "array_assn":
		return true
	}
	return false
}

var opCategoryNames = []string{
	"relational", "boolean", "integral", "arith", "uarith", "indecrem_pre", "indecrem_post",
	"boolean_assn", "integral_assn", "arith_assn", "object_assn", "array_assn",
}

// operatorTable holds every operator the engine knows, keyed by category
// and sign.
var operatorTable = buildOperators()

func buildOperators() map[string]map[string]*operator {
	out := make(map[string]map[string]*operator, len(opCategoryNames))
	for cat, tab := range defaultOperators() {
		out[cat] = map[string]*operator{}
		for _, e := range tab {
			out[cat][e.Key] = makeOperator(e.Key, cat)
		}
	}
	return out
}

func makeOperator(sign, cat string) *operator {
	op := &operator{sign: sign, cat: cat, form: opInfix}
	switch {
	case cat == "relational":
		op.res, op.lhs, op.rhs = boolTypes, arithTypes, arithTypes
	case sign == "!":
		op.form = opPrefix
		op.res, op.lhs = boolTypes, boolTypes
	case cat == "boolean":
		op.res, op.lhs, op.rhs = boolTypes, boolTypes, boolTypes
	case sign == "~":
		op.form = opPrefix
		op.res, op.lhs = integralTypes, integralTypes
	case cat == "integral":
		op.res, op.lhs, op.rhs = integralTypes, integralTypes, integralTypes
	case cat == "arith":
		op.res, op.lhs, op.rhs = arithTypes, arithTypes, arithTypes
	case cat == "uarith":
		op.form = opPrefix
		op.res, op.lhs = arithTypes, arithTypes
	case cat == "indecrem_pre":
		op.form = opPrefix
		op.res, op.lhs, op.lhsVar = arithTypes, arithTypes, true
	case cat == "indecrem_post":
		op.form = opPostfix
		op.res, op.lhs, op.lhsVar = arithTypes, arithTypes, true
	case cat == "boolean_assn":
		op.res, op.lhs, op.rhs, op.lhsVar = boolTypes, boolTypes, boolTypes, true
	case cat == "integral_assn":
		op.res, op.lhs, op.rhs, op.lhsVar = integralTypes, integralTypes, integralTypes, true
	case cat == "arith_assn":
		op.res, op.lhs, op.rhs, op.lhsVar = arithTypes, arithTypes, arithTypes, true
	case cat == "object_assn":
		op.res, op.lhs, op.rhs, op.lhsVar = objectTypes, objectTypes, objectTypes, true
	case cat == "array_assn":
		op.res, op.lhs, op.rhs, op.lhsVar = arrayTypes, arrayTypes, arrayTypes, true
	}
	return op
}

// lookupOperator returns the operator sign of category cat.
func lookupOperator(sign, cat string) (*operator, bool) {
	op, ok := operatorTable[cat][sign]
	return op, ok
}

// infixOp returns the binary operator spelled sign that accepts a left
// operand of type t. Signs shared by boolean and integral operators
// resolve by operand type; arithmetic operands a category cannot take
// fall back to a numeric category, and render casts them to long.
func infixOp(sign string, t Type) *operator {
	var fallback *operator
	for _, cat := range opCategoryNames {
		op, ok := operatorTable[cat][sign]
		if !ok || op.form != opInfix || op.lhsVar {
			continue
		}
		if contains(op.lhs, t) {
			return op
		}
		if fallback == nil && (t == TypeBoolean) == contains(op.lhs, TypeBoolean) {
			fallback = op
		}
	}
	if fallback == nil {
		fail("infixOp", "no infix operator %q for %s", sign, t)
	}
	return fallback
}

// opCategories lists the operator and assignment categories whose result
// can stand for a value of type t.
func opCategories(t Type) (oper, assn []string) {
	integ := []string{"integral", "arith", "uarith", "indecrem_pre", "indecrem_post"}
	switch t {
	case TypeBoolean:
		return []string{"relational", "boolean"}, []string{"boolean_assn"}
	case TypeByte, TypeChar, TypeShort, TypeInt, TypeLong:
		return integ, []string{"integral_assn", "arith_assn"}
	case TypeFloat, TypeDouble:
		return integ[1:], []string{"arith_assn"}
	case TypeObject:
		return nil, []string{"object_assn"}
	case TypeArray:
		return nil, []string{"array_assn"}
	}
	return nil, nil
}

// pickOperator draws a category among cats and an operator within it.
// Tables configured with zero weights fall back to a uniform choice.
func (s *session) pickOperator(cats []string) (*operator, bool) {
	if len(cats) == 0 {
		return nil, false
	}
	cat, ok := s.opCats.Pick(s.r, cats, nil)
	if !ok {
		cat, _ = pickOne(s.r, cats)
	}
	var sign string
	if tab, found := s.operators[cat]; found {
		sign, ok = tab.Pick(s.r, nil, nil)
	} else {
		ok = false
	}
	if !ok {
		var signs []string
		for _, e := range defaultOperators()[cat] {
			signs = append(signs, e.Key)
		}
		sign, _ = pickOne(s.r, signs)
	}
	return lookupOperator(sign, cat)
}
