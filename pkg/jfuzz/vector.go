package jfuzz

// vectTypes are the accumulator and operand types of vectorizable
// statements.
var vectTypes = append(append([]Type(nil), integralTypes...), TypeFloat)

// buildVect emits an accumulation over the innermost induction variable in
// one of the shapes loop vectorizers look for:
//
//	n += i
//	n += i op scalar
//	n += i * c1 + c2 - c3
//	n += [lit +] i * i
func (s *session) buildVect(st *Stmt) bool {
	ivars := st.parent.inductionVars()
	if len(ivars) == 0 {
		return false
	}
	iv := ivars[0]
	scalar := func(depth int) *Expr {
		return s.newExpr(st, exprReq{typ: s.randType(vectTypes, nil), depth: depth, kind: kindScalar})
	}
	left := s.newExpr(st, exprReq{typ: s.randType(vectTypes, nil), depth: 1, kind: kindScalar, flags: exprDest})
	var right *Expr
	switch s.r.upto(4) {
	case 0:
		right = scalarOf(iv, 0)
	case 1:
		sign, _ := pickOne(s.r, []string{"+", "-", "*", "|", "^"})
		right = binary(scalarOf(iv, 0), sign, scalar(2))
	case 2:
		right = binary(scalarOf(iv, 0), "*", scalar(4))
		right = binary(right, "+", scalar(3))
		right = binary(right, "-", scalar(2))
	default:
		right = binary(scalarOf(iv, 0), "*", scalarOf(iv, 0))
		if s.r.prob(50) {
			lit := s.newExpr(st, exprReq{typ: s.randType(vectTypes, nil), depth: 2, kind: kindLiteral})
			right = binary(lit, "+", right)
		}
	}
	st.body = &exprBody{e: assignExpr(left, "+=", "arith_assn", right)}
	return true
}
