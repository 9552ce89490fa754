package numsolve

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Bindings maps variable names to their values during evaluation.
type Bindings map[string]float64

// Expr is a node of a parsed arithmetic expression.
//
// Trees produced by Parse keep the shape the user wrote so that evaluation
// matches the source operator for operator. Trees produced by Diff and the
// *Of constructors are simplified.
type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Sub(varName string, value Expr) Expr
	Diff(varName string) Expr
	Eval(env Bindings) (float64, error)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// constants resolves identifiers that are not bound by the caller.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// ============================================================
// Num: float literal
// ============================================================

type Num struct{ val float64 }

func N(v float64) *Num { return &Num{val: v} }

func (n *Num) Simplify() Expr                 { return n }
func (n *Num) Sub(string, Expr) Expr          { return n }
func (n *Num) Diff(string) Expr               { return N(0) }
func (n *Num) Eval(Bindings) (float64, error) { return n.val, nil }
func (n *Num) Equal(other Expr) bool          { o, ok := other.(*Num); return ok && n.val == o.val }
func (n *Num) exprType() string               { return "num" }
func (n *Num) Value() float64                 { return n.val }
func (n *Num) IsZero() bool                   { return n.val == 0 }
func (n *Num) IsOne() bool                    { return n.val == 1 }
func (n *Num) IsNegOne() bool                 { return n.val == -1 }
func (n *Num) IsNegative() bool               { return n.val < 0 }

func (n *Num) String() string { return formatFloat(n.val) }
func (n *Num) LaTeX() string  { return formatFloat(n.val) }

func (n *Num) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "value": n.val}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func isNumEqual(e Expr, v float64) bool {
	n, ok := e.(*Num)
	return ok && n.val == v
}

// ============================================================
// Sym: variable or named constant
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym      { return &Sym{name: name} }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.name }
func (s *Sym) Name() string   { return s.name }

func (s *Sym) LaTeX() string {
	if s.name == "pi" {
		return "\\pi"
	}
	return s.name
}

func (s *Sym) Eval(env Bindings) (float64, error) {
	if v, ok := env[s.name]; ok {
		return v, nil
	}
	if v, ok := constants[s.name]; ok {
		return v, nil
	}
	return 0, wrapIdent(s.name)
}

func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}

func (s *Sym) Sub(varName string, value Expr) Expr {
	if s.name == varName {
		return value
	}
	return s
}

func (s *Sym) Diff(varName string) Expr {
	if s.name == varName {
		return N(1)
	}
	return N(0)
}

// ============================================================
// Add: sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	numAccum := 0.0
	symCoeffs := map[string]float64{}
	symOrder := []string{}
	others := []Expr{}
	for _, t := range flat {
		name, coeff, ok := linearTerm(t)
		switch {
		case isNum(t):
			numAccum += t.(*Num).val
		case ok:
			if _, seen := symCoeffs[name]; !seen {
				symOrder = append(symOrder, name)
			}
			symCoeffs[name] += coeff
		default:
			others = append(others, t)
		}
	}
	result := []Expr{}
	sort.Strings(symOrder)
	for _, name := range symOrder {
		coeff := symCoeffs[name]
		if coeff == 0 {
			continue
		}
		if coeff == 1 {
			result = append(result, S(name))
		} else {
			result = append(result, MulOf(N(coeff), S(name)))
		}
	}
	result = append(result, others...)
	if numAccum != 0 {
		result = append(result, N(numAccum))
	}
	if len(result) == 0 {
		return N(0)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

// linearTerm reports whether e is c*name for a plain symbol.
func linearTerm(e Expr) (string, float64, bool) {
	switch v := e.(type) {
	case *Sym:
		return v.name, 1, true
	case *Mul:
		if len(v.factors) == 2 {
			c, okc := v.factors[0].(*Num)
			s, oks := v.factors[1].(*Sym)
			if okc && oks {
				return s.name, c.val, true
			}
		}
	}
	return "", 0, false
}

func isNum(e Expr) bool { _, ok := e.(*Num); return ok }

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range a.terms {
		if i == 0 {
			sb.WriteString(t.String())
			continue
		}
		if neg, ok := negated(t); ok {
			sb.WriteString(" - ")
			sb.WriteString(neg.String())
			continue
		}
		sb.WriteString(" + ")
		sb.WriteString(t.String())
	}
	return sb.String()
}

// negated returns -t when t carries a leading negative coefficient.
func negated(t Expr) (Expr, bool) {
	switch v := t.(type) {
	case *Num:
		if v.val < 0 {
			return N(-v.val), true
		}
	case *Mul:
		if len(v.factors) > 1 {
			if c, ok := v.factors[0].(*Num); ok && c.val < 0 {
				rest := append([]Expr{N(-c.val)}, v.factors[1:]...)
				if c.val == -1 {
					rest = rest[1:]
				}
				if len(rest) == 1 {
					return rest[0], true
				}
				return &Mul{factors: rest}, true
			}
		}
	}
	return nil, false
}

func (a *Add) LaTeX() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.LaTeX()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) Sub(varName string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(varName, value)
	}
	return AddOf(newTerms...)
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

// Eval sums left to right. A term written as a subtraction is subtracted.
func (a *Add) Eval(env Bindings) (float64, error) {
	acc := 0.0
	for i, t := range a.terms {
		if neg, ok := t.(*Mul); ok && neg.isNegation() {
			v, err := neg.factors[1].Eval(env)
			if err != nil {
				return 0, err
			}
			acc -= v
			continue
		}
		v, err := t.Eval(env)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			acc = v
		} else {
			acc += v
		}
	}
	return acc, nil
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "add", "terms": ts}
}
func (a *Add) Terms() []Expr { return a.terms }

// ============================================================
// Mul: product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

// neg builds the unsimplified negation the parser emits for unary minus.
func neg(e Expr) Expr {
	if n, ok := e.(*Num); ok {
		return N(-n.val)
	}
	return &Mul{factors: []Expr{N(-1), e}}
}

func (m *Mul) isNegation() bool {
	return len(m.factors) == 2 && isNumEqual(m.factors[0], -1)
}

func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}
	coeff := 1.0
	others := []Expr{}
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff *= v.val
		} else {
			others = append(others, f)
		}
	}
	if coeff == 0 {
		return N(0)
	}
	if len(others) == 0 {
		return N(coeff)
	}

	// Precompute sort keys to avoid repeated String() calls in comparator.
	type keyed struct {
		e   Expr
		key string
	}
	ks := make([]keyed, len(others))
	for i, e := range others {
		ks[i] = keyed{e: e, key: e.String()}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	sortedOthers := make([]Expr, len(ks))
	for i := range ks {
		sortedOthers[i] = ks[i].e
	}
	others = sortedOthers

	if coeff == 1 {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{N(coeff)}, others...)}
}

// String writes reciprocal factors after a slash so the output parses back.
func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	var num, den []string
	for i, f := range m.factors {
		if i == 0 && isNumEqual(f, -1) && len(m.factors) > 1 {
			num = append(num, "-")
			continue
		}
		if p, ok := f.(*Pow); ok && isNumEqual(p.exp, -1) {
			den = append(den, wrapOperand(p.base))
			continue
		}
		if _, isAdd := f.(*Add); isAdd {
			num = append(num, "("+f.String()+")")
		} else {
			num = append(num, f.String())
		}
	}
	var sb strings.Builder
	switch {
	case len(num) == 0:
		sb.WriteString("1")
	case num[0] == "-" && len(num) == 1:
		sb.WriteString("-1")
	case num[0] == "-":
		sb.WriteString("-" + strings.Join(num[1:], "*"))
	default:
		sb.WriteString(strings.Join(num, "*"))
	}
	for _, d := range den {
		sb.WriteString("/")
		sb.WriteString(d)
	}
	return sb.String()
}

func wrapOperand(e Expr) string {
	switch v := e.(type) {
	case *Add, *Mul, *Pow:
		return "(" + e.String() + ")"
	case *Num:
		if v.val < 0 {
			return "(" + e.String() + ")"
		}
	}
	return e.String()
}

func (m *Mul) LaTeX() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		_, isAdd := f.(*Add)
		if isAdd {
			parts[i] = "\\left(" + f.LaTeX() + "\\right)"
		} else {
			parts[i] = f.LaTeX()
		}
	}
	return strings.Join(parts, " ")
}

func (m *Mul) Sub(varName string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(varName, value)
	}
	return MulOf(newFactors...)
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		others := make([]Expr, 0, len(m.factors)-1)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		if len(others) == 0 {
			terms[i] = dfi
		} else {
			terms[i] = MulOf(append([]Expr{dfi}, others...)...)
		}
	}
	return AddOf(terms...)
}

// Eval multiplies left to right; reciprocal factors divide.
func (m *Mul) Eval(env Bindings) (float64, error) {
	acc := 1.0
	for _, f := range m.factors {
		if p, ok := f.(*Pow); ok && isNumEqual(p.exp, -1) {
			d, err := p.base.Eval(env)
			if err != nil {
				return 0, err
			}
			if d == 0 {
				return 0, ErrDivisionByZero
			}
			acc /= d
			continue
		}
		v, err := f.Eval(env)
		if err != nil {
			return 0, err
		}
		acc *= v
	}
	return acc, nil
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "mul", "factors": fs}
}
func (m *Mul) Factors() []Expr { return m.factors }

// ============================================================
// Pow: base**exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if isNumEqual(exp, 0) {
		return N(1)
	}
	if isNumEqual(exp, 1) {
		return base
	}
	if bn, ok := base.(*Num); ok {
		if en, ok2 := exp.(*Num); ok2 {
			// 0**negative stays symbolic so evaluation reports the division.
			if bn.val == 0 && en.val < 0 {
				return &Pow{base: base, exp: exp}
			}
			if v := math.Pow(bn.val, en.val); isFinite(v) {
				return N(v)
			}
		}
		if bn.IsOne() {
			return N(1)
		}
	}
	if inner, ok := base.(*Pow); ok {
		if en, ok2 := exp.(*Num); ok2 && isInteger(en.val) {
			return PowOf(inner.base, MulOf(inner.exp, exp))
		}
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) String() string {
	expStr := wrapOperand(p.exp)
	if n, ok := p.exp.(*Num); ok && n.val >= 0 {
		expStr = n.String()
	}
	return wrapOperand(p.base) + "**" + expStr
}

func (p *Pow) LaTeX() string {
	baseStr := p.base.LaTeX()
	expStr := p.exp.LaTeX()
	_, baseIsAdd := p.base.(*Add)
	_, baseIsMul := p.base.(*Mul)
	if baseIsAdd || baseIsMul {
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + expStr + "}"
}

func (p *Pow) Sub(varName string, value Expr) Expr {
	return PowOf(p.base.Sub(varName, value), p.exp.Sub(varName, value))
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	if _, expIsNum := p.exp.(*Num); expIsNum {
		newExp := AddOf(p.exp, N(-1))
		return MulOf(p.exp, PowOf(p.base, newExp), du)
	}
	if s, ok := p.base.(*Sym); ok && s.name == "e" && s.name != varName {
		return MulOf(PowOf(p.base, p.exp), dv)
	}
	if _, baseIsNum := p.base.(*Num); baseIsNum {
		return MulOf(PowOf(p.base, p.exp), LnOf(p.base), dv)
	}
	logTerm := MulOf(dv, LnOf(p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Eval(env Bindings) (float64, error) {
	b, err := p.base.Eval(env)
	if err != nil {
		return 0, err
	}
	e, err := p.exp.Eval(env)
	if err != nil {
		return 0, err
	}
	if b == 0 && e < 0 {
		return 0, ErrDivisionByZero
	}
	v := math.Pow(b, e)
	if !isFinite(v) {
		return 0, fmt.Errorf("%w: %s**%s", ErrNonFinite, formatFloat(b), formatFloat(e))
	}
	return v, nil
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}
func (p *Pow) Base() Expr    { return p.base }
func (p *Pow) ExpExpr() Expr { return p.exp }

func isFinite(v float64) bool  { return !math.IsNaN(v) && !math.IsInf(v, 0) }
func isInteger(v float64) bool { return v == math.Trunc(v) }
