package numsolve

import (
	"regexp"
	"strconv"
	"strings"
)

// DeriveExpression returns a best-effort derivative of expr with respect to x
// by matching each top-level term against a small pattern table. Terms the
// table does not know contribute 0, so the result can be wrong for anything
// beyond simple polynomials and the listed functions of x. Use Differentiate
// for an exact derivative.
func DeriveExpression(expr string) string {
	src := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	if d, ok := simpleDerivatives[src]; ok {
		return d
	}

	var sb strings.Builder
	for _, t := range splitTerms(src) {
		d := deriveTerm(t.body)
		if d == "0" {
			continue
		}
		sign := t.sign
		if strings.HasPrefix(d, "-") {
			d = d[1:]
			if sign == '-' {
				sign = '+'
			} else {
				sign = '-'
			}
		}
		if sb.Len() == 0 {
			if sign == '-' {
				sb.WriteByte('-')
			}
		} else {
			sb.WriteByte(sign)
		}
		sb.WriteString(d)
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

var simpleDerivatives = map[string]string{
	"x":      "1",
	"x**2":   "2*x",
	"x**3":   "3*x**2",
	"x**4":   "4*x**3",
	"2*x":    "2",
	"3*x":    "3",
	"x+1":    "1",
	"x-1":    "1",
	"x**2-4": "2*x",
	"x**2+x": "2*x+1",
	"x**3-x": "3*x**2-1",
	"2*x**2": "4*x",
	"3*x**2": "6*x",
}

type signedTerm struct {
	sign byte
	body string
}

// splitTerms splits on + and - outside parentheses. Signs that follow an
// operator or an exponent marker belong to the operand, not the sum.
func splitTerms(src string) []signedTerm {
	var out []signedTerm
	depth := 0
	sign := byte('+')
	start := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth != 0 || i == start || isUnaryContext(src, i) {
				continue
			}
			out = append(out, signedTerm{sign: sign, body: src[start:i]})
			sign = c
			start = i + 1
		}
	}
	if start < len(src) {
		out = append(out, signedTerm{sign: sign, body: src[start:]})
	}
	// A leading sign is part of the first body; move it to the sign.
	if len(out) > 0 && len(out[0].body) > 1 && (out[0].body[0] == '-' || out[0].body[0] == '+') {
		out[0].sign = out[0].body[0]
		out[0].body = out[0].body[1:]
	}
	return out
}

func isUnaryContext(src string, i int) bool {
	prev := src[i-1]
	switch prev {
	case '*', '/', '^', '(':
		return true
	case 'e':
		// 1e-5
		return i >= 2 && isDigit(src[i-2])
	}
	return false
}

const number = `([+-]?\d+(?:\.\d+)?)`

var (
	reConst      = regexp.MustCompile(`^` + number + `$`)
	rePower      = regexp.MustCompile(`^x(?:\*\*|\^)` + number + `$`)
	reScaledPow  = regexp.MustCompile(`^` + number + `\*x(?:\*\*|\^)` + number + `$`)
	reScaledX    = regexp.MustCompile(`^` + number + `\*x$`)
	functionRule = map[string]string{
		"sin(x)":   "cos(x)",
		"cos(x)":   "-sin(x)",
		"tan(x)":   "sec(x)**2",
		"exp(x)":   "exp(x)",
		"e**x":     "e**x",
		"e^x":      "e**x",
		"ln(x)":    "1/x",
		"log(x)":   "1/x",
		"log10(x)": "1/(x*ln(10))",
	}
)

func deriveTerm(term string) string {
	if reConst.MatchString(term) {
		return "0"
	}
	if term == "x" {
		return "1"
	}
	if m := rePower.FindStringSubmatch(term); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		return powerRule(1, n)
	}
	if m := reScaledPow.FindStringSubmatch(term); m != nil {
		a, _ := strconv.ParseFloat(m[1], 64)
		n, _ := strconv.ParseFloat(m[2], 64)
		return powerRule(a, n)
	}
	if m := reScaledX.FindStringSubmatch(term); m != nil {
		return m[1]
	}
	if d, ok := functionRule[term]; ok {
		return d
	}
	return "0"
}

// powerRule renders d/dx a*x**n.
func powerRule(a, n float64) string {
	switch {
	case n == 0 || a == 0:
		return "0"
	case n == 1:
		return formatFloat(a)
	}
	coeff := formatFloat(a * n)
	var xPart string
	if n-1 == 1 {
		xPart = "x"
	} else {
		xPart = "x**" + formatExponent(n-1)
	}
	if coeff == "1" {
		return xPart
	}
	return coeff + "*" + xPart
}

func formatExponent(v float64) string {
	if v < 0 {
		return "(" + formatFloat(v) + ")"
	}
	return formatFloat(v)
}

// Differentiate returns the exact derivative of expr with respect to variable
// as a simplified expression string that Parse accepts.
func Differentiate(expr, variable string) (string, error) {
	tree, err := Parse(expr)
	if err != nil {
		return "", err
	}
	return tree.Diff(variable).Simplify().String(), nil
}
