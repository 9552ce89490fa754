package numsolve

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPow // ** or ^
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokPow:
		return "'**'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "unknown token"
}

type syntaxError struct {
	pos int
	msg string
}

func (e *syntaxError) Error() string { return e.msg }

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					for j < len(src) && isDigit(src[j]) {
						j++
					}
					i = j
				}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokPow, text: "**", pos: i})
			i += 2
		default:
			kind, ok := singleCharTokens[c]
			if !ok {
				r := []rune(src[i:])[0]
				if unicode.IsPrint(r) {
					return nil, &syntaxError{pos: i, msg: fmt.Sprintf("unexpected character %q", r)}
				}
				return nil, &syntaxError{pos: i, msg: fmt.Sprintf("unexpected character %U", r)}
			}
			toks = append(toks, token{kind: kind, text: string(c), pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

var singleCharTokens = map[byte]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'^': tokPow,
	'(': tokLParen,
	')': tokRParen,
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }

// parser is a recursive-descent parser over the grammar
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ ("**" | "^") unary ]
//	primary = number | ident | ident "(" expr ")" | "(" expr ")"
//
// so "**" is right-associative and binds tighter than a leading minus.
type parser struct {
	toks []token
	pos  int
}

// Parse turns src into an expression tree without simplifying it.
func Parse(src string) (Expr, error) {
	e, err := parse(src)
	if err != nil {
		var se *syntaxError
		if errors.As(err, &se) {
			return nil, &ExpressionError{Expr: src, Pos: se.pos, Err: fmt.Errorf("%w: %s", ErrSyntax, se.msg)}
		}
		return nil, &ExpressionError{Expr: src, Pos: -1, Err: err}
	}
	return e, nil
}

func parse(src string) (Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &syntaxError{pos: 0, msg: "empty expression"}
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &syntaxError{pos: t.pos, msg: fmt.Sprintf("unexpected %s %q", t.kind, t.text)}
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expr() (Expr, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Expr{first}
	for {
		op := p.peek().kind
		if op != tokPlus && op != tokMinus {
			break
		}
		p.next()
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		if op == tokMinus {
			t = &Mul{factors: []Expr{N(-1), t}}
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return &Add{terms: terms}, nil
}

func (p *parser) term() (Expr, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{first}
	for {
		op := p.peek().kind
		if op != tokStar && op != tokSlash {
			break
		}
		p.next()
		f, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == tokSlash {
			f = &Pow{base: f, exp: N(-1)}
		}
		factors = append(factors, f)
	}
	if len(factors) == 1 {
		return first, nil
	}
	return &Mul{factors: factors}, nil
}

func (p *parser) unary() (Expr, error) {
	switch p.peek().kind {
	case tokPlus:
		p.next()
		return p.unary()
	case tokMinus:
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return neg(operand), nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Pow{base: base, exp: exp}, nil
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &syntaxError{pos: t.pos, msg: fmt.Sprintf("invalid number %q", t.text)}
		}
		return N(v), nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			if !IsFunction(t.text) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, t.text)
			}
			p.next()
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			return funcOf(t.text, arg), nil
		}
		if IsFunction(t.text) {
			return nil, &syntaxError{pos: t.pos, msg: fmt.Sprintf("function %s needs an argument", t.text)}
		}
		return S(t.text), nil
	case tokLParen:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tokEOF:
		return nil, &syntaxError{pos: t.pos, msg: "unexpected end of input"}
	}
	return nil, &syntaxError{pos: t.pos, msg: fmt.Sprintf("unexpected %s", t.kind)}
}

func (p *parser) expect(kind tokenKind) error {
	t := p.next()
	if t.kind != kind {
		return &syntaxError{pos: t.pos, msg: fmt.Sprintf("expected %s, found %s", kind, t.kind)}
	}
	return nil
}
