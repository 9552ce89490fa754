package numsolve

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Compiled is a parsed expression ready for repeated evaluation.
// It is immutable and safe for concurrent use.
type Compiled struct {
	src  string
	tree Expr
}

// Compile parses src once so that later evaluations skip the parser.
func Compile(src string) (*Compiled, error) {
	tree, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Compiled{src: src, tree: tree}, nil
}

func (c *Compiled) Source() string { return c.src }
func (c *Compiled) Tree() Expr     { return c.tree }

// Eval evaluates the expression with the given bindings. Any failure,
// including a non-finite result, is returned as an *ExpressionError.
func (c *Compiled) Eval(env Bindings) (float64, error) {
	v, err := c.tree.Eval(env)
	if err != nil {
		return 0, &ExpressionError{Expr: c.src, Pos: -1, Err: err}
	}
	if !isFinite(v) {
		return 0, &ExpressionError{Expr: c.src, Pos: -1, Err: ErrNonFinite}
	}
	return v, nil
}

// Evaluate parses and evaluates expr in one step.
func Evaluate(expr string, bindings map[string]float64) (float64, error) {
	c, err := Compile(expr)
	if err != nil {
		return 0, err
	}
	return c.Eval(bindings)
}

// FreeVariables returns the sorted identifiers of e that are not built-in
// constants.
func FreeVariables(e Expr) []string {
	seen := map[string]struct{}{}
	collectSymbols(e, seen)
	for name := range constants {
		delete(seen, name)
	}
	names := maps.Keys(seen)
	slices.Sort(names)
	return names
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		collectSymbols(v.arg, out)
	}
}

// checkVariables rejects identifiers outside allowed before a solver starts,
// so a typo fails fast instead of on the first evaluation.
func checkVariables(c *Compiled, allowed ...string) error {
	for _, name := range FreeVariables(c.tree) {
		if !slices.Contains(allowed, name) {
			return &ExpressionError{Expr: c.src, Pos: -1, Err: wrapIdent(name)}
		}
	}
	return nil
}
