package numsolve

import (
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================
// Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HandleToolCall runs one operation described by req. Parameter and
// expression errors are reported in ToolResponse.Error; a solver that ran
// but did not converge returns its Result with Success false.
func HandleToolCall(req ToolRequest) ToolResponse {
	getExpr := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		switch val := v.(type) {
		case string:
			return val, nil
		case map[string]interface{}:
			e, err := FromJSON(val)
			if err != nil {
				return "", fmt.Errorf("param %s: %w", key, err)
			}
			return e.String(), nil
		}
		return "", fmt.Errorf("param %s must be a string or expression object", key)
	}
	getString := func(key, def string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return def, nil
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getNumber := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, fmt.Errorf("missing param: %s", key)
		}
		f, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("param %s must be a number", key)
		}
		return f, nil
	}
	getOptNumber := func(key string) (float64, error) {
		if _, ok := req.Params[key]; !ok {
			return 0, nil
		}
		return getNumber(key)
	}
	getOptInt := func(key string, def int) (int, error) {
		if _, ok := req.Params[key]; !ok {
			return def, nil
		}
		f, err := getNumber(key)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("param %s must be an integer", key)
		}
		if math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("param %s out of range: %g", key, f)
		}
		return int(f), nil
	}
	getBindings := func(key string) (Bindings, error) {
		v, ok := req.Params[key]
		if !ok {
			return Bindings{}, nil
		}
		raw, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be an object", key)
		}
		env := make(Bindings, len(raw))
		for name, val := range raw {
			f, ok := val.(float64)
			if !ok {
				return nil, fmt.Errorf("param %s.%s must be a number", key, name)
			}
			env[name] = f
		}
		return env, nil
	}
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }
	respond := func(r *Result) ToolResponse { return ToolResponse{Result: r, String: r.Summary()} }
	respondExpr := func(src string) ToolResponse {
		tree, err := Parse(src)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: tree.toJSON(), String: src, LaTeX: tree.LaTeX()}
	}

	switch req.Tool {
	case "evaluate":
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		env, err := getBindings("bindings")
		if err != nil {
			return fail(err)
		}
		v, err := Evaluate(expr, env)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: v, String: formatFloat(v)}

	case "parse":
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respondExpr(expr)

	case string(MethodBisection):
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		a, err := getNumber("a")
		if err != nil {
			return fail(err)
		}
		b, err := getNumber("b")
		if err != nil {
			return fail(err)
		}
		tol, err := getOptNumber("tolerance")
		if err != nil {
			return fail(err)
		}
		maxIter, err := getOptInt("max_iterations", 0)
		if err != nil {
			return fail(err)
		}
		r, err := Bisection(expr, a, b, tol, maxIter)
		if err != nil {
			return fail(err)
		}
		return respond(r)

	case string(MethodNewtonRaphson):
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		deriv, err := getString("derivative", "")
		if err != nil {
			return fail(err)
		}
		x0, err := getNumber("x0")
		if err != nil {
			return fail(err)
		}
		tol, err := getOptNumber("tolerance")
		if err != nil {
			return fail(err)
		}
		maxIter, err := getOptInt("max_iterations", 0)
		if err != nil {
			return fail(err)
		}
		r, err := NewtonRaphson(expr, deriv, x0, tol, maxIter)
		if err != nil {
			return fail(err)
		}
		return respond(r)

	case string(MethodEuler), string(MethodRungeKutta4):
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		var vals [4]float64
		for i, key := range []string{"x0", "y0", "h", "x_final"} {
			if vals[i], err = getNumber(key); err != nil {
				return fail(err)
			}
		}
		solve := Euler
		if req.Tool == string(MethodRungeKutta4) {
			solve = RungeKutta4
		}
		r, err := solve(expr, vals[0], vals[1], vals[2], vals[3])
		if err != nil {
			return fail(err)
		}
		return respond(r)

	case "derive":
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respondExpr(DeriveExpression(expr))

	case "differentiate":
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		v, err := getString("var", "x")
		if err != nil {
			return fail(err)
		}
		d, err := Differentiate(expr, v)
		if err != nil {
			return fail(err)
		}
		return respondExpr(d)

	case "sample":
		expr, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		lo, err := getNumber("lo")
		if err != nil {
			return fail(err)
		}
		hi, err := getNumber("hi")
		if err != nil {
			return fail(err)
		}
		n, err := getOptInt("n", 100)
		if err != nil {
			return fail(err)
		}
		pts, err := SampleFunction(expr, lo, hi, n)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: pts, String: fmt.Sprintf("%d points", len(pts))}

	case "tool_spec":
		var spec interface{}
		if err := json.Unmarshal([]byte(ToolSpec()), &spec); err != nil {
			return fail(err)
		}
		return ToolResponse{Result: spec}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// ToolSpec returns the JSON schema of every tool HandleToolCall accepts.
func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("evaluate", "Evaluate an expression. Optional bindings {name: number}", []string{"expr"}, map[string]string{"expr": "string", "bindings": "object"}),
		ts("parse", "Parse an expression into its JSON tree", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("bisection", "Bisection root finding on [a, b]. Optional tolerance, max_iterations", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number", "tolerance": "number", "max_iterations": "integer"}),
		ts("newton_raphson", "Newton-Raphson from x0. Omit derivative to differentiate symbolically", []string{"expr", "x0"}, map[string]string{"expr": "string", "derivative": "string", "x0": "number", "tolerance": "number", "max_iterations": "integer"}),
		ts("euler", "Euler method for dy/dx = f(x, y)", []string{"expr", "x0", "y0", "h", "x_final"}, map[string]string{"expr": "string", "x0": "number", "y0": "number", "h": "number", "x_final": "number"}),
		ts("runge_kutta4", "Fourth order Runge-Kutta for dy/dx = f(x, y)", []string{"expr", "x0", "y0", "h", "x_final"}, map[string]string{"expr": "string", "x0": "number", "y0": "number", "h": "number", "x_final": "number"}),
		ts("derive", "Heuristic derivative d/dx from a pattern table", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("differentiate", "Exact symbolic derivative. Optional var (default x)", []string{"expr"}, map[string]string{"expr": "string", "var": "string"}),
		ts("sample", "Sample f(x) on n points of [lo, hi] for plotting", []string{"expr", "lo", "hi"}, map[string]string{"expr": "string", "lo": "number", "hi": "number", "n": "integer"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
