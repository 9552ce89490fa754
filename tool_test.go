package numsolve_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/numsolve"
)

// ============================================================
// Tool interface
// ============================================================

func TestToolCall_Evaluate(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "evaluate",
		Params: map[string]interface{}{"expr": "x**2 + y", "bindings": map[string]interface{}{"x": 3.0, "y": 1.0}},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, 10.0, resp.Result)
	assert.Equal(t, "10", resp.String)
}

func TestToolCall_Parse(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "parse",
		Params: map[string]interface{}{"expr": "sqrt(x)"},
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, `\sqrt{x}`, resp.LaTeX)
	tree, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "func", tree["type"])
}

func TestToolCall_Bisection(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "bisection",
		Params: map[string]interface{}{"expr": "x**2 - 4", "a": 0.0, "b": 3.0, "tolerance": 1e-8},
	})
	require.Empty(t, resp.Error)
	r, ok := resp.Result.(*numsolve.Result)
	require.True(t, ok)
	assert.True(t, r.Success)
	assert.InDelta(t, 2, r.Root, 1e-7)
	assert.True(t, strings.HasPrefix(resp.String, "root "), resp.String)
}

func TestToolCall_NewtonWithoutDerivative(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "newton_raphson",
		Params: map[string]interface{}{"expr": "x**3 - 2", "x0": 1.0},
	})
	require.Empty(t, resp.Error)
	r := resp.Result.(*numsolve.Result)
	assert.True(t, r.Success)
	assert.InDelta(t, 1.2599210498948732, r.Root, 1e-9)
}

func TestToolCall_ODE(t *testing.T) {
	for _, tool := range []string{"euler", "runge_kutta4"} {
		resp := numsolve.HandleToolCall(numsolve.ToolRequest{
			Tool:   tool,
			Params: map[string]interface{}{"expr": "x + y", "x0": 0.0, "y0": 1.0, "h": 0.1, "x_final": 1.0},
		})
		require.Empty(t, resp.Error, tool)
		r := resp.Result.(*numsolve.Result)
		assert.Equal(t, numsolve.Method(tool), r.Method)
		assert.Len(t, r.Steps, 11)
	}
}

func TestToolCall_ExpressionObject(t *testing.T) {
	tree := map[string]interface{}{
		"type": "add",
		"terms": []interface{}{
			map[string]interface{}{"type": "pow", "base": map[string]interface{}{"type": "sym", "name": "x"}, "exp": map[string]interface{}{"type": "num", "value": 2.0}},
			map[string]interface{}{"type": "num", "value": -9.0},
		},
	}
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "bisection",
		Params: map[string]interface{}{"expr": tree, "a": 0.0, "b": 5.0},
	})
	require.Empty(t, resp.Error)
	assert.InDelta(t, 3, resp.Result.(*numsolve.Result).Root, 1e-5)
}

func TestToolCall_DeriveAndDifferentiate(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{Tool: "derive", Params: map[string]interface{}{"expr": "x**3 - x"}})
	require.Empty(t, resp.Error)
	assert.Equal(t, "3*x**2-1", resp.String)

	resp = numsolve.HandleToolCall(numsolve.ToolRequest{Tool: "differentiate", Params: map[string]interface{}{"expr": "x**2 - 4"}})
	require.Empty(t, resp.Error)
	assert.Equal(t, "2*x", resp.String)
	assert.NotEmpty(t, resp.LaTeX)
}

func TestToolCall_Sample(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "sample",
		Params: map[string]interface{}{"expr": "x", "lo": 0.0, "hi": 1.0, "n": 11.0},
	})
	require.Empty(t, resp.Error)
	pts := resp.Result.([]numsolve.Point)
	assert.Len(t, pts, 11)
	assert.Equal(t, "11 points", resp.String)
}

func TestToolCall_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  numsolve.ToolRequest
		want string
	}{
		{"unknown tool", numsolve.ToolRequest{Tool: "integrate"}, "unknown tool: integrate"},
		{"missing param", numsolve.ToolRequest{Tool: "bisection", Params: map[string]interface{}{"expr": "x", "a": 0.0}}, "missing param: b"},
		{"wrong type", numsolve.ToolRequest{Tool: "bisection", Params: map[string]interface{}{"expr": "x", "a": "0", "b": 1.0}}, "param a must be a number"},
		{"fractional integer", numsolve.ToolRequest{Tool: "sample", Params: map[string]interface{}{"expr": "x", "lo": 0.0, "hi": 1.0, "n": 2.5}}, "param n must be an integer"},
		{"huge integer", numsolve.ToolRequest{Tool: "bisection", Params: map[string]interface{}{"expr": "x", "a": -1.0, "b": 1.0, "max_iterations": 1e20}}, "param max_iterations out of range"},
		{"iterations above limit", numsolve.ToolRequest{Tool: "newton_raphson", Params: map[string]interface{}{"expr": "x**3 - 2*x + 2", "x0": 0.0, "max_iterations": 3e6}}, "invalid parameter maxIterations"},
		{"ode overflow", numsolve.ToolRequest{Tool: "euler", Params: map[string]interface{}{"expr": "1e308", "x0": 0.0, "y0": 0.0, "h": 1.0, "x_final": 2.0}}, "non-finite result"},
		{"invalid parameter", numsolve.ToolRequest{Tool: "bisection", Params: map[string]interface{}{"expr": "x", "a": 1.0, "b": 0.0}}, "invalid parameter a"},
		{"expression error", numsolve.ToolRequest{Tool: "evaluate", Params: map[string]interface{}{"expr": "1/0"}}, "division by zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := numsolve.HandleToolCall(tt.req)
			assert.Contains(t, resp.Error, tt.want)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestToolCall_NonConvergenceIsNotAnError(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "bisection",
		Params: map[string]interface{}{"expr": "x**2 + 1", "a": -1.0, "b": 1.0},
	})
	assert.Empty(t, resp.Error)
	r := resp.Result.(*numsolve.Result)
	assert.False(t, r.Success)
	assert.Equal(t, numsolve.ReasonNoSignChange, r.Error)
}

func TestToolSpec(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(numsolve.ToolSpec()), &spec))

	names := map[string]bool{}
	for _, tool := range spec.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"evaluate", "parse", "bisection", "newton_raphson", "euler", "runge_kutta4", "derive", "differentiate", "sample", "tool_spec"} {
		assert.True(t, names[want], "missing tool %s", want)
	}

	resp := numsolve.HandleToolCall(numsolve.ToolRequest{Tool: "tool_spec"})
	require.Empty(t, resp.Error)
	assert.IsType(t, map[string]interface{}{}, resp.Result)
}

func TestToolResponse_JSON(t *testing.T) {
	resp := numsolve.HandleToolCall(numsolve.ToolRequest{
		Tool:   "euler",
		Params: map[string]interface{}{"expr": "y", "x0": 0.0, "y0": 1.0, "h": 0.5, "x_final": 1.0},
	})
	b, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Method string                   `json:"method"`
			Steps  []map[string]interface{} `json:"steps"`
			FinalY float64                  `json:"final_y"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "euler", decoded.Result.Method)
	assert.Len(t, decoded.Result.Steps, 3)
	assert.Equal(t, 2.25, decoded.Result.FinalY)
	assert.Equal(t, 1.5, decoded.Result.Steps[1]["y_new"])
}
