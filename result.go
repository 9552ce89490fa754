package numsolve

import (
	"fmt"
	"math"
)

// Method names a numerical method. The values double as tool names.
type Method string

const (
	MethodBisection     Method = "bisection"
	MethodNewtonRaphson Method = "newton_raphson"
	MethodEuler         Method = "euler"
	MethodRungeKutta4   Method = "runge_kutta4"
)

const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100

	// MinDerivative is the smallest |f'(x)| Newton-Raphson divides by.
	MinDerivative = 1e-12

	// MaxODESteps bounds the number of integration steps of one ODE run.
	MaxODESteps = 1_000_000

	// MaxIterationsLimit bounds maxIterations of one root-finding run.
	MaxIterationsLimit = 1_000_000
)

// Methods lists every supported method in menu order.
func Methods() []Method {
	return []Method{MethodBisection, MethodNewtonRaphson, MethodEuler, MethodRungeKutta4}
}

// Title is the human readable method name.
func (m Method) Title() string {
	switch m {
	case MethodBisection:
		return "Bisection"
	case MethodNewtonRaphson:
		return "Newton-Raphson"
	case MethodEuler:
		return "Euler"
	case MethodRungeKutta4:
		return "Runge-Kutta 4"
	}
	return string(m)
}

// Columns are the headers matching Step.Row for the method.
func (m Method) Columns() []string {
	switch m {
	case MethodBisection:
		return []string{"iter", "a", "b", "c", "f(a)", "f(b)", "f(c)", "error"}
	case MethodNewtonRaphson:
		return []string{"iter", "x", "f(x)", "f'(x)", "x_new", "error"}
	case MethodEuler:
		return []string{"iter", "x", "y", "f(x,y)", "y_new"}
	case MethodRungeKutta4:
		return []string{"iter", "x", "y", "k1", "k2", "k3", "k4", "y_new"}
	}
	return nil
}

// Step is one row of a step trace.
type Step interface {
	Index() int
	// Row returns the values in Method.Columns order, iteration included.
	Row() []float64
}

type BisectionStep struct {
	Iteration int     `json:"iteration"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	C         float64 `json:"c"`
	FA        float64 `json:"f_a"`
	FB        float64 `json:"f_b"`
	FC        float64 `json:"f_c"`
	Error     float64 `json:"error"`
}

func (s BisectionStep) Index() int { return s.Iteration }
func (s BisectionStep) Row() []float64 {
	return []float64{float64(s.Iteration), s.A, s.B, s.C, s.FA, s.FB, s.FC, s.Error}
}

type NewtonStep struct {
	Iteration int     `json:"iteration"`
	X         float64 `json:"x"`
	FX        float64 `json:"f_x"`
	DFX       float64 `json:"df_x"`
	XNew      float64 `json:"x_new"`
	Error     float64 `json:"error"`
}

func (s NewtonStep) Index() int { return s.Iteration }
func (s NewtonStep) Row() []float64 {
	return []float64{float64(s.Iteration), s.X, s.FX, s.DFX, s.XNew, s.Error}
}

// EulerStep records the state before the update; XNew and H describe the
// step taken from it (H is 0 on the initial-condition row).
type EulerStep struct {
	Iteration int     `json:"iteration"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	FXY       float64 `json:"f_xy"`
	YNew      float64 `json:"y_new"`
	XNew      float64 `json:"x_new"`
	H         float64 `json:"h"`
}

func (s EulerStep) Index() int { return s.Iteration }
func (s EulerStep) Row() []float64 {
	return []float64{float64(s.Iteration), s.X, s.Y, s.FXY, s.YNew}
}

type RK4Step struct {
	Iteration int     `json:"iteration"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	K1        float64 `json:"k1"`
	K2        float64 `json:"k2"`
	K3        float64 `json:"k3"`
	K4        float64 `json:"k4"`
	YNew      float64 `json:"y_new"`
	XNew      float64 `json:"x_new"`
	H         float64 `json:"h"`
}

func (s RK4Step) Index() int { return s.Iteration }
func (s RK4Step) Row() []float64 {
	return []float64{float64(s.Iteration), s.X, s.Y, s.K1, s.K2, s.K3, s.K4, s.YNew}
}

// Result is the outcome of one solver run. Root is set by successful root
// finders, FinalX and FinalY by the ODE integrators.
type Result struct {
	Method     Method  `json:"method"`
	Success    bool    `json:"success"`
	Steps      []Step  `json:"steps"`
	Root       float64 `json:"root"`
	FinalX     float64 `json:"final_x"`
	FinalY     float64 `json:"final_y"`
	Iterations int     `json:"iterations"`
	FinalError float64 `json:"final_error"`
	Error      string  `json:"error,omitempty"`
}

// LastStep returns the final trace row, or nil for an empty trace.
func (r *Result) LastStep() Step {
	if len(r.Steps) == 0 {
		return nil
	}
	return r.Steps[len(r.Steps)-1]
}

func resolveTolerance(tol float64) (float64, error) {
	switch {
	case tol == 0:
		return DefaultTolerance, nil
	case math.IsNaN(tol) || tol < 0 || math.IsInf(tol, 0):
		return 0, invalidParam("tolerance", "must be positive and finite, got %g", tol)
	}
	return tol, nil
}

func resolveMaxIterations(n int) (int, error) {
	switch {
	case n == 0:
		return DefaultMaxIterations, nil
	case n < 0:
		return 0, invalidParam("maxIterations", "must be positive, got %d", n)
	case n > MaxIterationsLimit:
		return 0, invalidParam("maxIterations", "must be at most %d, got %d", MaxIterationsLimit, n)
	}
	return n, nil
}

func requireFinite(name string, v float64) error {
	if !isFinite(v) {
		return invalidParam(name, "must be finite, got %g", v)
	}
	return nil
}

// Summary is a one-line description of the outcome.
func (r *Result) Summary() string {
	switch {
	case !r.Success:
		return fmt.Sprintf("%s failed after %d iterations: %s", r.Method.Title(), r.Iterations, r.Error)
	case r.Method == MethodEuler || r.Method == MethodRungeKutta4:
		return fmt.Sprintf("y(%g) = %.8g after %d steps", r.FinalX, r.FinalY, r.Iterations)
	}
	return fmt.Sprintf("root %.10g after %d iterations (error %.2e)", r.Root, r.Iterations, r.FinalError)
}
