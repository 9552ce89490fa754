package numsolve

import (
	"math"

	"github.com/njchilds90/numsolve/logger"
)

// univariate compiles expr as a function of x.
func univariate(expr string) (func(float64) (float64, error), error) {
	c, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	if err := checkVariables(c, "x"); err != nil {
		return nil, err
	}
	return func(x float64) (float64, error) {
		return c.Eval(Bindings{"x": x})
	}, nil
}

// Bisection halves [a, b] until |f(c)| or the half width drops below
// tolerance. Zero tolerance or maxIterations select the defaults.
//
// A bracket without a sign change, or running out of iterations, yields a
// Result with Success false. Invalid parameters and expression errors are
// returned as errors with a nil Result.
func Bisection(expr string, a, b, tolerance float64, maxIterations int) (*Result, error) {
	tol, err := resolveTolerance(tolerance)
	if err != nil {
		return nil, err
	}
	maxIter, err := resolveMaxIterations(maxIterations)
	if err != nil {
		return nil, err
	}
	if err := requireFinite("a", a); err != nil {
		return nil, err
	}
	if err := requireFinite("b", b); err != nil {
		return nil, err
	}
	if a >= b {
		return nil, invalidParam("a", "lower bound %g must be less than upper bound %g", a, b)
	}
	f, err := univariate(expr)
	if err != nil {
		return nil, err
	}

	log := logger.Logger().With().Str("method", string(MethodBisection)).Str("expr", expr).Logger()
	res := &Result{Method: MethodBisection, Steps: []Step{}}

	fa, err := f(a)
	if err != nil {
		return nil, err
	}
	fb, err := f(b)
	if err != nil {
		return nil, err
	}
	if fa*fb > 0 {
		res.Error = ReasonNoSignChange
		log.Debug().Float64("f_a", fa).Float64("f_b", fb).Msg(ReasonNoSignChange)
		return res, nil
	}

	for i := 1; i <= maxIter; i++ {
		c := (a + b) / 2
		fc, err := f(c)
		if err != nil {
			return nil, err
		}
		halfWidth := math.Abs(b-a) / 2
		res.Steps = append(res.Steps, BisectionStep{
			Iteration: i, A: a, B: b, C: c, FA: fa, FB: fb, FC: fc, Error: halfWidth,
		})
		res.Iterations = i
		res.FinalError = halfWidth
		log.Trace().Int("iteration", i).Float64("c", c).Float64("f_c", fc).Float64("error", halfWidth).Send()

		if math.Abs(fc) < tol || halfWidth < tol {
			res.Success = true
			res.Root = c
			log.Debug().Int("iterations", i).Float64("root", c).Msg("converged")
			return res, nil
		}
		if fa*fc < 0 {
			b, fb = c, fc
		} else {
			a, fa = c, fc
		}
	}

	res.Error = ReasonMaxIterations
	log.Debug().Int("iterations", res.Iterations).Msg(ReasonMaxIterations)
	return res, nil
}

// NewtonRaphson iterates x = x - f(x)/f'(x) from x0. An empty derivativeExpr
// is replaced by the symbolic derivative of expr.
//
// When |f'(x)| falls below MinDerivative the run stops with Success false;
// the iteration that hit the small derivative is not recorded.
func NewtonRaphson(expr, derivativeExpr string, x0, tolerance float64, maxIterations int) (*Result, error) {
	tol, err := resolveTolerance(tolerance)
	if err != nil {
		return nil, err
	}
	maxIter, err := resolveMaxIterations(maxIterations)
	if err != nil {
		return nil, err
	}
	if err := requireFinite("x0", x0); err != nil {
		return nil, err
	}
	f, err := univariate(expr)
	if err != nil {
		return nil, err
	}
	if derivativeExpr == "" {
		derivativeExpr, err = Differentiate(expr, "x")
		if err != nil {
			return nil, err
		}
	}
	df, err := univariate(derivativeExpr)
	if err != nil {
		return nil, err
	}

	log := logger.Logger().With().Str("method", string(MethodNewtonRaphson)).Str("expr", expr).Str("derivative", derivativeExpr).Logger()
	res := &Result{Method: MethodNewtonRaphson, Steps: []Step{}}

	x := x0
	for i := 1; i <= maxIter; i++ {
		fx, err := f(x)
		if err != nil {
			return nil, err
		}
		dfx, err := df(x)
		if err != nil {
			return nil, err
		}
		if math.Abs(dfx) < MinDerivative {
			res.Error = ReasonSmallDerivative
			log.Debug().Int("iteration", i).Float64("x", x).Float64("df_x", dfx).Msg(ReasonSmallDerivative)
			return res, nil
		}

		xNew := x - fx/dfx
		if !isFinite(xNew) {
			res.Error = ReasonDiverged
			log.Debug().Int("iteration", i).Float64("x", x).Msg(ReasonDiverged)
			return res, nil
		}
		stepErr := math.Abs(xNew - x)
		res.Steps = append(res.Steps, NewtonStep{
			Iteration: i, X: x, FX: fx, DFX: dfx, XNew: xNew, Error: stepErr,
		})
		res.Iterations = i
		res.FinalError = stepErr
		log.Trace().Int("iteration", i).Float64("x", x).Float64("x_new", xNew).Float64("error", stepErr).Send()

		if stepErr < tol {
			res.Success = true
			res.Root = xNew
			log.Debug().Int("iterations", i).Float64("root", xNew).Msg("converged")
			return res, nil
		}
		x = xNew
	}

	res.Error = ReasonMaxIterations
	log.Debug().Int("iterations", res.Iterations).Msg(ReasonMaxIterations)
	return res, nil
}
