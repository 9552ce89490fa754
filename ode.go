package numsolve

import (
	"github.com/njchilds90/numsolve/logger"
)

// arrivalSlack is the fraction of h below which the remaining distance to
// xFinal counts as arrival. Without it, accumulated rounding in x += h can
// leave a sliver step of a few ulps at the end of the interval.
const arrivalSlack = 1e-9

// slope compiles expr as f(x, y).
func slope(expr string) (func(x, y float64) (float64, error), error) {
	c, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	if err := checkVariables(c, "x", "y"); err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, error) {
		return c.Eval(Bindings{"x": x, "y": y})
	}, nil
}

func validateODE(x0, y0, h, xFinal float64) error {
	for _, p := range []struct {
		name string
		v    float64
	}{{"x0", x0}, {"y0", y0}, {"h", h}, {"xFinal", xFinal}} {
		if err := requireFinite(p.name, p.v); err != nil {
			return err
		}
	}
	if h <= 0 {
		return invalidParam("h", "step size must be positive, got %g", h)
	}
	if xFinal <= x0 {
		return invalidParam("xFinal", "must be greater than x0 (%g), got %g", x0, xFinal)
	}
	if (xFinal-x0)/h > MaxODESteps {
		return invalidParam("h", "step size %g needs more than %d steps to reach %g", h, MaxODESteps, xFinal)
	}
	return nil
}

// advance returns the step to take from x and where it lands. The step is
// clamped so the last one lands exactly on xFinal; ok is false once x has
// arrived.
func advance(x, h, xFinal float64) (step, xNew float64, ok bool) {
	remaining := xFinal - x
	switch {
	case remaining <= h*arrivalSlack:
		return 0, x, false
	case remaining <= h*(1+arrivalSlack):
		return remaining, xFinal, true
	}
	return h, x + h, true
}

// Euler integrates dy/dx = f(x, y) from (x0, y0) to xFinal with the explicit
// Euler method. The trace starts with an iteration-0 row for the initial
// condition.
func Euler(expr string, x0, y0, h, xFinal float64) (*Result, error) {
	if err := validateODE(x0, y0, h, xFinal); err != nil {
		return nil, err
	}
	f, err := slope(expr)
	if err != nil {
		return nil, err
	}
	f0, err := f(x0, y0)
	if err != nil {
		return nil, err
	}

	log := logger.Logger().With().Str("method", string(MethodEuler)).Str("expr", expr).Logger()
	res := &Result{Method: MethodEuler, Success: true}
	res.Steps = append(make([]Step, 0, int((xFinal-x0)/h)+2),
		EulerStep{Iteration: 0, X: x0, Y: y0, FXY: f0, YNew: y0, XNew: x0})

	x, y := x0, y0
	for i := 1; ; i++ {
		step, xNew, ok := advance(x, h, xFinal)
		if !ok {
			break
		}
		fxy, err := f(x, y)
		if err != nil {
			return nil, err
		}
		yNew := y + step*fxy
		if !isFinite(yNew) {
			return nil, &ExpressionError{Expr: expr, Pos: -1, Err: ErrNonFinite}
		}
		res.Steps = append(res.Steps, EulerStep{
			Iteration: i, X: x, Y: y, FXY: fxy, YNew: yNew, XNew: xNew, H: step,
		})
		log.Trace().Int("iteration", i).Float64("x", x).Float64("y", y).Float64("y_new", yNew).Send()
		x, y = xNew, yNew
	}

	res.FinalX, res.FinalY = x, y
	res.Iterations = len(res.Steps) - 1
	log.Debug().Int("iterations", res.Iterations).Float64("final_x", x).Float64("final_y", y).Msg("integrated")
	return res, nil
}

// RungeKutta4 integrates dy/dx = f(x, y) with the classic fourth order
// Runge-Kutta method, using the same stepping and trace layout as Euler.
// The initial-condition row has all k values zero.
func RungeKutta4(expr string, x0, y0, h, xFinal float64) (*Result, error) {
	if err := validateODE(x0, y0, h, xFinal); err != nil {
		return nil, err
	}
	f, err := slope(expr)
	if err != nil {
		return nil, err
	}
	// Evaluate once up front so a bad expression fails before any stepping,
	// matching Euler.
	if _, err := f(x0, y0); err != nil {
		return nil, err
	}

	log := logger.Logger().With().Str("method", string(MethodRungeKutta4)).Str("expr", expr).Logger()
	res := &Result{Method: MethodRungeKutta4, Success: true}
	res.Steps = append(make([]Step, 0, int((xFinal-x0)/h)+2),
		RK4Step{Iteration: 0, X: x0, Y: y0, YNew: y0, XNew: x0})

	x, y := x0, y0
	for i := 1; ; i++ {
		step, xNew, ok := advance(x, h, xFinal)
		if !ok {
			break
		}
		k, err := rk4Slopes(f, x, y, step)
		if err != nil {
			return nil, err
		}
		yNew := y + (k[0]+2*k[1]+2*k[2]+k[3])/6
		if !isFinite(yNew) {
			return nil, &ExpressionError{Expr: expr, Pos: -1, Err: ErrNonFinite}
		}
		res.Steps = append(res.Steps, RK4Step{
			Iteration: i, X: x, Y: y,
			K1: k[0], K2: k[1], K3: k[2], K4: k[3],
			YNew: yNew, XNew: xNew, H: step,
		})
		log.Trace().Int("iteration", i).Float64("x", x).Float64("y", y).Float64("y_new", yNew).Send()
		x, y = xNew, yNew
	}

	res.FinalX, res.FinalY = x, y
	res.Iterations = len(res.Steps) - 1
	log.Debug().Int("iterations", res.Iterations).Float64("final_x", x).Float64("final_y", y).Msg("integrated")
	return res, nil
}

func rk4Slopes(f func(x, y float64) (float64, error), x, y, h float64) ([4]float64, error) {
	var k [4]float64
	f1, err := f(x, y)
	if err != nil {
		return k, err
	}
	k[0] = h * f1
	f2, err := f(x+h/2, y+k[0]/2)
	if err != nil {
		return k, err
	}
	k[1] = h * f2
	f3, err := f(x+h/2, y+k[1]/2)
	if err != nil {
		return k, err
	}
	k[2] = h * f3
	f4, err := f(x+h, y+k[2])
	if err != nil {
		return k, err
	}
	k[3] = h * f4
	return k, nil
}
