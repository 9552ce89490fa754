package numsolve

// Point is one (x, y) pair for plotting.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series extracts the points a plot of r would draw: the midpoints and their
// residuals for bisection, the iterates and f(x) for Newton-Raphson, and the
// computed solution curve for the ODE methods.
func Series(r *Result) []Point {
	if r == nil {
		return nil
	}
	pts := make([]Point, 0, len(r.Steps)+1)
	for _, s := range r.Steps {
		switch v := s.(type) {
		case BisectionStep:
			pts = append(pts, Point{X: v.C, Y: v.FC})
		case NewtonStep:
			pts = append(pts, Point{X: v.X, Y: v.FX})
		case EulerStep:
			pts = append(pts, Point{X: v.XNew, Y: v.YNew})
		case RK4Step:
			pts = append(pts, Point{X: v.XNew, Y: v.YNew})
		}
	}
	return pts
}

// SampleFunction evaluates f(x) at n evenly spaced points on [lo, hi].
// Points where f cannot be evaluated (poles, domain errors) are skipped.
func SampleFunction(expr string, lo, hi float64, n int) ([]Point, error) {
	if err := requireFinite("lo", lo); err != nil {
		return nil, err
	}
	if err := requireFinite("hi", hi); err != nil {
		return nil, err
	}
	if hi <= lo {
		return nil, invalidParam("hi", "must be greater than lo (%g), got %g", lo, hi)
	}
	if n < 2 {
		return nil, invalidParam("n", "need at least 2 points, got %d", n)
	}
	f, err := univariate(expr)
	if err != nil {
		return nil, err
	}
	pts := make([]Point, 0, n)
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		x := lo + float64(i)*step
		if i == n-1 {
			x = hi
		}
		y, err := f(x)
		if err != nil {
			continue
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts, nil
}
