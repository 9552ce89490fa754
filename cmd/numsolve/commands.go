package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/njchilds90/numsolve"
	"github.com/njchilds90/numsolve/logger"
	"github.com/njchilds90/numsolve/report"
)

// ErrNotConverged is returned after printing a result whose solver stopped
// without success.
var ErrNotConverged = errors.New("solver did not converge")

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
	Format  string
	Out     io.Writer
}

// load reads the configuration and applies it to logging and output.
func (c *Context) load() (*numsolve.Config, report.Options, string, error) {
	cfg, err := numsolve.LoadConfig(c.Config)
	if err != nil {
		return nil, report.Options{}, "", fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, report.Options{}, "", fmt.Errorf("invalid log level: %w", err)
	}
	if c.Verbose {
		level = zerolog.TraceLevel
	}
	logger.SetLevel(level)

	format := cfg.Output.Format
	switch c.Format {
	case "":
	case numsolve.FormatText, numsolve.FormatJSON, numsolve.FormatCBOR:
		format = c.Format
	default:
		return nil, report.Options{}, "", fmt.Errorf("unsupported output format: %s", c.Format)
	}
	opts := report.Options{
		Precision: cfg.Output.Precision,
		MaxRows:   cfg.Output.MaxRows,
		NoColor:   cfg.Output.NoColor,
	}
	return cfg, opts, format, nil
}

// emit prints a solver result, or only its plot series when series is set.
func (c *Context) emit(r *numsolve.Result, series bool, opts report.Options, format string) error {
	switch {
	case series:
		if err := writePoints(c.Out, numsolve.Series(r), format, opts); err != nil {
			return err
		}
	case c.Quiet && format == numsolve.FormatText:
		fmt.Fprintln(c.Out, r.Summary())
	default:
		if err := report.Write(c.Out, format, r, opts); err != nil {
			return err
		}
	}
	if !r.Success {
		return fmt.Errorf("%w: %s", ErrNotConverged, r.Error)
	}
	return nil
}

func writePoints(w io.Writer, pts []numsolve.Point, format string, opts report.Options) error {
	if format != numsolve.FormatText {
		return report.Write(w, format, pts, opts)
	}
	for _, p := range pts {
		row := report.FormatRow([]float64{0, p.X, p.Y}, opts.Precision)
		if _, err := fmt.Fprintf(w, "%s\t%s\n", row[1], row[2]); err != nil {
			return err
		}
	}
	return nil
}

func pick(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// EvalCmd evaluates an expression with optional bindings.
type EvalCmd struct {
	Expr string             `arg:"" help:"Expression to evaluate"`
	Set  map[string]float64 `help:"Variable binding, e.g. --set x=2" short:"s"`
}

func (cmd *EvalCmd) Run(ctx *Context) error {
	_, opts, format, err := ctx.load()
	if err != nil {
		return err
	}
	v, err := numsolve.Evaluate(cmd.Expr, cmd.Set)
	if err != nil {
		return err
	}
	if format == numsolve.FormatText {
		fmt.Fprintln(ctx.Out, report.FormatRow([]float64{0, v}, opts.Precision)[1])
		return nil
	}
	return report.Write(ctx.Out, format, map[string]interface{}{"expr": cmd.Expr, "value": v}, opts)
}

// BisectionCmd represents the bisection command
type BisectionCmd struct {
	Expr          string   `arg:"" optional:"" help:"f(x); defaults to the configured preset"`
	A             *float64 `help:"Left end of the bracket"`
	B             *float64 `help:"Right end of the bracket"`
	Tolerance     float64  `help:"Convergence tolerance (0 uses the configured default)"`
	MaxIterations int      `help:"Iteration cap (0 uses the configured default)"`
	Series        bool     `help:"Print the (c, f(c)) plot series instead of the trace"`
}

func (cmd *BisectionCmd) Run(ctx *Context) error {
	cfg, opts, format, err := ctx.load()
	if err != nil {
		return err
	}
	preset := cfg.Presets.Bisection
	expr := cmd.Expr
	if expr == "" {
		expr = preset.Expr
	}
	tol, maxIter := solverDefaults(cfg, cmd.Tolerance, cmd.MaxIterations)

	r, err := numsolve.Bisection(expr, pick(cmd.A, preset.A), pick(cmd.B, preset.B), tol, maxIter)
	if err != nil {
		return err
	}
	return ctx.emit(r, cmd.Series, opts, format)
}

// NewtonCmd represents the newton command
type NewtonCmd struct {
	Expr          string   `arg:"" optional:"" help:"f(x); defaults to the configured preset"`
	Derivative    string   `help:"f'(x); differentiated symbolically when omitted" short:"d"`
	X0            *float64 `help:"Initial guess" name:"x0"`
	Tolerance     float64  `help:"Convergence tolerance (0 uses the configured default)"`
	MaxIterations int      `help:"Iteration cap (0 uses the configured default)"`
	Series        bool     `help:"Print the (x, f(x)) plot series instead of the trace"`
}

func (cmd *NewtonCmd) Run(ctx *Context) error {
	cfg, opts, format, err := ctx.load()
	if err != nil {
		return err
	}
	preset := cfg.Presets.NewtonRaphson
	expr, deriv := cmd.Expr, cmd.Derivative
	// The preset derivative belongs to the preset expression only.
	if expr == "" {
		expr = preset.Expr
		if deriv == "" {
			deriv = preset.Derivative
		}
	}
	tol, maxIter := solverDefaults(cfg, cmd.Tolerance, cmd.MaxIterations)

	r, err := numsolve.NewtonRaphson(expr, deriv, pick(cmd.X0, preset.X0), tol, maxIter)
	if err != nil {
		return err
	}
	return ctx.emit(r, cmd.Series, opts, format)
}

func solverDefaults(cfg *numsolve.Config, tol float64, maxIter int) (float64, int) {
	if tol == 0 {
		tol = cfg.Defaults.Tolerance
	}
	if maxIter == 0 {
		maxIter = cfg.Defaults.MaxIterations
	}
	return tol, maxIter
}

// ODEFlags are shared by the euler and rk4 commands.
type ODEFlags struct {
	Expr   string   `arg:"" optional:"" help:"f(x, y) in dy/dx = f(x, y); defaults to the configured preset"`
	X0     *float64 `help:"Initial x" name:"x0"`
	Y0     *float64 `help:"Initial y" name:"y0"`
	H      *float64 `help:"Step size" name:"h"`
	XFinal *float64 `help:"Integrate up to this x" name:"x-final"`
	Series bool     `help:"Print the solution curve instead of the trace"`
}

func (f *ODEFlags) run(ctx *Context, method numsolve.Method) error {
	cfg, opts, format, err := ctx.load()
	if err != nil {
		return err
	}
	preset := cfg.Presets.Euler
	solve := numsolve.Euler
	if method == numsolve.MethodRungeKutta4 {
		preset = cfg.Presets.RungeKutta4
		solve = numsolve.RungeKutta4
	}
	expr := f.Expr
	if expr == "" {
		expr = preset.Expr
	}

	r, err := solve(expr, pick(f.X0, preset.X0), pick(f.Y0, preset.Y0), pick(f.H, preset.H), pick(f.XFinal, preset.XFinal))
	if err != nil {
		return err
	}
	return ctx.emit(r, f.Series, opts, format)
}

// EulerCmd represents the euler command
type EulerCmd struct {
	ODEFlags `embed:""`
}

func (cmd *EulerCmd) Run(ctx *Context) error {
	return cmd.run(ctx, numsolve.MethodEuler)
}

// RK4Cmd represents the rk4 command
type RK4Cmd struct {
	ODEFlags `embed:""`
}

func (cmd *RK4Cmd) Run(ctx *Context) error {
	return cmd.run(ctx, numsolve.MethodRungeKutta4)
}

// DeriveCmd prints d/dx of an expression.
type DeriveCmd struct {
	Expr  string `arg:"" help:"f(x)"`
	Exact bool   `help:"Differentiate symbolically instead of using the pattern table"`
}

func (cmd *DeriveCmd) Run(ctx *Context) error {
	_, opts, format, err := ctx.load()
	if err != nil {
		return err
	}
	d := numsolve.DeriveExpression(cmd.Expr)
	if cmd.Exact {
		if d, err = numsolve.Differentiate(cmd.Expr, "x"); err != nil {
			return err
		}
	}
	if format == numsolve.FormatText {
		fmt.Fprintln(ctx.Out, d)
		return nil
	}
	return report.Write(ctx.Out, format, map[string]string{"expr": cmd.Expr, "derivative": d}, opts)
}

// SampleCmd prints f(x) on evenly spaced points.
type SampleCmd struct {
	Expr string  `arg:"" help:"f(x)"`
	Lo   float64 `help:"Interval start" default:"-5"`
	Hi   float64 `help:"Interval end" default:"5"`
	N    int     `help:"Number of points" short:"n" default:"50"`
}

func (cmd *SampleCmd) Run(ctx *Context) error {
	_, opts, format, err := ctx.load()
	if err != nil {
		return err
	}
	pts, err := numsolve.SampleFunction(cmd.Expr, cmd.Lo, cmd.Hi, cmd.N)
	if err != nil {
		return err
	}
	return writePoints(ctx.Out, pts, format, opts)
}
