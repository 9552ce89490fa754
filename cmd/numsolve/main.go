// Command numsolve runs the numerical solvers from the command line.
//
// Usage:
//
//	numsolve bisection "x**3 - x - 2" --a 1 --b 2
//	numsolve newton "cos(x) - x" --x0 1
//	numsolve rk4 "x + y" --x0 0 --y0 1 --h 0.1 --x-final 1 --format json
//	numsolve eval "sin(x)**2 + cos(x)**2" --set x=0.3
//
// Omitted inputs fall back to the presets in the configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the command-line interface
var CLI struct {
	Config  string `help:"Configuration file path (.yaml or .toml)" default:"numsolve.yaml"`
	Verbose bool   `help:"Log solver iterations" short:"v"`
	Quiet   bool   `help:"Print only the outcome" short:"q"`
	Format  string `help:"Output format: text, json or cbor (overrides config)" short:"f"`

	Eval      EvalCmd      `cmd:"" help:"Evaluate an expression"`
	Bisection BisectionCmd `cmd:"" help:"Find a root of f(x) by bisection"`
	Newton    NewtonCmd    `cmd:"" help:"Find a root of f(x) by Newton-Raphson"`
	Euler     EulerCmd     `cmd:"" help:"Integrate dy/dx = f(x, y) with Euler's method"`
	RK4       RK4Cmd       `cmd:"" name:"rk4" help:"Integrate dy/dx = f(x, y) with fourth order Runge-Kutta"`
	Derive    DeriveCmd    `cmd:"" help:"Differentiate f(x)"`
	Sample    SampleCmd    `cmd:"" help:"Sample f(x) on an interval for plotting"`
	Version   VersionCmd   `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run(ctx *Context) error {
	fmt.Fprintln(ctx.Out, "numsolve v0.1.0")
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("numsolve"),
		kong.Description("Step-by-step root finding and ODE integration."),
		kong.UsageOnError(),
	)

	appCtx := &Context{
		Config:  CLI.Config,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
		Format:  CLI.Format,
		Out:     os.Stdout,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
