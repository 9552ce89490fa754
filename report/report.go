// Package report renders solver results as terminal tables, JSON or CBOR.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/fxamacker/cbor/v2"

	"github.com/njchilds90/numsolve"
)

// Options control text rendering.
type Options struct {
	// Precision is the number of significant digits printed per value.
	Precision int
	// MaxRows limits the trace table; 0 prints every step.
	MaxRows int
	NoColor bool
}

func DefaultOptions() Options {
	return Options{Precision: 8}
}

var (
	titleFmt   = color.New(color.FgCyan, color.Bold)
	successFmt = color.New(color.FgGreen)
	failureFmt = color.New(color.FgRed, color.Bold)
)

// Write encodes v in the named format. Text output of a *numsolve.Result is
// a trace table plus summary; other values print with fmt.
func Write(w io.Writer, format string, v interface{}, opts Options) error {
	switch format {
	case numsolve.FormatJSON:
		return JSON(w, v)
	case numsolve.FormatCBOR:
		return CBOR(w, v)
	case numsolve.FormatText, "":
		if r, ok := v.(*numsolve.Result); ok {
			return Text(w, r, opts)
		}
		_, err := fmt.Fprintln(w, v)
		return err
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// Text writes the method title, the step trace and a one-line outcome.
func Text(w io.Writer, r *numsolve.Result, opts Options) error {
	if opts.Precision <= 0 {
		opts.Precision = DefaultOptions().Precision
	}
	title, ok, bad := sprinters(opts.NoColor)

	if _, err := fmt.Fprintln(w, title(r.Method.Title())); err != nil {
		return err
	}
	if len(r.Steps) > 0 {
		if _, err := fmt.Fprintln(w, Table(r, opts)); err != nil {
			return err
		}
		if hidden := len(r.Steps) - shownRows(len(r.Steps), opts.MaxRows); hidden > 0 {
			if _, err := fmt.Fprintf(w, "... %d more steps\n", hidden); err != nil {
				return err
			}
		}
	}
	line := ok(r.Summary())
	if !r.Success {
		line = bad(r.Summary())
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// Table renders the step trace with the method's column headers.
func Table(r *numsolve.Result, opts Options) string {
	if opts.Precision <= 0 {
		opts.Precision = DefaultOptions().Precision
	}
	rows := make([][]string, 0, len(r.Steps))
	for _, s := range r.Steps[:shownRows(len(r.Steps), opts.MaxRows)] {
		rows = append(rows, FormatRow(s.Row(), opts.Precision))
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(!opts.NoColor)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(r.Method.Columns()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell.Align(lipgloss.Right)
		})
	return t.String()
}

// FormatRow formats one Step.Row; the leading iteration column is printed as
// an integer.
func FormatRow(values []float64, precision int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = strconv.Itoa(int(v))
			continue
		}
		out[i] = strconv.FormatFloat(v, 'g', precision, 64)
	}
	return out
}

func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func CBOR(w io.Writer, v interface{}) error {
	b, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("cbor encode: %w", err)
	}
	_, err = w.Write(b)
	return err
}

func shownRows(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}

func sprinters(noColor bool) (title, ok, bad func(a ...interface{}) string) {
	if noColor {
		plain := func(a ...interface{}) string { return fmt.Sprint(a...) }
		return plain, plain, plain
	}
	return titleFmt.SprintFunc(), successFmt.SprintFunc(), failureFmt.SprintFunc()
}
