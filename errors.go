package numsolve

import (
	"errors"
	"fmt"
)

// Expression errors. An *ExpressionError wraps exactly one of these.
var (
	ErrSyntax            = errors.New("syntax error")
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrUnknownFunction   = errors.New("unknown function")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrNonFinite         = errors.New("non-finite result")
)

// ErrInvalidParameter is matched by every *InvalidParameterError.
var ErrInvalidParameter = errors.New("invalid parameter")

// Reasons reported in Result.Error when a root finder does not converge.
const (
	ReasonNoSignChange    = "no sign change in interval"
	ReasonMaxIterations   = "maximum iterations reached"
	ReasonSmallDerivative = "derivative too small, possible division by zero"
	ReasonDiverged        = "iteration diverged to a non-finite value"
)

// ExpressionError reports an expression that could not be parsed or evaluated.
// Pos is the byte offset of a syntax error and -1 otherwise.
type ExpressionError struct {
	Expr string
	Pos  int
	Err  error
}

func (e *ExpressionError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("expression %q: %v (at offset %d)", e.Expr, e.Err, e.Pos)
	}
	return fmt.Sprintf("expression %q: %v", e.Expr, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// InvalidParameterError reports a violated precondition detected before
// any iteration runs.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func invalidParam(param, format string, args ...interface{}) error {
	return &InvalidParameterError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// IsExpressionError reports whether err came from parsing or evaluating
// a user expression.
func IsExpressionError(err error) bool {
	var ee *ExpressionError
	return errors.As(err, &ee)
}

func wrapIdent(name string) error { return fmt.Errorf("%w: %q", ErrUnknownIdentifier, name) }
