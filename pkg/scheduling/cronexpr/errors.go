package cronexpr

import (
	"fmt"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

// ParseError reports why an expression was rejected. It unwraps to
// errors.ErrInvalidCronExpression.
type ParseError struct {
	// Expr is the full expression text.
	Expr string
	// Field names the offending field; empty for expression-level problems.
	Field string
	// Token is the offending token, if any.
	Token  string
	Reason string
}

func newParseError(expr string, kind FieldKind, token, reason string) *ParseError {
	return &ParseError{Expr: expr, Field: kind.String(), Token: token, Reason: reason}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cronexpr: invalid expression %q: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("cronexpr: invalid expression %q: %s field %q: %s", e.Expr, e.Field, e.Token, e.Reason)
}

// Unwrap returns errors.ErrInvalidCronExpression.
func (e *ParseError) Unwrap() error {
	return gferrors.ErrInvalidCronExpression
}
