package cronexpr

import (
	"strconv"
	"strings"
	"time"
)

// satisfiabilityOrigin is the instant Parse searches forward from to
// reject expressions that can never fire.
var satisfiabilityOrigin = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Expression is a parsed six-field cron expression:
//
//	second minute hour day-of-month month day-of-week
//
// Day-of-month and day-of-week are combined with AND: an instant matches
// only when both fields allow it. An Expression is immutable and safe for
// concurrent use.
type Expression struct {
	source string
	fields [fieldCount]Field
}

// Parse parses and validates text. Every failure unwraps to
// errors.ErrInvalidCronExpression.
func Parse(text string) (*Expression, error) {
	tokens := strings.Fields(text)
	if len(tokens) != fieldCount {
		return nil, &ParseError{
			Expr:   text,
			Reason: "expected 6 fields, got " + strconv.Itoa(len(tokens)),
		}
	}

	e := &Expression{source: strings.Join(tokens, " ")}
	for i, token := range tokens {
		f, err := parseField(text, FieldKind(i), token)
		if err != nil {
			return nil, err
		}
		e.fields[i] = f
	}

	if _, err := e.Next(satisfiabilityOrigin); err != nil {
		return nil, err
	}
	return e, nil
}

// MustParse is like Parse but panics if the expression is invalid.
func MustParse(text string) *Expression {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the expression text with normalized spacing.
func (e *Expression) String() string { return e.source }

// Field returns the parsed field of the given kind.
func (e *Expression) Field(kind FieldKind) Field { return e.fields[kind] }

// Fields returns all six fields ordered second to day-of-week.
func (e *Expression) Fields() [6]Field { return e.fields }
