package cronexpr

import (
	"sort"
	"strconv"
	"strings"
)

// FieldKind identifies one of the six calendar fields of an expression.
type FieldKind int

const (
	Second FieldKind = iota
	Minute
	Hour
	DayOfMonth
	Month
	DayOfWeek
)

// fieldCount is the number of whitespace-separated fields in an expression.
const fieldCount = 6

var kindNames = [fieldCount]string{"second", "minute", "hour", "day-of-month", "month", "day-of-week"}

// String returns the field name used in error messages.
func (k FieldKind) String() string {
	if k < 0 || int(k) >= fieldCount {
		return "unknown"
	}
	return kindNames[k]
}

// bounds describes the permitted range of a field kind and any textual
// aliases it accepts.
type bounds struct {
	min, max int
	names    map[string]int
}

var fieldBounds = [fieldCount]bounds{
	Second:     {0, 59, nil},
	Minute:     {0, 59, nil},
	Hour:       {0, 23, nil},
	DayOfMonth: {1, 31, nil},
	Month:      {1, 12, nil},
	DayOfWeek: {0, 6, map[string]int{
		"sun": 0,
		"mon": 1,
		"tue": 2,
		"wed": 3,
		"thu": 4,
		"fri": 5,
		"sat": 6,
	}},
}

// Field is the validated set of values one calendar field permits.
// A Field is immutable once parsed.
type Field struct {
	kind     FieldKind
	values   []int
	mask     uint64
	wildcard bool
}

// Kind returns which calendar field this is.
func (f Field) Kind() FieldKind { return f.kind }

// Min returns the lowest value the field kind permits.
func (f Field) Min() int { return fieldBounds[f.kind].min }

// Max returns the highest value the field kind permits.
func (f Field) Max() int { return fieldBounds[f.kind].max }

// IsWildcard reports whether the field was written as "*".
func (f Field) IsWildcard() bool { return f.wildcard }

// Values returns the allowed values in ascending order.
func (f Field) Values() []int {
	out := make([]int, len(f.values))
	copy(out, f.values)
	return out
}

// Contains reports whether v is an allowed value.
func (f Field) Contains(v int) bool {
	if v < 0 || v > 63 {
		return false
	}
	return f.mask&(1<<uint(v)) != 0
}

// First returns the smallest allowed value.
func (f Field) First() int { return f.values[0] }

// NextFrom returns the smallest allowed value >= v, or false when every
// allowed value is below v.
func (f Field) NextFrom(v int) (int, bool) {
	i := sort.SearchInts(f.values, v)
	if i == len(f.values) {
		return 0, false
	}
	return f.values[i], true
}

func newField(kind FieldKind, values []int, wildcard bool) Field {
	sort.Ints(values)
	f := Field{kind: kind, wildcard: wildcard}
	for _, v := range values {
		if f.mask&(1<<uint(v)) != 0 {
			continue
		}
		f.mask |= 1 << uint(v)
		f.values = append(f.values, v)
	}
	return f
}

// parseField parses one field token: "*", an atom, a range "a-b", or a
// comma-separated list of those.
func parseField(expr string, kind FieldKind, token string) (Field, error) {
	b := fieldBounds[kind]
	if token == "*" {
		return newField(kind, fullRange(b), true), nil
	}

	var values []int
	for _, part := range strings.Split(token, ",") {
		if part == "" {
			return Field{}, newParseError(expr, kind, token, "empty list element")
		}
		if part == "*" {
			values = append(values, fullRange(b)...)
			continue
		}

		lo, hi := part, part
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi = part[:i], part[i+1:]
			if lo == "" || hi == "" {
				return Field{}, newParseError(expr, kind, part, "malformed range")
			}
		}

		start, err := parseAtom(expr, kind, lo)
		if err != nil {
			return Field{}, err
		}
		end, err := parseAtom(expr, kind, hi)
		if err != nil {
			return Field{}, err
		}
		if start > end {
			return Field{}, newParseError(expr, kind, part, "range start is after range end")
		}
		for v := start; v <= end; v++ {
			values = append(values, v)
		}
	}
	return newField(kind, values, false), nil
}

// parseAtom resolves a single integer or name and checks it against the
// field's bounds.
func parseAtom(expr string, kind FieldKind, atom string) (int, error) {
	b := fieldBounds[kind]

	var v int
	if isDigits(atom) {
		n, err := strconv.Atoi(atom)
		if err != nil {
			return 0, newParseError(expr, kind, atom, "value is not a valid integer")
		}
		v = n
	} else if n, ok := b.names[strings.ToLower(atom)]; ok {
		v = n
	} else if b.names != nil {
		return 0, newParseError(expr, kind, atom, "expected an integer or a day name")
	} else {
		return 0, newParseError(expr, kind, atom, "expected an integer")
	}

	if v < b.min || v > b.max {
		return 0, newParseError(expr, kind, atom,
			"value out of range ["+strconv.Itoa(b.min)+","+strconv.Itoa(b.max)+"]")
	}
	return v, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func fullRange(b bounds) []int {
	values := make([]int, 0, b.max-b.min+1)
	for v := b.min; v <= b.max; v++ {
		values = append(values, v)
	}
	return values
}
