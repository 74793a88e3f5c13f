package scheduler

import (
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/common/validation"
	"github.com/vnykmshr/cronflow/pkg/scheduling/cronexpr"
)

// TriggerKind identifies how a task repeats.
type TriggerKind int

const (
	// TriggerCron fires at every instant matching a cron expression.
	TriggerCron TriggerKind = iota + 1
	// TriggerFixedRate fires every period, measured from the previous
	// scheduled start.
	TriggerFixedRate
	// TriggerFixedDelay fires period after the previous execution completed.
	TriggerFixedDelay
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerCron:
		return "cron"
	case TriggerFixedRate:
		return "fixed_rate"
	case TriggerFixedDelay:
		return "fixed_delay"
	default:
		return "unknown"
	}
}

// TriggerSpec describes when a task fires. Exactly one of Cron, FixedRate
// and FixedDelay must be set. Periods are truncated to milliseconds.
type TriggerSpec struct {
	Cron         string
	FixedRate    time.Duration
	FixedDelay   time.Duration
	InitialDelay time.Duration
}

// Cron returns a trigger firing on a six-field cron expression.
func Cron(expr string) TriggerSpec {
	return TriggerSpec{Cron: expr}
}

// FixedRate returns a trigger firing every period.
func FixedRate(period time.Duration) TriggerSpec {
	return TriggerSpec{FixedRate: period}
}

// FixedDelay returns a trigger firing period after each completion.
func FixedDelay(period time.Duration) TriggerSpec {
	return TriggerSpec{FixedDelay: period}
}

// FixedRateMillis is FixedRate with the period in milliseconds.
func FixedRateMillis(periodMs int64) TriggerSpec {
	return FixedRate(time.Duration(periodMs) * time.Millisecond)
}

// FixedDelayMillis is FixedDelay with the period in milliseconds.
func FixedDelayMillis(periodMs int64) TriggerSpec {
	return FixedDelay(time.Duration(periodMs) * time.Millisecond)
}

// WithInitialDelay returns a copy of s that waits d before its first firing.
func (s TriggerSpec) WithInitialDelay(d time.Duration) TriggerSpec {
	s.InitialDelay = d
	return s
}

// Kind reports the trigger kind. The result is meaningful only for a spec
// that passes Validate.
func (s TriggerSpec) Kind() TriggerKind {
	switch {
	case s.Cron != "":
		return TriggerCron
	case s.FixedRate != 0:
		return TriggerFixedRate
	case s.FixedDelay != 0:
		return TriggerFixedDelay
	default:
		return 0
	}
}

// Period returns the millisecond-truncated repetition period of a
// fixed-rate or fixed-delay trigger.
func (s TriggerSpec) Period() time.Duration {
	switch s.Kind() {
	case TriggerFixedRate:
		return s.FixedRate.Truncate(time.Millisecond)
	case TriggerFixedDelay:
		return s.FixedDelay.Truncate(time.Millisecond)
	default:
		return 0
	}
}

// Delay returns the millisecond-truncated initial delay.
func (s TriggerSpec) Delay() time.Duration {
	return s.InitialDelay.Truncate(time.Millisecond)
}

// String renders the trigger for logs.
func (s TriggerSpec) String() string {
	var out string
	switch s.Kind() {
	case TriggerCron:
		out = fmt.Sprintf("cron(%s)", s.Cron)
	case TriggerFixedRate:
		out = fmt.Sprintf("fixed_rate(%v)", s.FixedRate)
	case TriggerFixedDelay:
		out = fmt.Sprintf("fixed_delay(%v)", s.FixedDelay)
	default:
		return "none"
	}
	if s.InitialDelay != 0 {
		out += fmt.Sprintf(" after %v", s.InitialDelay)
	}
	return out
}

// Validate checks the trigger. Errors unwrap to the matching sentinel in
// package errors.
func (s TriggerSpec) Validate() error {
	_, err := s.compile()
	return err
}

// compile validates s and parses its cron expression, if any.
func (s TriggerSpec) compile() (*cronexpr.Expression, error) {
	const module = "scheduler"

	if s.FixedRate != 0 && s.FixedDelay != 0 {
		return nil, gferrors.NewValidationError(module, "trigger", s.String(),
			"fixed_rate and fixed_delay are mutually exclusive").
			WithKind(gferrors.ErrFixedDelayAndRateAreExclusive)
	}
	if s.Cron != "" && (s.FixedRate != 0 || s.FixedDelay != 0) {
		return nil, gferrors.NewValidationError(module, "trigger", s.String(),
			"cron cannot be combined with a fixed period").
			WithKind(gferrors.ErrFixedDelayAndRateAreExclusive)
	}
	if s.Kind() == 0 {
		return nil, gferrors.NewValidationError(module, "trigger", s.String(), "no trigger set").
			WithHint("set one of cron, fixed_rate or fixed_delay")
	}

	if err := validation.ValidateNonNegativeDuration(module, "initial_delay", s.InitialDelay,
		gferrors.ErrInvalidInitialDelay); err != nil {
		return nil, err
	}

	switch s.Kind() {
	case TriggerFixedRate:
		return nil, validation.ValidatePositiveDuration(module, "fixed_rate", s.Period(), gferrors.ErrInvalidFixedRate)
	case TriggerFixedDelay:
		return nil, validation.ValidatePositiveDuration(module, "fixed_delay", s.Period(), gferrors.ErrInvalidFixedDelay)
	}

	return cronexpr.Parse(s.Cron)
}
