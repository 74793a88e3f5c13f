package cronexpr

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule adapts an Expression to robfig/cron's Schedule interface so an
// expression can drive a cron.Cron runner. A search failure yields the zero
// time, which cron.Cron treats as "never".
type Schedule struct {
	expr *Expression
}

var _ cron.Schedule = Schedule{}

// Schedule returns the robfig/cron adapter for e.
func (e *Expression) Schedule() Schedule {
	return Schedule{expr: e}
}

// Next implements cron.Schedule.
func (s Schedule) Next(t time.Time) time.Time {
	next, err := s.expr.Next(t)
	if err != nil {
		return time.Time{}
	}
	return next
}
