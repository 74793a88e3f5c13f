package cronexpr

import (
	"strconv"
	"time"
)

// maxSearchYears bounds how far Next looks ahead. Leap-day expressions that
// also pin a weekday repeat on a cycle of up to 40 years across a skipped
// century leap year.
const maxSearchYears = 50

// calendar is a wall-clock instant without a location.
type calendar struct {
	year, month, day, hour, minute, second int
}

func calendarOf(t time.Time) calendar {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return calendar{y, int(mo), d, h, mi, s}
}

func (c calendar) in(loc *time.Location) time.Time {
	return time.Date(c.year, time.Month(c.month), c.day, c.hour, c.minute, c.second, 0, loc)
}

func (c calendar) weekday() int {
	return int(c.in(time.UTC).Weekday())
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Next returns the earliest whole-second instant strictly after the given
// time, in its location, at which every field matches. It fails with
// errors.ErrInvalidCronExpression when no match exists within the search
// bound.
//
// Wall-clock times skipped by a daylight-saving transition never match;
// repeated wall-clock times match once.
func (e *Expression) Next(after time.Time) (time.Time, error) {
	loc := after.Location()
	start := after.Truncate(time.Second).Add(time.Second)
	c := calendarOf(start)
	limit := c.year + maxSearchYears

	for {
		var ok bool
		c, ok = e.search(c, limit)
		if !ok {
			return time.Time{}, &ParseError{
				Expr:   e.source,
				Reason: "no matching time within " + strconv.Itoa(maxSearchYears) + " years",
			}
		}

		t := c.in(loc)
		if calendarOf(t) == c && t.After(after) {
			return t, nil
		}
		c = calendarOf(c.in(time.UTC).Add(time.Second))
	}
}

// search finds the first calendar value >= c matching every field. Any
// adjustment resets the finer fields to their minimum allowed values and
// restarts the checks from the month, so carries into a coarser field are
// always re-validated.
func (e *Expression) search(c calendar, limitYear int) (calendar, bool) {
	second := &e.fields[Second]
	minute := &e.fields[Minute]
	hour := &e.fields[Hour]
	month := &e.fields[Month]

	for c.year <= limitYear {
		if !month.Contains(c.month) {
			if m, ok := month.NextFrom(c.month); ok {
				c.month = m
			} else {
				c.year++
				c.month = month.First()
			}
			c.day = e.fields[DayOfMonth].First()
			c = e.resetClock(c)
			continue
		}

		if !e.dayMatches(c) {
			c = e.nextDay(c)
			continue
		}

		if !hour.Contains(c.hour) {
			if h, ok := hour.NextFrom(c.hour); ok {
				c.hour = h
				c.minute, c.second = minute.First(), second.First()
			} else {
				c = e.nextDay(c)
			}
			continue
		}

		if !minute.Contains(c.minute) {
			if m, ok := minute.NextFrom(c.minute); ok {
				c.minute = m
				c.second = second.First()
			} else {
				c = e.nextHour(c)
			}
			continue
		}

		if !second.Contains(c.second) {
			if s, ok := second.NextFrom(c.second); ok {
				c.second = s
			} else {
				c = e.nextMinute(c)
			}
			continue
		}

		return c, true
	}
	return calendar{}, false
}

func (e *Expression) dayMatches(c calendar) bool {
	if c.day > daysIn(c.year, c.month) {
		return false
	}
	return e.fields[DayOfMonth].Contains(c.day) && e.fields[DayOfWeek].Contains(c.weekday())
}

func (e *Expression) resetClock(c calendar) calendar {
	c.hour = e.fields[Hour].First()
	c.minute = e.fields[Minute].First()
	c.second = e.fields[Second].First()
	return c
}

func (e *Expression) nextDay(c calendar) calendar {
	c.day++
	if c.day > daysIn(c.year, c.month) {
		c.month++
		if c.month > 12 {
			c.year++
			c.month = 1
		}
		c.day = e.fields[DayOfMonth].First()
	}
	return e.resetClock(c)
}

func (e *Expression) nextHour(c calendar) calendar {
	c.hour++
	if c.hour > 23 {
		return e.nextDay(c)
	}
	c.minute = e.fields[Minute].First()
	c.second = e.fields[Second].First()
	return c
}

func (e *Expression) nextMinute(c calendar) calendar {
	c.minute++
	if c.minute > 59 {
		return e.nextHour(c)
	}
	c.second = e.fields[Second].First()
	return c
}
