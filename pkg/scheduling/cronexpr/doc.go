/*
Package cronexpr parses six-field cron expressions and computes their next
fire times.

Grammar:

	second minute hour day-of-month month day-of-week

Each field is "*", a single value, an inclusive range "a-b", or a comma
separated list of values and ranges. Day-of-week accepts 0-6 (0 is Sunday)
and the case-insensitive names sun, mon, tue, wed, thu, fri and sat.

	expr, err := cronexpr.Parse("0 30 2,14 * * mon-fri")
	if err != nil {
		return err
	}
	next, err := expr.Next(time.Now())

Day-of-month and day-of-week are combined with AND, unlike the OR rule of
Vixie cron: "0 0 0 13 * fri" fires only on Friday the 13th.

Parse rejects expressions that can never fire, such as "0 0 0 30 2 *".
All errors unwrap to errors.ErrInvalidCronExpression from
pkg/common/errors.

Next works on wall-clock values in the location of its argument and never
returns sub-second precision.
*/
package cronexpr
