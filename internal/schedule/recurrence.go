package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow)
// and descriptors such as @weekly.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateRecurrence checks that expr is a parseable cron expression.
// An empty expression means the schedule does not repeat.
func ValidateRecurrence(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("schedule: invalid recurrence %q: %w", expr, err)
	}
	return nil
}

// NextOccurrence returns the first fire time of expr strictly after both the
// previous slot and now, evaluated in loc.
func NextOccurrence(expr string, previous, now time.Time, loc *time.Location) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: invalid recurrence %q: %w", expr, err)
	}
	from := previous
	if now.After(from) {
		from = now
	}
	next := sched.Next(from.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("schedule: recurrence %q never fires", expr)
	}
	return next, nil
}
