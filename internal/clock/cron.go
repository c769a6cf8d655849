package clock

import (
	"time"

	"github.com/robfig/cron/v3"
)

// CronPeriod is a Period backed by a standard 5-field crontab
// expression. Like RecurringDelta it recurs indefinitely: Contains is
// always true, and Rollback reports the boundaries of the slot
// between the last firing at or before dt and dt itself.
//
// Rollback only searches Lookback into the past for the last firing;
// a cron expression whose cadence is sparser than Lookback will report
// the lookback horizon as Start instead of an actual prior firing.
type CronPeriod struct {
	expr     string
	schedule cron.Schedule
	Lookback time.Duration
}

// NewCronPeriod parses a standard minute-hour-dom-month-dow
// expression (no seconds field, matching crontab(5)).
func NewCronPeriod(expr string) (*CronPeriod, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &CronPeriod{expr: expr, schedule: sched, Lookback: 366 * 24 * time.Hour}, nil
}

func (c *CronPeriod) String() string { return c.expr }

func (c *CronPeriod) Contains(time.Time) bool { return true }

func (c *CronPeriod) Rollback(dt time.Time) Interval {
	horizon := dt.Add(-c.Lookback)
	last := horizon
	for {
		next := c.schedule.Next(last)
		if next.After(dt) {
			break
		}
		last = next
	}
	return Interval{Start: last, End: dt}
}
