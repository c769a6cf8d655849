package condition

import (
	"fmt"

	"github.com/Miksus/red-engine/internal/clock"
)

// schedulerStartedCondition is true iff the scheduler's own start
// time lies within period.Rollback(now).
type schedulerStartedCondition struct {
	period clock.Period
}

// SchedulerStarted is true iff the scheduler start time lies within
// period.Rollback(now). A nil period means "always", since an
// unbounded rollback always contains a start time in the past.
func SchedulerStarted(period clock.Period) schedulerStartedCondition {
	return schedulerStartedCondition{period: period}
}

func (c schedulerStartedCondition) Eval(ctx Context) bool {
	if c.period == nil {
		return true
	}
	iv := c.period.Rollback(ctx.Now)
	return iv.Contains(ctx.SchedulerStart)
}

func (c schedulerStartedCondition) String() string {
	return fmt.Sprintf("SchedulerStarted(period=%s)", c.period)
}

func (c schedulerStartedCondition) Equal(other Condition) bool {
	o, ok := other.(schedulerStartedCondition)
	return ok && fmt.Sprint(c.period) == fmt.Sprint(o.period)
}
