package condition

import (
	"fmt"
	"time"

	"github.com/Miksus/red-engine/internal/clock"
)

// taskCondition wraps a slow or IO-bound predicate in its own
// background task so the scheduler never blocks its tick loop waiting
// on it. The wrapped task's start_cond governs how often it is
// re-checked (e.g. "every 10 minutes"); between checks, the
// condition's value is whatever the task last returned, as long as
// that check is still fresh per activeTime. Once the last success
// falls outside activeTime, the condition reverts to false rather
// than holding a stale answer forever.
type taskCondition struct {
	taskName   string
	activeTime clock.Period
}

// TaskCond builds a condition backed by the named task's last return
// value. taskName must refer to a task already registered in the
// session whose return values populate Context.CondStates.
func TaskCond(taskName string, activeTime clock.Period) taskCondition {
	return taskCondition{taskName: taskName, activeTime: activeTime}
}

func (c taskCondition) Eval(ctx Context) bool {
	info, ok := ctx.Tasks.Lookup(c.taskName)
	if !ok || info.LastSuccess == nil {
		return false
	}
	if c.activeTime != nil {
		lastSuccess := time.Unix(0, int64(*info.LastSuccess*1e9))
		iv := c.activeTime.Rollback(ctx.Now)
		if !iv.Contains(lastSuccess) {
			return false
		}
	}
	return ctx.CondStates[c.taskName]
}

func (c taskCondition) String() string {
	return fmt.Sprintf("TaskCond(task=%q, active_time=%s)", c.taskName, c.activeTime)
}

func (c taskCondition) Equal(other Condition) bool {
	o, ok := other.(taskCondition)
	return ok && o.taskName == c.taskName && fmt.Sprint(c.activeTime) == fmt.Sprint(o.activeTime)
}
