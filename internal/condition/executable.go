package condition

import (
	"fmt"

	"github.com/Miksus/red-engine/internal/clock"
	"github.com/Miksus/red-engine/internal/eventlog"
)

// executableCondition is the composite "should this task run" rule: no
// successes, no terminations, no inactions, at most retries failures
// within the rollback period, and the task is not already running.
//
// The source this scheduler is modeled on flags the "already running"
// check as buggy in a comment, relying instead on the fail/success/
// terminate counts to implicitly prevent re-dispatch. That gap let a
// slow task get launched a second time before its first run finished.
// Here the running check is real and authoritative, not incidental.
type executableCondition struct {
	taskName string
	period   clock.Period
	retries  int
}

// TaskExecutable builds the standard "ready to run" condition for a
// task: zero success/terminate/inaction records and at most retries
// failures within period.Rollback(now), and the task not presently
// running.
func TaskExecutable(taskName string, period clock.Period, retries int) executableCondition {
	return executableCondition{taskName: taskName, period: period, retries: retries}
}

func (c executableCondition) Eval(ctx Context) bool {
	if info, ok := ctx.Tasks.Lookup(c.taskName); ok && info.Running {
		return false
	}
	from, to := ctx.rollbackBounds(c.period)
	if eventlog.CountInRange(ctx.Repo, c.taskName, []eventlog.Action{eventlog.ActionSuccess}, from, to) > 0 {
		return false
	}
	if eventlog.CountInRange(ctx.Repo, c.taskName, []eventlog.Action{eventlog.ActionTerminate}, from, to) > 0 {
		return false
	}
	if eventlog.CountInRange(ctx.Repo, c.taskName, []eventlog.Action{eventlog.ActionInaction}, from, to) > 0 {
		return false
	}
	fails := eventlog.CountInRange(ctx.Repo, c.taskName, []eventlog.Action{eventlog.ActionFail}, from, to)
	return fails <= c.retries
}

func (c executableCondition) String() string {
	return fmt.Sprintf("TaskExecutable(task=%q, period=%s, retries=%d)", c.taskName, c.period, c.retries)
}

func (c executableCondition) Equal(other Condition) bool {
	o, ok := other.(executableCondition)
	return ok && o.taskName == c.taskName && o.retries == c.retries && fmt.Sprint(c.period) == fmt.Sprint(o.period)
}
