package condition

import (
	"fmt"

	"github.com/Miksus/red-engine/internal/clock"
	"github.com/Miksus/red-engine/internal/eventlog"
)

// countKind names which action a countCondition observes in the log.
type countKind int

const (
	kindStarted countKind = iota
	kindSucceeded
	kindFailed
	kindTerminated
	kindFinished
	kindInaction
)

func (k countKind) actions() []eventlog.Action {
	switch k {
	case kindStarted:
		return []eventlog.Action{eventlog.ActionRun}
	case kindSucceeded:
		return []eventlog.Action{eventlog.ActionSuccess}
	case kindFailed:
		return []eventlog.Action{eventlog.ActionFail}
	case kindTerminated:
		return []eventlog.Action{eventlog.ActionTerminate}
	case kindFinished:
		return []eventlog.Action{eventlog.ActionSuccess, eventlog.ActionFail, eventlog.ActionTerminate}
	case kindInaction:
		return []eventlog.Action{eventlog.ActionInaction}
	}
	return nil
}

func (k countKind) name() string {
	switch k {
	case kindStarted:
		return "TaskStarted"
	case kindSucceeded:
		return "TaskSucceeded"
	case kindFailed:
		return "TaskFailed"
	case kindTerminated:
		return "TaskTerminated"
	case kindFinished:
		return "TaskFinished"
	case kindInaction:
		return "TaskInaction"
	}
	return "?"
}

// countCondition counts matching log records for one task within a
// rollback period and collapses them via its comparators (spec.md
// §4.3: no comparators means "count > 0", otherwise the conjunction
// of every attached comparator).
type countCondition struct {
	kind     countKind
	taskName string
	period   clock.Period
	comp     comparators
}

func newCountCondition(kind countKind, taskName string) countCondition {
	return countCondition{kind: kind, taskName: taskName}
}

func (c countCondition) Eval(ctx Context) bool {
	from, to := ctx.rollbackBounds(c.period)
	count := eventlog.CountInRange(ctx.Repo, c.taskName, c.kind.actions(), from, to)
	return c.comp.truth(count)
}

func (c countCondition) String() string {
	s := fmt.Sprintf("%s(task=%q", c.kind.name(), c.taskName)
	if c.period != nil {
		s += fmt.Sprintf(", period=%s", c.period)
	}
	if cs := c.comp.String(); cs != "" {
		s += ", " + cs
	}
	return s + ")"
}

func (c countCondition) Equal(other Condition) bool {
	o, ok := other.(countCondition)
	if !ok || o.kind != c.kind || o.taskName != c.taskName || !c.comp.equal(o.comp) {
		return false
	}
	if (c.period == nil) != (o.period == nil) {
		return false
	}
	if c.period == nil {
		return true
	}
	return fmt.Sprint(c.period) == fmt.Sprint(o.period)
}

// Within attaches a rollback period (e.g. "today", "past 2 hours") to
// the condition; a nil/unset period means "since the dawn of time".
func (c countCondition) Within(period clock.Period) countCondition {
	c.period = period
	return c
}

func (c countCondition) Eq(n int) countCondition { c.comp = c.comp.with(CompEq, n); return c }
func (c countCondition) Ne(n int) countCondition { c.comp = c.comp.with(CompNe, n); return c }
func (c countCondition) Lt(n int) countCondition { c.comp = c.comp.with(CompLt, n); return c }
func (c countCondition) Gt(n int) countCondition { c.comp = c.comp.with(CompGt, n); return c }
func (c countCondition) Le(n int) countCondition { c.comp = c.comp.with(CompLe, n); return c }
func (c countCondition) Ge(n int) countCondition { c.comp = c.comp.with(CompGe, n); return c }

// TaskStarted is true once task has produced at least one "run"
// record in the (optional) rollback period, or per whatever
// comparators are chained on afterwards.
func TaskStarted(taskName string) countCondition { return newCountCondition(kindStarted, taskName) }

// TaskSucceeded mirrors TaskStarted for "success" records.
func TaskSucceeded(taskName string) countCondition { return newCountCondition(kindSucceeded, taskName) }

// TaskFailed mirrors TaskStarted for "fail" records.
func TaskFailed(taskName string) countCondition { return newCountCondition(kindFailed, taskName) }

// TaskTerminated mirrors TaskStarted for "terminate" records.
func TaskTerminated(taskName string) countCondition {
	return newCountCondition(kindTerminated, taskName)
}

// TaskFinished is true once the task has reached any terminal state
// (success, fail, or terminate).
func TaskFinished(taskName string) countCondition { return newCountCondition(kindFinished, taskName) }

// TaskInaction mirrors TaskStarted for "inaction" records (a run whose
// body reported there was nothing to do).
func TaskInaction(taskName string) countCondition { return newCountCondition(kindInaction, taskName) }
