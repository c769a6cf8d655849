// Package condition implements the boolean expression algebra used as
// start/run/end/shutdown triggers: atomic conditions observing the
// event log or the live task set, combined with AND/OR/NOT, plus
// comparable conditions whose truth collapses an observed count
// against a set of comparators.
package condition

import (
	"time"

	"github.com/Miksus/red-engine/internal/clock"
	"github.com/Miksus/red-engine/internal/eventlog"
)

// TaskInfo is the live-state view a condition needs about one task.
// It is populated by the session/registry so this package never
// imports the task package (which would create a cycle, since tasks
// hold conditions).
type TaskInfo struct {
	Name          string
	Running       bool
	LastRun       *float64
	LastSuccess   *float64
	LastFail      *float64
	LastTerminate *float64
	LastInaction  *float64
}

// TaskLookup resolves a task by name for conditions that reference
// other tasks' live state (DependSuccess, TaskExecutable, TaskCond, ...).
type TaskLookup interface {
	Lookup(name string) (TaskInfo, bool)
}

// Context is everything a Condition needs to evaluate itself for one
// tick. A single Context is shared by every condition evaluated
// within that tick, so Now is stable across the whole evaluation.
type Context struct {
	Repo           eventlog.Repository
	Now            time.Time
	Tasks          TaskLookup
	SchedulerStart time.Time
	// CondStates holds the last computed value of each registered
	// TaskCond, keyed by the wrapping task's name.
	CondStates map[string]bool
}

func (c Context) nowEpoch() float64 {
	return float64(c.Now.UnixNano()) / 1e9
}

// rollbackBounds resolves a period (nil meaning "unbounded") against
// Now into the float64 epoch bounds CountInRange expects.
func (c Context) rollbackBounds(period clock.Period) (from, to float64) {
	if period == nil {
		return 0, c.nowEpoch()
	}
	iv := period.Rollback(c.Now)
	return epoch(iv.Start), epoch(iv.End)
}

func epoch(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}
