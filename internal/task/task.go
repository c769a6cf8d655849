package task

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/Miksus/red-engine/internal/condition"
)

// Body is what a main- or thread-mode task actually does. ctx carries
// the cooperative cancellation signal (Done() fires on termination
// request); params is the resolved argument map keyed by parameter
// name. Returning executor.ErrInaction (referenced here only by
// contract, not by import, to avoid a cycle — the executor package
// depends on task, not the reverse) is recognized as the "nothing to
// do" sentinel rather than a failure.
type Body func(ctx context.Context, params map[string]any) (any, error)

// Command builds the *exec.Cmd for a process-mode task. Go closures
// cannot cross a fork the way a pickled Python function can; a
// process-mode task supplies this instead of Body, and the executor's
// process strategy launches it directly. A process-mode task with a
// nil Command fails registration fast, mirroring the source's
// "attempt to serialize" check.
type Command func(params map[string]any) (*exec.Cmd, error)

// Task is the mutable per-task record: the declarative conditions and
// configuration set at registration, plus the live status fields the
// executor updates on every dispatch and completion. The scheduler is
// the only writer of ForceRun/Status transitions that gate dispatch
// decisions; the executor is the only writer of the terminal status
// and last_* timestamps. Both go through the same mutex because a
// thread-mode task's completion callback can race the next tick.
type Task struct {
	mu sync.RWMutex

	name        string
	Execution   Execution
	StartCond   condition.Condition
	EndCond     condition.Condition
	Timeout     *time.Duration
	Parameters  map[string]Argument
	Permanent   bool
	OnStartup   bool
	OnShutdown  bool
	Description string
	Body        Body
	Cmd         Command

	forceRun      bool
	running       bool
	status        Status
	lastRun       *float64
	lastSuccess   *float64
	lastFail      *float64
	lastTerminate *float64
	lastInaction  *float64

	session *Session
}

// New constructs a task detached from any session. Use Session.AddTask
// to register it (validates the execution mode, resolves name
// collisions, and binds the task's session back-reference).
func New(name string, execution Execution, body Body) *Task {
	return &Task{
		name:       name,
		Execution:  execution,
		Body:       body,
		StartCond:  condition.False(),
		EndCond:    condition.False(),
		Parameters: map[string]Argument{},
	}
}

func (t *Task) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Task) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// ForceRun reports and does not clear the force-run flag; clearing is
// the scheduler's job at the moment of dispatch (ConsumeForceRun).
func (t *Task) ForceRun() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.forceRun
}

// SetForceRun marks the task to be dispatched on the next tick
// regardless of start_cond.
func (t *Task) SetForceRun(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forceRun = v
}

// ConsumeForceRun clears force_run and reports whether it had been
// set, for the scheduler to call exactly once per dispatch decision.
func (t *Task) ConsumeForceRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.forceRun
	t.forceRun = false
	return was
}

// MarkRunning records that a run record was just appended: sets
// status to "run", last_run to created, and flips the live running
// flag the condition evaluator and TaskExecutable both consult.
func (t *Task) MarkRunning(created float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.status = StatusRun
	t.lastRun = &created
}

// MarkTerminal records the outcome of a dispatch: status becomes
// action, the live running flag clears, and the matching last_<action>
// cache is updated to created.
func (t *Task) MarkTerminal(status Status, created float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.status = status
	switch status {
	case StatusSuccess:
		t.lastSuccess = &created
	case StatusFail:
		t.lastFail = &created
	case StatusTerminate:
		t.lastTerminate = &created
	case StatusInaction:
		t.lastInaction = &created
	}
}

// RebuildFrom overwrites the cached last_* fields from a projection
// computed directly off the log (see eventlog.Rebuild).
func (t *Task) RebuildFrom(lastRun, lastSuccess, lastFail, lastTerminate, lastInaction *float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastRun = lastRun
	t.lastSuccess = lastSuccess
	t.lastFail = lastFail
	t.lastTerminate = lastTerminate
	t.lastInaction = lastInaction
}

// Info snapshots the fields condition.TaskInfo needs under a single
// read lock.
func (t *Task) Info() condition.TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return condition.TaskInfo{
		Name:          t.name,
		Running:       t.running,
		LastRun:       t.lastRun,
		LastSuccess:   t.lastSuccess,
		LastFail:      t.lastFail,
		LastTerminate: t.lastTerminate,
		LastInaction:  t.lastInaction,
	}
}

func (t *Task) setName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}
