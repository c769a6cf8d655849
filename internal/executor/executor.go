// Package executor turns a dispatch decision from the scheduler loop
// into a running task instance, resolving parameters, launching the
// task body in its configured execution mode, and funneling the
// outcome back into the event log and the task's cached last_*
// timestamps.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Miksus/red-engine/internal/eventlog"
	"github.com/Miksus/red-engine/internal/task"
	"github.com/Miksus/red-engine/internal/telemetry"
)

// ErrInaction is the sentinel a task body returns to signal "there
// was nothing to do right now" — recorded as inaction, not fail.
var ErrInaction = errors.New("executor: task reported inaction")

// Handle is what a launch strategy hands back to the dispatcher: a
// way to wait for completion and a way to ask for cooperative or
// forced termination.
type Handle interface {
	// Wait blocks until the task body returns, yielding its result.
	Wait() (any, error)
	// Terminate requests cancellation. For main-mode it is a no-op
	// (Wait already returned by the time Terminate could be called);
	// for thread-mode it cancels the context; for process-mode it
	// signals the child.
	Terminate()
}

// Strategy launches a task body under one execution mode.
type Strategy interface {
	Launch(ctx context.Context, t *task.Task, params map[string]any) (Handle, error)
}

// Dispatcher owns the three strategies and the full dispatch
// obligations described in spec §4.5.
type Dispatcher struct {
	Session    *task.Session
	Main       Strategy
	Thread     Strategy
	Process    Strategy
	Log        *slog.Logger
	NowFunc    func() time.Time

	// Dispatches and Terminals are optional OTel counters (nil is
	// fine; a nil metric.Int64Counter's methods are no-ops in the
	// SDK's no-op implementation, but we guard explicitly since a
	// zero-value interface is not callable).
	Dispatches metric.Int64Counter
	Terminals  metric.Int64Counter

	mu      sync.Mutex
	running map[string]Handle
}

func NewDispatcher(s *task.Session, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		Session: s,
		Main:    MainStrategy{},
		Thread:  &ThreadStrategy{},
		Process: &ProcessStrategy{},
		Log:     log,
		NowFunc: time.Now,
		running: map[string]Handle{},
	}
}

// Terminate requests cancellation of taskName's in-flight dispatch, if
// any. It reports whether a running handle was found. Main-mode tasks
// never have a tracked handle: Terminate on one is a no-op, matching
// "main tasks cannot be cancelled".
func (d *Dispatcher) Terminate(ctx context.Context, taskName string) bool {
	_, end := telemetry.WithSpan(ctx, "executor.terminate")
	defer end()

	d.mu.Lock()
	h, ok := d.running[taskName]
	d.mu.Unlock()
	if !ok {
		return false
	}
	h.Terminate()
	return true
}

func (d *Dispatcher) now() float64 {
	return float64(d.NowFunc().UnixNano()) / 1e9
}

// Dispatch performs the full launch obligation for t: append the run
// record, resolve parameters, launch under t.Execution, wait (for
// main-mode; background otherwise) and append the terminal record.
// For thread/process mode, Dispatch returns as soon as the task is
// launched; the terminal record is appended asynchronously when the
// body completes. For main-mode, Dispatch blocks until completion,
// matching "the scheduler tick blocks until completion".
func (d *Dispatcher) Dispatch(ctx context.Context, t *task.Task) error {
	ctx, end := telemetry.WithSpan(ctx, "executor.dispatch")
	defer end()

	if d.Dispatches != nil {
		d.Dispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("task", t.Name())))
	}
	started := d.now()
	if err := d.Session.Repo.Append(ctx, eventlog.LogRecord{
		TaskName: t.Name(),
		Action:   eventlog.ActionRun,
		Created:  started,
		Start:    &started,
	}); err != nil {
		return fmt.Errorf("executor: append run record: %w", err)
	}
	t.MarkRunning(started)

	params, err := d.resolveParams(t)
	if err != nil {
		if !d.Session.Config.SilenceTaskPrerun {
			d.Log.Warn("parameter resolution failed", "task", t.Name(), "error", err)
		}
		d.finish(ctx, t, task.StatusFail, started, err)
		return nil
	}

	strategy := d.strategyFor(t.Execution)
	handle, err := strategy.Launch(ctx, t, params)
	if err != nil {
		d.finish(ctx, t, task.StatusFail, started, err)
		return nil
	}

	if t.Execution == task.ExecutionMain {
		result, runErr := handle.Wait()
		d.complete(ctx, t, started, result, runErr)
		return nil
	}

	d.mu.Lock()
	d.running[t.Name()] = handle
	d.mu.Unlock()

	go func() {
		result, runErr := handle.Wait()
		d.mu.Lock()
		delete(d.running, t.Name())
		d.mu.Unlock()
		d.complete(ctx, t, started, result, runErr)
	}()
	return nil
}

func (d *Dispatcher) strategyFor(mode task.Execution) Strategy {
	switch mode {
	case task.ExecutionThread:
		return d.Thread
	case task.ExecutionProcess:
		return d.Process
	default:
		return d.Main
	}
}

func (d *Dispatcher) resolveParams(t *task.Task) (map[string]any, error) {
	out := make(map[string]any, len(t.Parameters))
	for name, provider := range t.Parameters {
		v, err := provider.GetValue(t)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// complete maps a strategy's (result, err) onto the terminal log
// action: terminate signals take priority (they arrive as
// context.Canceled from a Terminate() call), then inaction, then
// success/fail.
func (d *Dispatcher) complete(ctx context.Context, t *task.Task, started float64, result any, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		d.finishAction(ctx, t, task.StatusTerminate, started, nil)
	case errors.Is(err, ErrInaction):
		d.finishAction(ctx, t, task.StatusInaction, started, nil)
	case err != nil:
		d.finish(ctx, t, task.StatusFail, started, err)
	default:
		d.Session.SetReturn(t.Name(), result)
		// A bool return is also the value a TaskCond over this task reads.
		if b, ok := result.(bool); ok {
			d.Session.SetCondState(t.Name(), b)
		}
		d.finishAction(ctx, t, task.StatusSuccess, started, nil)
	}
}

func (d *Dispatcher) finish(ctx context.Context, t *task.Task, status task.Status, started float64, err error) {
	d.finishAction(ctx, t, status, started, err)
}

func (d *Dispatcher) finishAction(ctx context.Context, t *task.Task, status task.Status, started float64, err error) {
	ended := d.now()
	runtime := ended - started
	rec := eventlog.LogRecord{
		TaskName: t.Name(),
		Action:   actionFor(status),
		Created:  ended,
		Start:    &started,
		End:      &ended,
		Runtime:  &runtime,
	}
	if err != nil {
		rec.ExcText = err.Error()
	}
	if appendErr := d.Session.Repo.Append(ctx, rec); appendErr != nil {
		d.Log.Error("append terminal record failed", "task", t.Name(), "error", appendErr)
	}
	if d.Terminals != nil {
		d.Terminals.Add(ctx, 1, metric.WithAttributes(
			attribute.String("task", t.Name()),
			attribute.String("status", string(rec.Action)),
		))
	}
	t.MarkTerminal(status, ended)
}

func actionFor(status task.Status) eventlog.Action {
	switch status {
	case task.StatusSuccess:
		return eventlog.ActionSuccess
	case task.StatusFail:
		return eventlog.ActionFail
	case task.StatusTerminate:
		return eventlog.ActionTerminate
	case task.StatusInaction:
		return eventlog.ActionInaction
	default:
		return eventlog.ActionFail
	}
}
