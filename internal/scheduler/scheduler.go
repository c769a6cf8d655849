// Package scheduler implements the single-threaded tick loop that
// polls the condition algebra against task history and dispatches or
// terminates tasks accordingly.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Miksus/red-engine/internal/condition"
	"github.com/Miksus/red-engine/internal/executor"
	"github.com/Miksus/red-engine/internal/task"
	"github.com/Miksus/red-engine/internal/telemetry"
)

// Scheduler is the tick-loop supervisor described in spec §4.6. It
// owns no tasks directly; the task.Session is the registry of record,
// and the Scheduler only ever mutates ForceRun/status through the
// Task/Dispatcher APIs, never by reaching into fields directly.
type Scheduler struct {
	Session    *task.Session
	Dispatcher *executor.Dispatcher
	Limiter    *LaunchLimiter
	Clock      func() time.Time
	Log        *slog.Logger

	// Metrics is optional (nil is fine): when set, Tick records a
	// condition evaluation count per start/end/shutdown condition it
	// evaluates and the wall-clock duration of the whole tick.
	Metrics *telemetry.Metrics

	mu    sync.RWMutex
	state State
}

// New builds a Scheduler around an already-configured session and
// dispatcher, wiring a default process-launch limiter (burst of 8,
// refilling at 1/sec); callers may replace Limiter afterwards.
func New(s *task.Session, d *executor.Dispatcher, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		Session:    s,
		Dispatcher: d,
		Limiter:    NewLaunchLimiter(8, 1.0, nil),
		Clock:      time.Now,
		Log:        log,
		state:      StateInitial,
	}
}

func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scheduler) setState(v State) {
	s.mu.Lock()
	s.state = v
	s.mu.Unlock()
}

// Run drives the scheduler until ctx is cancelled or a task body
// calls Session.Shutdown (directly, or via the sentinel ShutDown
// task). A Session.Restart request runs the shutdown sequence and
// then re-enters the startup sequence in place, per
// Config.Restarting, rather than returning to the caller.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Session.StartTime = s.Clock()
	for {
		s.runStartupTasks(ctx)
		s.setState(StateRunning)

		sig := s.loopUntilSignal(ctx)

		s.setState(StateStopping)
		s.runShutdownSequence(ctx)

		if sig == task.SignalRestart && ctx.Err() == nil {
			s.setState(StateRestarting)
			continue
		}
		s.setState(StateTerminated)
		return ctx.Err()
	}
}

// loopUntilSignal ticks at Config.TickInterval until ctx is cancelled
// or a tick observes shut_cond / an explicit restart or shutdown
// signal.
func (s *Scheduler) loopUntilSignal(ctx context.Context) task.Signal {
	interval := s.Session.Config.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return task.SignalShutdown
		case <-ticker.C:
			if sig := s.Tick(ctx); sig != task.SignalNone {
				return sig
			}
		}
	}
}

// Tick runs one pass of the tick procedure (spec §4.6) and returns
// any pending restart/shutdown signal observed during it.
func (s *Scheduler) Tick(ctx context.Context) task.Signal {
	ctx, end := telemetry.WithSpan(ctx, "scheduler.tick")
	defer end()

	start := time.Now()
	defer func() {
		if s.Metrics != nil && s.Metrics.TickDuration != nil {
			s.Metrics.TickDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
		}
	}()

	evalCtx := s.conditionContext()

	if s.Session.Config.ShutCond != nil {
		s.countConditionEval(ctx)
		if s.Session.Config.ShutCond.Eval(evalCtx) {
			return task.SignalShutdown
		}
	}

	for _, t := range s.Session.Tasks() {
		s.tickTask(ctx, t, evalCtx)
	}

	return s.Session.TakeSignal()
}

func (s *Scheduler) countConditionEval(ctx context.Context) {
	if s.Metrics != nil && s.Metrics.ConditionEvals != nil {
		s.Metrics.ConditionEvals.Add(ctx, 1)
	}
}

func (s *Scheduler) tickTask(ctx context.Context, t *task.Task, evalCtx condition.Context) {
	if t.Running() {
		if s.shouldTerminate(ctx, t, evalCtx) {
			s.Dispatcher.Terminate(ctx, t.Name())
		}
		return
	}

	wantsRun := t.ForceRun()
	if !wantsRun && t.StartCond != nil {
		s.countConditionEval(ctx)
		wantsRun = t.StartCond.Eval(evalCtx)
	}
	if !wantsRun {
		return
	}
	s.dispatch(ctx, t)
}

// dispatch applies the process-mode launch limiter (spec's executor
// concurrency budget has no fixed ceiling, but an unbounded number of
// concurrent OS processes is a resource hazard this core should
// guard against) before handing off to the Dispatcher. A denied
// launch is simply retried on the next tick: start_cond stays true
// until something changes it, and force_run is only cleared once the
// launch goes ahead, so nothing is lost.
func (s *Scheduler) dispatch(ctx context.Context, t *task.Task) {
	if t.Execution == task.ExecutionProcess {
		if !s.Limiter.Allow(ctx) {
			return
		}
		go s.releaseWhenDone(t)
	}
	t.ConsumeForceRun()
	if err := s.Dispatcher.Dispatch(ctx, t); err != nil {
		s.Log.Error("dispatch failed", "task", t.Name(), "error", err)
	}
}

func (s *Scheduler) releaseWhenDone(t *task.Task) {
	defer s.Limiter.Release()

	deadline := time.Now().Add(time.Second)
	for !t.Running() {
		if time.Now().After(deadline) {
			// Dispatch never started the task (e.g. launch failed before
			// MarkRunning); nothing to wait for.
			return
		}
		time.Sleep(time.Millisecond)
	}
	for t.Running() {
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *Scheduler) shouldTerminate(ctx context.Context, t *task.Task, evalCtx condition.Context) bool {
	if t.EndCond != nil {
		s.countConditionEval(ctx)
		if t.EndCond.Eval(evalCtx) {
			return true
		}
	}
	if t.Timeout == nil {
		return false
	}
	info := t.Info()
	if info.LastRun == nil {
		return false
	}
	lastRun := epochToTime(*info.LastRun)
	return evalCtx.Now.Sub(lastRun) >= *t.Timeout
}

func (s *Scheduler) conditionContext() condition.Context {
	return condition.Context{
		Repo:           s.Session.Repo,
		Now:            s.Clock(),
		Tasks:          s.Session,
		SchedulerStart: s.Session.StartTime,
		CondStates:     s.Session.CondStatesSnapshot(),
	}
}

func epochToTime(e float64) time.Time {
	return time.Unix(0, int64(e*1e9))
}
