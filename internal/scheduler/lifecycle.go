package scheduler

import (
	"context"
	"time"

	"github.com/Miksus/red-engine/internal/task"
)

// runStartupTasks dispatches every on_startup task in registration
// order, waiting for each to finish before starting the next, so all
// of them complete before the tick loop begins scheduling (spec
// §4.6 point 3).
func (s *Scheduler) runStartupTasks(ctx context.Context) {
	for _, t := range s.Session.Tasks() {
		if !t.OnStartup {
			continue
		}
		s.runToCompletion(ctx, t)
	}
}

// runShutdownSequence waits for running tasks up to the configured
// grace period (instant if Config.InstantShutdown is set), then
// dispatches on_shutdown tasks in order, each run to completion.
func (s *Scheduler) runShutdownSequence(ctx context.Context) {
	grace := s.ShutdownGrace()
	deadline := time.Now().Add(grace)
	for _, t := range s.Session.Tasks() {
		if !t.Running() {
			continue
		}
		if grace <= 0 {
			s.Dispatcher.Terminate(ctx, t.Name())
			continue
		}
		for t.Running() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if t.Running() {
			s.Dispatcher.Terminate(ctx, t.Name())
		}
	}

	for _, t := range s.Session.Tasks() {
		if !t.OnShutdown {
			continue
		}
		s.runToCompletion(ctx, t)
	}
}

// ShutdownGrace is how long runShutdownSequence waits for in-flight
// tasks before forcing termination. Config.InstantShutdown collapses
// it to zero.
func (s *Scheduler) ShutdownGrace() time.Duration {
	if s.Session.Config.InstantShutdown {
		return 0
	}
	return 30 * time.Second
}

func (s *Scheduler) runToCompletion(ctx context.Context, t *task.Task) {
	s.dispatch(ctx, t)
	for t.Running() {
		time.Sleep(time.Millisecond)
	}
}
