package scheduler

import (
	"context"

	"github.com/Miksus/red-engine/internal/condition"
	"github.com/Miksus/red-engine/internal/task"
)

// NewRestartTask builds the sentinel "Restart" task: an ordinary
// main-mode task whose body raises the restart signal by calling
// Session.Restart(). It must run in main mode so the signal is
// visible to the loop's TakeSignal() call within the same tick that
// dispatched it.
func NewRestartTask(s *task.Session, startCond condition.Condition) *task.Task {
	t := task.New("Restart", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		s.Restart()
		return nil, nil
	})
	if startCond != nil {
		t.StartCond = startCond
	}
	return t
}

// NewShutdownTask builds the sentinel "ShutDown" task, the restart
// counterpart that calls Session.Shutdown().
func NewShutdownTask(s *task.Session, startCond condition.Condition) *task.Task {
	t := task.New("ShutDown", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		s.Shutdown()
		return nil, nil
	})
	if startCond != nil {
		t.StartCond = startCond
	}
	return t
}
