package executor

import (
	"context"

	"github.com/Miksus/red-engine/internal/task"
)

// MainStrategy runs the task body inline, blocking the caller (the
// scheduler tick) until it returns. Main-mode tasks cannot be
// cancelled: Terminate is a documented no-op.
type MainStrategy struct{}

type completedHandle struct {
	result any
	err    error
}

func (h completedHandle) Wait() (any, error) { return h.result, h.err }
func (h completedHandle) Terminate()         {}

func (MainStrategy) Launch(ctx context.Context, t *task.Task, params map[string]any) (Handle, error) {
	result, err := t.Body(ctx, params)
	return completedHandle{result: result, err: err}, nil
}
