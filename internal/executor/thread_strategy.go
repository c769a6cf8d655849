package executor

import (
	"context"

	"github.com/Miksus/red-engine/internal/task"
)

// ThreadStrategy runs the task body on a background goroutine. The
// scheduler continues ticking immediately; termination is cooperative
// via ctx.Done(), which the body's own I/O wrappers or explicit
// checks must poll. A body that ignores ctx outlives its termination
// request until it returns on its own.
type ThreadStrategy struct{}

type threadHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	result any
	err    error
}

func (h *threadHandle) Wait() (any, error) {
	<-h.done
	return h.result, h.err
}

func (h *threadHandle) Terminate() {
	h.cancel()
}

func (ThreadStrategy) Launch(ctx context.Context, t *task.Task, params map[string]any) (Handle, error) {
	runCtx, cancel := context.WithCancel(ctx)
	h := &threadHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.result, h.err = t.Body(runCtx, params)
		if h.err == nil {
			select {
			case <-runCtx.Done():
				// Body returned clean after termination was requested;
				// still honor the cancellation as a terminate outcome.
				h.err = runCtx.Err()
			default:
			}
		}
	}()
	return h, nil
}
