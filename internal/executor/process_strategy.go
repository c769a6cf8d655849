package executor

import (
	"context"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Miksus/red-engine/internal/task"
)

// ProcessStrategy runs the task body as a separate OS process built
// by task.Command. Termination is forced: SIGTERM first, then SIGKILL
// after GraceBeforeKill if the process has not exited.
type ProcessStrategy struct {
	// GraceBeforeKill is how long to wait after SIGTERM before
	// escalating to SIGKILL. Defaults to 5s.
	GraceBeforeKill time.Duration
	// LaunchRetry bounds retries of the exec.Cmd.Start() call itself
	// (e.g. transient "resource temporarily unavailable" from the OS
	// scheduler under load), not the task body's own exit status.
	LaunchRetry backoff.BackOff
}

func (p *ProcessStrategy) grace() time.Duration {
	if p.GraceBeforeKill > 0 {
		return p.GraceBeforeKill
	}
	return 5 * time.Second
}

// processHandle fans a single cmd.Wait() result out to both Wait
// (the caller) and Terminate (the grace-period watcher) via a closed
// channel rather than a value channel, since both may need to observe
// completion without racing each other for the one value.
type processHandle struct {
	cmd        *exec.Cmd
	grace      time.Duration
	done       chan struct{}
	result     error
	terminated atomic.Bool
}

func (h *processHandle) Wait() (any, error) {
	<-h.done
	if h.terminated.Load() {
		return nil, context.Canceled
	}
	return nil, h.result
}

func (h *processHandle) Terminate() {
	if h.cmd.Process == nil {
		return
	}
	h.terminated.Store(true)
	_ = h.cmd.Process.Signal(syscall.SIGTERM)
	go func() {
		select {
		case <-h.done:
		case <-time.After(h.grace):
			_ = h.cmd.Process.Kill()
		}
	}()
}

func (p *ProcessStrategy) Launch(ctx context.Context, t *task.Task, params map[string]any) (Handle, error) {
	var cmd *exec.Cmd
	start := func() error {
		built, err := t.Cmd(params)
		if err != nil {
			return err
		}
		cmd = built
		return cmd.Start()
	}

	var err error
	if p.LaunchRetry != nil {
		err = backoff.Retry(start, p.LaunchRetry)
	} else {
		err = start()
	}
	if err != nil {
		return nil, err
	}

	h := &processHandle{cmd: cmd, grace: p.grace(), done: make(chan struct{})}
	go func() {
		h.result = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}
