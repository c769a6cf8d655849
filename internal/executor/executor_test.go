package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Miksus/red-engine/internal/eventlog"
	"github.com/Miksus/red-engine/internal/task"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *task.Session) {
	t.Helper()
	repo := eventlog.NewMemRepository()
	s := task.NewSession(task.DefaultConfig(), repo)
	d := NewDispatcher(s, nil)
	return d, s
}

func TestDispatchMainSuccess(t *testing.T) {
	d, s := newTestDispatcher(t)
	tsk := task.New("ok", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		return "done", nil
	})
	require.NoError(t, s.AddTask(tsk))

	require.NoError(t, d.Dispatch(context.Background(), tsk))

	assert.Equal(t, task.StatusSuccess, tsk.Status())
	v, ok := s.Return("ok")
	require.True(t, ok)
	assert.Equal(t, "done", v)

	cur := s.Repo.FilterBy(eventlog.Criteria{TaskName: "ok"})
	assert.Equal(t, 2, cur.Count())
}

func TestDispatchMainFail(t *testing.T) {
	d, s := newTestDispatcher(t)
	wantErr := errors.New("boom")
	tsk := task.New("bad", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		return nil, wantErr
	})
	require.NoError(t, s.AddTask(tsk))

	require.NoError(t, d.Dispatch(context.Background(), tsk))
	assert.Equal(t, task.StatusFail, tsk.Status())

	rec, ok := eventlog.LastOf(s.Repo, "bad", eventlog.ActionFail)
	require.True(t, ok)
	assert.Contains(t, rec.ExcText, "boom")
}

func TestDispatchMainInaction(t *testing.T) {
	d, s := newTestDispatcher(t)
	tsk := task.New("idle", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		return nil, ErrInaction
	})
	require.NoError(t, s.AddTask(tsk))

	require.NoError(t, d.Dispatch(context.Background(), tsk))
	assert.Equal(t, task.StatusInaction, tsk.Status())
}

func TestDispatchParamResolutionFailure(t *testing.T) {
	d, s := newTestDispatcher(t)
	tsk := task.New("needs-param", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		return params["x"], nil
	})
	tsk.Parameters["x"] = task.SessionParam{Key: "missing"}
	require.NoError(t, s.AddTask(tsk))

	require.NoError(t, d.Dispatch(context.Background(), tsk))
	assert.Equal(t, task.StatusFail, tsk.Status())
}

func TestDispatchThreadTerminate(t *testing.T) {
	d, s := newTestDispatcher(t)
	started := make(chan struct{})
	tsk := task.New("slow", task.ExecutionThread, func(ctx context.Context, params map[string]any) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, s.AddTask(tsk))

	require.NoError(t, d.Dispatch(context.Background(), tsk))
	<-started
	assert.True(t, tsk.Running())

	assert.True(t, d.Terminate(context.Background(), "slow"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && tsk.Running() {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, tsk.Running())
	assert.Equal(t, task.StatusTerminate, tsk.Status())
}
