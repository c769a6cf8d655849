package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Miksus/red-engine/internal/eventlog"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(DefaultConfig(), eventlog.NewMemRepository())
}

func TestAddTaskRaiseOnCollision(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.AddTask(New("a task", ExecutionMain, nil)))
	err := s.AddTask(New("a task", ExecutionMain, nil))
	assert.Error(t, err)
	assert.Len(t, s.Tasks(), 1)
}

func TestAddTaskIgnoreOnCollision(t *testing.T) {
	s := newTestSession(t)
	s.Config.TaskPreExist = CollisionIgnore
	first := New("a task", ExecutionMain, nil)
	require.NoError(t, s.AddTask(first))
	require.NoError(t, s.AddTask(New("a task", ExecutionMain, nil)))
	got, ok := s.GetTask("a task")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestAddTaskRenameOnCollision(t *testing.T) {
	s := newTestSession(t)
	s.Config.TaskPreExist = CollisionRename
	task1 := New("a task", ExecutionMain, nil)
	task2 := New("a task", ExecutionMain, nil)
	require.NoError(t, s.AddTask(task1))
	require.NoError(t, s.AddTask(task2))

	assert.Equal(t, "a task - 1", task2.Name())
	t1, ok := s.GetTask("a task")
	require.True(t, ok)
	assert.Same(t, task1, t1)
	t2, ok := s.GetTask("a task - 1")
	require.True(t, ok)
	assert.Same(t, task2, t2)
}

func TestRename(t *testing.T) {
	s := newTestSession(t)
	task1 := New("a task 1", ExecutionMain, nil)
	task2 := New("a task 2", ExecutionMain, nil)
	require.NoError(t, s.AddTask(task1))
	require.NoError(t, s.AddTask(task2))

	require.NoError(t, s.Rename(task1, "renamed task"))
	assert.Equal(t, "renamed task", task1.Name())

	got, ok := s.GetTask("renamed task")
	require.True(t, ok)
	assert.Same(t, task1, got)
	_, ok = s.GetTask("a task 1")
	assert.False(t, ok)
}

func TestRenameConflictLeavesStateUnchanged(t *testing.T) {
	s := newTestSession(t)
	task1 := New("a task 1", ExecutionMain, nil)
	task2 := New("a task 2", ExecutionMain, nil)
	require.NoError(t, s.AddTask(task1))
	require.NoError(t, s.AddTask(task2))

	err := s.Rename(task1, "a task 2")
	assert.Error(t, err)
	assert.Equal(t, "a task 1", task1.Name())

	got, ok := s.GetTask("a task 2")
	require.True(t, ok)
	assert.Same(t, task2, got)
}

func TestReturnArgDefaultBeforeSuccess(t *testing.T) {
	s := newTestSession(t)
	r := New("R", ExecutionMain, nil)
	u := New("U", ExecutionMain, nil)
	require.NoError(t, s.AddTask(r))
	require.NoError(t, s.AddTask(u))

	arg := NewReturnArg("R", "fallback")
	v, err := arg.GetValue(u)
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	s.SetReturn("R", "x")
	v, err = arg.GetValue(u)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestReturnArgMissingTaskErrors(t *testing.T) {
	s := newTestSession(t)
	u := New("U", ExecutionMain, nil)
	require.NoError(t, s.AddTask(u))

	arg := ReturnArg{TaskName: "ghost"}
	_, err := arg.GetValue(u)
	assert.Error(t, err)
}

// TestReturnArgNoDefaultFailsBeforeSuccess covers spec scenario 5: a
// task depending on another's return value, with no default supplied,
// must fail the dispatch while the dependency hasn't returned yet.
func TestReturnArgNoDefaultFailsBeforeSuccess(t *testing.T) {
	s := newTestSession(t)
	r := New("R", ExecutionMain, nil)
	u := New("U", ExecutionMain, nil)
	require.NoError(t, s.AddTask(r))
	require.NoError(t, s.AddTask(u))

	arg := ReturnArg{TaskName: "R"}
	_, err := arg.GetValue(u)
	assert.Error(t, err)

	s.SetReturn("R", "x")
	v, err := arg.GetValue(u)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestForceRunConsumedOnce(t *testing.T) {
	tsk := New("a", ExecutionMain, nil)
	tsk.SetForceRun(true)
	assert.True(t, tsk.ConsumeForceRun())
	assert.False(t, tsk.ForceRun())
	assert.False(t, tsk.ConsumeForceRun())
}
