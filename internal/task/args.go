package task

import "fmt"

// Argument is the executor-facing contract every parameter provider
// implements. GetValue is called once per dispatch, immediately
// before launch, never earlier: providers that read live session or
// task state (ReturnArg, SessionParam, TaskArg, FuncArg) must see the
// freshest value.
type Argument interface {
	GetValue(t *Task) (any, error)
}

// Literal always returns the same wrapped value.
type Literal struct{ Value any }

func (a Literal) GetValue(*Task) (any, error) { return a.Value, nil }

// SessionParam looks the value up in session.parameters by key at
// dispatch time.
type SessionParam struct{ Key string }

func (a SessionParam) GetValue(t *Task) (any, error) {
	v, ok := t.session.Parameter(a.Key)
	if !ok {
		return nil, fmt.Errorf("task: session parameter %q not set", a.Key)
	}
	return v, nil
}

// SessionArg resolves to the session itself.
type SessionArg struct{}

func (a SessionArg) GetValue(t *Task) (any, error) { return t.session, nil }

// TaskArg resolves to a task: the dispatching task if Name is empty,
// otherwise the named task looked up in the session.
type TaskArg struct{ Name string }

func (a TaskArg) GetValue(t *Task) (any, error) {
	if a.Name == "" {
		return t, nil
	}
	other, ok := t.session.GetTask(a.Name)
	if !ok {
		return nil, fmt.Errorf("task: no such task %q", a.Name)
	}
	return other, nil
}

// ReturnArg resolves to the named task's last return value. If that
// task has never succeeded, ReturnArg yields Default instead of
// failing the dispatch, but only when HasDefault is set — a
// zero-value ReturnArg{TaskName: "R"} has no default, so a task
// depending on a return value that hasn't been produced yet fails the
// dispatch, same as the named task not existing at all.
type ReturnArg struct {
	TaskName   string
	Default    any
	HasDefault bool
}

// NewReturnArg builds a ReturnArg with an explicit default, the usual
// way to opt into the "fall back instead of failing" behavior.
func NewReturnArg(taskName string, def any) ReturnArg {
	return ReturnArg{TaskName: taskName, Default: def, HasDefault: true}
}

func (a ReturnArg) GetValue(t *Task) (any, error) {
	if _, ok := t.session.GetTask(a.TaskName); !ok {
		return nil, fmt.Errorf("task: task %q does not exist, cannot get return value", a.TaskName)
	}
	v, ok := t.session.Return(a.TaskName)
	if !ok {
		if a.HasDefault {
			return a.Default, nil
		}
		return nil, fmt.Errorf("task: %q has not returned a value and no default is set", a.TaskName)
	}
	return v, nil
}

// FuncArg evaluates fn against the session at dispatch time and uses
// its result as the parameter value.
type FuncArg struct{ Fn func(s *Session) (any, error) }

func (a FuncArg) GetValue(t *Task) (any, error) {
	return a.Fn(t.session)
}
