// Package task implements the task record, the session/registry that
// owns it, and the argument-provider surface tasks pull parameters
// from at dispatch time.
package task

// Status is the task's last observed terminal (or running) state. The
// zero value Status("") is the "never run" state, called `null` in
// the log-derived status model.
type Status string

const (
	StatusNull      Status = ""
	StatusRun       Status = "run"
	StatusSuccess   Status = "success"
	StatusFail      Status = "fail"
	StatusTerminate Status = "terminate"
	StatusInaction  Status = "inaction"
)

// Execution is one of the three dispatch strategies a task can run
// under.
type Execution string

const (
	ExecutionMain    Execution = "main"
	ExecutionThread  Execution = "thread"
	ExecutionProcess Execution = "process"
)

// Valid reports whether e is one of the three recognized modes.
func (e Execution) Valid() bool {
	switch e {
	case ExecutionMain, ExecutionThread, ExecutionProcess:
		return true
	}
	return false
}

// CollisionPolicy governs what happens when a new task's name already
// exists in the session.
type CollisionPolicy string

const (
	CollisionRaise   CollisionPolicy = "raise"
	CollisionIgnore  CollisionPolicy = "ignore"
	CollisionRename  CollisionPolicy = "rename"
	CollisionReplace CollisionPolicy = "replace"
)
