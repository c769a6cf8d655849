package task

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Miksus/red-engine/internal/condition"
	"github.com/Miksus/red-engine/internal/eventlog"
)

// Restarting governs what Session.Restart does to the registry.
type Restarting string

const (
	// RestartRecall relaunches the loop with the same registry: tasks,
	// conditions, and cached last_* state all survive the restart.
	RestartRecall Restarting = "recall"
	// RestartRelaunch is implementation-defined; the source this core
	// is modeled on does not fully characterize it, so it is treated
	// as a synonym of RestartRecall until a concrete need narrows it.
	RestartRelaunch Restarting = "relaunch"
	// RestartFresh is implementation-defined for the same reason.
	RestartFresh Restarting = "fresh"
)

// Config holds the full recognized set of session-level configuration
// keys (spec §6).
type Config struct {
	TaskExecution        Execution
	TaskPreExist         CollisionPolicy
	SilenceTaskPrerun    bool
	SilenceCondCheck     bool
	Timeout              *time.Duration
	ShutCond             condition.Condition
	Restarting           Restarting
	ForceStatusFromLogs  bool
	TaskLoggerBasename   string
	InstantShutdown      bool
	TickInterval         time.Duration
}

// DefaultConfig matches the defaults named in spec §6.
func DefaultConfig() Config {
	return Config{
		TaskExecution:      ExecutionMain,
		TaskPreExist:       CollisionRaise,
		ShutCond:           condition.False(),
		Restarting:         RestartRecall,
		TaskLoggerBasename: "redengine.task",
		TickInterval:       time.Second,
	}
}

// Signal names a pending scheduler-wide request raised by a task body
// or by direct API call (Session.Restart/Shutdown).
type Signal int

const (
	SignalNone Signal = iota
	SignalRestart
	SignalShutdown
)

// Session is the singleton-per-scheduler container: the task
// registry, shared parameters, captured return values, and the event
// log repository every condition evaluates against.
type Session struct {
	mu sync.RWMutex

	Config Config
	Repo   eventlog.Repository

	tasks map[string]*Task
	order []string // registration order, for on_startup/on_shutdown dispatch

	parameters map[string]any
	returns    map[string]any

	condStates map[string]bool

	signal    Signal
	StartTime time.Time
}

// NewSession builds an empty session around repo using cfg.
func NewSession(cfg Config, repo eventlog.Repository) *Session {
	return &Session{
		Config:     cfg,
		Repo:       repo,
		tasks:      map[string]*Task{},
		parameters: map[string]any{},
		returns:    map[string]any{},
		condStates: map[string]bool{},
	}
}

// AddTask registers t, applying the session's collision policy if a
// task by that name already exists. On CollisionRaise (the default)
// a naming conflict leaves the session unchanged and returns an error.
func (s *Session) AddTask(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTaskLocked(t)
}

func (s *Session) addTaskLocked(t *Task) error {
	if !t.Execution.Valid() {
		return fmt.Errorf("task: invalid execution mode %q", t.Execution)
	}
	if t.Execution == ExecutionProcess && t.Cmd == nil {
		return fmt.Errorf("task: process-mode task %q has no Command; its body cannot cross a process boundary", t.Name())
	}
	name := t.Name()
	existing, collides := s.tasks[name]
	if !collides {
		s.tasks[name] = t
		s.order = append(s.order, name)
		t.session = s
		return nil
	}
	switch s.Config.TaskPreExist {
	case CollisionIgnore:
		_ = existing
		return nil
	case CollisionReplace:
		s.tasks[name] = t
		t.session = s
		return nil
	case CollisionRename:
		newName := s.firstUnusedNameLocked(name)
		t.setName(newName)
		s.tasks[newName] = t
		s.order = append(s.order, newName)
		t.session = s
		return nil
	default: // CollisionRaise
		return fmt.Errorf("task: a task named %q already exists", name)
	}
}

// firstUnusedNameLocked finds the smallest N such that "<base> - N" is
// not already registered. Caller holds s.mu.
func (s *Session) firstUnusedNameLocked(base string) string {
	for n := 1; ; n++ {
		candidate := base + " - " + strconv.Itoa(n)
		if _, exists := s.tasks[candidate]; !exists {
			return candidate
		}
	}
}

// Rename changes t's name, enforcing registry-wide uniqueness. On
// collision the rename is rejected and t keeps its old name.
func (s *Session) Rename(t *Task, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldName := t.Name()
	if newName == oldName {
		return nil
	}
	if _, exists := s.tasks[newName]; exists {
		return fmt.Errorf("task: a task named %q already exists", newName)
	}
	delete(s.tasks, oldName)
	s.tasks[newName] = t
	for i, n := range s.order {
		if n == oldName {
			s.order[i] = newName
			break
		}
	}
	t.setName(newName)
	return nil
}

// GetTask resolves a task by name.
func (s *Session) GetTask(name string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[name]
	return t, ok
}

// Tasks returns every registered task, in registration order.
func (s *Session) Tasks() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.tasks[n])
	}
	return out
}

// Lookup implements condition.TaskLookup.
func (s *Session) Lookup(name string) (condition.TaskInfo, bool) {
	t, ok := s.GetTask(name)
	if !ok {
		return condition.TaskInfo{}, false
	}
	return t.Info(), true
}

// Parameter reads a session-level parameter by key.
func (s *Session) Parameter(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.parameters[key]
	return v, ok
}

// SetParameter sets a session-level parameter.
func (s *Session) SetParameter(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters[key] = value
}

// Return reads the last captured return value of the named task.
func (s *Session) Return(taskName string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.returns[taskName]
	return v, ok
}

// SetReturn records a task's most recent return value; called by the
// executor on a successful dispatch.
func (s *Session) SetReturn(taskName string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returns[taskName] = value
}

// CondState reads the last computed value of a registered TaskCond,
// keyed by the wrapping check task's name.
func (s *Session) CondState(taskName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.condStates[taskName]
}

// SetCondState records a TaskCond wrapper task's return value, making
// it visible to condition.Context.CondStates on the next evaluation.
func (s *Session) SetCondState(taskName string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condStates[taskName] = value
}

// CondStatesSnapshot copies the current TaskCond state map for
// building a condition.Context.
func (s *Session) CondStatesSnapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.condStates))
	for k, v := range s.condStates {
		out[k] = v
	}
	return out
}

// Restart requests that the scheduler loop shut down and reinitialize
// per Config.Restarting. Equivalent to the sentinel Restart task body
// raising its signal, but callable directly from any task body.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = SignalRestart
}

// Shutdown requests that the scheduler loop shut down and exit.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = SignalShutdown
}

// TakeSignal returns and clears any pending restart/shutdown request.
func (s *Session) TakeSignal() Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := s.signal
	s.signal = SignalNone
	return sig
}
