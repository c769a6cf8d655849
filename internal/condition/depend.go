package condition

import "fmt"

// dependKind selects which timestamp on the depended-upon task a
// dependCondition compares against this task's last_run.
type dependKind int

const (
	dependSuccess dependKind = iota
	dependFinish
	dependFailure
)

func (k dependKind) lastOf(info TaskInfo) *float64 {
	switch k {
	case dependSuccess:
		return info.LastSuccess
	case dependFinish:
		return latestOf(info.LastSuccess, info.LastFail, info.LastTerminate)
	case dependFailure:
		return info.LastFail
	}
	return nil
}

func latestOf(vs ...*float64) *float64 {
	var best *float64
	for _, v := range vs {
		if v == nil {
			continue
		}
		if best == nil || *v > *best {
			best = v
		}
	}
	return best
}

func (k dependKind) name() string {
	switch k {
	case dependSuccess:
		return "DependSuccess"
	case dependFinish:
		return "DependFinish"
	case dependFailure:
		return "DependFailure"
	}
	return "?"
}

// dependCondition is true iff the depended-upon task's relevant
// timestamp exists and is more recent than this task's own last_run.
type dependCondition struct {
	kind      dependKind
	taskName  string
	dependsOn string
}

// DependSuccess is true iff dependsOn.last_success exists and is more
// recent than taskName's last_run.
func DependSuccess(taskName, dependsOn string) dependCondition {
	return dependCondition{kind: dependSuccess, taskName: taskName, dependsOn: dependsOn}
}

// DependFinish mirrors DependSuccess using the depended-upon task's
// most recent terminal event (success, fail, or terminate).
func DependFinish(taskName, dependsOn string) dependCondition {
	return dependCondition{kind: dependFinish, taskName: taskName, dependsOn: dependsOn}
}

// DependFailure mirrors DependSuccess using last_fail.
func DependFailure(taskName, dependsOn string) dependCondition {
	return dependCondition{kind: dependFailure, taskName: taskName, dependsOn: dependsOn}
}

func (c dependCondition) Eval(ctx Context) bool {
	dep, ok := ctx.Tasks.Lookup(c.dependsOn)
	if !ok {
		return false
	}
	mark := c.kind.lastOf(dep)
	if mark == nil {
		return false
	}
	self, ok := ctx.Tasks.Lookup(c.taskName)
	if !ok || self.LastRun == nil {
		return true
	}
	return *mark > *self.LastRun
}

func (c dependCondition) String() string {
	return fmt.Sprintf("%s(task=%q, depends_on=%q)", c.kind.name(), c.taskName, c.dependsOn)
}

func (c dependCondition) Equal(other Condition) bool {
	o, ok := other.(dependCondition)
	return ok && o.kind == c.kind && o.taskName == c.taskName && o.dependsOn == c.dependsOn
}
