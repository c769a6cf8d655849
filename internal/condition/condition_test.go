package condition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Miksus/red-engine/internal/clock"
	"github.com/Miksus/red-engine/internal/eventlog"
)

// fakeLookup is a minimal TaskLookup for tests that don't need a real
// task registry.
type fakeLookup map[string]TaskInfo

func (f fakeLookup) Lookup(name string) (TaskInfo, bool) {
	info, ok := f[name]
	return info, ok
}

func at(hm string) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(mustDuration(hm))
}

func atDay(day int, hm string) time.Time {
	return time.Date(2024, 1, 1+day, 0, 0, 0, 0, time.UTC).Add(mustDuration(hm))
}

func mustDuration(hm string) time.Duration {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		panic(err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

func epochAt(hm string) float64 { return float64(at(hm).Unix()) }

func TestTaskExecutableWindow(t *testing.T) {
	repo := eventlog.NewMemRepository()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionRun, Created: epochAt("07:10")}))
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionSuccess, Created: epochAt("07:20")}))

	tod, err := clock.NewTimeOfDay("07:00", "08:00")
	require.NoError(t, err)
	cond := TaskExecutable("X", tod, 0)

	evalCtx := Context{Repo: repo, Tasks: fakeLookup{}, Now: at("07:30")}
	assert.False(t, cond.Eval(evalCtx))

	evalCtx.Now = atDay(1, "07:30")
	assert.True(t, cond.Eval(evalCtx))
}

func TestTaskExecutableRetries(t *testing.T) {
	repo := eventlog.NewMemRepository()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionRun, Created: epochAt("07:10")}))
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionFail, Created: epochAt("07:20")}))

	tod, err := clock.NewTimeOfDay("07:00", "08:00")
	require.NoError(t, err)
	cond := TaskExecutable("X", tod, 1)

	evalCtx := Context{Repo: repo, Tasks: fakeLookup{}, Now: at("07:30")}
	assert.True(t, cond.Eval(evalCtx))

	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionFail, Created: epochAt("07:25")}))
	assert.False(t, cond.Eval(evalCtx))
}

func TestTaskExecutableTerminateIgnoresRetries(t *testing.T) {
	repo := eventlog.NewMemRepository()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionRun, Created: epochAt("07:10")}))
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionTerminate, Created: epochAt("07:20")}))

	tod, err := clock.NewTimeOfDay("07:00", "08:00")
	require.NoError(t, err)
	cond := TaskExecutable("X", tod, 1)

	evalCtx := Context{Repo: repo, Tasks: fakeLookup{}, Now: at("07:30")}
	assert.False(t, cond.Eval(evalCtx))
}

func TestTaskExecutableAlreadyRunning(t *testing.T) {
	repo := eventlog.NewMemRepository()
	cond := TaskExecutable("X", nil, 0)
	evalCtx := Context{Repo: repo, Tasks: fakeLookup{"X": {Name: "X", Running: true}}, Now: at("07:30")}
	assert.False(t, cond.Eval(evalCtx))
}

func TestDependSuccessChain(t *testing.T) {
	aSuccess := epochAt("07:00")
	afterARun := epochAt("07:05")
	afterASuccess := epochAt("07:05")
	bSuccess := epochAt("07:01")
	afterBRun := epochAt("07:06")
	afterBSuccess := epochAt("07:06")

	lookup := fakeLookup{
		"A":      {Name: "A", LastSuccess: &aSuccess},
		"B":      {Name: "B", LastSuccess: &bSuccess},
		"AfterA": {Name: "AfterA", LastRun: &afterARun, LastSuccess: &afterASuccess},
		"AfterB": {Name: "AfterB", LastRun: &afterBRun, LastSuccess: &afterBSuccess},
	}
	evalCtx := Context{Tasks: lookup, Now: at("07:10")}

	// AfterA and AfterB already ran after their dependency succeeded,
	// so their own triggers are spent.
	assert.False(t, DependSuccess("AfterA", "A").Eval(evalCtx))
	assert.False(t, DependSuccess("AfterB", "B").Eval(evalCtx))

	afterAllRun := epochAt("07:02")
	lookup["AfterAll"] = TaskInfo{Name: "AfterAll", LastRun: &afterAllRun}
	combined := And(DependSuccess("AfterAll", "AfterA"), DependSuccess("AfterAll", "AfterB"))
	assert.True(t, combined.Eval(evalCtx))
}

func TestComparableCountRule(t *testing.T) {
	repo := eventlog.NewMemRepository()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionFail, Created: epochAt("07:00")}))
	require.NoError(t, repo.Append(ctx, eventlog.LogRecord{TaskName: "X", Action: eventlog.ActionFail, Created: epochAt("07:05")}))

	evalCtx := Context{Repo: repo, Now: at("08:00")}

	assert.True(t, TaskFailed("X").Eval(evalCtx))
	assert.True(t, TaskFailed("X").Eq(2).Eval(evalCtx))
	assert.False(t, TaskFailed("X").Eq(1).Eval(evalCtx))
	assert.True(t, TaskFailed("X").Ge(2).Lt(5).Eval(evalCtx))
}

func TestAlgebraicIdentities(t *testing.T) {
	repo := eventlog.NewMemRepository()
	evalCtx := Context{Repo: repo, Tasks: fakeLookup{}, Now: at("07:30")}

	base := TaskFailed("X")
	assert.Equal(t, base.Eval(evalCtx), And(base, True()).Eval(evalCtx))
	assert.Equal(t, base.Eval(evalCtx), Or(base, False()).Eval(evalCtx))
	assert.Equal(t, base.Eval(evalCtx), Not(Not(base)).Eval(evalCtx))
	assert.True(t, base.Equal(base))
}

func TestSchedulerStarted(t *testing.T) {
	tod, err := clock.NewTimeOfDay("07:00", "08:00")
	require.NoError(t, err)
	cond := SchedulerStarted(tod)

	evalCtx := Context{Now: at("07:45"), SchedulerStart: at("07:10")}
	assert.True(t, cond.Eval(evalCtx))

	evalCtx.SchedulerStart = at("06:00")
	assert.False(t, cond.Eval(evalCtx))
}

func TestFuncCond(t *testing.T) {
	calls := 0
	cond := FuncCond("always-true", func(Context) bool {
		calls++
		return true
	})
	evalCtx := Context{}
	assert.True(t, cond.Eval(evalCtx))
	assert.Equal(t, 1, calls)
	assert.True(t, cond.Equal(FuncCond("always-true", func(Context) bool { return false })))
}

func TestTaskCondCooldown(t *testing.T) {
	lastSuccess := epochAt("07:00")
	lookup := fakeLookup{"check": {Name: "check", LastSuccess: &lastSuccess}}

	tod, err := clock.NewTimeOfDay("07:00", "08:00")
	require.NoError(t, err)
	cond := TaskCond("check", tod)

	evalCtx := Context{Tasks: lookup, Now: at("07:30"), CondStates: map[string]bool{"check": true}}
	assert.True(t, cond.Eval(evalCtx))

	evalCtx.Now = atDay(1, "07:30")
	assert.False(t, cond.Eval(evalCtx))
}
