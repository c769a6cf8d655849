package eventlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemRepositoryFilterBy(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionRun, Created: 10}))
	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionSuccess, Created: 20}))
	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "b", Action: ActionRun, Created: 15}))

	cur := repo.FilterBy(Criteria{TaskName: "a"})
	assert.Equal(t, 2, cur.Count())

	last, ok := repo.FilterBy(Criteria{TaskName: "a", Actions: []Action{ActionSuccess}}).Last()
	require.True(t, ok)
	assert.Equal(t, float64(20), last.Created)

	_, ok = repo.FilterBy(Criteria{TaskName: "c"}).First()
	assert.False(t, ok)
}

func TestCriteriaCreatedRange(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	for _, c := range []float64{5, 10, 15, 20} {
		require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionRun, Created: c}))
	}

	// Closed range [10, 20]
	closed := repo.FilterBy(Criteria{TaskName: "a", CreatedFrom: &Bound{Value: 10}, CreatedTo: &Bound{Value: 20}})
	assert.Equal(t, 3, closed.Count())

	// Open-open (10, 20)
	open := repo.FilterBy(Criteria{TaskName: "a", CreatedFrom: &Bound{Value: 10, Open: true}, CreatedTo: &Bound{Value: 20, Open: true}})
	assert.Equal(t, 1, open.Count())
}

func TestRebuild(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionRun, Created: 10}))
	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionFail, Created: 11}))
	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionRun, Created: 20}))
	require.NoError(t, repo.Append(ctx, LogRecord{TaskName: "a", Action: ActionSuccess, Created: 21}))

	status := Rebuild(repo, "a")
	require.NotNil(t, status.LastRun)
	assert.Equal(t, float64(20), *status.LastRun)
	require.NotNil(t, status.LastSuccess)
	assert.Equal(t, float64(21), *status.LastSuccess)
	require.NotNil(t, status.LastFail)
	assert.Equal(t, float64(11), *status.LastFail)
	assert.Nil(t, status.LastTerminate)
}
