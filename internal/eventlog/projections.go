package eventlog

// LastOf returns the most recent record for task/action, if any.
// Rebuild uses it to derive the task.last_* timestamps from the log.
func LastOf(repo Repository, taskName string, action Action) (LogRecord, bool) {
	cur := repo.FilterBy(Criteria{TaskName: taskName, Actions: []Action{action}})
	return cur.Last()
}

// CountInRange counts records for taskName whose action is in actions
// (or any action, if actions is empty) and whose Created falls in
// [from, to].
func CountInRange(repo Repository, taskName string, actions []Action, from, to float64) int {
	cur := repo.FilterBy(Criteria{
		TaskName:    taskName,
		Actions:     actions,
		CreatedFrom: &Bound{Value: from},
		CreatedTo:   &Bound{Value: to},
	})
	return cur.Count()
}

// Status holds the last_* timestamps of one task as derived from the
// log; a nil field means the log has no record of that action.
type Status struct {
	LastRun       *float64
	LastSuccess   *float64
	LastFail      *float64
	LastTerminate *float64
	LastInaction  *float64
}

// Rebuild recomputes the last_* timestamps for a task directly from
// the log.
func Rebuild(repo Repository, taskName string) Status {
	var s Status
	if r, ok := LastOf(repo, taskName, ActionRun); ok {
		v := r.Created
		s.LastRun = &v
	}
	if r, ok := LastOf(repo, taskName, ActionSuccess); ok {
		v := r.Created
		s.LastSuccess = &v
	}
	if r, ok := LastOf(repo, taskName, ActionFail); ok {
		v := r.Created
		s.LastFail = &v
	}
	if r, ok := LastOf(repo, taskName, ActionTerminate); ok {
		v := r.Created
		s.LastTerminate = &v
	}
	if r, ok := LastOf(repo, taskName, ActionInaction); ok {
		v := r.Created
		s.LastInaction = &v
	}
	return s
}
