package eventlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemRepository is the canonical in-memory Repository. It is the
// reference implementation and is sufficient for tests and for
// single-process deployments that accept losing history on restart.
type MemRepository struct {
	mu      sync.RWMutex
	records []LogRecord
}

func NewMemRepository() *MemRepository {
	return &MemRepository{}
}

func (m *MemRepository) Append(ctx context.Context, rec LogRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemRepository) FilterBy(criteria Criteria) Cursor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]LogRecord, 0, len(m.records))
	for _, r := range m.records {
		if criteria.matches(r) {
			matched = append(matched, r)
		}
	}
	return sliceCursor{records: matched}
}

// Snapshot returns a copy of every record, in append order.
func (m *MemRepository) Snapshot() []LogRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LogRecord, len(m.records))
	copy(out, m.records)
	return out
}
