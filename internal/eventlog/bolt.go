package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// BoltRepository is a durable Repository backed by BoltDB, following
// the teacher's write-through cache pattern (services/orchestrator's
// WorkflowStore): every Append is persisted before the in-memory
// cache is updated, and FilterBy is served entirely from the cache.
//
// Durability here only covers the single-host case described in
// spec.md's Non-goals: state is reconstructable from the log, but a
// host failure between the bbolt write and an fsync is not
// recoverable beyond what BoltDB itself guarantees.
type BoltRepository struct {
	db    *bbolt.DB
	cache *MemRepository
}

// NewBoltRepository opens (creating if absent) a BoltDB file at path
// and warms the in-memory cache from it.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create events bucket: %w", err)
	}

	repo := &BoltRepository{db: db, cache: NewMemRepository()}
	if err := repo.warmCache(); err != nil {
		db.Close()
		return nil, fmt.Errorf("warm cache: %w", err)
	}
	return repo, nil
}

func (b *BoltRepository) warmCache() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		return bucket.ForEach(func(k, v []byte) error {
			var rec LogRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // skip corrupt entries
			}
			b.cache.records = append(b.cache.records, rec)
			return nil
		})
	})
}

func (b *BoltRepository) Append(ctx context.Context, rec LogRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		key := fmt.Sprintf("%s:%020.6f:%s", rec.TaskName, rec.Created, rec.ID)
		return bucket.Put([]byte(key), data)
	})
	if err != nil {
		return err
	}
	return b.cache.Append(ctx, rec)
}

func (b *BoltRepository) FilterBy(criteria Criteria) Cursor {
	return b.cache.FilterBy(criteria)
}

func (b *BoltRepository) Close() error {
	return b.db.Close()
}
