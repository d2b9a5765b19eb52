package remediate

import (
	"context"
	"sync/atomic"
	"time"
)

// BlobRef identifies one stored object as known to the application datastore.
// Key is the storage-unique object key; Filename is only used for the target
// disposition filename and may contain arbitrary characters.
type BlobRef struct {
	Key         string
	Filename    string
	ContentType string
}

// BlobSource is the paginated enumerator over the blob inventory.
type BlobSource interface {
	Count(ctx context.Context) (int64, error)
	NextBatch(ctx context.Context, afterID int64, limit int) ([]BlobRef, int64, error)
}

// OutcomeStatus classifies the result of remediating one object.
type OutcomeStatus string

const (
	StatusSuccess  OutcomeStatus = "success"
	StatusNotFound OutcomeStatus = "not_found"
	StatusSkipped  OutcomeStatus = "skipped"
	StatusFailed   OutcomeStatus = "failed"
)

// Outcome is produced exactly once per enumerated blob per run. Failed
// objects are never retried within a run; the operator re-runs after reading
// the log.
type Outcome struct {
	Ref    BlobRef
	Status OutcomeStatus
	Err    error
	// Seq is this outcome's 1-based position in the run, taken from the
	// worker's own Seen increment. Under concurrency the shared counter has
	// usually moved on by the time an observer runs; Seq is the value that
	// belongs to this object.
	Seq int64
}

// Stats aggregates run counters; incremented atomically from all workers.
type Stats struct {
	Seen      atomic.Int64
	Succeeded atomic.Int64
	Failed    atomic.Int64
	StartedAt time.Time
}

func NewStats() *Stats {
	return &Stats{StartedAt: time.Now()}
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}
