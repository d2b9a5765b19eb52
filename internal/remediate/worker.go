package remediate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opencivic/dispofix/internal/storage"
	"github.com/opencivic/dispofix/pkg/logger"
)

// PoolConfig tunes the remediation worker pool.
type PoolConfig struct {
	// Concurrency is the number of copy operations in flight at once.
	Concurrency int
	// DryRun simulates every operation without touching the object store.
	DryRun bool
	// PaceEvery inserts PaceDelay after this many completed operations, as
	// soft backpressure against the object store's request budget. Zero
	// disables pacing.
	PaceEvery int
	PaceDelay time.Duration
	// OnOutcome, when set, is invoked after every recorded outcome. Called
	// concurrently from workers; counters are already updated when it fires.
	OnOutcome func(Outcome)
}

// Pool executes remediation over many objects with bounded concurrency. Every
// dispatched BlobRef yields exactly one Outcome; per-object failures never
// abort the batch.
type Pool struct {
	store     storage.ObjectStore
	stats     *Stats
	cfg       PoolConfig
	completed atomic.Int64
}

// NewPool creates a new remediation pool
func NewPool(store storage.ObjectStore, stats *Stats, cfg PoolConfig) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pool{
		store: store,
		stats: stats,
		cfg:   cfg,
	}
}

// ProcessBatch remediates one batch and blocks until the pool drains. On
// cancellation it stops dispatching queued work, lets in-flight copies finish
// so no object is left mid-rewrite, and returns ctx.Err() along with the
// outcomes recorded so far.
func (p *Pool) ProcessBatch(ctx context.Context, refs []BlobRef) ([]Outcome, error) {
	jobChan := make(chan BlobRef, len(refs))
	outChan := make(chan Outcome, len(refs))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				outChan <- p.processOne(ctx, ref)
				p.pace()
			}
		}()
	}

	for _, ref := range refs {
		jobChan <- ref
	}
	close(jobChan)

	wg.Wait()
	close(outChan)

	outcomes := make([]Outcome, 0, len(refs))
	for out := range outChan {
		outcomes = append(outcomes, out)
	}

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// processOne remediates a single object and records its outcome in the stats.
func (p *Pool) processOne(ctx context.Context, ref BlobRef) Outcome {
	seq := p.stats.Seen.Add(1)

	decision := Decide(ref.ContentType, ref.Filename)

	if p.cfg.DryRun {
		logger.Log.Info().
			Str("key", ref.Key).
			Str("filename", ref.Filename).
			Str("content_type", ref.ContentType).
			Str("disposition", decision.HeaderValue).
			Msg("dry-run: would rewrite metadata")
		p.stats.Succeeded.Add(1)
		return p.record(Outcome{Ref: ref, Status: StatusSkipped, Seq: seq})
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := p.store.CopyInPlace(ctx, ref.Key, contentType, decision.HeaderValue)
	switch {
	case err == nil:
		p.stats.Succeeded.Add(1)
		logger.Log.Debug().
			Str("key", ref.Key).
			Str("disposition", decision.HeaderValue).
			Msg("metadata rewritten")
		return p.record(Outcome{Ref: ref, Status: StatusSuccess, Seq: seq})

	case errors.Is(err, storage.ErrObjectNotFound):
		// Object vanished between listing and remediation. Non-fatal.
		p.stats.Failed.Add(1)
		logger.Log.Warn().
			Str("key", ref.Key).
			Str("filename", ref.Filename).
			Msg("object no longer exists, skipping")
		return p.record(Outcome{Ref: ref, Status: StatusNotFound, Err: err, Seq: seq})

	default:
		p.stats.Failed.Add(1)
		logger.Log.Error().
			Err(err).
			Str("key", ref.Key).
			Str("filename", ref.Filename).
			Msg("failed to rewrite metadata")
		return p.record(Outcome{Ref: ref, Status: StatusFailed, Err: err, Seq: seq})
	}
}

func (p *Pool) record(out Outcome) Outcome {
	if p.cfg.OnOutcome != nil {
		p.cfg.OnOutcome(out)
	}
	return out
}

// pace sleeps briefly after every PaceEvery completed operations.
func (p *Pool) pace() {
	if p.cfg.PaceEvery <= 0 || p.cfg.PaceDelay <= 0 {
		return
	}
	if n := p.completed.Add(1); n%int64(p.cfg.PaceEvery) == 0 {
		time.Sleep(p.cfg.PaceDelay)
	}
}
