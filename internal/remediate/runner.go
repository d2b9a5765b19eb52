package remediate

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencivic/dispofix/internal/config"
	"github.com/opencivic/dispofix/internal/progress"
	"github.com/opencivic/dispofix/internal/storage"
	"github.com/opencivic/dispofix/pkg/logger"
)

// ErrEnumeration marks a failure reading the source datastore. Fatal to the
// run; there is no partial-page recovery.
var ErrEnumeration = errors.New("remediate: enumeration failed")

// Runner drives the enumerator through the worker pool and owns the final
// aggregation. Per-object failures are counted and logged but never abort the
// run; only configuration and enumeration errors do.
type Runner struct {
	cfg    *config.Config
	source BlobSource
	store  storage.ObjectStore
}

func NewRunner(cfg *config.Config, source BlobSource, store storage.ObjectStore) *Runner {
	return &Runner{
		cfg:    cfg,
		source: source,
		store:  store,
	}
}

// Run executes one remediation pass and returns the aggregated stats. A nil
// error means the run completed, regardless of how many individual objects
// failed.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	run := r.cfg.Run

	inventory, err := r.source.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	// In dry-run the run is truncated to a small sample so operators can
	// preview behavior cheaply; the full inventory count still feeds the
	// extrapolated estimate.
	total := inventory
	reportEvery := int64(run.ReportEvery)
	if run.DryRun {
		total = min(int64(run.SampleSize), inventory)
		reportEvery = 1
	}

	stats := NewStats()
	reporter := progress.New(logger.Log, total, inventory, reportEvery, run.DryRun)

	pool := NewPool(r.store, stats, PoolConfig{
		Concurrency: run.Concurrency,
		DryRun:      run.DryRun,
		PaceEvery:   run.PaceEvery,
		PaceDelay:   run.PaceDelay,
		OnOutcome: func(out Outcome) {
			// Gate on the outcome's own sequence number, not a re-read of the
			// shared counter: every position fires exactly once even when
			// other workers have advanced Seen in the meantime.
			if reporter.ShouldReport(out.Seq) {
				reporter.Report(out.Seq, stats.Succeeded.Load(), stats.Failed.Load(), stats.Elapsed())
			}
		},
	})

	logger.Log.Info().
		Str("bucket", r.cfg.Storage.Bucket).
		Int64("inventory", inventory).
		Int64("total", total).
		Bool("dry_run", run.DryRun).
		Int("concurrency", run.Concurrency).
		Msg("starting remediation run")

	var afterID int64
	remaining := total
	for remaining > 0 {
		limit := run.BatchSize
		if int64(limit) > remaining {
			limit = int(remaining)
		}

		refs, lastID, err := r.source.NextBatch(ctx, afterID, limit)
		if err != nil {
			return stats, fmt.Errorf("%w: %v", ErrEnumeration, err)
		}
		if len(refs) == 0 {
			break
		}

		// The pool drains before the cursor advances; batches are not
		// pipelined across each other.
		if _, err := pool.ProcessBatch(ctx, refs); err != nil {
			logger.Log.Warn().Msg("run cancelled, in-flight operations finished")
			reporter.Summary(stats.Seen.Load(), stats.Succeeded.Load(), stats.Failed.Load(), stats.Elapsed())
			return stats, err
		}

		remaining -= int64(len(refs))
		afterID = lastID
	}

	reporter.Summary(stats.Seen.Load(), stats.Succeeded.Load(), stats.Failed.Load(), stats.Elapsed())
	return stats, nil
}
