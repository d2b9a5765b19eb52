// Package progress turns raw run counters into operator-facing throughput,
// percent-complete and ETA lines. Formatting only; the counters themselves
// stay plain integers and durations.
package progress

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Reporter emits cadenced progress lines and the final run summary. All lines
// go through the provided logger, which the caller wires to both the console
// and the durable log file.
type Reporter struct {
	log zerolog.Logger

	// Total is the number of objects this run will visit (the dry-run sample
	// size, or the full inventory count fetched up front in live mode).
	Total int64
	// InventoryTotal is the full inventory size, used to extrapolate a
	// full-run estimate out of a dry-run sample.
	InventoryTotal int64
	// Every is the reporting cadence in objects. The first object always
	// reports.
	Every int64
	// DryRun switches on the extrapolated full-run estimate.
	DryRun bool
}

func New(log zerolog.Logger, total, inventoryTotal, every int64, dryRun bool) *Reporter {
	if every < 1 {
		every = 1
	}
	return &Reporter{
		log:            log,
		Total:          total,
		InventoryTotal: inventoryTotal,
		Every:          every,
		DryRun:         dryRun,
	}
}

// ShouldReport says whether the given position in the run is a reporting
// point: the very first object, every Every-th object, and the last one.
func (r *Reporter) ShouldReport(seen int64) bool {
	if seen <= 0 {
		return false
	}
	return seen == 1 || seen%r.Every == 0 || seen == r.Total
}

// Report emits one progress line for the current counters.
func (r *Reporter) Report(seen, succeeded, failed int64, elapsed time.Duration) {
	rate := Rate(seen, elapsed)

	ev := r.log.Info().
		Int64("seen", seen).
		Int64("succeeded", succeeded).
		Int64("failed", failed).
		Str("rate", fmt.Sprintf("%.1f obj/s", rate))

	if r.Total > 0 {
		ev = ev.Str("progress", fmt.Sprintf("%.1f%%", Percent(seen, r.Total)))
	}
	if remaining := r.Total - seen; remaining > 0 && rate > 0 {
		ev = ev.Dur("eta", estimate(remaining, rate))
	}

	ev.Msg("progress")
}

// Summary emits the final run totals, and for a dry run the extrapolated
// duration of a full run at the observed rate.
func (r *Reporter) Summary(seen, succeeded, failed int64, elapsed time.Duration) {
	rate := Rate(seen, elapsed)

	successRate := 0.0
	if seen > 0 {
		successRate = 100 * float64(succeeded) / float64(seen)
	}

	r.log.Info().
		Int64("total", seen).
		Int64("succeeded", succeeded).
		Int64("failed", failed).
		Str("success_rate", fmt.Sprintf("%.1f%%", successRate)).
		Dur("elapsed", elapsed).
		Str("rate", fmt.Sprintf("%.1f obj/s", rate)).
		Msg("run complete")

	if r.DryRun && rate > 0 && r.InventoryTotal > 0 {
		full := estimate(r.InventoryTotal, rate)
		r.log.Info().
			Int64("inventory", r.InventoryTotal).
			Dur("estimated_full_run", full).
			Msgf("dry-run extrapolation: a full run would take about %s", full.Round(time.Second))
	}
}

// Rate returns the observed throughput in objects per second.
func Rate(seen int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(seen) / elapsed.Seconds()
}

// Percent returns how far through the run we are.
func Percent(seen, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(seen) / float64(total)
}

func estimate(objects int64, rate float64) time.Duration {
	return time.Duration(float64(objects) / rate * float64(time.Second))
}
