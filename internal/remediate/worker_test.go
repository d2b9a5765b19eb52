package remediate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/dispofix/internal/progress"
	"github.com/opencivic/dispofix/internal/storage"
)

// fakeStore records copy calls and injects errors per key.
type fakeStore struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
}

func (f *fakeStore) CopyInPlace(_ context.Context, key, _, _ string) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.errs[key]; ok {
		return err
	}
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func makeRefs(n int) []BlobRef {
	refs := make([]BlobRef, n)
	for i := range refs {
		refs[i] = BlobRef{
			Key:         fmt.Sprintf("key-%03d", i),
			Filename:    fmt.Sprintf("file-%03d.pdf", i),
			ContentType: "application/pdf",
		}
	}
	return refs
}

func TestPoolOutcomeCompleteness(t *testing.T) {
	t.Parallel()

	refs := makeRefs(50)
	store := &fakeStore{errs: map[string]error{
		"key-007": fmt.Errorf("%w: gone", storage.ErrObjectNotFound),
		"key-013": errors.New("throttled"),
	}}
	stats := NewStats()
	pool := NewPool(store, stats, PoolConfig{Concurrency: 4})

	outcomes, err := pool.ProcessBatch(context.Background(), refs)
	require.NoError(t, err)

	// Exactly one outcome per object, none dropped, none double-counted.
	require.Len(t, outcomes, len(refs))
	seen := make(map[string]int)
	for _, out := range outcomes {
		seen[out.Ref.Key]++
	}
	for _, ref := range refs {
		assert.Equal(t, 1, seen[ref.Key], "key %s", ref.Key)
	}

	assert.Equal(t, int64(50), stats.Seen.Load())
	assert.Equal(t, int64(48), stats.Succeeded.Load())
	assert.Equal(t, int64(2), stats.Failed.Load())
	assert.Equal(t, stats.Seen.Load(), stats.Succeeded.Load()+stats.Failed.Load())
}

func TestPoolConcurrencyInvariance(t *testing.T) {
	t.Parallel()

	refs := makeRefs(30)
	errs := map[string]error{
		"key-004": fmt.Errorf("%w: gone", storage.ErrObjectNotFound),
		"key-021": errors.New("permission denied"),
	}

	run := func(concurrency int) map[string]OutcomeStatus {
		store := &fakeStore{errs: errs}
		pool := NewPool(store, NewStats(), PoolConfig{Concurrency: concurrency})
		outcomes, err := pool.ProcessBatch(context.Background(), refs)
		require.NoError(t, err)

		byKey := make(map[string]OutcomeStatus, len(outcomes))
		for _, out := range outcomes {
			byKey[out.Ref.Key] = out.Status
		}
		return byKey
	}

	// Order may differ, the multiset of outcomes may not.
	assert.Equal(t, run(1), run(8))
}

func TestPoolFailureClassification(t *testing.T) {
	t.Parallel()

	refs := []BlobRef{
		{Key: "a", Filename: "pic.png", ContentType: "image/png"},
		{Key: "b", Filename: "doc.pdf", ContentType: "application/pdf"},
		{Key: "c", Filename: "data.csv", ContentType: "text/csv"},
	}
	store := &fakeStore{errs: map[string]error{
		"b": fmt.Errorf("%w: NoSuchKey", storage.ErrObjectNotFound),
		"c": errors.New("access denied"),
	}}
	stats := NewStats()
	pool := NewPool(store, stats, PoolConfig{Concurrency: 2})

	outcomes, err := pool.ProcessBatch(context.Background(), refs)
	require.NoError(t, err)

	byKey := make(map[string]Outcome)
	for _, out := range outcomes {
		byKey[out.Ref.Key] = out
	}

	assert.Equal(t, StatusSuccess, byKey["a"].Status)
	assert.Equal(t, StatusNotFound, byKey["b"].Status, "vanished object is not a generic failure")
	assert.Equal(t, StatusFailed, byKey["c"].Status)

	assert.Equal(t, int64(1), stats.Succeeded.Load())
	assert.Equal(t, int64(2), stats.Failed.Load())
}

func TestPoolDryRunIssuesNoStoreCalls(t *testing.T) {
	t.Parallel()

	refs := makeRefs(5)
	store := &fakeStore{}
	stats := NewStats()
	pool := NewPool(store, stats, PoolConfig{Concurrency: 3, DryRun: true})

	outcomes, err := pool.ProcessBatch(context.Background(), refs)
	require.NoError(t, err)

	assert.Zero(t, store.callCount(), "dry run must not mutate the object store")
	require.Len(t, outcomes, 5)
	for _, out := range outcomes {
		assert.Equal(t, StatusSkipped, out.Status)
	}
	assert.Equal(t, int64(5), stats.Seen.Load())
}

func TestPoolCancelledContextStopsDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	pool := NewPool(store, NewStats(), PoolConfig{Concurrency: 2})

	outcomes, err := pool.ProcessBatch(ctx, makeRefs(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
	assert.Zero(t, store.callCount())
}

func TestPoolOutcomeSequenceNumbers(t *testing.T) {
	t.Parallel()

	// Each outcome carries the position its own Seen increment produced, so
	// under concurrency every position 1..N is observed exactly once and the
	// cadence gate cannot miss the first object.
	const total = 400

	reporter := progress.New(zerolog.Nop(), total, total, 100, false)

	var mu sync.Mutex
	seqs := make(map[int64]int)
	reported := make(map[int64]bool)

	pool := NewPool(&fakeStore{}, NewStats(), PoolConfig{
		Concurrency: 8,
		OnOutcome: func(out Outcome) {
			mu.Lock()
			seqs[out.Seq]++
			if reporter.ShouldReport(out.Seq) {
				reported[out.Seq] = true
			}
			mu.Unlock()
		},
	})

	_, err := pool.ProcessBatch(context.Background(), makeRefs(total))
	require.NoError(t, err)

	require.Len(t, seqs, total)
	for seq := int64(1); seq <= total; seq++ {
		assert.Equal(t, 1, seqs[seq], "seq %d", seq)
	}

	assert.True(t, reported[1], "the very first object must report")
	for _, seq := range []int64{100, 200, 300, 400} {
		assert.True(t, reported[seq], "cadence point %d must report", seq)
	}
	assert.Len(t, reported, 5)
}

func TestPoolPacing(t *testing.T) {
	t.Parallel()

	const (
		objects   = 6
		paceEvery = 2
		paceDelay = 20 * time.Millisecond
	)

	pool := NewPool(&fakeStore{}, NewStats(), PoolConfig{
		Concurrency: 1,
		PaceEvery:   paceEvery,
		PaceDelay:   paceDelay,
	})

	start := time.Now()
	_, err := pool.ProcessBatch(context.Background(), makeRefs(objects))
	require.NoError(t, err)

	assert.Equal(t, int64(objects), pool.completed.Load())
	// Pauses fire after completions 2, 4 and 6.
	assert.GreaterOrEqual(t, time.Since(start), 3*paceDelay)
}

func TestPoolPacingDisabled(t *testing.T) {
	t.Parallel()

	pool := NewPool(&fakeStore{}, NewStats(), PoolConfig{Concurrency: 2})

	_, err := pool.ProcessBatch(context.Background(), makeRefs(10))
	require.NoError(t, err)
	assert.Zero(t, pool.completed.Load(), "pacing counter idle when disabled")
}

func TestPoolOnOutcomeHook(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var fired int
	pool := NewPool(&fakeStore{}, NewStats(), PoolConfig{
		Concurrency: 4,
		OnOutcome: func(Outcome) {
			mu.Lock()
			fired++
			mu.Unlock()
		},
	})

	_, err := pool.ProcessBatch(context.Background(), makeRefs(12))
	require.NoError(t, err)
	assert.Equal(t, 12, fired)
}
