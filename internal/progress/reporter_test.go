package progress

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestShouldReport(t *testing.T) {
	t.Parallel()

	r := New(zerolog.Nop(), 1000, 1000, 100, false)

	assert.True(t, r.ShouldReport(1), "the first object always reports")
	assert.False(t, r.ShouldReport(2))
	assert.False(t, r.ShouldReport(99))
	assert.True(t, r.ShouldReport(100))
	assert.True(t, r.ShouldReport(500))
	assert.True(t, r.ShouldReport(1000), "the last object always reports")
	assert.False(t, r.ShouldReport(0))
}

func TestShouldReportEveryObjectInDryRun(t *testing.T) {
	t.Parallel()

	r := New(zerolog.Nop(), 5, 100000, 1, true)

	for seen := int64(1); seen <= 5; seen++ {
		assert.True(t, r.ShouldReport(seen))
	}
}

func TestRate(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, Rate(500, 10*time.Second), 0.001)
	assert.Zero(t, Rate(500, 0), "no elapsed time, no rate")
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 25.0, Percent(250, 1000), 0.001)
	assert.Zero(t, Percent(5, 0), "unknown total reports no percentage")
}

func TestEstimateScalesSampleRateToInventory(t *testing.T) {
	t.Parallel()

	// 5 objects in 10s is 0.5 obj/s; 100k objects at that rate is 200000s.
	rate := Rate(5, 10*time.Second)
	assert.Equal(t, 200000*time.Second, estimate(100000, rate))
}
