package ecg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawSignalValidation(t *testing.T) {
	t.Parallel()
	samples := []float64{1, 2, 3, 4}
	times := []float64{0, 0.001, 0.002, 0.003}

	raw, err := NewRawSignal(samples, times, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.003, raw.Duration(), 1e-12)

	_, err = NewRawSignal(samples[:3], times, 1000)
	assert.Error(t, err, "length mismatch")

	_, err = NewRawSignal(samples[:1], times[:1], 1000)
	assert.Error(t, err, "too short")

	_, err = NewRawSignal(samples, times, 0)
	assert.Error(t, err, "non-positive rate")

	_, err = NewRawSignal(samples, []float64{0, 0.002, 0.001, 0.003}, 1000)
	assert.Error(t, err, "non-monotonic timestamps")
}

func TestNewRawSignalAmbiguousRate(t *testing.T) {
	t.Parallel()
	// Two stitched segments at different rates.
	times := []float64{0, 0.001, 0.002, 0.004, 0.006}
	_, err := NewRawSignal(make([]float64, 5), times, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousSamplingRate)
}

func TestWindowContainsHalfOpen(t *testing.T) {
	t.Parallel()
	w := Window{Start: 1, End: 2}
	assert.True(t, w.Contains(1))
	assert.True(t, w.Contains(1.999))
	assert.False(t, w.Contains(2))
	assert.False(t, w.Contains(0.999))
	assert.InDelta(t, 1.0, w.Duration(), 1e-12)
}

func TestWindowOverlaps(t *testing.T) {
	t.Parallel()
	a := Window{Start: 1, End: 2}
	assert.True(t, a.Overlaps(Window{Start: 1.5, End: 3}))
	assert.True(t, a.Overlaps(Window{Start: 0, End: 5}))
	// Touching half-open windows do not intersect.
	assert.False(t, a.Overlaps(Window{Start: 2, End: 3}))
	assert.False(t, a.Overlaps(Window{Start: 0, End: 1}))
}

func TestProcessedIndexOf(t *testing.T) {
	t.Parallel()
	sig := testProcessed(make([]float64, 100), 1000)
	assert.Equal(t, 0, sig.indexOf(-1))
	assert.Equal(t, 50, sig.indexOf(0.05))
	assert.Equal(t, 99, sig.indexOf(10))
}
