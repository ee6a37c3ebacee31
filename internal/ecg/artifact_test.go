package ecg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifactParams() Parameters {
	p := DefaultParameters(SpeciesMouse)
	// Narrow smoothing keeps individual beat maxima distinct so the
	// percentile threshold lands on the beat energy envelope.
	p.ArtifactSmoothing = 0.01
	return p
}

func TestDetectArtifactsMasksBurst(t *testing.T) {
	t.Parallel()
	const rate = 1000.0
	samples, _ := synthTrain(30, 0.2, rate, 0, 1)
	// High-amplitude chewing-style burst around t=15.
	for i := range samples {
		ts := float64(i) / rate
		if ts >= 14.8 && ts < 15.2 {
			samples[i] += 40 * math.Sin(2*math.Pi*30*ts)
		}
	}
	sig := testProcessed(samples, rate)
	p := artifactParams()

	windows := DetectArtifacts(sig, &p)

	require.NotEmpty(t, windows)
	covered := false
	for _, w := range windows {
		assert.Less(t, w.Start, w.End)
		assert.Greater(t, w.Start, 14.0, "window should not reach clean signal")
		assert.Less(t, w.End, 16.0, "window should not reach clean signal")
		if w.Contains(15.0) {
			covered = true
		}
	}
	assert.True(t, covered, "burst center must be inside an artifact window")
	for i := 1; i < len(windows); i++ {
		assert.GreaterOrEqual(t, windows[i].Start, windows[i-1].End, "windows must be sorted and disjoint")
	}

	// Masked to NaN inside, untouched outside.
	assert.True(t, math.IsNaN(sig.Samples[sig.indexOf(15.0)]))
	assert.False(t, math.IsNaN(sig.Samples[sig.indexOf(10.0)]))
	assert.False(t, math.IsNaN(sig.Samples[sig.indexOf(20.0)]))
}

func TestDetectArtifactsCleanSignal(t *testing.T) {
	t.Parallel()
	const rate = 1000.0
	samples, _ := synthTrain(30, 0.2, rate, 0, 1)
	sig := testProcessed(samples, rate)
	p := artifactParams()

	windows := DetectArtifacts(sig, &p)

	assert.Empty(t, windows)
	for i, v := range sig.Samples {
		require.False(t, math.IsNaN(v), "sample %d masked on a clean signal", i)
	}
}

func TestDetectArtifactsDisabled(t *testing.T) {
	t.Parallel()
	const rate = 1000.0
	samples, _ := synthTrain(5, 0.2, rate, 0, 1)
	for i := 2000; i < 2200; i++ {
		samples[i] += 50
	}
	sig := testProcessed(samples, rate)
	p := artifactParams()
	p.ArtifactOn = false

	assert.Nil(t, DetectArtifacts(sig, &p))
	for _, v := range sig.Samples {
		require.False(t, math.IsNaN(v))
	}
}

func TestMergeCloseWindows(t *testing.T) {
	t.Parallel()
	in := []Window{{0, 1}, {1.1, 2}, {3, 4}}
	got := mergeCloseWindows(append([]Window(nil), in...), 0.2)
	require.Equal(t, []Window{{0, 2}, {3, 4}}, got)

	// Contained window must not shrink the merged end.
	in = []Window{{0, 5}, {1, 2}}
	got = mergeCloseWindows(append([]Window(nil), in...), 0.2)
	require.Equal(t, []Window{{0, 5}}, got)
}
