package ecg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainAndCandidates runs detection over a clean synthetic train and
// returns the signal plus its candidates.
func trainAndCandidates(t *testing.T, duration float64, p *Parameters) (*Processed, []Candidate) {
	t.Helper()
	const rate = 1000.0
	samples, _ := synthTrain(duration, 0.2, rate, 0, 1)
	sig := testProcessed(samples, rate)
	cands, err := DetectCandidates(sig, p)
	require.NoError(t, err)
	return sig, cands
}

func TestBuildTemplateShape(t *testing.T) {
	t.Parallel()
	p := detectParams()
	sig, cands := trainAndCandidates(t, 10, &p)

	tmpl := BuildTemplate(sig, cands, &p)

	lo, hi := waveformBounds(&p, sig.Rate)
	require.Len(t, tmpl.Shape, hi-lo+1)

	// Standardized pulse: peak near the window center, clearly above
	// the baseline.
	center := -lo
	assert.InDelta(t, float64(center), float64(tmpl.RefPeak), 3)
	assert.Greater(t, tmpl.Shape[tmpl.RefPeak], 2.0)
	assert.Less(t, tmpl.Shape[0], 0.5)
	assert.Less(t, tmpl.Shape[len(tmpl.Shape)-1], 0.5)

	// Radius fits inside the window.
	assert.Greater(t, tmpl.SearchRadius, 0)
	assert.GreaterOrEqual(t, tmpl.RefPeak-tmpl.SearchRadius, 0)
	assert.Less(t, tmpl.RefPeak+tmpl.SearchRadius, len(tmpl.Shape))
}

func TestBuildTemplateFallsBackOnUniformHeights(t *testing.T) {
	t.Parallel()
	p := detectParams()
	sig, cands := trainAndCandidates(t, 2, &p)

	// Identical pulse heights leave the strict percentile band empty;
	// the fallback must still produce a usable template.
	tmpl := BuildTemplate(sig, cands, &p)
	require.NotEmpty(t, tmpl.Shape)
	assert.False(t, hasNaN(tmpl.Shape))
}

func TestBuildTemplateSkipsMaskedWaveforms(t *testing.T) {
	t.Parallel()
	p := detectParams()
	const rate = 1000.0
	samples, _ := synthTrain(10, 0.2, rate, 0, 1)
	sig := testProcessed(samples, rate)
	cands, err := DetectCandidates(sig, &p)
	require.NoError(t, err)

	// Mask a stretch after detection: mid-band candidates whose
	// windows touch it must be skipped, not poison the median.
	for i := 3000; i < 3500; i++ {
		sig.Samples[i] = math.NaN()
	}

	tmpl := BuildTemplate(sig, cands, &p)
	assert.False(t, hasNaN(tmpl.Shape))
}

func TestWaveformBounds(t *testing.T) {
	t.Parallel()
	p := DefaultParameters(SpeciesMouse)
	lo, hi := waveformBounds(&p, 1000)
	assert.Equal(t, -25, lo)
	assert.Equal(t, 25, hi)
}

func TestArgmax(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2, argmax([]float64{1, 2, 5, 3}))
	assert.Equal(t, 1, argmax([]float64{math.NaN(), 2, 1}))
	assert.Equal(t, 0, argmax([]float64{3, 3, 1}), "ties go to the earliest index")
}
