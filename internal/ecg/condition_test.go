package ecg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareParams returns a parameter set with every optional conditioning
// stage switched off, for isolating one stage at a time.
func bareParams() Parameters {
	p := DefaultParameters(SpeciesMouse)
	p.DriftEnabled = false
	p.BandPassOn = false
	p.NotchOn = false
	p.ArtifactOn = false
	return p
}

func TestConditionDecimates(t *testing.T) {
	t.Parallel()
	const rawRate = 4000.0
	n := int(2 * rawRate)
	samples := make([]float64, n)
	times := make([]float64, n)
	for i := range samples {
		times[i] = float64(i) / rawRate
		samples[i] = math.Sin(2 * math.Pi * 5 * times[i])
	}
	raw, err := NewRawSignal(samples, times, rawRate)
	require.NoError(t, err)

	p := bareParams() // TargetRate 1000 -> factor 4
	sig := Condition(raw, &p)

	assert.InDelta(t, 1000.0, sig.Rate, 1e-9)
	assert.Equal(t, (n-1)/4+1, len(sig.Samples))
	require.Equal(t, len(sig.Samples), len(sig.Times))
	for i := 1; i < len(sig.Times); i++ {
		assert.InDelta(t, 1/1000.0, sig.Times[i]-sig.Times[i-1], 1e-9)
	}
}

func TestConditionNoDecimationBelowTarget(t *testing.T) {
	t.Parallel()
	const rate = 500.0
	samples, times := sineSignal(int(rate), rate)
	raw, err := NewRawSignal(samples, times, rate)
	require.NoError(t, err)

	p := bareParams()
	sig := Condition(raw, &p)
	assert.InDelta(t, rate, sig.Rate, 1e-9)
	assert.Equal(t, len(samples), len(sig.Samples))
}

func TestConditionRemovesMean(t *testing.T) {
	t.Parallel()
	const rate = 500.0
	samples, times := sineSignal(1000, rate)
	for i := range samples {
		samples[i] += 2.5
	}
	raw, err := NewRawSignal(samples, times, rate)
	require.NoError(t, err)

	p := bareParams()
	sig := Condition(raw, &p)

	var mean float64
	for _, v := range sig.Samples {
		mean += v
	}
	mean /= float64(len(sig.Samples))
	assert.InDelta(t, 0, mean, 1e-9)
}

func TestConditionInvert(t *testing.T) {
	t.Parallel()
	const rate = 500.0
	samples := make([]float64, 1000)
	times := make([]float64, 1000)
	for i := range samples {
		times[i] = float64(i) / rate
		samples[i] = math.Sin(2 * math.Pi * 3 * times[i])
	}
	raw, err := NewRawSignal(samples, times, rate)
	require.NoError(t, err)

	p := bareParams()
	plain := Condition(raw, &p)
	p.Invert = true
	flipped := Condition(raw, &p)

	require.Equal(t, len(plain.Samples), len(flipped.Samples))
	for i := range plain.Samples {
		assert.InDelta(t, -plain.Samples[i], flipped.Samples[i], 1e-12)
	}
}

func TestConditionDriftRemoval(t *testing.T) {
	t.Parallel()
	const rate = 200.0
	n := int(20 * rate)
	samples := make([]float64, n)
	times := make([]float64, n)
	for i := range samples {
		times[i] = float64(i) / rate
		// Very slow wander the drift stage should absorb.
		samples[i] = 5 * math.Sin(2*math.Pi*0.05*times[i])
	}
	raw, err := NewRawSignal(samples, times, rate)
	require.NoError(t, err)

	p := bareParams()
	p.DriftEnabled = true
	p.DriftKernel = 0.5
	sig := Condition(raw, &p)

	// Away from the edges the 5-unit wander should be almost gone.
	for i := n / 4; i < 3*n/4; i++ {
		assert.Less(t, math.Abs(sig.Samples[i]), 0.4, "index %d", i)
	}
}

func TestConditionDoesNotMutateRaw(t *testing.T) {
	t.Parallel()
	const rate = 500.0
	samples, times := sineSignal(1000, rate)
	orig := append([]float64(nil), samples...)
	raw, err := NewRawSignal(samples, times, rate)
	require.NoError(t, err)

	p := bareParams()
	p.Invert = true
	_ = Condition(raw, &p)
	assert.Equal(t, orig, raw.Samples)
}

func sineSignal(n int, rate float64) ([]float64, []float64) {
	samples := make([]float64, n)
	times := make([]float64, n)
	for i := range samples {
		times[i] = float64(i) / rate
		samples[i] = math.Sin(2 * math.Pi * float64(i) / float64(n) * 4)
	}
	return samples, times
}
