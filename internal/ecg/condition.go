package ecg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Condition derives the processed signal from a raw recording:
// anti-alias decimation to the largest integer-divisor rate not
// exceeding TargetRate, mean removal, optional polarity inversion,
// optional drift subtraction, optional band-pass and notch filtering.
// Deterministic; assumes parameters already validated at the
// parameter boundary.
func Condition(raw *RawSignal, p *Parameters) *Processed {
	samples := make([]float64, len(raw.Samples))
	copy(samples, raw.Samples)
	times := raw.Times
	rate := raw.Rate

	if raw.Rate > p.TargetRate {
		factor := int(math.Ceil(raw.Rate / p.TargetRate))
		rate = raw.Rate / float64(factor)
		samples = lowPass(samples, raw.Rate, rate/2)
		// Keep every factor-th sample so the output time axis is an
		// exact integer stride over the raw axis.
		n := (len(samples)-1)/factor + 1
		dec := make([]float64, n)
		dt := make([]float64, n)
		for i := 0; i < n; i++ {
			dec[i] = samples[i*factor]
			dt[i] = raw.Times[i*factor]
		}
		samples, times = dec, dt
	} else {
		// Times are shared with the raw signal only when no
		// decimation happens; samples are always a private copy.
		times = raw.Times
	}

	floats.AddConst(-stat.Mean(samples, nil), samples)

	if p.Invert {
		floats.Scale(-1, samples)
	}

	if p.DriftEnabled && p.DriftKernel > 0 {
		drift := smooth(samples, p.DriftKernel*rate)
		floats.Sub(samples, drift)
	}

	if p.BandPassOn {
		samples = bandPass(samples, rate, p.BandLow, p.BandHigh)
	}

	if p.NotchOn {
		samples = notch(samples, rate, p.NotchFreq, p.NotchWidth)
	}

	return &Processed{Samples: samples, Times: times, Rate: rate}
}
