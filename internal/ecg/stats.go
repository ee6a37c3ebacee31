package ecg

import "math"

// Summary holds descriptive statistics over a validated beat
// sequence. Rates are beats per second; use RateUnit.Convert for
// display.
type Summary struct {
	BeatCount   int
	MeanRate    float64 // beats per second over the whole sequence
	RMSSD       float64 // root mean square of successive interval differences
	MinInterval float64
	MaxInterval float64
}

// Summarize computes descriptive statistics from a sorted beat
// sequence. Fewer than two beats yields NaN rates and intervals.
func Summarize(beats []float64) Summary {
	s := Summary{
		BeatCount:   len(beats),
		MeanRate:    math.NaN(),
		RMSSD:       math.NaN(),
		MinInterval: math.NaN(),
		MaxInterval: math.NaN(),
	}
	if len(beats) < 2 {
		return s
	}

	span := beats[len(beats)-1] - beats[0]
	if span > 0 {
		s.MeanRate = float64(len(beats)-1) / span
	}

	ivs := make([]float64, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		ivs[i-1] = beats[i] - beats[i-1]
	}
	s.MinInterval, s.MaxInterval = ivs[0], ivs[0]
	for _, iv := range ivs {
		if iv < s.MinInterval {
			s.MinInterval = iv
		}
		if iv > s.MaxInterval {
			s.MaxInterval = iv
		}
	}

	if len(ivs) >= 2 {
		var sumSq float64
		for i := 1; i < len(ivs); i++ {
			d := ivs[i] - ivs[i-1]
			sumSq += d * d
		}
		s.RMSSD = math.Sqrt(sumSq / float64(len(ivs)-1))
	}
	return s
}
