package ecg

import "math"

// RateUnit selects the display unit for heart-rate values. Stored
// rates are always beats per second; conversion is a pure display
// transform and never alters stored values.
type RateUnit int

const (
	BeatsPerSecond RateUnit = iota
	BeatsPerMinute
)

// Convert maps a stored rate (Hz) into the unit.
func (u RateUnit) Convert(hz float64) float64 {
	if u == BeatsPerMinute {
		return hz * 60
	}
	return hz
}

func (u RateUnit) String() string {
	if u == BeatsPerMinute {
		return "bpm"
	}
	return "bps"
}

// RateSample is one point of the instantaneous heart-rate trace.
// Rate is NaN where an artifact or exclusion window makes the value
// meaningless.
type RateSample struct {
	Time float64
	Rate float64 // beats per second
}

// EstimateRate computes the instantaneous rate at each validated beat
// as the reciprocal of the mean inter-beat interval over a trailing
// window of RateWindow seconds. A sample whose window start falls
// inside a masked window — extended forward by one window size to
// absorb the discontinuity — is NaN rather than interpolated, so no
// rate is ever fabricated through a gap.
func EstimateRate(beats []float64, masked []Window, p *Parameters) []RateSample {
	if len(beats) == 0 {
		return nil
	}
	w := p.RateWindow
	extended := make([]Window, len(masked))
	for i, m := range masked {
		extended[i] = Window{Start: m.Start, End: m.End + w}
	}

	out := make([]RateSample, len(beats))
	for i, t := range beats {
		out[i] = RateSample{Time: t, Rate: math.NaN()}
		start := t - w
		if inAnyWindow(extended, start) {
			continue
		}
		// Mean spacing over the intervals fully inside the window.
		var sum float64
		var n int
		for j := i; j >= 1; j-- {
			if beats[j-1] < start {
				break
			}
			sum += beats[j] - beats[j-1]
			n++
		}
		if n == 0 {
			continue
		}
		out[i].Rate = float64(n) / sum
	}
	return out
}
