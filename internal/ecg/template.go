package ecg

import "math"

// Template percentile band: candidates below the 70th height
// percentile tend to be noise, candidates above the 90th tend to be
// fused double detections. The band between yields clean single
// beats.
const (
	templateBandLow  = 70.0
	templateBandHigh = 90.0
)

// Template is the representative standardized waveform one heartbeat
// is expected to look like. Read-only during refinement; recomputed
// whenever detection parameters or the recording change.
type Template struct {
	Shape        []float64 // standardized, length = waveform window
	RefPeak      int       // sample offset of the template's own maximum
	SearchRadius int       // samples; peak search sub-window half-width
}

// waveformBounds returns the waveform window as sample offsets
// relative to a candidate index. lo is negative.
func waveformBounds(p *Parameters, rate float64) (lo, hi int) {
	lo = int(math.Round(p.WindowLow * rate))
	hi = int(math.Round(p.WindowHigh * rate))
	return lo, hi
}

// BuildTemplate forms the waveform template from candidates whose
// detection height falls strictly between the 70th and 90th
// percentile of all candidate heights, standardizing each fixed
// window and taking the per-sample median. Falls back to the full
// candidate set when the band is empty (very short or very uniform
// recordings).
func BuildTemplate(sig *Processed, cands []Candidate, p *Parameters) *Template {
	heights := make([]float64, len(cands))
	for i, c := range cands {
		heights[i] = c.Height
	}
	bandLo := percentile(heights, templateBandLow)
	bandHi := percentile(heights, templateBandHigh)

	selected := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Height > bandLo && c.Height < bandHi {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		selected = cands
	}

	lo, hi := waveformBounds(p, sig.Rate)
	width := hi - lo + 1

	waveforms := make([][]float64, 0, len(selected))
	for _, c := range selected {
		w := extractWindow(sig, c.Index, lo, hi)
		if hasNaN(w) {
			continue
		}
		waveforms = append(waveforms, standardize(w))
	}
	if len(waveforms) == 0 {
		// Every mid-band candidate touched a masked gap; standardize
		// whatever is available rather than fail.
		for _, c := range selected {
			waveforms = append(waveforms, standardize(extractWindow(sig, c.Index, lo, hi)))
		}
	}

	shape := make([]float64, width)
	column := make([]float64, len(waveforms))
	for j := 0; j < width; j++ {
		for i, w := range waveforms {
			column[i] = w[j]
		}
		shape[j] = median(column)
	}

	refPeak := argmax(shape)
	radius := int(math.Round(p.PeakSearchRadius * sig.Rate))
	for radius > 0 && (refPeak-radius < 0 || refPeak+radius >= width) {
		radius--
	}

	return &Template{Shape: shape, RefPeak: refPeak, SearchRadius: radius}
}

// extractWindow cuts samples [idx+lo, idx+hi] from the signal. The
// caller guarantees the window is in range (boundary candidates are
// dropped at detection).
func extractWindow(sig *Processed, idx, lo, hi int) []float64 {
	out := make([]float64, hi-lo+1)
	copy(out, sig.Samples[idx+lo:idx+hi+1])
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// argmax returns the index of the largest finite sample; ties go to
// the earliest index.
func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(x[best]) || v > x[best] {
			best = i
		}
	}
	return best
}
