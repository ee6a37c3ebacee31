package ecg

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Extraction holds the per-candidate waveform data. All slices are
// index-aligned with Candidates; a candidate dropped here (peak
// sub-window entirely inside an artifact gap) is dropped from every
// slice consistently.
type Extraction struct {
	Candidates []Candidate
	Waveforms  [][]float64 // standardized, fixed length
	Scores     []float64   // normalized template similarity in [0, 1]
	PeakTimes  []float64   // precise per-candidate peak time
	PeakValues []float64   // signal value at the precise peak
	MaxCorr    float64     // global maximum raw correlation
}

// ExtractWaveforms cuts the fixed waveform window around every
// candidate, locates the precise peak sample inside the sub-window
// centered on the template's reference peak offset, and scores each
// standardized waveform against the template. Raw correlations are
// normalized by the global maximum so scores land in [0, 1].
//
// Peak ties are broken by minimal distance to the reference offset,
// and on an exact distance tie by the earlier sample: a pure function
// of the inputs, never scan order luck.
func ExtractWaveforms(sig *Processed, cands []Candidate, tmpl *Template, p *Parameters) *Extraction {
	lo, hi := waveformBounds(p, sig.Rate)

	ext := &Extraction{
		Candidates: make([]Candidate, 0, len(cands)),
		Waveforms:  make([][]float64, 0, len(cands)),
		PeakTimes:  make([]float64, 0, len(cands)),
		PeakValues: make([]float64, 0, len(cands)),
	}
	raw := make([]float64, 0, len(cands))

	for _, c := range cands {
		w := extractWindow(sig, c.Index, lo, hi)

		peak := precisePeak(w, tmpl.RefPeak, tmpl.SearchRadius)
		if peak < 0 {
			// Sub-window is all gap; this candidate cannot anchor a
			// beat and is dropped everywhere.
			continue
		}

		sw := standardize(w)
		corr := floats.Dot(sw, tmpl.Shape) / float64(len(sw))

		ext.Candidates = append(ext.Candidates, c)
		ext.Waveforms = append(ext.Waveforms, sw)
		ext.PeakTimes = append(ext.PeakTimes, sig.Times[c.Index+lo+peak])
		ext.PeakValues = append(ext.PeakValues, w[peak])
		raw = append(raw, corr)
	}

	ext.Scores = make([]float64, len(raw))
	for _, r := range raw {
		if r > ext.MaxCorr {
			ext.MaxCorr = r
		}
	}
	if ext.MaxCorr > 0 {
		for i, r := range raw {
			s := r / ext.MaxCorr
			if s < 0 {
				s = 0
			}
			ext.Scores[i] = s
		}
	}
	return ext
}

// precisePeak returns the offset of the maximum sample within
// [refPeak-radius, refPeak+radius] of the waveform, or -1 when every
// sample in the sub-window is NaN. Ties resolve to the sample nearest
// refPeak, then to the earlier sample.
func precisePeak(w []float64, refPeak, radius int) int {
	best := -1
	for j := refPeak - radius; j <= refPeak+radius; j++ {
		if j < 0 || j >= len(w) || math.IsNaN(w[j]) {
			continue
		}
		if best < 0 {
			best = j
			continue
		}
		switch {
		case w[j] > w[best]:
			best = j
		case w[j] == w[best] && abs(j-refPeak) < abs(best-refPeak):
			best = j
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
