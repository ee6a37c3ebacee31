package ecg

import (
	"fmt"

	"github.com/cardiodata/heartline/internal/monitoring"
)

// relaxPercentile is the fallback detection threshold: a low
// percentile of observed maxima heights. Best-effort recovery so the
// first pass over a new recording yields something usable; not a
// substitute for a properly tuned threshold.
const relaxPercentile = 5.0

// DetectCandidates produces the first beat-candidate set: local
// maxima of the power-transformed, smoothed, squared signal whose
// height exceeds the detection threshold. Candidates too close to a
// signal boundary to supply a full waveform are dropped. If nothing
// survives the configured threshold, it is relaxed once to
// relaxPercentile of the observed maxima heights; a still-empty
// result returns ErrNoCandidatesDetected rather than an empty set.
func DetectCandidates(sig *Processed, p *Parameters) ([]Candidate, error) {
	det := powerElevate(sig.Samples, p.DetectionPower)
	det = smooth(det, p.DetectionSmoothing*sig.Rate)
	squareInPlace(det)

	maxima := localMaxima(det)
	half := p.halfWindowSamples(sig.Rate)

	pick := func(threshold float64) []Candidate {
		var cands []Candidate
		for _, idx := range maxima {
			if det[idx] < threshold {
				continue
			}
			if idx < half || idx >= len(det)-half {
				continue
			}
			cands = append(cands, Candidate{Index: idx, Time: sig.Times[idx], Height: det[idx]})
		}
		return cands
	}

	cands := pick(p.DetectionThreshold)
	if len(cands) == 0 {
		heights := make([]float64, len(maxima))
		for i, idx := range maxima {
			heights[i] = det[idx]
		}
		relaxed := percentile(heights, relaxPercentile)
		monitoring.Logf("ecg: no candidates above threshold %.4g, retrying at %.4g", p.DetectionThreshold, relaxed)
		cands = pick(relaxed)
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("detection: %w", ErrNoCandidatesDetected)
	}
	monitoring.Debugf("ecg: %d beat candidates", len(cands))
	return cands, nil
}
