package ecg

import (
	"math"

	"github.com/cardiodata/heartline/internal/monitoring"
)

// Artifact detection constants. The percentile/safety-factor pair is
// deliberately conservative: only bursts far above the beat energy
// envelope are masked.
const (
	artifactPercentile = 92.0
	artifactSafety     = 20.0
	artifactMergeGap   = 0.200 // seconds between runs that merge
	artifactPad        = 0.050 // seconds of padding each side
)

// DetectArtifacts flags high-energy contiguous stretches of the
// processed signal as corrupted and masks them to NaN in place. The
// returned windows are half-open time intervals, sorted and disjoint.
// Disabled detection returns nil and leaves the signal untouched.
func DetectArtifacts(sig *Processed, p *Parameters) []Window {
	if !p.ArtifactOn {
		return nil
	}

	elev := powerElevate(sig.Samples, p.ArtifactPower)
	elev = smooth(elev, p.ArtifactSmoothing*sig.Rate)
	squareInPlace(elev)

	peaks := localMaxima(elev)
	if len(peaks) == 0 {
		return nil
	}
	heights := make([]float64, len(peaks))
	for i, idx := range peaks {
		heights[i] = elev[idx]
	}
	threshold := percentile(heights, artifactPercentile) * artifactSafety

	windows := aboveThresholdRuns(elev, sig, threshold)
	if len(windows) == 0 {
		return nil
	}
	windows = mergeCloseWindows(windows, artifactMergeGap)
	windows = padAndClamp(windows, sig)

	maskWindows(sig, windows)
	monitoring.Debugf("ecg: masked %d artifact window(s)", len(windows))
	return windows
}

// aboveThresholdRuns converts contiguous runs of samples exceeding
// the threshold into time windows.
func aboveThresholdRuns(elev []float64, sig *Processed, threshold float64) []Window {
	var windows []Window
	runStart := -1
	for i, v := range elev {
		if v > threshold {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			windows = append(windows, Window{Start: sig.Times[runStart], End: sig.Times[i]})
			runStart = -1
		}
	}
	if runStart >= 0 {
		windows = append(windows, Window{
			Start: sig.Times[runStart],
			End:   sig.Times[len(sig.Times)-1] + 1/sig.Rate,
		})
	}
	return windows
}

// mergeCloseWindows merges sorted windows separated by less than gap
// seconds.
func mergeCloseWindows(windows []Window, gap float64) []Window {
	if len(windows) < 2 {
		return windows
	}
	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.Start-last.End < gap {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// padAndClamp extends each window by the artifact padding on both
// sides, clamps to the signal bounds, and re-merges anything the
// padding caused to touch.
func padAndClamp(windows []Window, sig *Processed) []Window {
	lo := sig.Times[0]
	hi := sig.Times[len(sig.Times)-1] + 1/sig.Rate
	padded := make([]Window, 0, len(windows))
	for _, w := range windows {
		w.Start = math.Max(w.Start-artifactPad, lo)
		w.End = math.Min(w.End+artifactPad, hi)
		padded = append(padded, w)
	}
	return mergeCloseWindows(padded, 0)
}

// maskWindows sets every sample inside the windows to NaN.
func maskWindows(sig *Processed, windows []Window) {
	for _, w := range windows {
		for i := sig.indexOf(w.Start); i < len(sig.Samples); i++ {
			t := sig.Times[i]
			if t >= w.End {
				break
			}
			if t >= w.Start {
				sig.Samples[i] = math.NaN()
			}
		}
	}
}
