package ecg

import (
	"math"
	"sort"
)

// Exclusion window management. The annotation UI stays a thin caller:
// every operation here is a pure function from old state to new
// state.

// ApplyExclusion inserts w into the exclusion set, merging any
// overlap with existing windows, then trims and splits the result
// against the artifact windows so no exclusion covers a stretch an
// artifact already masks. The returned set is sorted by start time
// and disjoint. Inputs are not modified.
func ApplyExclusion(windows []Window, w Window, artifacts []Window) []Window {
	if w.End <= w.Start {
		return normalizeWindows(windows, artifacts)
	}
	merged := make([]Window, len(windows), len(windows)+1)
	copy(merged, windows)
	merged = append(merged, w)
	return normalizeWindows(merged, artifacts)
}

// RemoveExclusion deletes every exclusion window overlapping w.
// Artifact windows are unaffected; they are never user-removable.
func RemoveExclusion(windows []Window, w Window) []Window {
	out := make([]Window, 0, len(windows))
	for _, x := range windows {
		if !x.Overlaps(w) {
			out = append(out, x)
		}
	}
	return out
}

// normalizeWindows sorts, merges overlapping and touching windows,
// and subtracts the artifact windows.
func normalizeWindows(windows, artifacts []Window) []Window {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := sorted[:1]
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}

	var out []Window
	for _, w := range merged {
		out = append(out, subtractWindows(w, artifacts)...)
	}
	return out
}

// subtractWindows removes every artifact interval from w, possibly
// splitting it. Artifacts take precedence: a window fully inside an
// artifact disappears entirely.
func subtractWindows(w Window, artifacts []Window) []Window {
	pieces := []Window{w}
	for _, a := range artifacts {
		var next []Window
		for _, p := range pieces {
			if !p.Overlaps(a) {
				next = append(next, p)
				continue
			}
			if p.Start < a.Start {
				next = append(next, Window{Start: p.Start, End: a.Start})
			}
			if p.End > a.End {
				next = append(next, Window{Start: a.End, End: p.End})
			}
		}
		pieces = next
	}
	return pieces
}

// ToggleBeat adds or removes a beat at a clicked time: if an existing
// beat lies within tolerance of t, the nearest one is removed,
// otherwise a beat at t is inserted. The input is not modified; the
// result stays sorted and unique.
func ToggleBeat(beats []float64, t, tolerance float64) []float64 {
	nearest := -1
	for i, b := range beats {
		if math.Abs(b-t) > tolerance {
			continue
		}
		if nearest < 0 || math.Abs(b-t) < math.Abs(beats[nearest]-t) {
			nearest = i
		}
	}
	if nearest >= 0 {
		out := make([]float64, 0, len(beats)-1)
		out = append(out, beats[:nearest]...)
		return append(out, beats[nearest+1:]...)
	}
	i := sort.SearchFloat64s(beats, t)
	if i < len(beats) && beats[i] == t {
		return append([]float64(nil), beats...)
	}
	out := make([]float64, 0, len(beats)+1)
	out = append(out, beats[:i]...)
	out = append(out, t)
	return append(out, beats[i:]...)
}
