package ecg

import (
	"errors"
	"fmt"
	"math"
)

// Errors surfaced at the package boundary. Callers are expected to
// check them with errors.Is and correct parameters before retrying.
var (
	// ErrNoCandidatesDetected means the detection threshold rejected
	// every local maximum, even after the one-shot automatic
	// relaxation. The threshold must be adjusted by the caller.
	ErrNoCandidatesDetected = errors.New("no beat candidates detected")

	// ErrAmbiguousSamplingRate means the timestamp array implies more
	// than one sampling rate within a single recording. Fatal for the
	// recording.
	ErrAmbiguousSamplingRate = errors.New("ambiguous sampling rate")

	// ErrInvalidFilterBand means the band-pass cutoffs are not
	// satisfiable (low >= high, or high >= Nyquist). Rejected at the
	// parameter boundary; prior valid values are retained.
	ErrInvalidFilterBand = errors.New("invalid filter band")
)

// rateJitterTolerance is the maximum relative deviation of an
// inter-sample spacing from the declared sampling period before the
// recording is considered to carry multiple rates.
const rateJitterTolerance = 0.01

// RawSignal is a complete in-memory recording: one amplitude sample
// per timestamp at a fixed sampling rate. Immutable once constructed.
type RawSignal struct {
	Samples []float64
	Times   []float64 // seconds, strictly increasing
	Rate    float64   // Hz
}

// NewRawSignal validates and wraps a recording supplied by a
// file-adapter collaborator. The timestamp array must be strictly
// increasing and consistent with the declared rate throughout;
// recordings stitched together from segments with different rates are
// rejected with ErrAmbiguousSamplingRate.
func NewRawSignal(samples, times []float64, rate float64) (*RawSignal, error) {
	if len(samples) != len(times) {
		return nil, fmt.Errorf("sample count %d does not match timestamp count %d", len(samples), len(times))
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("recording too short: %d samples", len(samples))
	}
	if rate <= 0 {
		return nil, fmt.Errorf("non-positive sampling rate %v", rate)
	}
	period := 1 / rate
	for i := 1; i < len(times); i++ {
		dt := times[i] - times[i-1]
		if dt <= 0 {
			return nil, fmt.Errorf("timestamps not strictly increasing at index %d", i)
		}
		if math.Abs(dt-period) > rateJitterTolerance*period {
			return nil, fmt.Errorf("%w: spacing %.6gs at index %d, declared period %.6gs",
				ErrAmbiguousSamplingRate, dt, i, period)
		}
	}
	return &RawSignal{Samples: samples, Times: times, Rate: rate}, nil
}

// Duration returns the recording length in seconds.
func (r *RawSignal) Duration() float64 {
	return r.Times[len(r.Times)-1] - r.Times[0]
}

// Processed is the conditioned signal the detection stages operate
// on. Samples inside artifact windows are NaN, which propagates as a
// gap through every downstream computation. Recomputed in full
// whenever conditioning parameters or the source recording change.
type Processed struct {
	Samples []float64
	Times   []float64
	Rate    float64
}

// indexOf returns the sample index nearest to time t, clamped to the
// signal bounds.
func (s *Processed) indexOf(t float64) int {
	i := int(math.Round((t - s.Times[0]) * s.Rate))
	if i < 0 {
		return 0
	}
	if i >= len(s.Samples) {
		return len(s.Samples) - 1
	}
	return i
}

// Window is a half-open time interval [Start, End) in seconds. Both
// artifact and exclusion windows use this representation.
type Window struct {
	Start float64
	End   float64
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t float64) bool {
	return t >= w.Start && t < w.End
}

// Overlaps reports whether two half-open windows intersect.
func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// inAnyWindow reports whether t falls inside any of the windows.
// The windows need not be sorted.
func inAnyWindow(windows []Window, t float64) bool {
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Candidate is one automatically detected beat candidate: a local
// maximum of the power-transformed signal above the detection
// threshold.
type Candidate struct {
	Index  int     // sample index into the processed signal
	Time   float64 // seconds
	Height float64 // detection-signal height at the maximum
}
