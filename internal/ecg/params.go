package ecg

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// Species selects the default parameter set. Rhythm bounds, waveform
// window sizes, and smoothing widths all scale with the species'
// typical heart rate.
type Species int

const (
	SpeciesMouse Species = iota
	SpeciesRat
	SpeciesHuman
)

func (s Species) String() string {
	switch s {
	case SpeciesMouse:
		return "mouse"
	case SpeciesRat:
		return "rat"
	case SpeciesHuman:
		return "human"
	}
	return fmt.Sprintf("species(%d)", int(s))
}

// Parameters is the active configuration set for one analysis
// session. Each field belongs to exactly one invalidation class:
// conditioning, detection, or refinement/rate. The per-class hashes
// drive the recompute cache, so an edit to a refinement parameter
// never re-runs filtering or detection.
type Parameters struct {
	// Conditioning
	TargetRate   float64 // Hz; recordings above this are decimated
	Invert       bool    // flip polarity before detection
	DriftEnabled bool
	DriftKernel  float64 // seconds; smoothing width for drift estimate
	BandPassOn   bool
	BandLow      float64 // Hz
	BandHigh     float64 // Hz
	NotchOn      bool
	NotchFreq    float64 // Hz, mains frequency
	NotchWidth   float64 // Hz, half-width of the stop band

	// Artifact detection (part of the conditioning class: masking
	// rewrites the conditioned signal)
	ArtifactOn        bool
	ArtifactPower     float64
	ArtifactSmoothing float64 // seconds, wide kernel

	// Detection
	DetectionPower     float64
	DetectionSmoothing float64 // seconds, moderate kernel
	DetectionThreshold float64
	WindowLow          float64 // seconds relative to a candidate, negative
	WindowHigh         float64 // seconds relative to a candidate
	PeakSearchRadius   float64 // seconds; sub-window around the reference peak

	// Refinement and rate
	SuspiciousFreqLow  float64 // Hz; slowest plausible rate
	SuspiciousFreqHigh float64 // Hz; fastest plausible rate
	OutlierTolerance   float64 // seconds; interval outlier rejection
	StabilityTolerance float64 // samples; seed interval stability bound
	Passes             int     // forward+backward refinement cycles
	Discontinuity      float64 // seconds; gaps beyond this split segments
	RateWindow         float64 // seconds; trailing rate window
}

// DefaultParameters returns the species preset. Frequency bounds
// bracket the physiological heart-rate range with some margin.
func DefaultParameters(s Species) Parameters {
	switch s {
	case SpeciesRat:
		return Parameters{
			TargetRate:   1000,
			DriftEnabled: true, DriftKernel: 0.5,
			BandPassOn: true, BandLow: 3, BandHigh: 200,
			NotchFreq: 50, NotchWidth: 2,
			ArtifactOn: true, ArtifactPower: 4, ArtifactSmoothing: 0.2,
			DetectionPower: 2, DetectionSmoothing: 0.012, DetectionThreshold: 0.5,
			WindowLow: -0.035, WindowHigh: 0.035, PeakSearchRadius: 0.007,
			SuspiciousFreqLow: 3, SuspiciousFreqHigh: 10,
			OutlierTolerance: 0.06, StabilityTolerance: 30,
			Passes: 2, Discontinuity: 0.8, RateWindow: 1.5,
		}
	case SpeciesHuman:
		return Parameters{
			TargetRate:   500,
			DriftEnabled: true, DriftKernel: 1.0,
			BandPassOn: true, BandLow: 0.5, BandHigh: 45,
			NotchFreq: 50, NotchWidth: 2,
			ArtifactOn: true, ArtifactPower: 4, ArtifactSmoothing: 0.5,
			DetectionPower: 2, DetectionSmoothing: 0.03, DetectionThreshold: 0.5,
			WindowLow: -0.2, WindowHigh: 0.2, PeakSearchRadius: 0.05,
			SuspiciousFreqLow: 0.6, SuspiciousFreqHigh: 3.5,
			OutlierTolerance: 0.15, StabilityTolerance: 40,
			Passes: 2, Discontinuity: 2.5, RateWindow: 5,
		}
	default: // mouse
		return Parameters{
			TargetRate:   1000,
			DriftEnabled: true, DriftKernel: 0.5,
			BandPassOn: true, BandLow: 5, BandHigh: 300,
			NotchFreq: 50, NotchWidth: 2,
			ArtifactOn: true, ArtifactPower: 4, ArtifactSmoothing: 0.2,
			DetectionPower: 2, DetectionSmoothing: 0.008, DetectionThreshold: 0.5,
			WindowLow: -0.025, WindowHigh: 0.025, PeakSearchRadius: 0.005,
			SuspiciousFreqLow: 4, SuspiciousFreqHigh: 14,
			OutlierTolerance: 0.05, StabilityTolerance: 25,
			Passes: 2, Discontinuity: 0.5, RateWindow: 1,
		}
	}
}

// processedRate returns the effective rate after decimation: the
// largest integer divisor of rawRate not exceeding target.
func processedRate(rawRate, target float64) float64 {
	if rawRate <= target {
		return rawRate
	}
	factor := math.Ceil(rawRate / target)
	return rawRate / factor
}

// Validate rejects unsatisfiable filter settings for a recording at
// rawRate. This is the single place the band-pass rules are enforced;
// the conditioner itself assumes validated parameters.
func (p *Parameters) Validate(rawRate float64) error {
	nyquist := processedRate(rawRate, p.TargetRate) / 2
	if p.BandPassOn {
		if p.BandLow >= p.BandHigh {
			return fmt.Errorf("%w: low cutoff %.4g >= high cutoff %.4g", ErrInvalidFilterBand, p.BandLow, p.BandHigh)
		}
		if p.BandHigh >= nyquist {
			return fmt.Errorf("%w: high cutoff %.4g >= Nyquist %.4g", ErrInvalidFilterBand, p.BandHigh, nyquist)
		}
	}
	if p.Passes < 1 {
		return fmt.Errorf("pass count must be at least 1, got %d", p.Passes)
	}
	if p.WindowLow >= p.WindowHigh {
		return fmt.Errorf("waveform window [%g, %g] is empty", p.WindowLow, p.WindowHigh)
	}
	if p.SuspiciousFreqLow <= 0 || p.SuspiciousFreqHigh <= p.SuspiciousFreqLow {
		return fmt.Errorf("plausible frequency bounds [%g, %g] are invalid", p.SuspiciousFreqLow, p.SuspiciousFreqHigh)
	}
	return nil
}

// MinInterval returns the shortest plausible inter-beat interval in
// seconds (reciprocal of the fastest plausible rate).
func (p *Parameters) MinInterval() float64 { return 1 / p.SuspiciousFreqHigh }

// MaxInterval returns the longest plausible inter-beat interval in
// seconds.
func (p *Parameters) MaxInterval() float64 { return 1 / p.SuspiciousFreqLow }

// halfWindowSamples returns the waveform half-window in samples at
// the given rate: candidates closer than this to a signal boundary
// cannot supply a full waveform.
func (p *Parameters) halfWindowSamples(rate float64) int {
	half := math.Max(-p.WindowLow, p.WindowHigh)
	return int(math.Ceil(half * rate))
}

// Stage hashes. Each covers exactly the fields that invalidate its
// stage, and each chains the upstream hash so an upstream edit
// invalidates everything below it.

func hashFields(h64 uint64, fields ...any) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h64)
	h.Write(buf[:])
	for _, f := range fields {
		switch v := f.(type) {
		case float64:
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		case bool:
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		case int:
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			h.Write(buf[:])
		default:
			panic(fmt.Sprintf("unhashable parameter field %T", f))
		}
	}
	return h.Sum64()
}

// CondHash covers the conditioning and artifact-masking fields.
func (p *Parameters) CondHash(seed uint64) uint64 {
	return hashFields(seed,
		p.TargetRate, p.Invert, p.DriftEnabled, p.DriftKernel,
		p.BandPassOn, p.BandLow, p.BandHigh,
		p.NotchOn, p.NotchFreq, p.NotchWidth,
		p.ArtifactOn, p.ArtifactPower, p.ArtifactSmoothing)
}

// DetectHash covers the detection, template, and extraction fields,
// chained on the conditioning hash.
func (p *Parameters) DetectHash(condHash uint64) uint64 {
	return hashFields(condHash,
		p.DetectionPower, p.DetectionSmoothing, p.DetectionThreshold,
		p.WindowLow, p.WindowHigh, p.PeakSearchRadius)
}

// RefineHash covers the refinement and rate fields, chained on the
// detection hash.
func (p *Parameters) RefineHash(detectHash uint64) uint64 {
	return hashFields(detectHash,
		p.SuspiciousFreqLow, p.SuspiciousFreqHigh,
		p.OutlierTolerance, p.StabilityTolerance,
		p.Passes, p.Discontinuity, p.RateWindow)
}
