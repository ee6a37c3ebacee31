package ecg

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/cardiodata/heartline/internal/monitoring"
)

// AlgorithmVersion tags every Result with the parameter/algorithm
// revision that produced it, so exported beat sets can be traced back
// to the code that validated them.
const AlgorithmVersion = "1.4.0"

// Result is the export contract handed to persistence and display
// collaborators.
type Result struct {
	RunID      string // unique per recompute
	Version    string // AlgorithmVersion
	Beats      []float64
	PeakTimes  []float64 // precise per-beat peak times, aligned with Beats
	PeakValues []float64 // signal value at each precise peak
	Artifacts  []Window
	Exclusions []Window
	Rate       []RateSample
}

// StageCounters records how many times each pipeline stage has
// actually run, exposing the dirty-tracking behavior to callers and
// tests.
type StageCounters struct {
	Conditioning int
	Detection    int
	Refinement   int
}

// Analyzer owns one recording, the active parameter set, and the
// cached intermediate stages. Each stage is keyed by a hash of the
// parameter subset that can invalidate it (chained on its upstream
// stage), so a refinement-only edit never re-runs filtering or
// detection. Single-session, not safe for concurrent use; the only
// internal parallelism is the per-segment refinement map.
type Analyzer struct {
	raw    *RawSignal
	params Parameters

	exclusions []Window
	toggles    []float64 // manual beat edits, replayed after refinement

	condHash   uint64
	detectHash uint64
	refineHash uint64

	processed *Processed
	artifacts []Window
	ext       *Extraction
	beats     []float64

	Runs StageCounters
}

// NewAnalyzer creates an analysis session over raw with the species
// default parameters.
func NewAnalyzer(raw *RawSignal, species Species) *Analyzer {
	return &Analyzer{raw: raw, params: DefaultParameters(species)}
}

// Parameters returns the active parameter set.
func (a *Analyzer) Parameters() Parameters { return a.params }

// SetParameters replaces the active parameter set. Invalid settings
// are rejected and the prior valid values retained; which stages
// rerun on the next Recompute follows from the per-stage hashes, not
// from which field the caller touched.
func (a *Analyzer) SetParameters(p Parameters) error {
	if err := p.Validate(a.raw.Rate); err != nil {
		return err
	}
	a.params = p
	return nil
}

// AddExclusion declares a time range to exclude from rate computation
// and beat re-derivation. Invalidates refinement only.
func (a *Analyzer) AddExclusion(w Window) {
	a.exclusions = ApplyExclusion(a.exclusions, w, a.artifacts)
}

// RemoveExclusion drops every user exclusion overlapping w.
func (a *Analyzer) RemoveExclusion(w Window) {
	a.exclusions = RemoveExclusion(a.exclusions, w)
}

// Exclusions returns the current exclusion set.
func (a *Analyzer) Exclusions() []Window { return a.exclusions }

// ToggleBeat records a manual beat edit at time t. Edits are replayed
// on top of every refinement result, so they survive refinement-only
// recomputes and are discarded when detection parameters change the
// candidate set they were judged against.
func (a *Analyzer) ToggleBeat(t float64) {
	a.toggles = append(a.toggles, t)
}

// rawFingerprint folds the recording identity into the conditioning
// hash so a new source file invalidates everything.
func (a *Analyzer) rawFingerprint() uint64 {
	n := len(a.raw.Samples)
	return hashFields(0, n, a.raw.Rate,
		a.raw.Samples[0], a.raw.Samples[n/2], a.raw.Samples[n-1],
		a.raw.Times[0], a.raw.Times[n-1])
}

// maskedWindows returns the artifact and exclusion windows as one
// normalized set.
func (a *Analyzer) maskedWindows() []Window {
	all := make([]Window, 0, len(a.artifacts)+len(a.exclusions))
	all = append(all, a.artifacts...)
	all = append(all, a.exclusions...)
	return normalizeWindows(all, nil)
}

// Recompute re-runs exactly the invalidated stages and returns a
// fresh Result. A full recompute is conditioning -> artifact masking
// -> detection -> template -> extraction -> refinement -> rate; an
// unrelated parameter edit skips everything upstream of the edited
// class. There is no mid-pass cancellation: a caller abandoning a
// recompute schedules a fresh one rather than resuming.
func (a *Analyzer) Recompute() (*Result, error) {
	ch := a.params.CondHash(a.rawFingerprint())
	if ch != a.condHash || a.processed == nil {
		a.processed = Condition(a.raw, &a.params)
		a.artifacts = DetectArtifacts(a.processed, &a.params)
		// Artifacts may have shifted; re-trim the user exclusions.
		a.exclusions = normalizeWindows(a.exclusions, a.artifacts)
		a.condHash = ch
		a.detectHash = 0
		a.Runs.Conditioning++
		monitoring.Debugf("ecg: conditioned %d samples at %.6g Hz", len(a.processed.Samples), a.processed.Rate)
	}

	dh := a.params.DetectHash(ch)
	if dh != a.detectHash {
		cands, err := DetectCandidates(a.processed, &a.params)
		if err != nil {
			return nil, err
		}
		tmpl := BuildTemplate(a.processed, cands, &a.params)
		a.ext = ExtractWaveforms(a.processed, cands, tmpl, &a.params)
		a.detectHash = dh
		a.refineHash = 0
		a.Runs.Detection++
	}

	masked := a.maskedWindows()
	rh := a.params.RefineHash(dh)
	rh = hashWindows(rh, masked)
	rh = hashTimes(rh, a.toggles)
	if rh != a.refineHash {
		times := make([]float64, len(a.ext.Candidates))
		for i, c := range a.ext.Candidates {
			times[i] = c.Time
		}
		beats := Refine(times, a.ext.Scores, masked, &a.params, a.processed.Rate)
		for _, t := range a.toggles {
			beats = ToggleBeat(beats, t, a.params.MinInterval()/2)
		}
		a.beats = beats
		a.refineHash = rh
		a.Runs.Refinement++
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Version:    AlgorithmVersion,
		Beats:      append([]float64(nil), a.beats...),
		Artifacts:  append([]Window(nil), a.artifacts...),
		Exclusions: append([]Window(nil), a.exclusions...),
		Rate:       EstimateRate(a.beats, masked, &a.params),
	}
	res.PeakTimes, res.PeakValues = a.precisePeaks(res.Beats)
	return res, nil
}

// precisePeaks aligns each validated beat with its extracted precise
// peak. Manual beats without a backing candidate fall back to the
// signal sample nearest the beat time.
func (a *Analyzer) precisePeaks(beats []float64) (times, values []float64) {
	candTimes := make([]float64, len(a.ext.Candidates))
	for i, c := range a.ext.Candidates {
		candTimes[i] = c.Time
	}
	times = make([]float64, len(beats))
	values = make([]float64, len(beats))
	for i, b := range beats {
		j := nearestIndex(candTimes, b)
		if j >= 0 && math.Abs(candTimes[j]-b) < 2*timePrecision {
			times[i] = a.ext.PeakTimes[j]
			values[i] = a.ext.PeakValues[j]
			continue
		}
		idx := a.processed.indexOf(b)
		times[i] = a.processed.Times[idx]
		values[i] = a.processed.Samples[idx]
	}
	return times, values
}

// nearestIndex returns the index of the sorted slice entry nearest to
// v, or -1 for an empty slice.
func nearestIndex(sorted []float64, v float64) int {
	if len(sorted) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(sorted, v)
	if i == 0 {
		return 0
	}
	if i == len(sorted) {
		return len(sorted) - 1
	}
	if v-sorted[i-1] <= sorted[i]-v {
		return i - 1
	}
	return i
}

func hashWindows(seed uint64, windows []Window) uint64 {
	for _, w := range windows {
		seed = hashFields(seed, w.Start, w.End)
	}
	return seed
}

func hashTimes(seed uint64, times []float64) uint64 {
	for _, t := range times {
		seed = hashFields(seed, t)
	}
	return seed
}
