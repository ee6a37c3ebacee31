package ecg

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cardiodata/heartline/internal/monitoring"
)

// Refinement tuning constants. Thresholds are on the normalized
// [0, 1] score scale.
const (
	timePrecision       = 1e-4 // seconds; beat times snap to this grid after each pass
	seedRunLength       = 4    // consecutive well-correlated candidates required for a seed
	seedStrictScore     = 0.7
	seedRelaxedScore    = 0.5
	windowFactor        = 1.4 // search window as a multiple of the expected interval
	windowFactorExt     = 1.8 // extended window when the first search comes up empty
	combinedAccept      = 0.6 // position x shape acceptance threshold
	lookaheadAccept     = 0.7 // assessment-mode acceptance threshold
	maxAssessDepth      = 3   // hard recursion bound for assessment mode
	positionSigmaFrac   = 0.25
	recentIntervalCount = 8 // trailing intervals feeding the expected-interval estimate
)

// refineContext carries the read-only inputs every segment shares.
type refineContext struct {
	p     *Parameters
	rate  float64
	minIv float64 // shortest plausible inter-beat interval
	maxIv float64 // longest plausible inter-beat interval
}

// Refine walks the candidate beat sequence and resolves ambiguous or
// missing beats using interval plausibility and waveform similarity.
// times and scores are index-aligned; masked windows (artifacts plus
// exclusions) remove candidates from re-derivation and split the
// recording into independent segments, which are refined in parallel.
// The result is sorted, unique, and deterministic regardless of
// segment completion order.
func Refine(times, scores []float64, masked []Window, p *Parameters, rate float64) []float64 {
	t := make([]float64, 0, len(times))
	s := make([]float64, 0, len(times))
	for i := range times {
		if inAnyWindow(masked, times[i]) {
			continue
		}
		t = append(t, times[i])
		s = append(s, scores[i])
	}
	if len(t) == 0 {
		return nil
	}

	ctx := &refineContext{p: p, rate: rate, minIv: p.MinInterval(), maxIv: p.MaxInterval()}
	segs := splitSegments(t, masked, p.Discontinuity)
	monitoring.Debugf("ecg: refining %d candidates in %d segment(s)", len(t), len(segs))

	results := make([][]float64, len(segs))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for si, seg := range segs {
		si, seg := si, seg
		g.Go(func() error {
			results[si] = refineSegment(t[seg[0]:seg[1]], s[seg[0]:seg[1]], ctx)
			return nil
		})
	}
	// Segment refinement has no error paths; Wait only synchronizes.
	_ = g.Wait()

	var out []float64
	for _, r := range results {
		for _, bt := range r {
			if len(out) > 0 && bt <= out[len(out)-1] {
				continue
			}
			out = append(out, bt)
		}
	}
	return out
}

// splitSegments partitions the candidate sequence at gaps exceeding
// the discontinuity threshold and at masked windows lying between
// consecutive candidates. Each [lo, hi) range refines independently.
func splitSegments(t []float64, masked []Window, discontinuity float64) [][2]int {
	var segs [][2]int
	lo := 0
	for i := 1; i < len(t); i++ {
		if t[i]-t[i-1] > discontinuity || windowBetween(masked, t[i-1], t[i]) {
			segs = append(segs, [2]int{lo, i})
			lo = i
		}
	}
	return append(segs, [2]int{lo, len(t)})
}

// windowBetween reports whether any masked window intersects the open
// interval (a, b).
func windowBetween(masked []Window, a, b float64) bool {
	for _, w := range masked {
		if w.Start < b && w.End > a {
			return true
		}
	}
	return false
}

// refineSegment runs the configured number of forward+backward
// refinement cycles over one segment, rounding timestamps after each
// pass so floating-point drift cannot accumulate across passes.
func refineSegment(times, scores []float64, ctx *refineContext) []float64 {
	t := append([]float64(nil), times...)
	s := append([]float64(nil), scores...)
	for pass := 0; pass < ctx.p.Passes; pass++ {
		t, s = refineDirected(t, s, ctx)
		t, s = reverseSeq(t, s)
		t, s = refineDirected(t, s, ctx)
		t, s = reverseSeq(t, s)
		roundTimes(t)
	}
	return t
}

// reverseSeq mirrors the sequence in time (t -> -t, reversed order)
// so the same forward walk doubles as the backward pass. Applying it
// twice restores the original exactly.
func reverseSeq(t, s []float64) ([]float64, []float64) {
	n := len(t)
	rt := make([]float64, n)
	rs := make([]float64, n)
	for i := 0; i < n; i++ {
		rt[i] = -t[n-1-i]
		rs[i] = s[n-1-i]
	}
	return rt, rs
}

func roundTimes(t []float64) {
	for i, v := range t {
		t[i] = math.Round(v/timePrecision) * timePrecision
	}
}

// refineDirected performs one directed pass: locate the first
// suspicious interval, anchor on a seed of stable well-correlated
// beats before it, and walk the remainder of the segment one beat at
// a time. A converged sequence (no suspicious interval) is returned
// unchanged, which is what makes extra passes idempotent.
func refineDirected(t, s []float64, ctx *refineContext) ([]float64, []float64) {
	if len(t) < 2 {
		return t, s
	}
	sus := firstSuspicious(t, ctx)
	if sus < 0 {
		return t, s
	}
	seed := findSeed(t, s, sus, ctx)
	if seed < 0 {
		// No trustworthy anchor before the suspicious zone; leave the
		// segment for the opposite direction or the next pass.
		monitoring.Debugf("ecg: no seed before suspicious interval at t=%.3f", t[sus])
		return t, s
	}
	return walk(t, s, seed, ctx)
}

// firstSuspicious returns the index of the first beat whose interval
// to its successor falls outside the plausible bounds, or -1.
func firstSuspicious(t []float64, ctx *refineContext) int {
	for i := 0; i+1 < len(t); i++ {
		iv := t[i+1] - t[i]
		if iv < ctx.minIv || iv > ctx.maxIv {
			return i
		}
	}
	return -1
}

// findSeed scans backward from the suspicious zone for the most
// recent candidate ending a run of seedRunLength consecutive
// candidates that all correlate strongly with the template, keep
// plausible intervals, and hold a stable local rhythm. The strict
// correlation bar is relaxed once if no strict seed exists.
func findSeed(t, s []float64, before int, ctx *refineContext) int {
	if before > len(t)-1 {
		before = len(t) - 1
	}
	for _, minScore := range []float64{seedStrictScore, seedRelaxedScore} {
		for k := before; k >= seedRunLength-1; k-- {
			if isSeed(t, s, k, minScore, ctx) {
				return k
			}
		}
	}
	return -1
}

// isSeed checks the seed criteria for the run ending at index k.
func isSeed(t, s []float64, k int, minScore float64, ctx *refineContext) bool {
	for i := k - seedRunLength + 1; i <= k; i++ {
		if s[i] < minScore {
			return false
		}
	}
	var ivs [seedRunLength - 1]float64
	for i := range ivs {
		lo := k - seedRunLength + 1 + i
		iv := t[lo+1] - t[lo]
		if iv < ctx.minIv || iv > ctx.maxIv {
			return false
		}
		ivs[i] = iv
	}
	// Local interval stability: second difference of the run's
	// intervals, bounded by the tolerance expressed in samples.
	secondDiff := (ivs[2] - ivs[1]) - (ivs[1] - ivs[0])
	return math.Abs(secondDiff) <= ctx.p.StabilityTolerance/ctx.rate
}

// walk advances from the seed one beat at a time, re-selecting among
// the detector candidates using the combined position and shape
// score. Every iteration strictly advances cur or terminates, so the
// walk always finishes.
func walk(t, s []float64, seed int, ctx *refineContext) ([]float64, []float64) {
	outT := append([]float64(nil), t[:seed+1]...)
	outS := append([]float64(nil), s[:seed+1]...)
	cur := seed

	for cur < len(t)-1 {
		expected := expectedInterval(outT, ctx)
		cands := windowCandidates(t, cur, expected)

		if len(cands) == 0 {
			next := cur + 1
			gap := t[next] - t[cur]
			if gap < ctx.p.Discontinuity {
				// A legitimate missed beat: tolerate the gap and
				// re-anchor on the next candidate without fabricating
				// anything in between.
				outT = append(outT, t[next])
				outS = append(outS, s[next])
				cur = next
				continue
			}
			monitoring.Debugf("ecg: %.3fs hole at t=%.3f exceeds discontinuity bound, truncating", gap, t[cur])
			break
		}

		if len(cands) == 1 {
			j := cands[0]
			outT = append(outT, t[j])
			outS = append(outS, s[j])
			cur = j
			continue
		}

		// Several candidates compete for the next beat slot.
		bestJ, bestScore := -1, 0.0
		for _, j := range cands {
			c := positionScore(t[j]-t[cur], expected) * s[j]
			if c > bestScore {
				bestJ, bestScore = j, c
			}
		}
		if bestScore >= combinedAccept {
			// Candidates earlier in the window are duplicate or noise
			// detections of the accepted beat.
			outT = append(outT, t[bestJ])
			outS = append(outS, s[bestJ])
			cur = bestJ
			continue
		}

		// Ambiguous window: assessment-mode lookahead, earliest
		// confident candidate wins.
		accepted := false
		for _, j := range cands {
			if scoreCandidate(t, s, j, expected, ctx, 1) > lookaheadAccept {
				outT = append(outT, t[j])
				outS = append(outS, s[j])
				cur = j
				accepted = true
				break
			}
		}
		if accepted {
			continue
		}

		// Nothing confident even with lookahead: report and keep the
		// remainder untouched rather than fabricating beats. The
		// reverse direction or a later pass gets another chance.
		monitoring.Debugf("ecg: unresolved candidate stretch after t=%.3f", t[cur])
		outT = append(outT, t[cur+1:]...)
		outS = append(outS, s[cur+1:]...)
		break
	}
	return outT, outS
}

// windowCandidates returns the indices of candidates inside the
// search window past beat cur, extending the window once when empty.
func windowCandidates(t []float64, cur int, expected float64) []int {
	gather := func(factor float64) []int {
		var out []int
		limit := t[cur] + factor*expected
		for j := cur + 1; j < len(t); j++ {
			if t[j] > limit {
				break
			}
			out = append(out, j)
		}
		return out
	}
	cands := gather(windowFactor)
	if len(cands) == 0 {
		cands = gather(windowFactorExt)
	}
	return cands
}

// expectedInterval estimates the locally typical inter-beat interval
// from the trailing accepted beats: intervals deviating from their
// median by more than the outlier tolerance are discarded and the
// median of the survivors is clamped into the plausible range.
func expectedInterval(beats []float64, ctx *refineContext) float64 {
	n := len(beats)
	count := recentIntervalCount
	if n-1 < count {
		count = n - 1
	}
	if count < 1 {
		return (ctx.minIv + ctx.maxIv) / 2
	}
	ivs := make([]float64, 0, count)
	for i := n - count; i < n; i++ {
		ivs = append(ivs, beats[i]-beats[i-1])
	}
	med := median(ivs)
	kept := make([]float64, 0, len(ivs))
	for _, iv := range ivs {
		if math.Abs(iv-med) <= ctx.p.OutlierTolerance {
			kept = append(kept, iv)
		}
	}
	if len(kept) > 0 {
		med = median(kept)
	}
	return clampInterval(med, ctx)
}

func clampInterval(iv float64, ctx *refineContext) float64 {
	if iv < ctx.minIv {
		return ctx.minIv
	}
	if iv > ctx.maxIv {
		return ctx.maxIv
	}
	return iv
}

// positionScore is the Gaussian-shaped plausibility of an observed
// interval relative to the locally expected interval.
func positionScore(interval, expected float64) float64 {
	sigma := positionSigmaFrac * expected
	d := interval - expected
	return math.Exp(-d * d / (2 * sigma * sigma))
}

// scoreCandidate is the assessment-mode variant of the walk: a pure,
// depth-limited evaluation of how plausibly candidate j continues the
// rhythm. It blends each continuation's immediate combined score with
// its own recursive assessment, gates the result by j's shape score,
// and never mutates shared state — the hard depth bound is what
// guarantees termination.
func scoreCandidate(t, s []float64, j int, expected float64, ctx *refineContext, depth int) float64 {
	cands := windowCandidates(t, j, expected)
	if len(cands) == 0 {
		if j == len(t)-1 || t[j+1]-t[j] < ctx.p.Discontinuity {
			// Nothing ahead contradicts the candidate; its shape
			// score decides.
			return s[j]
		}
		return 0
	}
	best := 0.0
	for _, k := range cands {
		c := positionScore(t[k]-t[j], expected) * s[k]
		if depth < maxAssessDepth {
			c = (c + scoreCandidate(t, s, k, expected, ctx, depth+1)) / 2
		}
		if c > best {
			best = c
		}
	}
	return math.Min(s[j], best)
}
