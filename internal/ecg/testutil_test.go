package ecg

import (
	"math"
	"math/rand"

	"github.com/cardiodata/heartline/internal/monitoring"
)

func init() {
	// Keep test output quiet; individual tests can re-enable.
	monitoring.SetLogger(nil)
}

// synthTrain builds a Gaussian pulse train: pulses of unit amplitude
// and pulseSigma width (seconds) centered every interval seconds,
// starting at interval/2, plus additive Gaussian noise.
func synthTrain(duration, interval, rate, noise float64, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	n := int(duration * rate)
	samples := make([]float64, n)
	times := make([]float64, n)
	const pulseSigma = 0.004
	for i := range samples {
		t := float64(i) / rate
		times[i] = t
		phase := math.Mod(t, interval) - interval/2
		samples[i] = math.Exp(-phase * phase / (2 * pulseSigma * pulseSigma))
		if noise > 0 {
			samples[i] += noise * rng.NormFloat64()
		}
	}
	return samples, times
}

// beatGrid returns n beat times spaced interval seconds apart,
// starting at start, with uniform scores.
func beatGrid(n int, start, interval, score float64) (times, scores []float64) {
	times = make([]float64, n)
	scores = make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)*interval
		scores[i] = score
	}
	return times, scores
}

// insertBeat returns copies of times/scores with one extra entry
// kept in sorted position.
func insertBeat(times, scores []float64, t, score float64) ([]float64, []float64) {
	outT := make([]float64, 0, len(times)+1)
	outS := make([]float64, 0, len(scores)+1)
	done := false
	for i := range times {
		if !done && t < times[i] {
			outT = append(outT, t)
			outS = append(outS, score)
			done = true
		}
		outT = append(outT, times[i])
		outS = append(outS, scores[i])
	}
	if !done {
		outT = append(outT, t)
		outS = append(outS, score)
	}
	return outT, outS
}

// removeAt returns copies of times/scores without index i.
func removeAt(times, scores []float64, i int) ([]float64, []float64) {
	outT := append(append([]float64(nil), times[:i]...), times[i+1:]...)
	outS := append(append([]float64(nil), scores[:i]...), scores[i+1:]...)
	return outT, outS
}

// testProcessed wraps raw samples as an already-conditioned signal.
func testProcessed(samples []float64, rate float64) *Processed {
	times := make([]float64, len(samples))
	for i := range times {
		times[i] = float64(i) / rate
	}
	return &Processed{Samples: samples, Times: times, Rate: rate}
}

// addPulse adds a Gaussian bump of the given amplitude and width (in
// samples) centered at index c.
func addPulse(samples []float64, c int, sigma, amp float64) {
	lo := c - int(4*sigma)
	hi := c + int(4*sigma)
	for i := lo; i <= hi; i++ {
		if i < 0 || i >= len(samples) {
			continue
		}
		d := float64(i - c)
		samples[i] += amp * math.Exp(-d*d/(2*sigma*sigma))
	}
}
