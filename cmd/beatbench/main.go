// beatbench synthesizes an ECG-like pulse train, runs the full beat
// detection and refinement pipeline over it, and prints summary
// statistics and stage timing. Useful for profiling parameter sets
// without a real recording.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/cardiodata/heartline/internal/config"
	"github.com/cardiodata/heartline/internal/ecg"
	"github.com/cardiodata/heartline/internal/monitoring"
	"github.com/cardiodata/heartline/internal/version"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "print build information and exit")
		speciesName = flag.String("species", "mouse", "species preset: mouse, rat, or human")
		duration    = flag.Float64("duration", 60, "recording duration in seconds")
		bpm         = flag.Float64("bpm", 300, "synthetic heart rate in beats per minute")
		sampleRate  = flag.Float64("rate", 4000, "synthetic acquisition rate in Hz")
		noise       = flag.Float64("noise", 0.02, "additive Gaussian noise amplitude")
		seed        = flag.Int64("seed", 1, "noise RNG seed")
		tuningPath  = flag.String("tuning", "", "optional JSON tuning overlay")
		verbose     = flag.Bool("v", false, "verbose pipeline logging")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println("beatbench", version.String())
		return
	}
	monitoring.Verbose = *verbose

	species, ok := map[string]ecg.Species{
		"mouse": ecg.SpeciesMouse,
		"rat":   ecg.SpeciesRat,
		"human": ecg.SpeciesHuman,
	}[*speciesName]
	if !ok {
		log.Fatalf("unknown species %q", *speciesName)
	}

	raw, err := synthesize(*duration, *bpm, *sampleRate, *noise, *seed)
	if err != nil {
		log.Fatalf("synthesize: %v", err)
	}

	analyzer := ecg.NewAnalyzer(raw, species)
	if *tuningPath != "" {
		cfg, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("tuning: %v", err)
		}
		params, err := cfg.Apply(raw.Rate)
		if err != nil {
			log.Fatalf("tuning: %v", err)
		}
		if err := analyzer.SetParameters(params); err != nil {
			log.Fatalf("tuning: %v", err)
		}
	}

	start := time.Now()
	result, err := analyzer.Recompute()
	if err != nil {
		log.Fatalf("recompute: %v", err)
	}
	elapsed := time.Since(start)

	summary := ecg.Summarize(result.Beats)
	fmt.Printf("run %s (algorithm %s)\n", result.RunID, result.Version)
	fmt.Printf("  %d samples, %.1fs at %.6g Hz\n", len(raw.Samples), raw.Duration(), raw.Rate)
	fmt.Printf("  %d beats, mean rate %.1f bpm, RMSSD %.2f ms\n",
		summary.BeatCount, ecg.BeatsPerMinute.Convert(summary.MeanRate), summary.RMSSD*1000)
	fmt.Printf("  intervals [%.1f, %.1f] ms, %d artifact window(s)\n",
		summary.MinInterval*1000, summary.MaxInterval*1000, len(result.Artifacts))
	fmt.Printf("  pipeline: %v\n", elapsed)

	expected := *duration * *bpm / 60
	if math.Abs(float64(summary.BeatCount)-expected) > 0.02*expected {
		fmt.Fprintf(os.Stderr, "warning: recovered %d beats, expected about %.0f\n", summary.BeatCount, expected)
	}
}

// synthesize builds a Gaussian pulse train at the requested rate with
// additive noise.
func synthesize(duration, bpm, rate, noise float64, seed int64) (*ecg.RawSignal, error) {
	rng := rand.New(rand.NewSource(seed))
	n := int(duration * rate)
	samples := make([]float64, n)
	times := make([]float64, n)
	interval := 60 / bpm
	pulseSigma := 0.004 // seconds

	for i := range samples {
		t := float64(i) / rate
		times[i] = t
		phase := math.Mod(t, interval) - interval/2
		samples[i] = math.Exp(-phase*phase/(2*pulseSigma*pulseSigma)) + noise*rng.NormFloat64()
	}
	return ecg.NewRawSignal(samples, times, rate)
}
