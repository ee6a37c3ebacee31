package ecg

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// gaussianKernel returns a normalized Gaussian kernel with standard
// deviation sigma in samples, spanning ±3 sigma.
func gaussianKernel(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(math.Ceil(3 * sigma))
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// smooth convolves x with a Gaussian kernel of standard deviation
// sigma samples. NaN samples and out-of-range indices are excluded
// from the weighted sum and the remaining kernel mass renormalized,
// so gaps stay gaps instead of bleeding zeros into their
// neighborhood. A position whose entire support is NaN yields NaN.
func smooth(x []float64, sigma float64) []float64 {
	k := gaussianKernel(sigma)
	radius := len(k) / 2
	out := make([]float64, len(x))
	for i := range x {
		var sum, mass float64
		for j, w := range k {
			idx := i + j - radius
			if idx < 0 || idx >= len(x) {
				continue
			}
			v := x[idx]
			if math.IsNaN(v) {
				continue
			}
			sum += w * v
			mass += w
		}
		if mass == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / mass
	}
	return out
}

// powerElevate returns |x|^power elementwise. NaN passes through.
func powerElevate(x []float64, power float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Pow(math.Abs(v), power)
	}
	return out
}

// squareInPlace squares every sample. Used after smoothing to sharpen
// the separation between beat energy and baseline noise.
func squareInPlace(x []float64) {
	for i, v := range x {
		x[i] = v * v
	}
}

// localMaxima returns the indices of strict local maxima. Samples
// adjacent to a NaN gap never qualify, which keeps detections away
// from masked artifact edges.
func localMaxima(x []float64) []int {
	var peaks []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] > x[i-1] && x[i] > x[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// percentile returns the p-th percentile (0-100) of values, ignoring
// NaN. Returns NaN for an empty input.
func percentile(values []float64, p float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	return stat.Quantile(p/100, stat.Empirical, finite, nil)
}

// median returns the median of values. The input is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// standardize returns (x - mean) / std computed over the finite
// samples. NaN samples map to zero so they drop out of correlation
// sums. A flat or empty waveform standardizes to all zeros.
func standardize(x []float64) []float64 {
	finite := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	out := make([]float64, len(x))
	if len(finite) < 2 {
		return out
	}
	mean, std := stat.MeanStdDev(finite, nil)
	if std == 0 {
		return out
	}
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = 0
			continue
		}
		out[i] = (v - mean) / std
	}
	return out
}

// fftFilter transforms x to the frequency domain, zeroes every
// coefficient whose frequency (Hz) fails keep, and transforms back.
// The whole recording is in memory, so a single full-length FFT is
// the cheapest zero-phase filter available.
func fftFilter(x []float64, rate float64, keep func(freqHz float64) bool) []float64 {
	n := len(x)
	if n < 2 {
		out := make([]float64, n)
		copy(out, x)
		return out
	}
	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, x)
	for k := range coeff {
		if !keep(fft.Freq(k) * rate) {
			coeff[k] = 0
		}
	}
	out := fft.Sequence(nil, coeff)
	inv := 1 / float64(n)
	for i := range out {
		out[i] *= inv
	}
	return out
}

// lowPass removes content above cutoff Hz.
func lowPass(x []float64, rate, cutoff float64) []float64 {
	return fftFilter(x, rate, func(f float64) bool { return f <= cutoff })
}

// bandPass keeps content in [low, high] Hz.
func bandPass(x []float64, rate, low, high float64) []float64 {
	return fftFilter(x, rate, func(f float64) bool { return f >= low && f <= high })
}

// notch removes content in [freq-width, freq+width] Hz.
func notch(x []float64, rate, freq, width float64) []float64 {
	return fftFilter(x, rate, func(f float64) bool { return f < freq-width || f > freq+width })
}
