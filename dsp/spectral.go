package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// SNREstimator estimates the signal-to-noise ratio of a sample window from
// its power spectrum: peak bin against the median bin as noise floor.
type SNREstimator struct {
	fftSize int
	fft     *fourier.FFT
	window  []float64
}

// NewSNREstimator creates an estimator with the given FFT size.
func NewSNREstimator(fftSize int) *SNREstimator {
	window := make([]float64, fftSize)
	for i := range window {
		// Hann window
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}
	return &SNREstimator{
		fftSize: fftSize,
		fft:     fourier.NewFFT(fftSize),
		window:  window,
	}
}

// Estimate returns the SNR in dB of the strongest spectral component of the
// first fftSize samples, or 0 when the window is too short or empty.
func (e *SNREstimator) Estimate(samples []float32) float64 {
	if len(samples) < e.fftSize {
		return 0
	}

	windowed := make([]float64, e.fftSize)
	for i := 0; i < e.fftSize; i++ {
		windowed[i] = float64(samples[i]) * e.window[i]
	}

	coeffs := e.fft.Coefficients(nil, windowed)
	bins := make([]float64, len(coeffs))
	peak := 0.0
	for i, c := range coeffs {
		p := real(c)*real(c) + imag(c)*imag(c)
		bins[i] = p
		if p > peak {
			peak = p
		}
	}

	sort.Float64s(bins)
	noise := stat.Quantile(0.5, stat.Empirical, bins, nil)
	if noise <= 0 || peak <= 0 {
		return 0
	}
	return 10 * math.Log10(peak/noise)
}
