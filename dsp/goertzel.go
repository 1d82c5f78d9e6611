// Package dsp provides the shared signal-processing primitives used by the
// protocol decoders: single-bin tone power estimation, symbol slicing, NRZI
// line decoding and spectral SNR estimation.
package dsp

import "math"

// Power returns an estimate of the signal energy at freq within the sample
// window, computed with the Goertzel single-bin recurrence. The result is
// unnormalized relative energy: callers compare powers between candidate
// tones rather than against absolute thresholds, which makes decisions
// robust to gain variation. Pure function, O(len(samples)).
func Power(samples []float32, sampleRate int, freq float64) float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0
	}

	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s1, s2 float64
	for _, x := range samples {
		s0 := float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

// StrongerTone classifies a sample window as one of two candidate tones.
// It returns 0 when f0 carries more energy, 1 for f1.
func StrongerTone(samples []float32, sampleRate int, f0, f1 float64) int {
	if Power(samples, sampleRate, f1) > Power(samples, sampleRate, f0) {
		return 1
	}
	return 0
}
