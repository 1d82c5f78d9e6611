package dsp

import "math"

// ToneDecisions partitions samples into fixed-size symbol windows of
// sampleRate/baud samples and classifies each window as mark (1) or space
// (0) by comparing Goertzel powers at the two tone frequencies. A final
// window shorter than one symbol period is dropped, not zero-padded.
func ToneDecisions(samples []float32, sampleRate int, baud, markFreq, spaceFreq float64) []byte {
	window := int(float64(sampleRate) / baud)
	if window <= 0 || len(samples) < window {
		return nil
	}

	decisions := make([]byte, 0, len(samples)/window)
	for i := 0; i+window <= len(samples); i += window {
		w := samples[i : i+window]
		if Power(w, sampleRate, markFreq) >= Power(w, sampleRate, spaceFreq) {
			decisions = append(decisions, 1)
		} else {
			decisions = append(decisions, 0)
		}
	}
	return decisions
}

// SignBits slices samples into symbol windows of sampleRate/baud samples
// and derives one bit per window from the sign of the window sum. This is
// the simple discriminator used for direct FSK bit streams; it applies no
// error correction. A trailing partial window is dropped.
func SignBits(samples []float32, sampleRate int, baud float64, inverted bool) []byte {
	window := int(float64(sampleRate) / baud)
	if window <= 0 || len(samples) < window {
		return nil
	}

	bits := make([]byte, 0, len(samples)/window)
	for i := 0; i+window <= len(samples); i += window {
		var sum float64
		for _, s := range samples[i : i+window] {
			sum += float64(s)
		}
		bit := byte(0)
		if (sum < 0) != inverted {
			bit = 1
		}
		bits = append(bits, bit)
	}
	return bits
}

// NRZIDecoder undoes NRZI line coding: a transition between consecutive
// tone decisions encodes a 0 bit, no transition encodes a 1 bit. The first
// decision is compared against an implicit mark reference. The decoder is a
// pure streaming transform with no frame awareness; state is retained
// across calls so a bit sequence may span buffer boundaries.
type NRZIDecoder struct {
	prev byte
}

// NewNRZIDecoder returns a decoder primed with the mark reference.
func NewNRZIDecoder() *NRZIDecoder {
	return &NRZIDecoder{prev: 1}
}

// Decode transforms a run of tone decisions into data bits.
func (d *NRZIDecoder) Decode(tones []byte) []byte {
	bits := make([]byte, 0, len(tones))
	for _, t := range tones {
		if t == d.prev {
			bits = append(bits, 1)
		} else {
			bits = append(bits, 0)
		}
		d.prev = t
	}
	return bits
}

// Reset restores the implicit mark reference.
func (d *NRZIDecoder) Reset() {
	d.prev = 1
}

// Magnitude converts complex baseband samples to their amplitudes.
func Magnitude(iq []complex64) []float32 {
	mag := make([]float32, len(iq))
	for i, s := range iq {
		re := float64(real(s))
		im := float64(imag(s))
		mag[i] = float32(math.Sqrt(re*re + im*im))
	}
	return mag
}
