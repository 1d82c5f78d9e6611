package adsb

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/rfdecode"
)

// synthesize renders a long message as baseband IQ: preamble pulses at the
// standard offsets, then pulse-position bits at 2 samples per bit.
func synthesize(t *testing.T, frames ...string) []complex64 {
	t.Helper()

	var iq []complex64
	quiet := func(n int) {
		iq = append(iq, make([]complex64, n)...)
	}

	quiet(100)
	for _, h := range frames {
		msg := frameBytes(t, h)

		start := len(iq)
		quiet(frameSamples)
		for _, p := range []int{0, 2, 7, 9} {
			iq[start+p] = 1.0
		}
		for i := 0; i < longMsgBits; i++ {
			if msg[i/8]&(1<<(7-i%8)) != 0 {
				iq[start+preambleSamples+i*2] = 1.0
			} else {
				iq[start+preambleSamples+i*2+1] = 1.0
			}
		}
		quiet(50)
	}
	quiet(300)
	return iq
}

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, d.Initialize())
	return d
}

func TestDecoderEndToEnd(t *testing.T) {
	d := newTestDecoder(t)

	msgs := d.Process(rfdecode.SampleBuffer{
		SampleRate: DefaultSampleRate,
		CenterFreq: 1_090_000_000,
		IQ:         synthesize(t, identFrame, altitudeFrame, velocityFrame),
	})

	require.Len(t, msgs, 3)

	assert.Equal(t, "4840D6", msgs[0].Fields[FieldICAO])
	assert.Equal(t, "KLM1023", msgs[0].Fields[FieldCallsign])
	assert.Equal(t, "17", msgs[0].Fields[FieldDF])

	assert.Equal(t, "38000", msgs[1].Fields[FieldAltitude])
	assert.Equal(t, "even", msgs[1].Fields[FieldCPRFrame])
	assert.Equal(t, "93000", msgs[1].Fields[FieldCPRLat])

	assert.Equal(t, "159.2", msgs[2].Fields[FieldSpeed])
	assert.Equal(t, "182.9", msgs[2].Fields[FieldHeading])
	assert.Equal(t, "-832", msgs[2].Fields[FieldVerticalRate])

	assert.EqualValues(t, 3, d.Stats().FramesSynced)
}

func TestDecoderAircraftTable(t *testing.T) {
	d := newTestDecoder(t)

	d.Process(rfdecode.SampleBuffer{
		SampleRate: DefaultSampleRate,
		IQ:         synthesize(t, velocityFrame, velocityFrame),
	})

	ac, ok := d.Aircraft().Lookup(0x485020)
	require.True(t, ok)
	assert.Equal(t, 2, ac.Messages)
	assert.True(t, ac.HasVelocity)
	assert.InDelta(t, 159.2, ac.SpeedKt, 0.1)
	assert.Equal(t, 1, d.Aircraft().Len())
}

func TestDecoderSpansBuffers(t *testing.T) {
	d := newTestDecoder(t)
	iq := synthesize(t, identFrame)

	cut := 100 + frameSamples/2 // mid-frame
	var msgs []rfdecode.Message
	for _, chunk := range [][]complex64{iq[:cut], iq[cut:]} {
		msgs = append(msgs, d.Process(rfdecode.SampleBuffer{
			SampleRate: DefaultSampleRate,
			IQ:         chunk,
		})...)
	}
	require.Len(t, msgs, 1)
	assert.Equal(t, "KLM1023", msgs[0].Fields[FieldCallsign])
}

func TestDecoderCountsCRCFailures(t *testing.T) {
	d := newTestDecoder(t)
	iq := synthesize(t, identFrame)

	// Invert one data bit: swap the pulse within its bit period.
	bitStart := 100 + preambleSamples + 40*2
	iq[bitStart], iq[bitStart+1] = iq[bitStart+1], iq[bitStart]

	msgs := d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, IQ: iq})
	assert.Empty(t, msgs, "corrupted frames are discarded silently")
	assert.EqualValues(t, 1, d.Stats().CRCFailures)
}

func TestDecoderIgnoresMismatchedInput(t *testing.T) {
	d := newTestDecoder(t)
	assert.Empty(t, d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, Samples: make([]float32, 4096)}))
	assert.Empty(t, d.Process(rfdecode.SampleBuffer{SampleRate: 2_400_000, IQ: make([]complex64, 4096)}))
}

func TestDecoderNoiseRobustness(t *testing.T) {
	d := newTestDecoder(t)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 10; i++ {
		noise := make([]complex64, 8192)
		for j := range noise {
			noise[j] = complex(rng.Float32()*2-1, rng.Float32()*2-1)
		}
		assert.Empty(t, d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, IQ: noise}))
	}
}

func TestDecoderRejectsBadParams(t *testing.T) {
	_, err := New(map[string]interface{}{"sample_rate": 2_400_000})
	assert.Error(t, err)
}
