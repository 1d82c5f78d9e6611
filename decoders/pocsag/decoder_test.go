package pocsag

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/rfdecode"
)

// modulate renders bits as a baseband FSK stream the sign slicer accepts:
// 40 samples per bit at 48 kHz, a 1 bit is a negative excursion.
func modulate(bits []byte) []float32 {
	samples := make([]float32, 0, len(bits)*40)
	for _, b := range bits {
		level := float32(0.5)
		if b == 1 {
			level = -0.5
		}
		for i := 0; i < 40; i++ {
			samples = append(samples, level)
		}
	}
	return samples
}

// transmission is a preamble, the sync word and one batch carrying a single
// numeric page.
func transmission() []byte {
	var bits []byte
	for i := 0; i < 64; i++ {
		bits = append(bits, byte(i%2)) // reversal preamble
	}
	bits = append(bits, wordBits(SyncWord)...)
	bits = append(bits, idleBatch(map[int]uint32{
		0: addressWord(161234, 0),
		1: messageWord(numericPayload(5, 5, 5)),
	})...)
	return bits
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
		CenterFreq: 153_350_000,
		Samples:    modulate(transmission()),
	})

	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, ID, msg.DecoderID)
	assert.Equal(t, "1289872/0 555", msg.Content)
	assert.Equal(t, "1289872", msg.Fields[FieldAddress])
	assert.Equal(t, "0", msg.Fields[FieldFunction])
	assert.Equal(t, "numeric", msg.Fields[FieldMode])
	assert.EqualValues(t, 1, d.Stats().FramesSynced)
}

func TestDecoderSpansBuffers(t *testing.T) {
	d := newTestDecoder(t)
	audio := modulate(transmission())

	cut := len(audio)/3 + 7 // off symbol alignment, mid-batch
	var msgs []rfdecode.Message
	for _, chunk := range [][]float32{audio[:cut], audio[cut:]} {
		msgs = append(msgs, d.Process(rfdecode.SampleBuffer{
			SampleRate: DefaultSampleRate,
			Samples:    chunk,
		})...)
	}
	require.Len(t, msgs, 1)
}

func TestDecoderInverted(t *testing.T) {
	d, err := New(map[string]interface{}{"inverted": true})
	require.NoError(t, err)
	require.NoError(t, d.Initialize())

	audio := modulate(transmission())
	for i := range audio {
		audio[i] = -audio[i]
	}
	msgs := d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, Samples: audio})
	require.Len(t, msgs, 1)
}

func TestDecoderIgnoresMismatchedInput(t *testing.T) {
	d := newTestDecoder(t)
	assert.Empty(t, d.Process(rfdecode.SampleBuffer{SampleRate: 22050, Samples: make([]float32, 4096)}))
	assert.Empty(t, d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, IQ: make([]complex64, 4096)}))
}

func TestDecoderNoiseRobustness(t *testing.T) {
	d := newTestDecoder(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		noise := make([]float32, 4096)
		for j := range noise {
			noise[j] = rng.Float32()*2 - 1
		}
		assert.Empty(t, d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, Samples: noise}))
	}
}

func TestDecoderBoundsPendingBits(t *testing.T) {
	d := newTestDecoder(t)

	// Hours of syncless signal must not grow the bit buffer without bound.
	ones := make([]float32, 40*SyncSpanBits)
	for i := range ones {
		ones[i] = -0.5
	}
	for i := 0; i < 20; i++ {
		d.Process(rfdecode.SampleBuffer{SampleRate: DefaultSampleRate, Samples: ones})
	}
	assert.LessOrEqual(t, len(d.bits), maxPendingBits)
}

func TestDecoderRejectsBadParams(t *testing.T) {
	_, err := New(map[string]interface{}{"baud": 300})
	assert.Error(t, err)

	_, err = New(map[string]interface{}{"sample_rate": 2000})
	assert.Error(t, err)
}
