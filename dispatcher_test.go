package rfdecode

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFake builds a configurable decoder for pipeline tests: it emits one
// message per processed buffer and can be slowed down to simulate a heavy
// accumulation cycle.
func newFake(id string, rate int, iq bool) *slowDecoder {
	return &slowDecoder{desc: Descriptor{
		ID:         id,
		Name:       id,
		Version:    "1.0.0",
		Category:   CategoryData,
		SampleRate: rate,
		IQ:         iq,
	}}
}

type slowDecoder struct {
	desc      Descriptor
	delay     time.Duration
	processed atomic.Int64
}

func (f *slowDecoder) Info() Descriptor  { return f.desc }
func (f *slowDecoder) Initialize() error { return nil }
func (f *slowDecoder) Shutdown()         {}

func (f *slowDecoder) Process(buf SampleBuffer) []Message {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	n := f.processed.Add(1)
	return []Message{NewMessage(f.desc.ID, buf.CenterFreq, fmt.Sprintf("msg-%d", n))}
}

func TestDispatcherRoutesOnExactRateMatch(t *testing.T) {
	d := NewDispatcher(8, nil)
	fast := newFake("fast", 48000, false)
	other := newFake("other", 12000, false)
	require.NoError(t, d.Attach(fast))
	require.NoError(t, d.Attach(other))

	d.Deliver(SampleBuffer{SampleRate: 48000, Samples: make([]float32, 16)})

	msg := <-d.Messages()
	assert.Equal(t, "fast", msg.DecoderID)
	d.Close()

	assert.EqualValues(t, 1, fast.processed.Load())
	assert.EqualValues(t, 0, other.processed.Load(), "rate-mismatched decoder must see nothing")
}

func TestDispatcherMatchesSampleKind(t *testing.T) {
	d := NewDispatcher(8, nil)
	audio := newFake("audio", 2_000_000, false)
	iq := newFake("iq", 2_000_000, true)
	require.NoError(t, d.Attach(audio))
	require.NoError(t, d.Attach(iq))

	d.Deliver(SampleBuffer{SampleRate: 2_000_000, IQ: make([]complex64, 16)})

	msg := <-d.Messages()
	assert.Equal(t, "iq", msg.DecoderID)
	d.Close()
	assert.EqualValues(t, 0, audio.processed.Load())
}

func TestDispatcherPreservesPerDecoderOrder(t *testing.T) {
	d := NewDispatcher(64, nil)
	dec := newFake("ordered", 48000, false)
	require.NoError(t, d.Attach(dec))

	const n = 32
	for i := 0; i < n; i++ {
		d.Deliver(SampleBuffer{SampleRate: 48000, Samples: make([]float32, 4)})
	}

	for i := 1; i <= n; i++ {
		msg := <-d.Messages()
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
	d.Close()
}

func TestDispatcherSlowDecoderDoesNotStallFastOne(t *testing.T) {
	d := NewDispatcher(2, nil)
	slow := newFake("slow", 48000, false)
	slow.delay = 20 * time.Millisecond
	fast := newFake("fast", 48000, false)
	require.NoError(t, d.Attach(slow))
	require.NoError(t, d.Attach(fast))

	// Drain messages in the background so emission never applies backpressure.
	drained := make(chan struct{})
	fastSeen := atomic.Int64{}
	go func() {
		defer close(drained)
		for msg := range d.Messages() {
			if msg.DecoderID == "fast" {
				fastSeen.Add(1)
			}
		}
	}()

	const n = 50
	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			d.Deliver(SampleBuffer{SampleRate: 48000, Samples: make([]float32, 4)})
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Deliver blocked on a slow decoder")
	}

	time.Sleep(50 * time.Millisecond)
	d.Close()
	<-drained

	// The fast decoder keeps up; the slow one drops most of its buffers.
	assert.Less(t, slow.processed.Load(), int64(n))
	assert.Greater(t, fastSeen.Load(), slow.processed.Load())
}

func TestDispatcherDropMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(1, metrics)

	slow := newFake("slow", 48000, false)
	slow.delay = 50 * time.Millisecond
	require.NoError(t, d.Attach(slow))

	for i := 0; i < 20; i++ {
		d.Deliver(SampleBuffer{SampleRate: 48000, Samples: make([]float32, 4)})
	}

	// Queue depth 1 and a 50ms decode mean most of the 20 deliveries drop.
	assert.Positive(t, testutil.ToFloat64(metrics.BuffersDropped.WithLabelValues("slow")))
	d.Close()
}

func TestDispatcherCloseStopsEmission(t *testing.T) {
	d := NewDispatcher(8, nil)
	dec := newFake("dec", 48000, false)
	require.NoError(t, d.Attach(dec))

	for i := 0; i < 8; i++ {
		d.Deliver(SampleBuffer{SampleRate: 48000, Samples: make([]float32, 4)})
	}
	d.Close()

	// After Close returns the message channel is closed; draining it must
	// terminate, and delivery must be a no-op.
	for range d.Messages() {
	}
	d.Deliver(SampleBuffer{SampleRate: 48000, Samples: make([]float32, 4)})

	assert.NotPanics(t, d.Close, "Close is idempotent")
}

func TestDispatcherRejectsDuplicateAttach(t *testing.T) {
	d := NewDispatcher(8, nil)
	require.NoError(t, d.Attach(newFake("dup", 48000, false)))
	assert.Error(t, d.Attach(newFake("dup", 48000, false)))
	d.Close()
}

func TestDispatcherRejectsAttachAfterClose(t *testing.T) {
	d := NewDispatcher(8, nil)
	d.Close()
	assert.Error(t, d.Attach(newFake("late", 48000, false)))
}
