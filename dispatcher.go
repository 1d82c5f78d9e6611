package rfdecode

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultQueueSize is the per-decoder buffer queue depth used when the
// dispatcher is constructed with a non-positive size.
const DefaultQueueSize = 64

// Dispatcher routes inbound sample buffers to the attached decoders and
// collects the messages they emit. Each decoder gets its own bounded queue
// and worker goroutine, so a slow decoder (a multi-second accumulation
// cycle) can never stall delivery to fast ones. When a decoder's queue is
// full the buffer is dropped for that decoder only.
//
// Messages from a single decoder are emitted in the order its samples were
// received; ordering across decoders is unconstrained.
type Dispatcher struct {
	queueSize int
	metrics   *Metrics

	mu      sync.RWMutex
	workers map[string]*decoderWorker
	closed  bool

	messages chan Message
	wg       sync.WaitGroup
	quit     chan struct{}
}

type decoderWorker struct {
	dec Decoder
	in  chan SampleBuffer
}

// NewDispatcher creates a dispatcher. Metrics may be nil.
func NewDispatcher(queueSize int, metrics *Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queueSize: queueSize,
		metrics:   metrics,
		workers:   make(map[string]*decoderWorker),
		messages:  make(chan Message, 256),
		quit:      make(chan struct{}),
	}
}

// Attach initializes a decoder instance and starts delivering to it.
// Exactly one instance per decoder ID may be attached at a time.
func (d *Dispatcher) Attach(dec Decoder) error {
	desc := dec.Info()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("dispatcher is closed")
	}
	if _, exists := d.workers[desc.ID]; exists {
		return fmt.Errorf("decoder %s: already attached", desc.ID)
	}
	if err := dec.Initialize(); err != nil {
		return fmt.Errorf("decoder %s: initialize: %w", desc.ID, err)
	}

	w := &decoderWorker{
		dec: dec,
		in:  make(chan SampleBuffer, d.queueSize),
	}
	d.workers[desc.ID] = w

	d.wg.Add(1)
	go d.run(desc.ID, w)

	log.Printf("[Dispatcher] Attached decoder %s (%s, %d Hz)", desc.ID, desc.Category, desc.SampleRate)
	return nil
}

// Deliver routes one sample buffer to every attached decoder whose declared
// sample rate and sample kind match. It never blocks the producer: full
// queues drop the buffer for that decoder.
func (d *Dispatcher) Deliver(buf SampleBuffer) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	for id, w := range d.workers {
		desc := w.dec.Info()
		if desc.SampleRate != buf.SampleRate || desc.IQ != (buf.IQ != nil) {
			continue
		}
		select {
		case w.in <- buf:
			if d.metrics != nil {
				d.metrics.BuffersRouted.WithLabelValues(id).Inc()
			}
		default:
			if d.metrics != nil {
				d.metrics.BuffersDropped.WithLabelValues(id).Inc()
			}
		}
	}
}

// Messages is the stream of decoded messages from all attached decoders.
// The channel is closed by Close.
func (d *Dispatcher) Messages() <-chan Message {
	return d.messages
}

// Close stops delivery, discards all queued and in-flight accumulation
// state and shuts the decoders down. No message is emitted after Close
// returns. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.quit)
	workers := d.workers
	d.mu.Unlock()

	d.wg.Wait()

	for id, w := range workers {
		w.dec.Shutdown()
		log.Printf("[Dispatcher] Shut down decoder %s", id)
	}
	close(d.messages)
}

func (d *Dispatcher) run(id string, w *decoderWorker) {
	defer d.wg.Done()

	for {
		select {
		case <-d.quit:
			return
		case buf := <-w.in:
			start := time.Now()
			msgs := w.dec.Process(buf)
			if d.metrics != nil {
				d.metrics.DecodeDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())
				if sr, ok := w.dec.(StatsReporter); ok {
					d.metrics.observeStats(id, sr.Stats())
				}
			}
			for _, msg := range msgs {
				select {
				case <-d.quit:
					return
				case d.messages <- msg:
					if d.metrics != nil {
						d.metrics.MessagesEmitted.WithLabelValues(id).Inc()
					}
				}
			}
		}
	}
}
