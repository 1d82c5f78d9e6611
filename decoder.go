package rfdecode

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a decoder by the kind of service it listens to.
type Category string

const (
	CategoryAnalog       Category = "analog"
	CategoryVoiceDigital Category = "voice-digital"
	CategoryPaging       Category = "paging"
	CategoryAviation     Category = "aviation"
	CategorySatellite    Category = "satellite"
	CategoryAmateur      Category = "amateur"
	CategoryWeather      Category = "weather"
	CategoryData         Category = "data"
)

// Descriptor is the static identity of a decoder type plus the input
// characteristics it requires. One per decoder type, immutable.
type Descriptor struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Category    Category `json:"category" yaml:"category"`
	SampleRate  int      `json:"sample_rate" yaml:"sample_rate"`   // Hz, exact match required for delivery
	Bandwidth   float64  `json:"bandwidth" yaml:"bandwidth"`       // Hz occupied by the signal
	CenterShift float64  `json:"center_shift" yaml:"center_shift"` // Hz offset from the tuned frequency
	IQ          bool     `json:"iq" yaml:"iq"`                     // true when the decoder consumes complex baseband
}

// SampleBuffer is one chunk of a continuous stream, produced externally.
// Either Samples (real audio) or IQ (complex baseband) is set, never both.
// The core treats the contents as read-only.
type SampleBuffer struct {
	SampleRate int
	CenterFreq uint64 // Hz
	Samples    []float32
	IQ         []complex64
}

// Len returns the number of samples in whichever representation is present.
func (b SampleBuffer) Len() int {
	if b.IQ != nil {
		return len(b.IQ)
	}
	return len(b.Samples)
}

// Message is one decoded protocol message. Immutable once created.
type Message struct {
	ID        string            `json:"id"`
	DecoderID string            `json:"decoder_id"`
	Time      time.Time         `json:"time"`
	Frequency uint64            `json:"frequency"` // Hz carrier at decode time
	SNR       float64           `json:"snr,omitempty"`
	HasSNR    bool              `json:"has_snr,omitempty"`
	Content   string            `json:"content"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// NewMessage stamps a message with identity and time of decode.
// Protocol-specific attributes go into Fields; the expected keys are
// defined as constants by each decoder package.
func NewMessage(decoderID string, freq uint64, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		DecoderID: decoderID,
		Time:      time.Now().UTC(),
		Frequency: freq,
		Content:   content,
		Fields:    make(map[string]string),
	}
}

// WithSNR returns a copy of the message carrying a signal-to-noise estimate.
func (m Message) WithSNR(snr float64) Message {
	m.SNR = snr
	m.HasSNR = true
	return m
}

// Decoder is the contract every protocol decoder satisfies. Decoders are
// purely reactive: they accumulate delivered samples internally until they
// have enough for one decode cycle, then return zero or more messages.
//
// Process never fails; on any internal inability to decode it returns an
// empty result. Only Initialize may surface an error. Shutdown discards any
// in-flight accumulation state.
type Decoder interface {
	Info() Descriptor
	Initialize() error
	Shutdown()
	Process(buf SampleBuffer) []Message
}

// DigitalDecoder is an optional capability for decoders of digital modes.
type DigitalDecoder interface {
	Decoder
	Modulation() string
	SymbolRate() float64
	SyncPattern() []byte
}

// VoiceDecoder is an optional capability for decoders carrying a voice codec.
type VoiceDecoder interface {
	Decoder
	Codec() string
	DecodeVoice(samples []float32) []int16
}

// PacketDecoder is an optional capability for decoders that can unpack an
// already-delimited frame into named fields.
type PacketDecoder interface {
	Decoder
	DecodePacket(data []byte) (map[string]string, error)
}

// ImageDecoder is an optional capability for image modes. The returned
// buffer is row-major 8-bit grayscale of the given dimensions.
type ImageDecoder interface {
	Decoder
	DecodeImage(samples []float32) (pixels []byte, width, height int, err error)
}

// Stats are cumulative per-decoder counters. Decoders that keep them
// implement StatsReporter; the dispatcher scrapes the counters into metrics
// after every decode cycle.
type Stats struct {
	FramesSynced    uint64
	FramesDiscarded uint64
	CRCFailures     uint64
	Messages        uint64
}

// StatsReporter is an optional capability for decoders that count frames.
type StatsReporter interface {
	Stats() Stats
}
