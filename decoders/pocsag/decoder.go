package pocsag

import (
	"fmt"

	"github.com/cwsl/rfdecode"
	"github.com/cwsl/rfdecode/dsp"
)

// ID is the registry identifier of the POCSAG decoder.
const ID = "pocsag"

// Defaults for POCSAG1200.
const (
	DefaultSampleRate = 48000
	DefaultBaud       = 1200.0
)

const snrWindow = 2048

// maxPendingBits bounds the bit buffer; anything older than a few batches
// with no sync in it is noise.
const maxPendingBits = 8 * SyncSpanBits

// Decoder demodulates a POCSAG bit stream with a sign-of-sum slicer and
// scans it for sync-delimited batches.
type Decoder struct {
	desc     rfdecode.Descriptor
	baud     float64
	inverted bool

	pending []float32
	bits    []byte

	snr     *dsp.SNREstimator
	lastSNR float64
	stats   rfdecode.Stats
}

// New creates a POCSAG decoder. Recognized parameters: sample_rate, baud
// (512, 1200 or 2400), inverted.
func New(params map[string]interface{}) (*Decoder, error) {
	d := &Decoder{baud: DefaultBaud}
	sampleRate := DefaultSampleRate

	if v, ok := numberParam(params, "sample_rate"); ok {
		sampleRate = int(v)
	}
	if v, ok := numberParam(params, "baud"); ok {
		d.baud = v
	}
	if v, ok := params["inverted"].(bool); ok {
		d.inverted = v
	}

	switch d.baud {
	case 512, 1200, 2400:
	default:
		return nil, fmt.Errorf("pocsag: unsupported baud rate %.0f", d.baud)
	}
	if sampleRate <= 0 || int(float64(sampleRate)/d.baud) < 4 {
		return nil, fmt.Errorf("pocsag: sample rate %d too low for %.0f baud", sampleRate, d.baud)
	}

	d.desc = rfdecode.Descriptor{
		ID:         ID,
		Name:       "POCSAG Pager",
		Version:    "1.0.0",
		Category:   rfdecode.CategoryPaging,
		SampleRate: sampleRate,
		Bandwidth:  12500,
	}
	return d, nil
}

// Register adds the POCSAG decoder type to a registry.
func Register(r *rfdecode.Registry) error {
	desc := rfdecode.Descriptor{
		ID:         ID,
		Name:       "POCSAG Pager",
		Version:    "1.0.0",
		Category:   rfdecode.CategoryPaging,
		SampleRate: DefaultSampleRate,
		Bandwidth:  12500,
	}
	return r.Register(desc, func(params map[string]interface{}) (rfdecode.Decoder, error) {
		return New(params)
	})
}

// Info implements rfdecode.Decoder.
func (d *Decoder) Info() rfdecode.Descriptor { return d.desc }

// Initialize clears accumulation state.
func (d *Decoder) Initialize() error {
	d.pending = nil
	d.bits = nil
	d.snr = dsp.NewSNREstimator(snrWindow)
	d.stats = rfdecode.Stats{}
	return nil
}

// Shutdown discards in-flight accumulation state.
func (d *Decoder) Shutdown() {
	d.pending = nil
	d.bits = nil
}

// Stats implements rfdecode.StatsReporter.
func (d *Decoder) Stats() rfdecode.Stats { return d.stats }

// Modulation implements rfdecode.DigitalDecoder.
func (d *Decoder) Modulation() string { return "FSK" }

// SymbolRate implements rfdecode.DigitalDecoder.
func (d *Decoder) SymbolRate() float64 { return d.baud }

// SyncPattern implements rfdecode.DigitalDecoder.
func (d *Decoder) SyncPattern() []byte {
	return []byte{0x7c, 0xd2, 0x15, 0xd8}
}

// Process slices the buffer into bits and scans for complete batches.
// After a batch is processed the scan resumes 544 bits past the sync match.
func (d *Decoder) Process(buf rfdecode.SampleBuffer) []rfdecode.Message {
	if buf.Samples == nil || buf.SampleRate != d.desc.SampleRate {
		return nil
	}

	d.pending = append(d.pending, buf.Samples...)
	window := int(float64(d.desc.SampleRate) / d.baud)
	usable := len(d.pending) - len(d.pending)%window
	if usable == 0 {
		return nil
	}

	d.bits = append(d.bits, dsp.SignBits(d.pending[:usable], d.desc.SampleRate, d.baud, d.inverted)...)
	rest := len(d.pending) - usable
	copy(d.pending, d.pending[usable:])
	d.pending = d.pending[:rest]

	if snr := d.snr.Estimate(buf.Samples); snr != 0 {
		d.lastSNR = snr
	}

	var messages []rfdecode.Message
	pos := 0
	for {
		idx := FindSync(d.bits, pos)
		if idx < 0 {
			// No sync from pos on. Keep a sync word's worth of tail so a
			// pattern spanning the buffer boundary is still found.
			keep := len(d.bits) - 31
			if keep < pos {
				keep = pos
			}
			d.trimBits(keep)
			break
		}
		if idx+SyncSpanBits > len(d.bits) {
			// Batch incomplete; wait for more bits.
			d.trimBits(idx)
			break
		}

		d.stats.FramesSynced++
		for _, page := range DecodeBatch(d.bits[idx+32 : idx+SyncSpanBits]) {
			messages = append(messages, d.pageMessage(page, buf.CenterFreq))
		}
		pos = idx + SyncSpanBits
	}

	if len(d.bits) > maxPendingBits {
		d.trimBits(len(d.bits) - maxPendingBits)
	}
	return messages
}

func (d *Decoder) trimBits(from int) {
	if from <= 0 {
		return
	}
	if from >= len(d.bits) {
		d.bits = d.bits[:0]
		return
	}
	rest := len(d.bits) - from
	copy(d.bits, d.bits[from:])
	d.bits = d.bits[:rest]
}

func (d *Decoder) pageMessage(page Page, freq uint64) rfdecode.Message {
	mode := "alpha"
	if page.Numeric {
		mode = "numeric"
	}

	content := fmt.Sprintf("%d/%d %s", page.Address, page.Function, page.Text)
	msg := rfdecode.NewMessage(ID, freq, content)
	if d.lastSNR != 0 {
		msg = msg.WithSNR(d.lastSNR)
	}
	msg.Fields[FieldAddress] = fmt.Sprintf("%d", page.Address)
	msg.Fields[FieldFunction] = fmt.Sprintf("%d", page.Function)
	msg.Fields[FieldMode] = mode
	d.stats.Messages++
	return msg
}

func numberParam(params map[string]interface{}, key string) (float64, bool) {
	switch v := params[key].(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
