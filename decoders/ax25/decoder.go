package ax25

import (
	"fmt"

	"github.com/cwsl/rfdecode"
	"github.com/cwsl/rfdecode/dsp"
)

// ID is the registry identifier of the APRS decoder.
const ID = "aprs"

// Default AFSK1200 front-end parameters (Bell 202 tones).
const (
	DefaultSampleRate = 48000
	DefaultBaud       = 1200.0
	DefaultMarkFreq   = 1200.0
	DefaultSpaceFreq  = 2200.0
)

const snrWindow = 2048

// Decoder runs the full AFSK1200 → NRZI → HDLC → AX.25 → APRS pipeline and
// maintains the station table for everything it hears.
type Decoder struct {
	desc      rfdecode.Descriptor
	baud      float64
	markFreq  float64
	spaceFreq float64

	pending  []float32
	nrzi     *dsp.NRZIDecoder
	deframer *Deframer
	stations *StationTable
	snr      *dsp.SNREstimator
	lastSNR  float64

	stats rfdecode.Stats
}

// New creates an APRS decoder. Recognized parameters: sample_rate, baud,
// mark_freq, space_freq.
func New(params map[string]interface{}) (*Decoder, error) {
	d := &Decoder{
		baud:      DefaultBaud,
		markFreq:  DefaultMarkFreq,
		spaceFreq: DefaultSpaceFreq,
	}
	sampleRate := DefaultSampleRate

	if v, ok := numberParam(params, "sample_rate"); ok {
		sampleRate = int(v)
	}
	if v, ok := numberParam(params, "baud"); ok {
		d.baud = v
	}
	if v, ok := numberParam(params, "mark_freq"); ok {
		d.markFreq = v
	}
	if v, ok := numberParam(params, "space_freq"); ok {
		d.spaceFreq = v
	}

	if sampleRate <= 0 || d.baud <= 0 {
		return nil, fmt.Errorf("aprs: invalid sample rate %d / baud %.1f", sampleRate, d.baud)
	}
	if int(float64(sampleRate)/d.baud) < 4 {
		return nil, fmt.Errorf("aprs: sample rate %d too low for %.0f baud", sampleRate, d.baud)
	}

	d.desc = rfdecode.Descriptor{
		ID:         ID,
		Name:       "APRS (AX.25 AFSK1200)",
		Version:    "1.0.0",
		Category:   rfdecode.CategoryAmateur,
		SampleRate: sampleRate,
		Bandwidth:  3000,
	}
	return d, nil
}

// Register adds the APRS decoder type to a registry.
func Register(r *rfdecode.Registry) error {
	desc := rfdecode.Descriptor{
		ID:         ID,
		Name:       "APRS (AX.25 AFSK1200)",
		Version:    "1.0.0",
		Category:   rfdecode.CategoryAmateur,
		SampleRate: DefaultSampleRate,
		Bandwidth:  3000,
	}
	return r.Register(desc, func(params map[string]interface{}) (rfdecode.Decoder, error) {
		return New(params)
	})
}

// Info implements rfdecode.Decoder.
func (d *Decoder) Info() rfdecode.Descriptor { return d.desc }

// Initialize clears all accumulation state and the station table.
func (d *Decoder) Initialize() error {
	d.pending = nil
	d.nrzi = dsp.NewNRZIDecoder()
	d.deframer = NewDeframer()
	d.stations = NewStationTable()
	d.snr = dsp.NewSNREstimator(snrWindow)
	d.stats = rfdecode.Stats{}
	return nil
}

// Shutdown discards in-flight accumulation state.
func (d *Decoder) Shutdown() {
	d.pending = nil
	if d.deframer != nil {
		d.deframer.Reset()
	}
}

// Stations exposes the table of heard stations.
func (d *Decoder) Stations() *StationTable { return d.stations }

// Stats implements rfdecode.StatsReporter.
func (d *Decoder) Stats() rfdecode.Stats { return d.stats }

// Modulation implements rfdecode.DigitalDecoder.
func (d *Decoder) Modulation() string { return "AFSK" }

// SymbolRate implements rfdecode.DigitalDecoder.
func (d *Decoder) SymbolRate() float64 { return d.baud }

// SyncPattern implements rfdecode.DigitalDecoder.
func (d *Decoder) SyncPattern() []byte { return []byte{0x7e} }

// DecodePacket implements rfdecode.PacketDecoder for already-delimited
// frames.
func (d *Decoder) DecodePacket(data []byte) (map[string]string, error) {
	frame, err := ParseFrame(data)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	report := ParseInfo(frame.Info)
	fillFields(fields, frame, report)
	return fields, nil
}

// Process demodulates one buffer. Tone decisions are made per symbol
// window, NRZI-decoded, and fed through the HDLC deframer; samples left
// over from an incomplete window are carried into the next buffer.
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

	tones := dsp.ToneDecisions(d.pending[:usable], d.desc.SampleRate, d.baud, d.markFreq, d.spaceFreq)
	rest := len(d.pending) - usable
	copy(d.pending, d.pending[usable:])
	d.pending = d.pending[:rest]

	if snr := d.snr.Estimate(buf.Samples); snr != 0 {
		d.lastSNR = snr
	}

	var messages []rfdecode.Message
	for _, bit := range d.nrzi.Decode(tones) {
		for _, raw := range d.deframer.Push(bit) {
			d.stats.FramesSynced++
			if msg, ok := d.handleFrame(raw, buf.CenterFreq); ok {
				messages = append(messages, msg)
			}
		}
	}
	return messages
}

// handleFrame validates and unpacks one candidate frame. Checksum and
// malformed-frame failures discard the frame silently.
func (d *Decoder) handleFrame(raw []byte, freq uint64) (rfdecode.Message, bool) {
	frame, err := ParseFrame(raw)
	switch {
	case err == ErrBadFCS:
		d.stats.CRCFailures++
		return rfdecode.Message{}, false
	case err != nil:
		d.stats.FramesDiscarded++
		return rfdecode.Message{}, false
	}

	report := ParseInfo(frame.Info)
	d.stations.Upsert(frame.Src.String(), report)

	msg := rfdecode.NewMessage(ID, freq, frame.String()+":"+string(frame.Info))
	if d.lastSNR != 0 {
		msg = msg.WithSNR(d.lastSNR)
	}
	fillFields(msg.Fields, frame, report)
	d.stats.Messages++
	return msg, true
}

func fillFields(fields map[string]string, frame *Frame, report Report) {
	fields[FieldSource] = frame.Src.String()
	fields[FieldDestination] = frame.Dest.String()
	if len(frame.Path) > 0 {
		fields[FieldPath] = frame.PathString()
	}
	fields[FieldKind] = string(report.Kind)

	if report.HasPosition {
		fields[FieldLatitude] = formatCoordinate(report.Latitude)
		fields[FieldLongitude] = formatCoordinate(report.Longitude)
		fields[FieldSymbolTable] = string(report.SymbolTable)
		fields[FieldSymbolCode] = string(report.SymbolCode)
	}
	if report.Comment != "" {
		fields[FieldComment] = report.Comment
	}
	if report.HasCourse {
		fields[FieldCourse] = fmt.Sprintf("%d", report.Course)
		fields[FieldSpeed] = fmt.Sprintf("%d", report.Speed)
	}
	if report.HasAltitude {
		fields[FieldAltitude] = fmt.Sprintf("%d", report.AltitudeFt)
	}
	if report.Status != "" {
		fields[FieldStatus] = report.Status
	}
	if report.Addressee != "" {
		fields[FieldAddressee] = report.Addressee
		fields[FieldMessageText] = report.MessageText
	}
}

// numberParam reads a numeric parameter that YAML may have decoded as
// int or float64.
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
