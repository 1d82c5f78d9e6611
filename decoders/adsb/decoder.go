package adsb

import (
	"fmt"
	"math"

	"github.com/cwsl/rfdecode"
	"github.com/cwsl/rfdecode/dsp"
)

// ID is the registry identifier of the ADS-B decoder.
const ID = "adsb"

// DefaultSampleRate is the canonical 1090 MHz capture rate: 2 MHz gives
// two magnitude samples per microsecond bit.
const DefaultSampleRate = 2_000_000

// Message field keys emitted by this decoder.
const (
	FieldICAO         = "icao"
	FieldDF           = "downlink_format"
	FieldTypeCode     = "type_code"
	FieldCallsign     = "callsign"
	FieldAltitude     = "altitude_ft"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldCPRLat       = "cpr_lat"
	FieldCPRLon       = "cpr_lon"
	FieldCPRFrame     = "cpr_frame"
	FieldSpeed        = "speed_kt"
	FieldHeading      = "heading"
	FieldVerticalRate = "vertical_rate_fpm"
)

// Decoder detects Mode S preambles in the IQ magnitude stream, extracts
// and CRC-validates 112-bit extended squitters, and maintains the aircraft
// table for everything it hears.
type Decoder struct {
	desc rfdecode.Descriptor

	// carry holds the magnitude tail of the previous buffer so frames
	// spanning buffer boundaries are still found.
	carry    []float32
	aircraft *AircraftTable

	stats rfdecode.Stats
}

// New creates an ADS-B decoder. Recognized parameters: sample_rate (must
// be 2000000, anything else is rejected rather than resampled).
func New(params map[string]interface{}) (*Decoder, error) {
	sampleRate := DefaultSampleRate
	if v, ok := numberParam(params, "sample_rate"); ok {
		sampleRate = int(v)
	}
	if sampleRate != DefaultSampleRate {
		return nil, fmt.Errorf("adsb: unsupported sample rate %d (need %d)", sampleRate, DefaultSampleRate)
	}

	return &Decoder{
		desc: rfdecode.Descriptor{
			ID:         ID,
			Name:       "ADS-B (Mode S 1090 MHz)",
			Version:    "1.0.0",
			Category:   rfdecode.CategoryAviation,
			SampleRate: sampleRate,
			Bandwidth:  2_000_000,
			IQ:         true,
		},
	}, nil
}

// Register adds the ADS-B decoder type to a registry.
func Register(r *rfdecode.Registry) error {
	desc := rfdecode.Descriptor{
		ID:         ID,
		Name:       "ADS-B (Mode S 1090 MHz)",
		Version:    "1.0.0",
		Category:   rfdecode.CategoryAviation,
		SampleRate: DefaultSampleRate,
		Bandwidth:  2_000_000,
		IQ:         true,
	}
	return r.Register(desc, func(params map[string]interface{}) (rfdecode.Decoder, error) {
		return New(params)
	})
}

// Info implements rfdecode.Decoder.
func (d *Decoder) Info() rfdecode.Descriptor { return d.desc }

// Initialize clears all accumulation state and the aircraft table.
func (d *Decoder) Initialize() error {
	d.carry = nil
	d.aircraft = NewAircraftTable()
	d.stats = rfdecode.Stats{}
	return nil
}

// Shutdown discards in-flight accumulation state.
func (d *Decoder) Shutdown() {
	d.carry = nil
}

// Aircraft exposes the table of heard aircraft.
func (d *Decoder) Aircraft() *AircraftTable { return d.aircraft }

// Stats implements rfdecode.StatsReporter.
func (d *Decoder) Stats() rfdecode.Stats { return d.stats }

// Modulation implements rfdecode.DigitalDecoder.
func (d *Decoder) Modulation() string { return "PPM" }

// SymbolRate implements rfdecode.DigitalDecoder.
func (d *Decoder) SymbolRate() float64 { return 1_000_000 }

// SyncPattern implements rfdecode.DigitalDecoder. The Mode S preamble has
// no byte form; the conventional 0x1A framing marker stands in.
func (d *Decoder) SyncPattern() []byte { return []byte{0x1a} }

// Process scans one IQ buffer for extended squitters. The magnitude tail
// shorter than a full frame is carried into the next buffer.
func (d *Decoder) Process(buf rfdecode.SampleBuffer) []rfdecode.Message {
	if buf.IQ == nil || buf.SampleRate != d.desc.SampleRate {
		return nil
	}

	mag := append(d.carry, dsp.Magnitude(buf.IQ)...)

	var messages []rfdecode.Message
	i := 0
	for i+frameSamples <= len(mag) {
		signal, noise, ok := preambleAt(mag, i)
		if !ok {
			i++
			continue
		}

		msg := extractMessage(mag, i)
		if Checksum(msg[:]) != wireCRC(msg[:]) {
			d.stats.CRCFailures++
			i++
			continue
		}

		d.stats.FramesSynced++
		if m, emitted := d.handleMessage(msg[:], buf.CenterFreq, signal, noise); emitted {
			messages = append(messages, m)
		}
		i += frameSamples
	}

	// Keep one frame minus one sample: anything shorter cannot hold a
	// preamble start we have not already scanned.
	keep := frameSamples - 1
	if keep > len(mag) {
		keep = len(mag)
	}
	d.carry = append(d.carry[:0], mag[len(mag)-keep:]...)
	return messages
}

// handleMessage unpacks one CRC-valid frame. Frames outside DF 17/18 are
// counted but produce no message.
func (d *Decoder) handleMessage(raw []byte, freq uint64, signal, noise float32) (rfdecode.Message, bool) {
	dec, ok := parseMessage(raw)
	if !ok {
		d.stats.FramesDiscarded++
		return rfdecode.Message{}, false
	}

	ac := d.aircraft.Upsert(dec)
	msg := rfdecode.NewMessage(ID, freq, fmt.Sprintf("%06X DF%d TC%d", dec.ICAO, dec.DF, dec.TypeCode))
	if noise > 0 {
		msg = msg.WithSNR(10 * math.Log10(float64(signal)/float64(noise)))
	}
	fillFields(msg.Fields, dec, ac)
	d.stats.Messages++
	return msg, true
}

func fillFields(fields map[string]string, dec Decoded, ac *Aircraft) {
	fields[FieldICAO] = fmt.Sprintf("%06X", dec.ICAO)
	fields[FieldDF] = fmt.Sprintf("%d", dec.DF)
	fields[FieldTypeCode] = fmt.Sprintf("%d", dec.TypeCode)

	if dec.HasCallsign {
		fields[FieldCallsign] = dec.Callsign
	} else if ac.Callsign != "" {
		fields[FieldCallsign] = ac.Callsign
	}
	if dec.HasAltitude {
		fields[FieldAltitude] = fmt.Sprintf("%d", dec.AltitudeFt)
	}
	if dec.HasPosition {
		fields[FieldLatitude] = fmt.Sprintf("%.5f", dec.Latitude)
		fields[FieldLongitude] = fmt.Sprintf("%.5f", dec.Longitude)
		fields[FieldCPRLat] = fmt.Sprintf("%d", dec.CPRLat)
		fields[FieldCPRLon] = fmt.Sprintf("%d", dec.CPRLon)
		if dec.CPROdd {
			fields[FieldCPRFrame] = "odd"
		} else {
			fields[FieldCPRFrame] = "even"
		}
	}
	if dec.HasVelocity {
		fields[FieldSpeed] = fmt.Sprintf("%.1f", dec.SpeedKt)
		fields[FieldHeading] = fmt.Sprintf("%.1f", dec.HeadingDeg)
		fields[FieldVerticalRate] = fmt.Sprintf("%d", dec.VerticalRate)
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
