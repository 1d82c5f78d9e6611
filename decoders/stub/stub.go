// Package stub registers placeholder decoders for protocols whose
// descriptors and tuning parameters are settled but whose demodulation is
// not yet implemented. They participate fully in registration, routing and
// lifecycle so a configuration can list them today; Process consumes
// buffers and emits nothing.
package stub

import "github.com/cwsl/rfdecode"

// Decoder is a typed placeholder: full descriptor, full lifecycle, no
// output.
type Decoder struct {
	desc rfdecode.Descriptor
}

// New wraps a descriptor in a placeholder decoder.
func New(desc rfdecode.Descriptor) *Decoder { return &Decoder{desc: desc} }

// Info implements rfdecode.Decoder.
func (d *Decoder) Info() rfdecode.Descriptor { return d.desc }

// Initialize implements rfdecode.Decoder.
func (d *Decoder) Initialize() error { return nil }

// Shutdown implements rfdecode.Decoder.
func (d *Decoder) Shutdown() {}

// Process implements rfdecode.Decoder. Buffers are accepted and dropped.
func (d *Decoder) Process(rfdecode.SampleBuffer) []rfdecode.Message { return nil }

// Descriptors lists every placeholder protocol with its real-world rate,
// bandwidth and band placement, so routing and configuration behave exactly
// as they will once the demodulators land.
func Descriptors() []rfdecode.Descriptor {
	return []rfdecode.Descriptor{
		{
			ID: "ft8", Name: "FT8", Version: "0.1.0",
			Category: rfdecode.CategoryAmateur, SampleRate: 12000, Bandwidth: 50,
		},
		{
			ID: "wspr", Name: "WSPR", Version: "0.1.0",
			Category: rfdecode.CategoryAmateur, SampleRate: 12000, Bandwidth: 6,
		},
		{
			ID: "psk31", Name: "PSK31", Version: "0.1.0",
			Category: rfdecode.CategoryAmateur, SampleRate: 8000, Bandwidth: 31,
		},
		{
			ID: "rtty", Name: "RTTY (Baudot 45.45)", Version: "0.1.0",
			Category: rfdecode.CategoryAmateur, SampleRate: 8000, Bandwidth: 170,
		},
		{
			ID: "dmr", Name: "DMR", Version: "0.1.0",
			Category: rfdecode.CategoryVoiceDigital, SampleRate: 48000, Bandwidth: 12500,
		},
		{
			ID: "p25", Name: "P25 Phase 1", Version: "0.1.0",
			Category: rfdecode.CategoryVoiceDigital, SampleRate: 48000, Bandwidth: 12500,
		},
		{
			ID: "lora", Name: "LoRa", Version: "0.1.0",
			Category: rfdecode.CategoryData, SampleRate: 1_000_000, Bandwidth: 125000, IQ: true,
		},
		{
			ID: "flex", Name: "FLEX", Version: "0.1.0",
			Category: rfdecode.CategoryPaging, SampleRate: 48000, Bandwidth: 25000,
		},
		{
			ID: "acars", Name: "ACARS", Version: "0.1.0",
			Category: rfdecode.CategoryAviation, SampleRate: 48000, Bandwidth: 10000,
		},
	}
}

// Register adds every placeholder decoder type to a registry.
func Register(r *rfdecode.Registry) error {
	for _, desc := range Descriptors() {
		desc := desc
		err := r.Register(desc, func(map[string]interface{}) (rfdecode.Decoder, error) {
			return New(desc), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
