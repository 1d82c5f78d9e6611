package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cwsl/rfdecode"
)

// SampleReader turns a raw capture file (or stdin) into SampleBuffers of a
// fixed chunk size. Two formats are understood: pcm16 (signed 16-bit
// little-endian audio) and iq8 (unsigned 8-bit I/Q pairs, rtl-sdr style).
type SampleReader struct {
	r          *bufio.Reader
	closer     io.Closer
	format     string
	sampleRate int
	centerFreq uint64
	chunkSize  int
}

// NewSampleReader opens the input described by the configuration. A path of
// "-" reads from stdin.
func NewSampleReader(cfg rfdecode.InputConfig) (*SampleReader, error) {
	var (
		src    io.Reader
		closer io.Closer
	)
	if cfg.Path == "-" {
		src = os.Stdin
	} else {
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		src = f
		closer = f
	}

	return &SampleReader{
		r:          bufio.NewReaderSize(src, 1<<16),
		closer:     closer,
		format:     cfg.Format,
		sampleRate: cfg.SampleRate,
		centerFreq: cfg.CenterFreq,
		chunkSize:  cfg.ChunkSize,
	}, nil
}

// Next reads one chunk. A short final chunk is returned as-is; io.EOF
// signals the end of the capture.
func (s *SampleReader) Next() (rfdecode.SampleBuffer, error) {
	buf := rfdecode.SampleBuffer{
		SampleRate: s.sampleRate,
		CenterFreq: s.centerFreq,
	}

	switch s.format {
	case "pcm16":
		raw := make([]byte, s.chunkSize*2)
		n, err := io.ReadFull(s.r, raw)
		if n == 0 {
			return buf, io.EOF
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return buf, err
		}
		samples := make([]float32, n/2)
		for i := range samples {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			samples[i] = float32(v) / 32768
		}
		buf.Samples = samples
		return buf, nil

	case "iq8":
		raw := make([]byte, s.chunkSize*2)
		n, err := io.ReadFull(s.r, raw)
		if n < 2 {
			return buf, io.EOF
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return buf, err
		}
		iq := make([]complex64, n/2)
		for i := range iq {
			re := (float32(raw[i*2]) - 127.5) / 127.5
			im := (float32(raw[i*2+1]) - 127.5) / 127.5
			iq[i] = complex(re, im)
		}
		buf.IQ = iq
		return buf, nil

	default:
		return buf, fmt.Errorf("unknown input format %q", s.format)
	}
}

// Close releases the underlying file, if any.
func (s *SampleReader) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
