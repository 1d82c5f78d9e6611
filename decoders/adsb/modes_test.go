package adsb

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameBytes(t *testing.T, h string) []byte {
	t.Helper()
	b, err := hex.DecodeString(h)
	require.NoError(t, err)
	require.Len(t, b, longMsgBytes)
	return b
}

// Well-known extended squitter captures.
const (
	identFrame    = "8D4840D6202CC371C32CE0576098" // aircraft identification
	altitudeFrame = "8D40621D58C382D690C8AC2863A7" // airborne position, even
	velocityFrame = "8D485020994409940838175B284F" // airborne velocity, subtype 1
)

func TestChecksumAcceptsKnownFrames(t *testing.T) {
	for _, h := range []string{identFrame, altitudeFrame, velocityFrame} {
		msg := frameBytes(t, h)
		assert.Equal(t, wireCRC(msg), Checksum(msg), h)
	}
}

func TestChecksumRejectsCorruption(t *testing.T) {
	msg := frameBytes(t, identFrame)
	msg[4] ^= 0x20
	assert.NotEqual(t, wireCRC(msg), Checksum(msg))
}

func TestParseIdentification(t *testing.T) {
	d, ok := parseMessage(frameBytes(t, identFrame))
	require.True(t, ok)

	assert.Equal(t, 17, d.DF)
	assert.Equal(t, 4, d.TypeCode)
	assert.Equal(t, uint32(0x4840d6), d.ICAO)
	require.True(t, d.HasCallsign)
	assert.Equal(t, "KLM1023", d.Callsign)
}

func TestParseAirbornePosition(t *testing.T) {
	d, ok := parseMessage(frameBytes(t, altitudeFrame))
	require.True(t, ok)

	assert.Equal(t, 11, d.TypeCode)
	assert.Equal(t, uint32(0x40621d), d.ICAO)
	require.True(t, d.HasAltitude)
	assert.Equal(t, 38000, d.AltitudeFt)
	require.True(t, d.HasPosition)
	assert.False(t, d.CPROdd)
	assert.Equal(t, uint32(93000), d.CPRLat)
	assert.Equal(t, uint32(51372), d.CPRLon)
}

func TestParseAirborneVelocity(t *testing.T) {
	d, ok := parseMessage(frameBytes(t, velocityFrame))
	require.True(t, ok)

	assert.Equal(t, 19, d.TypeCode)
	require.True(t, d.HasVelocity)
	assert.InDelta(t, 159.20, d.SpeedKt, 0.05)
	assert.InDelta(t, 182.88, d.HeadingDeg, 0.05)
	assert.Equal(t, -832, d.VerticalRate)
}

func TestParseRejectsOtherDownlinkFormats(t *testing.T) {
	msg := frameBytes(t, identFrame)
	msg[0] = 0x28 // DF5
	d, ok := parseMessage(msg)
	assert.False(t, ok)
	assert.Equal(t, 5, d.DF)
}

func TestDecodeIdentCharset(t *testing.T) {
	// "TEST1234" packed as 6-bit codes.
	codes := []byte{20, 5, 19, 20, 49, 50, 51, 52}
	var b [6]byte
	for i, c := range codes {
		bitPos := i * 6
		for j := 0; j < 6; j++ {
			if c&(1<<(5-j)) != 0 {
				p := bitPos + j
				b[p/8] |= 1 << (7 - p%8)
			}
		}
	}
	assert.Equal(t, "TEST1234", decodeIdent(b[:]))
}

func TestDecodeIdentTrimsPadding(t *testing.T) {
	// All-spaces field decodes to the empty string.
	var b [6]byte
	for i := 0; i < 8; i++ {
		p := i * 6
		// code 32 = space: bit pattern 100000
		b[p/8] |= 1 << (7 - p%8)
	}
	assert.Equal(t, "", decodeIdent(b[:]))
}

func TestPreambleDetection(t *testing.T) {
	mag := make([]float32, 64)
	for _, p := range []int{5, 7, 12, 14} {
		mag[p] = 1.0
	}

	_, _, ok := preambleAt(mag, 5)
	assert.True(t, ok)
	_, _, ok = preambleAt(mag, 4)
	assert.False(t, ok)
	_, _, ok = preambleAt(mag, 0)
	assert.False(t, ok)
}

func TestExtractMessage(t *testing.T) {
	want := frameBytes(t, identFrame)

	mag := make([]float32, frameSamples)
	for i := 0; i < longMsgBits; i++ {
		if want[i/8]&(1<<(7-i%8)) != 0 {
			mag[preambleSamples+i*2] = 1.0
		} else {
			mag[preambleSamples+i*2+1] = 1.0
		}
	}

	got := extractMessage(mag, 0)
	assert.Equal(t, want, got[:])
}
