// Package adsb decodes ADS-B Mode S extended squitters from oversampled
// amplitude data (pulse-position modulation, 2 samples per bit): preamble
// detection, bit extraction, CRC-24 validation and DF17/18 field unpacking
// into a per-aircraft state table.
package adsb

import "math"

// Frame geometry at 2 samples per bit.
const (
	preambleSamples = 16
	longMsgBits     = 112
	longMsgBytes    = longMsgBits / 8
	frameSamples    = preambleSamples + longMsgBits*2
)

// checksumTable is the standard Mode S CRC-24 generator table, one entry
// per payload bit position of a 112-bit message.
var checksumTable = [112]uint32{
	0x3935ea, 0x1c9af5, 0xf1b77e, 0x78dbbf, 0xc397db, 0x9e31e9, 0xb0e2f0, 0x587178,
	0x2c38bc, 0x161c5e, 0x0b0e2f, 0xfa7d13, 0x82c48d, 0xbe9842, 0x5f4c21, 0xd05c14,
	0x682e0a, 0x341705, 0xe5f186, 0x72f8c3, 0xc68665, 0x9cb936, 0x4e5c9b, 0xd8d449,
	0x939020, 0x49c810, 0x24e408, 0x127204, 0x093902, 0x049c81, 0xfdb444, 0x7eda22,
	0x3f6d11, 0xe04c8c, 0x702646, 0x381323, 0xe3f395, 0x8e03ce, 0x4701e7, 0xdc7af7,
	0x91c77f, 0xb719bb, 0xa476d9, 0xadc168, 0x56e0b4, 0x2b705a, 0x15b82d, 0xf52612,
	0x7a9309, 0xc2b380, 0x6159c0, 0x30ace0, 0x185670, 0x0c2b38, 0x06159c, 0x030ace,
	0x018567, 0xff38b7, 0x80665f, 0xbfc92b, 0xa01e91, 0xaff54c, 0x57faa6, 0x2bfd53,
	0xea04ad, 0x8af852, 0x457c29, 0xdd4410, 0x6ea208, 0x375104, 0x1ba882, 0x0dd441,
	0xf91024, 0x7c8812, 0x3e4409, 0xe0d800, 0x706c00, 0x383600, 0x1c1b00, 0x0e0d80,
	0x0706c0, 0x038360, 0x01c1b0, 0x00e0d8, 0x00706c, 0x003836, 0x001c1b, 0xfff409,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
}

// Checksum computes the CRC-24 over the first 88 bits of a long message.
func Checksum(msg []byte) uint32 {
	var crc uint32
	for j := 0; j < longMsgBits-24; j++ {
		if msg[j/8]&(1<<(7-j%8)) != 0 {
			crc ^= checksumTable[j]
		}
	}
	return crc & 0xffffff
}

// wireCRC extracts the parity field transmitted in the last three bytes.
func wireCRC(msg []byte) uint32 {
	n := len(msg)
	return uint32(msg[n-3])<<16 | uint32(msg[n-2])<<8 | uint32(msg[n-1])
}

// identCharset is the 6-bit packed alphanumeric character set used in
// aircraft identification messages. '#' marks unassigned codes.
const identCharset = "#ABCDEFGHIJKLMNOPQRSTUVWXYZ#####" +
	" ###############0123456789######"

// preambleAt tests for a Mode S preamble starting at offset i: pulses at
// sample offsets 0, 2, 7 and 9 above the surrounding level, quiet between
// the pulses and in the stretch before the data bits.
func preambleAt(mag []float32, i int) (signal, noise float32, ok bool) {
	m := mag[i:]
	if !(m[0] > m[1] && m[1] < m[2] && m[2] > m[3] &&
		m[3] < m[0] && m[4] < m[0] && m[5] < m[0] && m[6] < m[0] &&
		m[7] > m[8] && m[8] < m[9] && m[9] > m[6]) {
		return 0, 0, false
	}

	// Threshold for the quiet samples, deliberately below the pulse
	// average so fading pulses still pass.
	high := (m[0] + m[2] + m[7] + m[9]) / 6
	if m[4] >= high || m[5] >= high {
		return 0, 0, false
	}
	if m[11] >= high || m[12] >= high || m[13] >= high || m[14] >= high {
		return 0, 0, false
	}

	signal = (m[0] + m[2] + m[7] + m[9]) / 4
	noise = (m[4] + m[5] + m[11] + m[12] + m[13] + m[14]) / 6
	return signal, noise, true
}

// extractMessage slices 112 bits out of the amplitude stream following the
// preamble, two samples per bit: a pulse in the first half-bit is a 1.
// Bits are packed MSB first.
func extractMessage(mag []float32, start int) [longMsgBytes]byte {
	var msg [longMsgBytes]byte
	data := mag[start+preambleSamples:]
	for i := 0; i < longMsgBits; i++ {
		if data[i*2] > data[i*2+1] {
			msg[i/8] |= 1 << (7 - i%8)
		}
	}
	return msg
}

// Decoded is the typed content of one accepted Mode S frame.
type Decoded struct {
	DF       int
	TypeCode int
	ICAO     uint32

	Callsign    string
	HasCallsign bool

	AltitudeFt  int
	HasAltitude bool
	CPRLat      uint32
	CPRLon      uint32
	CPROdd      bool
	Latitude    float64
	Longitude   float64
	HasPosition bool

	SpeedKt      float64
	HeadingDeg   float64
	VerticalRate int
	HasVelocity  bool
}

// parseMessage dispatches an already CRC-validated long message. Only
// DF 17/18 (extended squitter) carry ADS-B payloads; everything else is
// identified but yields no fields.
func parseMessage(msg []byte) (Decoded, bool) {
	d := Decoded{
		DF:   int(msg[0] >> 3),
		ICAO: uint32(msg[1])<<16 | uint32(msg[2])<<8 | uint32(msg[3]),
	}
	if d.DF != 17 && d.DF != 18 {
		return d, false
	}

	d.TypeCode = int(msg[4] >> 3)
	switch {
	case d.TypeCode >= 1 && d.TypeCode <= 4:
		d.Callsign = decodeIdent(msg[5:11])
		d.HasCallsign = true
	case d.TypeCode >= 9 && d.TypeCode <= 18:
		decodeAirbornePosition(msg, &d)
	case d.TypeCode == 19:
		decodeAirborneVelocity(msg, &d)
	}
	return d, true
}

// decodeIdent unpacks eight 6-bit characters from six bytes and trims the
// space padding.
func decodeIdent(b []byte) string {
	codes := [8]byte{
		b[0] >> 2,
		(b[0]&0x03)<<4 | b[1]>>4,
		(b[1]&0x0f)<<2 | b[2]>>6,
		b[2] & 0x3f,
		b[3] >> 2,
		(b[3]&0x03)<<4 | b[4]>>4,
		(b[4]&0x0f)<<2 | b[5]>>6,
		b[5] & 0x3f,
	}

	out := make([]byte, 0, 8)
	for _, c := range codes {
		out = append(out, identCharset[c])
	}
	for len(out) > 0 && (out[len(out)-1] == ' ' || out[len(out)-1] == '#') {
		out = out[:len(out)-1]
	}
	return string(out)
}

// decodeAirbornePosition extracts the 12-bit altitude (x25-1000 ft
// encoding when the Q bit is set) and the raw CPR coordinates. The
// latitude/longitude produced here is a single-frame approximation, not
// the odd/even dual-frame CPR solution; global accuracy is limited until
// the paired decode is implemented.
func decodeAirbornePosition(msg []byte, d *Decoded) {
	altField := (uint32(msg[5])<<4 | uint32(msg[6])>>4) & 0xfff
	if altField&0x10 != 0 {
		n := int((altField&0xfe0)>>1 | altField&0x0f)
		d.AltitudeFt = n*25 - 1000
		d.HasAltitude = true
	}

	d.CPROdd = msg[6]&0x04 != 0
	d.CPRLat = uint32(msg[6]&0x03)<<15 | uint32(msg[7])<<7 | uint32(msg[8])>>1
	d.CPRLon = uint32(msg[8]&0x01)<<16 | uint32(msg[9])<<8 | uint32(msg[10])

	d.Latitude = approxCoordinate(d.CPRLat)
	d.Longitude = approxCoordinate(d.CPRLon)
	d.HasPosition = true
}

// approxCoordinate maps a raw 17-bit CPR value onto a degree scale.
func approxCoordinate(cpr uint32) float64 {
	deg := float64(cpr) / 131072 * 360
	if deg > 180 {
		deg -= 360
	}
	return deg
}

// decodeAirborneVelocity combines the east/west and north/south components
// of subtype 1/2 messages into ground speed and heading.
func decodeAirborneVelocity(msg []byte, d *Decoded) {
	subtype := msg[4] & 0x07
	if subtype != 1 && subtype != 2 {
		return
	}

	ewRaw := int(msg[5]&0x03)<<8 | int(msg[6])
	nsRaw := int(msg[7]&0x7f)<<3 | int(msg[8])>>5
	if ewRaw == 0 || nsRaw == 0 {
		return
	}

	ew := float64(ewRaw - 1)
	if msg[5]&0x04 != 0 {
		ew = -ew
	}
	ns := float64(nsRaw - 1)
	if msg[7]&0x80 != 0 {
		ns = -ns
	}

	d.SpeedKt = math.Hypot(ew, ns)
	d.HeadingDeg = math.Atan2(ew, ns) * 180 / math.Pi
	if d.HeadingDeg < 0 {
		d.HeadingDeg += 360
	}
	d.HasVelocity = true

	vrRaw := int(msg[8]&0x07)<<6 | int(msg[9])>>2
	if vrRaw != 0 {
		d.VerticalRate = (vrRaw - 1) * 64
		if msg[8]&0x08 != 0 {
			d.VerticalRate = -d.VerticalRate
		}
	}
}
