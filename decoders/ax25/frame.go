package ax25

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Unpacking errors. ErrBadFCS is distinguished so callers can count
// checksum failures separately from malformed frames.
var (
	ErrFrameTooShort = errors.New("ax25: frame shorter than minimum")
	ErrBadAddress    = errors.New("ax25: malformed address field")
	ErrBadFCS        = errors.New("ax25: frame check sequence mismatch")
)

const maxDigipeaters = 8

// Address is one 7-byte AX.25 address: a callsign of up to six characters
// plus a 4-bit SSID.
type Address struct {
	Callsign string
	SSID     int
}

// String renders the address in the conventional CALL-SSID form.
func (a Address) String() string {
	if a.SSID == 0 {
		return a.Callsign
	}
	return fmt.Sprintf("%s-%d", a.Callsign, a.SSID)
}

// Frame is one unpacked AX.25 frame. Info excludes the trailing FCS.
type Frame struct {
	Dest    Address
	Src     Address
	Path    []Address
	Control byte
	PID     byte
	Info    []byte
}

// PathString renders the digipeater path as a comma-separated list.
func (f *Frame) PathString() string {
	parts := make([]string, len(f.Path))
	for i, a := range f.Path {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// String renders the frame header the way TNCs monitor it: SRC>DST,PATH.
func (f *Frame) String() string {
	header := f.Src.String() + ">" + f.Dest.String()
	if len(f.Path) > 0 {
		header += "," + f.PathString()
	}
	return header
}

// ParseFrame unpacks a destuffed frame, validating the trailing FCS first.
// Address bytes hold ASCII callsign characters shifted left by one bit; the
// seventh byte carries the SSID in bits 1-4 and the address-extension bit
// in bit 0, set on the last address of the chain.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < minFrameBytes {
		return nil, ErrFrameTooShort
	}

	content := data[:len(data)-2]
	wire := binary.LittleEndian.Uint16(data[len(data)-2:])
	if FCS(content) != wire {
		return nil, ErrBadFCS
	}

	frame := &Frame{}

	dest, _, err := parseAddress(content[0:7])
	if err != nil {
		return nil, err
	}
	src, last, err := parseAddress(content[7:14])
	if err != nil {
		return nil, err
	}
	frame.Dest = dest
	frame.Src = src

	offset := 14
	for !last {
		if len(frame.Path) >= maxDigipeaters || offset+7 > len(content) {
			return nil, ErrBadAddress
		}
		var digi Address
		digi, last, err = parseAddress(content[offset : offset+7])
		if err != nil {
			return nil, err
		}
		frame.Path = append(frame.Path, digi)
		offset += 7
	}

	if offset+2 > len(content) {
		return nil, ErrFrameTooShort
	}
	frame.Control = content[offset]
	frame.PID = content[offset+1]
	frame.Info = content[offset+2:]
	return frame, nil
}

// parseAddress unpacks one 7-byte address field. The returned flag is the
// extension bit: set means this was the last address of the chain.
func parseAddress(field []byte) (Address, bool, error) {
	var sb strings.Builder
	for _, b := range field[:6] {
		ch := b >> 1
		if ch == ' ' {
			continue
		}
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return Address{}, false, ErrBadAddress
		}
		sb.WriteByte(ch)
	}
	if sb.Len() == 0 {
		return Address{}, false, ErrBadAddress
	}

	addr := Address{
		Callsign: sb.String(),
		SSID:     int(field[6]>>1) & 0x0f,
	}
	return addr, field[6]&1 != 0, nil
}

// EncodeFrame packs a frame back into wire bytes with a freshly computed
// FCS appended. Used by tests and by external callers that need loopback
// vectors; the decode path never calls it.
func EncodeFrame(f *Frame) []byte {
	var out []byte
	addrs := append([]Address{f.Dest, f.Src}, f.Path...)
	for i, a := range addrs {
		field := encodeAddress(a, i == len(addrs)-1)
		out = append(out, field[:]...)
	}
	out = append(out, f.Control, f.PID)
	out = append(out, f.Info...)

	fcs := FCS(out)
	out = append(out, byte(fcs), byte(fcs>>8))
	return out
}

func encodeAddress(a Address, last bool) [7]byte {
	var field [7]byte
	for i := 0; i < 6; i++ {
		ch := byte(' ')
		if i < len(a.Callsign) {
			ch = a.Callsign[i]
		}
		field[i] = ch << 1
	}
	field[6] = byte(a.SSID&0x0f) << 1
	if last {
		field[6] |= 1
	}
	return field
}
