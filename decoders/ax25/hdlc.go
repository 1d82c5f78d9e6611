// Package ax25 decodes AFSK1200 AX.25 frames and the APRS payloads they
// carry: HDLC frame synchronization with bit destuffing, address and field
// unpacking, FCS validation and APRS position/status/message parsing.
package ax25

type hdlcState int

const (
	stateSearching hdlcState = iota
	stateInFrame
)

// Frames shorter than two 7-byte addresses + control + PID + 2-byte FCS
// cannot be valid AX.25.
const minFrameBytes = 17

// Candidate frames longer than this are noise, not packets.
const maxFrameBytes = 512

// Deframer extracts HDLC frames from a continuous bit stream. It is driven
// incrementally, one bit at a time, never blocks, and tolerates an
// unbounded preamble of flags with no frame content.
//
// A run of six consecutive 1-bits closed by a 0 is a flag. While in a
// frame, a 0 following exactly five 1-bits was inserted by the sender for
// bit stuffing and is discarded. A flag inside a frame terminates it and
// opens the next one; seven or more 1-bits abandon the frame.
type Deframer struct {
	state hdlcState
	last8 byte // raw bit shift register for flag hunting
	ones  int
	bits  []byte
}

// NewDeframer returns a deframer hunting for its first flag.
func NewDeframer() *Deframer {
	return &Deframer{state: stateSearching}
}

// Reset returns the deframer to the searching state and discards any
// partially accumulated frame.
func (d *Deframer) Reset() {
	d.state = stateSearching
	d.last8 = 0
	d.ones = 0
	d.bits = d.bits[:0]
}

// Push consumes one bit (0 or 1) and returns any frames completed by it.
// Returned frames are destuffed and packed into bytes least-significant-bit
// first, trailing FCS included. Candidates that are not a whole number of
// octets or are shorter than the minimum AX.25 length are dropped here.
func (d *Deframer) Push(bit byte) [][]byte {
	d.last8 >>= 1
	if bit != 0 {
		d.last8 |= 0x80
	}

	if d.state == stateSearching {
		if d.last8 == 0x7e {
			d.state = stateInFrame
			d.bits = d.bits[:0]
			d.ones = 0
		}
		return nil
	}

	var frames [][]byte
	if bit != 0 {
		d.ones++
		if d.ones >= 7 {
			// Seven 1s in a row never occur in valid data. Loss of signal.
			d.Reset()
			return nil
		}
		d.bits = append(d.bits, 1)
	} else {
		switch d.ones {
		case 5:
			// Exactly five 1s then 0: the 0 is a stuffed bit, discard it.
		case 6:
			// Closing flag. The flag's opening 0 and six 1s were
			// accumulated as if they were data; strip them off the end.
			// A truncated flag right after an opener leaves fewer than
			// seven bits, so there is no candidate to strip.
			if len(d.bits) >= 7 {
				if frame, ok := packFrame(d.bits[:len(d.bits)-7]); ok {
					frames = append(frames, frame)
				}
			}
			d.bits = d.bits[:0]
		default:
			d.bits = append(d.bits, 0)
		}
		d.ones = 0
	}

	if len(d.bits) > maxFrameBytes*8 {
		d.Reset()
	}
	return frames
}

// packFrame packs destuffed frame bits into bytes, LSB first. Candidates
// that are not whole octets or are too short to be a frame are rejected.
func packFrame(bits []byte) ([]byte, bool) {
	if len(bits) < minFrameBytes*8 || len(bits)%8 != 0 {
		return nil, false
	}

	frame := make([]byte, len(bits)/8)
	for i, bit := range bits {
		if bit != 0 {
			frame[i/8] |= 1 << (i % 8)
		}
	}
	return frame, true
}
