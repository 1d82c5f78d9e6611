// Package pocsag decodes POCSAG paging transmissions: brute-force sync
// correlation, batch codeword unpacking and numeric/alphanumeric message
// accumulation. No BCH(31,21) error correction is applied; a noisy channel
// corrupts or drops messages rather than correcting them.
package pocsag

import "strings"

// Wire constants.
const (
	SyncWord = 0x7CD215D8 // frame synchronization codeword
	IdleWord = 0x7A89C197 // idle codeword, skipped without touching state

	// One batch: 32-bit sync plus 8 frames x 2 codewords x 32 bits.
	BatchBits    = 512
	BatchWords   = 16
	SyncSpanBits = 32 + BatchBits
)

// Message field keys emitted by this decoder.
const (
	FieldAddress  = "address"
	FieldFunction = "function"
	FieldMode     = "mode"
)

// bcdChars maps the 4-bit numeric-mode codes. 0xC is the fill code:
// trailing fill is stripped from completed messages.
var bcdChars = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', '*', 'U', ' ', '-', ')', '(',
}

const bcdFill = ' '

// FindSync scans the bit stream for an exact 32-bit match against the sync
// codeword at every bit offset, starting at from. It returns the offset of
// the first match, or -1. Brute-force correlation, not a sliding filter.
func FindSync(bits []byte, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+32 <= len(bits); i++ {
		if wordAt(bits, i) == SyncWord {
			return i
		}
	}
	return -1
}

// wordAt packs 32 bits starting at offset, MSB first.
func wordAt(bits []byte, offset int) uint32 {
	var w uint32
	for _, b := range bits[offset : offset+32] {
		w <<= 1
		if b != 0 {
			w |= 1
		}
	}
	return w
}

// Page is one completed pager message.
type Page struct {
	Address  uint32
	Function int
	Numeric  bool
	Text     string
}

// accumulator builds one message across consecutive message codewords. It
// is transient per-batch state: a new address codeword or the end of the
// batch flushes it.
type accumulator struct {
	active   bool
	address  uint32
	function int
	text     strings.Builder
}

func (a *accumulator) start(address uint32, function int) {
	a.active = true
	a.address = address
	a.function = function
	a.text.Reset()
}

func (a *accumulator) flush() (Page, bool) {
	if !a.active {
		return Page{}, false
	}
	numeric := a.function == 0 || a.function == 1
	text := a.text.String()
	if numeric {
		text = strings.TrimRight(text, string(bcdFill))
	}
	page := Page{
		Address:  a.address,
		Function: a.function,
		Numeric:  numeric,
		Text:     text,
	}
	*a = accumulator{}
	return page, true
}

// DecodeBatch interprets the 512 bits following a sync match as 8 frames of
// 2 codewords and returns the pages completed within the batch. A message
// still accumulating at batch end is flushed.
//
// Codeword layout (MSB first): bit 31 selects address (0) or message (1).
// Address: bits 30..13 carry the high 18 address bits, bits 12..11 the
// function code; the transmitted low 3 address bits are reconstructed from
// the frame position, full = value*8 + frame. Message: bits 30..11 carry
// the 20-bit payload. No BCH check bits are inspected.
func DecodeBatch(bits []byte) []Page {
	if len(bits) < BatchBits {
		return nil
	}

	var acc accumulator
	var pages []Page
	for i := 0; i < BatchWords; i++ {
		word := wordAt(bits, i*32)
		if word == IdleWord {
			continue
		}

		frame := uint32(i / 2)
		if word&0x80000000 == 0 {
			// Address codeword: flush any message in progress first.
			if page, ok := acc.flush(); ok {
				pages = append(pages, page)
			}
			value := (word >> 13) & 0x3ffff
			function := int((word >> 11) & 0x3)
			acc.start(value*8+frame, function)
			continue
		}

		if !acc.active {
			// Message codeword with no address in progress: noise.
			continue
		}
		payload := (word >> 11) & 0xfffff
		if acc.function == 0 || acc.function == 1 {
			appendNumeric(&acc, payload)
		} else {
			appendAlpha(&acc, payload)
		}
	}

	if page, ok := acc.flush(); ok {
		pages = append(pages, page)
	}
	return pages
}

// appendNumeric unpacks five 4-bit BCD digits, most significant first.
func appendNumeric(acc *accumulator, payload uint32) {
	for shift := 16; shift >= 0; shift -= 4 {
		acc.text.WriteByte(bcdChars[(payload>>shift)&0xf])
	}
}

// appendAlpha unpacks two packed 7-bit ASCII characters from the top of the
// payload. Non-printable characters are dropped.
func appendAlpha(acc *accumulator, payload uint32) {
	for _, shift := range []int{13, 6} {
		ch := byte((payload >> shift) & 0x7f)
		if ch >= 0x20 && ch < 0x7f {
			acc.text.WriteByte(ch)
		}
	}
}
