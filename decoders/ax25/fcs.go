package ax25

// FCS computes the AX.25 frame check sequence (CRC-16/X.25: reflected
// polynomial 0x1021, initial 0xFFFF, final complement) over the frame
// content. The transmitted FCS follows the content low byte first.
func FCS(data []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}
