package canadensis

// CRC is the 16-bit transfer checksum (CRC-16/CCITT-FALSE, polynomial 0x1021,
// initial value 0xFFFF, no reflection, no output XOR). It is computed over the
// full unsegmented payload of a multi-frame transfer and appended big-endian
// before segmentation. Feeding the payload followed by its own checksum
// through the CRC yields zero, which is how the receive side verifies it.
type CRC uint16

func newCRC() CRC { return 0xFFFF }

func (c CRC) AddByte(b byte) CRC {
	c ^= CRC(b) << 8
	for i := 0; i < 8; i++ {
		if c&0x8000 != 0 {
			c = (c << 1) ^ 0x1021
		} else {
			c <<= 1
		}
	}
	return c
}

func (c CRC) Add(p []byte) CRC {
	for _, b := range p {
		c = c.AddByte(b)
	}
	return c
}
