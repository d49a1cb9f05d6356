package canadensis

import "testing"

func TestCRCKnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	got := newCRC().Add([]byte("123456789"))
	if got != 0x29B1 {
		t.Errorf("crc of check string = %#04x, expected 0x29b1", got)
	}
}

func TestCRCSelfVerifies(t *testing.T) {
	payload := patternPayload(37)
	crc := newCRC().Add(payload)
	residue := newCRC().Add(payload).AddByte(byte(crc >> 8)).AddByte(byte(crc & 0xff))
	if residue != 0 {
		t.Errorf("appending the big-endian CRC must leave residue zero, got %#04x", residue)
	}
}

func TestCRCEmpty(t *testing.T) {
	if got := newCRC().Add(nil); got != 0xFFFF {
		t.Errorf("crc of nothing must stay at the initial value, got %#04x", got)
	}
}
