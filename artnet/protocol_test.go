package artnet

import (
	"encoding/binary"
	"testing"
)

func buildDMX(universe uint16, seq uint8, slots []byte) []byte {
	buf := make([]byte, headerLen+len(slots))
	copy(buf[0:8], artNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpDmx)
	binary.BigEndian.PutUint16(buf[10:12], 14) // protocol version
	buf[12] = seq
	buf[13] = 0
	binary.LittleEndian.PutUint16(buf[14:16], universe)
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(slots)))
	copy(buf[18:], slots)
	return buf
}

func TestParseValidDMX(t *testing.T) {
	slots := make([]byte, 6)
	for i := range slots {
		slots[i] = byte(i * 10)
	}

	frame, err := Parse(buildDMX(0, 7, slots))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if frame.Universe != 0 {
		t.Errorf("Universe = %d, want 0", frame.Universe)
	}
	if frame.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", frame.Sequence)
	}
	if len(frame.Slots) != len(slots) {
		t.Fatalf("len(Slots) = %d, want %d", len(frame.Slots), len(slots))
	}
	for i, v := range slots {
		if frame.Slots[i] != v {
			t.Errorf("Slots[%d] = %d, want %d", i, frame.Slots[i], v)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string][]byte{
		"too short":    {1, 2, 3},
		"bad magic":    append([]byte("NotArtNet"), make([]byte, 20)...),
		"wrong opcode": buildPollLike(),
	}

	for name, data := range cases {
		if _, err := Parse(data); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func buildPollLike() []byte {
	buf := make([]byte, headerLen)
	copy(buf[0:8], artNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], 0x2000) // ArtPoll, not ArtDmx
	return buf
}

func TestParseCapsLengthAt512(t *testing.T) {
	slots := make([]byte, 512)
	data := buildDMX(3, 1, slots)
	// Lie about the length header to exceed 512.
	binary.BigEndian.PutUint16(data[16:18], 600)

	frame, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(frame.Slots) != 512 {
		t.Errorf("len(Slots) = %d, want 512", len(frame.Slots))
	}
}

func FuzzParse(f *testing.F) {
	f.Add(buildDMX(0, 1, make([]byte, 6)))
	f.Add(buildDMX(1, 1, make([]byte, 512)))
	f.Add([]byte{})
	f.Add([]byte("Art-Net\x00"))
	f.Add(buildPollLike())

	f.Fuzz(func(t *testing.T, data []byte) {
		frame, err := Parse(data)
		if err != nil {
			return
		}
		if len(frame.Slots) > 512 {
			t.Fatalf("Slots exceeds 512 bytes: %d", len(frame.Slots))
		}
		if frame.Universe&0x8000 != 0 {
			t.Fatalf("Universe has high bit set: %d", frame.Universe)
		}
	})
}
