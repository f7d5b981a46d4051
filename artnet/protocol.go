// Package artnet decodes the subset of the Art-Net protocol this bridge
// needs: ArtDmx frames on UDP/6454. Only what §4.1/§6 of the spec requires
// is implemented; ArtPoll/ArtPollReply (node discovery on the Art-Net side)
// is out of scope — the bridge is a sink for a single configured universe,
// not an Art-Net node that needs to announce itself.
package artnet

import (
	"encoding/binary"
	"errors"
)

const (
	// Port is the well-known Art-Net UDP port.
	Port = 6454

	// OpDmx is the ArtDmx OpCode.
	OpDmx = 0x5000

	headerLen = 18
)

var artNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	ErrPacketTooShort = errors.New("artnet: packet too short")
	ErrBadHeader      = errors.New("artnet: bad header magic")
	ErrNotDmx         = errors.New("artnet: not an ArtDmx packet")
)

// Frame is a decoded ArtDmx packet.
type Frame struct {
	Universe uint16 // 15-bit net/subnet/universe value
	Sequence uint8
	Slots    []byte // length == Length header field, capped at 512
}

// Parse decodes an ArtDmx packet from a raw UDP datagram. Any other
// recognized or unrecognized OpCode, or a malformed packet, returns an
// error — the caller is expected to drop it silently, per §4.1.
func Parse(data []byte) (Frame, error) {
	if len(data) < headerLen {
		return Frame{}, ErrPacketTooShort
	}
	if string(data[:8]) != string(artNetID[:]) {
		return Frame{}, ErrBadHeader
	}

	opCode := binary.LittleEndian.Uint16(data[8:10])
	if opCode != OpDmx {
		return Frame{}, ErrNotDmx
	}

	universe := binary.LittleEndian.Uint16(data[14:16]) & 0x7FFF
	length := int(binary.BigEndian.Uint16(data[16:18]))
	if length > 512 {
		length = 512
	}

	end := headerLen + length
	if end > len(data) {
		end = len(data)
	}

	slots := make([]byte, length)
	copy(slots, data[headerLen:end])

	return Frame{
		Universe: universe,
		Sequence: data[12],
		Slots:    slots,
	}, nil
}
