// Package bulb holds the bridge's per-bulb data model: records supplied by
// the external store, derived slot vectors, and the bounded per-bulb queue
// and serial pump that coalesce and transmit them (§3, §4.2, §4.3).
package bulb

import (
	"github.com/pjlighting/artwiz-bridge/wiz"
)

// Record is a physical bulb as supplied by the external record store. The
// core treats it read-only (§3).
type Record struct {
	MAC     string `json:"mac"` // canonical form: lowercase hex, colon-separated
	IP      string `json:"ip"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Channel int    `json:"channel"` // 1-based DMX starting slot
}

// SlotRange returns the 0-based [start, end) byte range this bulb occupies
// within a 512-byte universe: slots channel-1..channel+4 inclusive (6
// slots), per §3 and the deliberately-preserved off-by-one documented in
// §9 ("source reads data[channel-1] as the first slot but then
// data[channel]..data[channel+4] as the next five").
func (r Record) SlotRange() (start, end int) {
	start = r.Channel - 1
	end = start + 6
	return start, end
}

// DeriveSlotVector computes the semantic SlotVector for a bulb from a raw
// DMX universe buffer, reading out-of-range slots as 0 (§4.2).
func DeriveSlotVector(universe []byte, rec Record) wiz.SlotVector {
	start, _ := rec.SlotRange()
	raw := make([]byte, 6)
	for i := 0; i < 6; i++ {
		idx := start + i
		if idx >= 0 && idx < len(universe) {
			raw[i] = universe[idx]
		}
	}

	dimmerRaw := raw[5]
	dimming := uint8((uint32(dimmerRaw)*100 + 127) / 255)
	if dimming > 100 {
		dimming = 100
	}

	return wiz.SlotVector{
		R:       raw[0],
		G:       raw[1],
		B:       raw[2],
		C:       raw[3],
		W:       raw[4],
		Dimming: dimming,
		State:   dimming > 0,
	}
}
