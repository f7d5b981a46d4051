// Package wiz implements the JSON-over-UDP control protocol spoken by the
// consumer smart bulbs this bridge drives (port 38899): setPilot/getPilot
// requests and replies, per §4.4/§6.
package wiz

import "encoding/json"

// Port is the bulb control/reply UDP port.
const Port = 38899

// SlotVector is the semantic state derived from six raw DMX slots (§3).
type SlotVector struct {
	R, G, B, C, W uint8
	Dimming       uint8 // 0-100
	State         bool
}

// Equal reports whether two vectors carry the same field values.
func (v SlotVector) Equal(o SlotVector) bool {
	return v == o
}

type setPilotParams struct {
	R       uint8  `json:"r"`
	G       uint8  `json:"g"`
	B       uint8  `json:"b"`
	C       *uint8 `json:"c,omitempty"`
	W       *uint8 `json:"w,omitempty"`
	Dimming uint8  `json:"dimming"`
	State   bool   `json:"state"`
}

type request struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// EncodeSetPilot builds the {"id":1,"method":"setPilot","params":{...}}
// datagram for v. c/w are included only when > 0, per §4.4. The id field
// is always literal 1 — no reply correlation is performed (§9).
func EncodeSetPilot(v SlotVector) ([]byte, error) {
	params := setPilotParams{
		R:       v.R,
		G:       v.G,
		B:       v.B,
		Dimming: v.Dimming,
		State:   v.State,
	}
	if v.C > 0 {
		c := v.C
		params.C = &c
	}
	if v.W > 0 {
		w := v.W
		params.W = &w
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	return json.Marshal(request{ID: 1, Method: "setPilot", Params: rawParams})
}

// EncodeGetPilot builds the {"id":1,"method":"getPilot","params":{}} probe
// datagram used by both discovery (§4.6) and the off-verifier (§4.5).
func EncodeGetPilot() ([]byte, error) {
	return json.Marshal(request{ID: 1, Method: "getPilot", Params: json.RawMessage("{}")})
}

// GetPilotResult is the decoded "result" object of a getPilot reply. Extra
// fields present on real bulbs (temp, sceneId, ...) are preserved in Raw
// for callers that need them (discovery reports the raw result, §4.6).
type GetPilotResult struct {
	MAC     string `json:"mac"`
	State   bool   `json:"state"`
	Dimming uint8  `json:"dimming"`
	RSSI    int    `json:"rssi"`
	Raw     map[string]any
}

type getPilotReply struct {
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
}

// ParseGetPilotReply decodes a getPilot reply datagram. Any other shape
// (wrong method, missing result, malformed JSON) returns an error; callers
// drop it silently per §7.
func ParseGetPilotReply(data []byte) (GetPilotResult, error) {
	var reply getPilotReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return GetPilotResult{}, err
	}
	if reply.Method != "getPilot" || reply.Result == nil {
		return GetPilotResult{}, errNotGetPilotReply
	}

	var raw map[string]any
	if err := json.Unmarshal(reply.Result, &raw); err != nil {
		return GetPilotResult{}, err
	}

	result := GetPilotResult{Raw: raw}
	if mac, ok := raw["mac"].(string); ok {
		result.MAC = mac
	}
	if state, ok := raw["state"].(bool); ok {
		result.State = state
	}
	if dimming, ok := raw["dimming"].(float64); ok {
		result.Dimming = uint8(dimming)
	}
	if rssi, ok := raw["rssi"].(float64); ok {
		result.RSSI = int(rssi)
	}

	return result, nil
}
