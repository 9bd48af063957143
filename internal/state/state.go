package state

import "strings"

// Semantic endpoint states. Raw vendor strings outside the mapping pass
// through Normalize unchanged so that new PBX states degrade gracefully
// instead of breaking the dashboard.
const (
	StateAvailable = "available"
	StateOffline   = "offline"
	StateRinging   = "ringing"
	StateOnCall    = "on-call"
	StateDND       = "dnd"
)

// OperatorCallState is the engine's answer to "what is this operator
// doing right now". EndpointState is always set; everything else is
// best-effort and stays empty when its source could not be reached.
// A fresh value is computed on every poll; it is never cached or
// partially mutated.
type OperatorCallState struct {
	EndpointState string `json:"endpointState"`
	ChannelID     string `json:"channelId,omitempty"`
	ChannelName   string `json:"channelName,omitempty"`
	ChannelState  string `json:"channelState,omitempty"`
	CallerID      string `json:"callerId,omitempty"`
	Queue         string `json:"queue,omitempty"`
	UniqueID      string `json:"uniqueId,omitempty"`
	LinkedID      string `json:"linkedId,omitempty"`
}

// Normalize maps a raw device/channel state to its semantic value.
// Matching is case-insensitive; unknown values are returned as-is.
func Normalize(raw string) string {
	switch strings.ToLower(raw) {
	case "not_inuse":
		return StateAvailable
	case "dnd":
		return StateDND
	case "unavailable", "invalid":
		return StateOffline
	case "ring", "ringing":
		return StateRinging
	case "up", "busy":
		return StateOnCall
	default:
		return raw
	}
}
