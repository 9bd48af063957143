package ari

// Endpoint is a device registration as exposed by the control plane.
// It is a read-only projection: the PBX owns its lifecycle.
type Endpoint struct {
	Technology string   `json:"technology"`
	Resource   string   `json:"resource"`
	State      string   `json:"state"`
	ChannelIDs []string `json:"channel_ids"`
}

// CallerID is a name/number pair attached to a channel.
type CallerID struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Dialplan is the location of a channel in the dialplan.
type Dialplan struct {
	Context  string `json:"context"`
	Exten    string `json:"exten"`
	Priority int64  `json:"priority"`
}

// Channel is one leg of a call. Channels are ephemeral: created when a
// leg is established, destroyed at hangup, so any lookup can race a
// hangup and fail.
type Channel struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Caller    CallerID `json:"caller"`
	Connected CallerID `json:"connected"`
	Dialplan  Dialplan `json:"dialplan"`
	BridgeID  string   `json:"bridge_id,omitempty"`
	CreatorID string   `json:"creator,omitempty"`
}

// Bridge is a mixing point joining two or more channels.
type Bridge struct {
	ID         string   `json:"id"`
	Technology string   `json:"technology"`
	BridgeType string   `json:"bridge_type"`
	Channels   []string `json:"channels"`
}
