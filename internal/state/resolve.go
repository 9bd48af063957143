package state

import (
	"context"
	"fmt"
	"log"

	"callboard/internal/ari"
	"callboard/internal/pbx"
)

// Fetcher is the slice of the control plane the engine needs. Satisfied
// by *ari.Client.
type Fetcher interface {
	GetEndpoint(ctx context.Context, resource string) (*ari.Endpoint, error)
	GetChannel(ctx context.Context, channelID string) (*ari.Channel, error)
	GetBridge(ctx context.Context, bridgeID string) (*ari.Bridge, error)
	GetChannelVar(ctx context.Context, channelID, name string) (string, error)
}

// Engine reconstructs one coherent OperatorCallState from the fragmented
// objects the control plane exposes. It holds no mutable state, so
// resolutions for different operators may run concurrently.
type Engine struct {
	pbx Fetcher
}

// NewEngine creates a resolution engine over the given control plane.
func NewEngine(f Fetcher) *Engine {
	return &Engine{pbx: f}
}

// Resolve produces the call state of the operator registered at the
// given extension.
//
// Only the initial endpoint lookup can fail the resolution. Every later
// fetch runs under a degrade policy: its failure leaves the field it
// feeds unset and the rest of the chain continues. A missing endpoint is
// a normal outcome and resolves to offline.
func (e *Engine) Resolve(ctx context.Context, extension string) (OperatorCallState, error) {
	ep, err := e.pbx.GetEndpoint(ctx, extension)
	if err != nil {
		if pbx.IsNotFound(err) {
			return OperatorCallState{EndpointState: StateOffline}, nil
		}
		return OperatorCallState{}, fmt.Errorf("resolving endpoint %s: %w", extension, err)
	}

	st := OperatorCallState{EndpointState: Normalize(ep.State)}

	// Fast path: operator idle. No further lookups.
	if len(ep.ChannelIDs) == 0 {
		return st, nil
	}

	// The first listed channel is taken as the controlling leg. Asterisk
	// puts the newest leg first; there is no secondary tie-break, so
	// under call waiting a second call on the same device is invisible.
	ch := e.channelOrNil(ctx, ep.ChannelIDs[0])
	if ch == nil {
		// Channel vanished between the two lookups (hangup race).
		// Degrade to endpoint-derived state only.
		return st, nil
	}

	st.ChannelID = ch.ID
	st.ChannelName = ch.Name
	st.ChannelState = ch.State
	// Channel state tracks call progress more precisely than the
	// device registration state, so it wins while a leg exists.
	st.EndpointState = Normalize(ch.State)
	st.Queue = ch.Dialplan.Context

	if ch.BridgeID != "" {
		e.resolvePeer(ctx, ch, &st)
	}

	if st.CallerID == "" {
		st.CallerID = e.varOrEmpty(ctx, ch.ID, "CONNECTEDLINE(num)")
	}
	if st.CallerID == "" && ch.CreatorID != "" {
		// Legs originated on the operator's behalf (outbound, transfers)
		// carry the external party on the creator channel.
		if creator := e.channelOrNil(ctx, ch.CreatorID); creator != nil {
			st.CallerID = creator.Caller.Number
		}
	}

	// linkedid survives transfers where a per-leg uniqueid does not,
	// so it is both the LinkedID output and the preferred fallback
	// correlation id.
	st.LinkedID = e.varOrEmpty(ctx, ch.ID, "CDR(linkedid)")
	if st.UniqueID == "" {
		st.UniqueID = st.LinkedID
	}
	if st.UniqueID == "" {
		st.UniqueID = e.varOrEmpty(ctx, ch.ID, "CDR(uniqueid)")
	}

	return st, nil
}

// resolvePeer fills CallerID and UniqueID from the far side of the
// operator's bridge. The peer leg usually anchors the real call record,
// so its uniqueid beats anything on the operator's own leg.
func (e *Engine) resolvePeer(ctx context.Context, ch *ari.Channel, st *OperatorCallState) {
	br := e.bridgeOrNil(ctx, ch.BridgeID)
	if br == nil {
		return
	}

	// First member that is not our own leg. Assumes a two-party call;
	// in a conference bridge this picks an arbitrary participant.
	peerID := ""
	for _, member := range br.Channels {
		if member != ch.ID {
			peerID = member
			break
		}
	}
	if peerID == "" {
		return
	}

	st.UniqueID = e.varOrEmpty(ctx, peerID, "CDR(uniqueid)")
	if peer := e.channelOrNil(ctx, peerID); peer != nil {
		st.CallerID = peer.Caller.Number
	}
}

// channelOrNil, bridgeOrNil and varOrEmpty implement the degrade half of
// the fetch-or-degrade policy: any failure is logged and converted to
// the zero value, never propagated.

func (e *Engine) channelOrNil(ctx context.Context, id string) *ari.Channel {
	ch, err := e.pbx.GetChannel(ctx, id)
	if err != nil {
		log.Printf("[State] Degrading: channel %s: %v", id, err)
		return nil
	}
	return ch
}

func (e *Engine) bridgeOrNil(ctx context.Context, id string) *ari.Bridge {
	br, err := e.pbx.GetBridge(ctx, id)
	if err != nil {
		log.Printf("[State] Degrading: bridge %s: %v", id, err)
		return nil
	}
	return br
}

func (e *Engine) varOrEmpty(ctx context.Context, channelID, name string) string {
	v, err := e.pbx.GetChannelVar(ctx, channelID, name)
	if err != nil {
		log.Printf("[State] Degrading: %s on %s: %v", name, channelID, err)
		return ""
	}
	return v
}
