package ari

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"callboard/internal/config"
	"callboard/internal/pbx"
)

// Client performs single authenticated lookups against the ARI REST
// interface. Each call is self-contained: by default connections are not
// reused across calls, so every lookup pays its own connect cost. Pass
// WithHTTPClient to swap in a pooled client instead.
type Client struct {
	base       string
	username   string
	password   string
	technology string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default per-call transport. Use this to
// enable connection pooling without changing lookup behavior.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates an ARI client from validated configuration.
func NewClient(cfg config.ARIConfig, opts ...Option) *Client {
	c := &Client{
		base:       cfg.BaseURL(),
		username:   cfg.Username,
		password:   cfg.Password,
		technology: cfg.Technology,
		http: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
			// One connection per lookup: no keep-alive, no pooling.
			Transport: &http.Transport{DisableKeepAlives: true},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetEndpoint fetches the registration state of a device. A NotFound
// result means the device is not currently known to the PBX; callers
// must treat that as a normal outcome, not a failure.
func (c *Client) GetEndpoint(ctx context.Context, resource string) (*Endpoint, error) {
	var ep Endpoint
	path := fmt.Sprintf("/endpoints/%s/%s", c.technology, url.PathEscape(resource))
	if err := c.get(ctx, "ari.GetEndpoint", path, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// GetChannel fetches one call leg. Fails when the channel no longer
// exists, which is common under race with hangup.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	path := "/channels/" + url.PathEscape(channelID)
	if err := c.get(ctx, "ari.GetChannel", path, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetBridge fetches a mixing bridge and its member channel ids.
func (c *Client) GetBridge(ctx context.Context, bridgeID string) (*Bridge, error) {
	var br Bridge
	path := "/bridges/" + url.PathEscape(bridgeID)
	if err := c.get(ctx, "ari.GetBridge", path, &br); err != nil {
		return nil, err
	}
	return &br, nil
}

// GetChannelVar reads a single channel variable, e.g. "CDR(uniqueid)".
func (c *Client) GetChannelVar(ctx context.Context, channelID, name string) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	path := fmt.Sprintf("/channels/%s/variable?variable=%s",
		url.PathEscape(channelID), url.QueryEscape(name))
	if err := c.get(ctx, "ari.GetChannelVar", path, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return pbx.E(pbx.KindProtocol, op, err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		// DNS failure, refused connection, socket timeout: the remote
		// never answered, which is distinct from it rejecting us.
		return pbx.E(pbx.KindConnection, op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pbx.Errorf(pbx.KindAuth, op, "credentials rejected (%s)", resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return pbx.Errorf(pbx.KindNotFound, op, "resource not found")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pbx.Errorf(pbx.KindProtocol, op, "unexpected status %s: %s", resp.Status, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pbx.E(pbx.KindProtocol, op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
