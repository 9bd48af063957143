package ami

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"callboard/internal/config"
	"callboard/internal/pbx"
)

const op = "ami.RunBulkCommand"

// Client runs bulk commands against the manager interface. Every command
// opens its own authenticated session and tears it down afterwards;
// nothing is shared between calls, so a Client is safe for concurrent
// use.
type Client struct {
	cfg config.AMIConfig
}

// NewClient creates an AMI client from validated configuration.
func NewClient(cfg config.AMIConfig) *Client {
	return &Client{cfg: cfg}
}

// RunBulkCommand opens a manager session, issues one action and buffers
// every event whose type is in matchEvents until completeEvent arrives,
// then logs off and disconnects. One deadline covers the whole session:
// if the completion event has not arrived when it expires, the session is
// forcibly disconnected and the partial buffer is discarded.
func (c *Client) RunBulkCommand(action string, matchEvents []string, completeEvent string) ([]Event, error) {
	window := time.Duration(c.cfg.ActionTimeout) * time.Second
	deadline := time.Now().Add(window)

	conn, err := net.DialTimeout("tcp", c.cfg.Address(), window)
	if err != nil {
		return nil, pbx.E(pbx.KindConnection, op, err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	reader := bufio.NewReader(conn)

	// Banner line ("Asterisk Call Manager/x.y")
	if _, err := reader.ReadString('\n'); err != nil {
		return nil, wrapReadErr(err, "reading banner")
	}

	if err := c.login(conn, reader); err != nil {
		return nil, err
	}
	defer c.logoff(conn)

	actionID := uuid.NewString()
	cmd := fmt.Sprintf("Action: %s\r\nActionID: %s\r\n\r\n", action, actionID)
	if _, err := conn.Write([]byte(cmd)); err != nil {
		return nil, wrapReadErr(err, "sending action")
	}

	match := make(map[string]bool, len(matchEvents))
	for _, name := range matchEvents {
		match[name] = true
	}

	var buffer []Event
	for {
		ev, err := readEvent(reader)
		if err != nil {
			// Partial buffer is discarded: a truncated listing would
			// mislead whoever asked for it.
			return nil, wrapReadErr(err, "collecting events")
		}

		// Ignore frames belonging to other sessions' actions.
		if id := ev.Get("ActionID"); id != "" && id != actionID {
			continue
		}

		if ev.IsResponse() {
			if ev.Get("Response") == "Error" {
				return nil, pbx.Errorf(pbx.KindProtocol, op,
					"action %s rejected: %s", action, ev.Get("Message"))
			}
			continue
		}

		switch {
		case ev.Type == completeEvent:
			return buffer, nil
		case match[ev.Type]:
			buffer = append(buffer, ev)
		}
	}
}

func (c *Client) login(conn net.Conn, reader *bufio.Reader) error {
	actionID := uuid.NewString()
	msg := fmt.Sprintf("Action: Login\r\nActionID: %s\r\nUsername: %s\r\nSecret: %s\r\nEvents: off\r\n\r\n",
		actionID, c.cfg.Username, c.cfg.Secret)
	if _, err := conn.Write([]byte(msg)); err != nil {
		return wrapReadErr(err, "sending login")
	}

	for {
		ev, err := readEvent(reader)
		if err != nil {
			return wrapReadErr(err, "reading login response")
		}
		if !ev.IsResponse() {
			continue
		}
		if id := ev.Get("ActionID"); id != "" && id != actionID {
			continue
		}
		if ev.Get("Response") != "Success" {
			return pbx.Errorf(pbx.KindAuth, op, "login rejected: %s", ev.Get("Message"))
		}
		return nil
	}
}

// logoff is best effort; the deadline may already have passed.
func (c *Client) logoff(conn net.Conn) {
	if _, err := conn.Write([]byte("Action: Logoff\r\n\r\n")); err != nil {
		log.Printf("[AMI] Logoff failed: %v", err)
	}
}

func wrapReadErr(err error, during string) error {
	var nerr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return pbx.E(pbx.KindTimeout, op, fmt.Errorf("%s: %w", during, err))
	}
	return pbx.E(pbx.KindConnection, op, fmt.Errorf("%s: %w", during, err))
}
