package ami

import (
	"bufio"
	"strings"
)

// Event is one manager-protocol frame: a block of "Key: Value" lines
// terminated by a blank line. Responses to actions arrive in the same
// shape with a "Response" field instead of an "Event" field.
type Event struct {
	Type   string
	Fields map[string]string
}

// NewEvent builds an Event from alternating key/value pairs. Test helper.
func NewEvent(kvs ...string) Event {
	fields := make(map[string]string, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		fields[kvs[i]] = kvs[i+1]
	}
	return Event{Type: fields["Event"], Fields: fields}
}

// Get returns the value of a field, or "" when absent.
func (e Event) Get(key string) string {
	return e.Fields[key]
}

// IsResponse reports whether this frame answers an action rather than
// carrying an unsolicited event.
func (e Event) IsResponse() bool {
	_, ok := e.Fields["Response"]
	return ok
}

// readEvent reads one complete frame from the manager stream.
func readEvent(r *bufio.Reader) (Event, error) {
	fields := make(map[string]string)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return Event{}, err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(fields) == 0 {
				continue
			}
			break
		}

		// Parse "Key: Value"; lines without a separator are ignored.
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}

	return Event{Type: fields["Event"], Fields: fields}, nil
}
