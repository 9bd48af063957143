package pbx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure against the telephony control plane.
type Kind int

const (
	// KindValidation means the connection parameters were malformed.
	// Nothing was sent over the network.
	KindValidation Kind = iota + 1
	// KindConnection means the transport was unreachable (DNS, refused,
	// socket-level timeout).
	KindConnection
	// KindAuth means the remote accepted the connection but rejected
	// the credentials.
	KindAuth
	// KindProtocol means the remote rejected the specific command.
	KindProtocol
	// KindNotFound means the requested resource does not currently
	// exist. This is a normal outcome, not a failure.
	KindNotFound
	// KindTimeout means a bulk session's completion event never arrived
	// within the fixed window.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	case KindNotFound:
		return "not found"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a typed control-plane failure. Op names the operation that
// failed (e.g. "ari.GetChannel", "ami.RunBulkCommand").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err as a typed Error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is E with a formatted message instead of a wrapped cause.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of err, or 0 if err carries no Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err means "no active resource".
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsTimeout reports whether err is a bulk-session timeout.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsValidation reports whether err is a parameter validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
