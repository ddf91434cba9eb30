package agent

import (
	"errors"
	"fmt"

	"github.com/emiago/sipgo/sip"
)

var (
	// ErrMissingPhoneNumber means no phone number could be resolved from
	// any metadata source. Fatal before any dial is attempted.
	ErrMissingPhoneNumber = errors.New("no phone number resolved for call")

	// ErrTrunkNotConfigured means the outbound SIP trunk id is absent.
	// A configuration error, not a runtime retry case.
	ErrTrunkNotConfigured = errors.New("sip outbound trunk id not configured")

	// Refusals: surfaced back to the conversation layer as spoken
	// replies, the call keeps going.
	ErrNotBound         = errors.New("no participant bound")
	ErrNoTransferTarget = errors.New("no transfer target configured")
	ErrInvalidState     = errors.New("action not valid in current state")

	ErrUnknownAction = errors.New("unknown call control action")
)

// IsRefusal reports whether err is a non-fatal control-action refusal.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrNotBound) ||
		errors.Is(err, ErrNoTransferTarget) ||
		errors.Is(err, ErrInvalidState)
}

// SIPStatusError carries the provider-level SIP status attached to a
// failed dial. Preserved for observability, not for branching.
type SIPStatusError struct {
	Code   sip.StatusCode
	Status string
	Err    error
}

func (e *SIPStatusError) Error() string {
	return fmt.Sprintf("sip status %d %s: %v", e.Code, e.Status, e.Err)
}

func (e *SIPStatusError) Unwrap() error { return e.Err }

type DialReason int

const (
	// DialRejected: trunk/provider-level failure (busy, declined, trunk
	// error) while waiting for the answer.
	DialRejected DialReason = iota
	// DialJoinTimeout: the call was answered but no media participant
	// appeared in the room before the join timeout.
	DialJoinTimeout
)

// DialError is fatal to the call attempt. It is never retried within a
// single attempt.
type DialError struct {
	Reason        DialReason
	SIPStatusCode sip.StatusCode
	SIPStatus     string
	Err           error
}

func (e *DialError) Error() string {
	switch e.Reason {
	case DialJoinTimeout:
		return fmt.Sprintf("callee answered but never joined the room: %v", e.Err)
	default:
		if e.SIPStatusCode != 0 {
			return fmt.Sprintf("dial rejected (sip %d %s): %v", e.SIPStatusCode, e.SIPStatus, e.Err)
		}
		return fmt.Sprintf("dial rejected: %v", e.Err)
	}
}

func (e *DialError) Unwrap() error { return e.Err }

// Disposition maps the failure to a call record disposition.
func (e *DialError) Disposition() string {
	if e.Reason == DialJoinTimeout {
		return "join_timeout"
	}
	switch int(e.SIPStatusCode) {
	case 486, 600: // Busy Here, Busy Everywhere
		return "busy"
	case 480, 487, 408: // Temporarily Unavailable, Terminated, Timeout
		return "no_answer"
	default:
		return "rejected"
	}
}
