package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

// ControllerState is the call-control state machine:
// Unbound -> Bound -> (TransferRequested | EndRequested | VoicemailDetected) -> Closed.
type ControllerState int

const (
	StateUnbound ControllerState = iota
	StateBound
	StateTransferRequested
	StateEndRequested
	StateVoicemailDetected
	StateClosed
)

func (s ControllerState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateTransferRequested:
		return "transfer_requested"
	case StateEndRequested:
		return "end_requested"
	case StateVoicemailDetected:
		return "voicemail_detected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Action is the fixed call-control action set the conversation layer can
// invoke mid-call.
type Action int

const (
	ActionTransfer Action = iota
	ActionEnd
	ActionVoicemailDetected
)

// Notifier lets the controller speak to the user through the running
// conversation session.
type Notifier interface {
	GenerateReply(ctx context.Context, instructions string) error
	WaitForPlayout(ctx context.Context) error
}

// Controller owns the single authoritative reference to the bound callee
// participant and executes control actions against the provider. The
// provider's acknowledgment is the only success signal; local state never
// assumes success on its own.
type Controller struct {
	jobID    string
	roomName string
	dialInfo ResolvedDialInfo

	sip   SIPClient
	admin RoomAdmin

	mu          sync.Mutex
	notifier    Notifier
	state       ControllerState
	participant Participant
	bound       bool
	hungUp      bool
	transferred bool
	voicemail   bool

	closed chan struct{}
}

func NewController(jobID, roomName string, dialInfo ResolvedDialInfo, sip SIPClient, admin RoomAdmin) *Controller {
	return &Controller{
		jobID:    jobID,
		roomName: roomName,
		dialInfo: dialInfo,
		sip:      sip,
		admin:    admin,
		state:    StateUnbound,
		closed:   make(chan struct{}),
	}
}

// SetNotifier wires the conversation session in. Must be called before
// the session can trigger control actions.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Bind transitions Unbound -> Bound. A second bind wins over the first,
// with a warning; the design assumes a single call per attempt.
func (c *Controller) Bind(p Participant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound {
		logger.Log.Warnf("[%s] Rebinding participant %s over %s", c.jobID, p.Identity, c.participant.Identity)
	}
	c.participant = p
	c.bound = true
	if c.state == StateUnbound {
		c.state = StateBound
	}
}

func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transferred reports whether the provider acknowledged a transfer.
func (c *Controller) Transferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferred
}

// Handle is the single dispatch point for control actions invoked by the
// conversation layer. The returned string is the reply to surface to the
// model; refusal errors (IsRefusal) are non-fatal and leave the call up.
func (c *Controller) Handle(ctx context.Context, action Action) (string, error) {
	switch action {
	case ActionTransfer:
		return c.transfer(ctx)
	case ActionEnd:
		return c.endCall(ctx)
	case ActionVoicemailDetected:
		return c.voicemailDetected(ctx)
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}
}

func (c *Controller) transfer(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != StateBound || !c.bound {
		c.mu.Unlock()
		return "cannot transfer call", ErrNotBound
	}
	transferTo := c.dialInfo.TransferTo
	if transferTo == "" {
		// Stays Bound, the conversation continues.
		c.mu.Unlock()
		return "cannot transfer call", ErrNoTransferTarget
	}
	c.state = StateTransferRequested
	participant := c.participant
	notifier := c.notifier
	c.mu.Unlock()

	logger.Log.Infof("[%s] Transferring call to %s", c.jobID, transferTo)

	// Let the message play fully before transferring.
	if notifier != nil {
		if err := notifier.GenerateReply(ctx, "let the user know you'll be transferring them"); err != nil {
			logger.Log.Warnf("[%s] Failed to announce transfer: %v", c.jobID, err)
		}
	}

	if err := c.sip.TransferParticipant(ctx, c.roomName, participant.Identity, "tel:"+transferTo); err != nil {
		logger.Log.Errorf("[%s] Error transferring call: %v", c.jobID, err)
		if notifier != nil {
			if nerr := notifier.GenerateReply(ctx, "there was an error transferring the call."); nerr != nil {
				logger.Log.Warnf("[%s] Failed to announce transfer error: %v", c.jobID, nerr)
			}
		}
		// A failed transfer never leaves the call silently connected.
		if herr := c.Hangup(ctx); herr != nil {
			logger.Log.Errorf("[%s] Hangup after failed transfer: %v", c.jobID, herr)
		}
		return "", fmt.Errorf("transfer to %s failed: %w", transferTo, err)
	}

	c.mu.Lock()
	c.transferred = true
	c.mu.Unlock()
	logger.Log.Infof("[%s] Transferred call to %s", c.jobID, transferTo)
	return "call transferred", nil
}

func (c *Controller) endCall(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return "call already ended", nil
	}
	if c.state != StateBound {
		c.mu.Unlock()
		return "cannot end call right now", ErrInvalidState
	}
	c.state = StateEndRequested
	participant := c.participant
	notifier := c.notifier
	c.mu.Unlock()

	logger.Log.Infof("[%s] Ending the call for %s", c.jobID, participant.Identity)

	// Let the agent finish speaking before tearing down.
	if notifier != nil {
		if err := notifier.WaitForPlayout(ctx); err != nil {
			logger.Log.Warnf("[%s] Wait for playout before hangup: %v", c.jobID, err)
		}
	}
	return "ending call", c.Hangup(ctx)
}

func (c *Controller) voicemailDetected(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return "call already ended", nil
	}
	if c.state != StateBound {
		c.mu.Unlock()
		return "no call in progress", ErrInvalidState
	}
	c.state = StateVoicemailDetected
	c.voicemail = true
	participant := c.participant
	c.mu.Unlock()

	// No human present, hang up without waiting for speech completion.
	logger.Log.Infof("[%s] Detected answering machine for %s", c.jobID, participant.Identity)
	return "hanging up", c.Hangup(ctx)
}

// VoicemailWasDetected reports whether the attempt ended on voicemail.
func (c *Controller) VoicemailWasDetected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voicemail
}

// Closed is closed once the call has been hung up. The conversation
// engine's lifetime is independent of the room, so whoever supervises
// the session must watch this signal to know the call itself is over.
func (c *Controller) Closed() <-chan struct{} { return c.closed }

// Hangup deletes the room, which ends the call. Idempotent: only the
// first invocation issues the provider delete; later calls are no-ops.
func (c *Controller) Hangup(ctx context.Context) error {
	c.mu.Lock()
	if c.hungUp {
		c.mu.Unlock()
		return nil
	}
	c.hungUp = true
	finalState := c.state
	c.state = StateClosed
	close(c.closed)
	c.mu.Unlock()

	logger.Log.Infof("[%s] Hanging up (from state %s), deleting room %s", c.jobID, finalState, c.roomName)
	return c.admin.DeleteRoom(ctx, c.roomName)
}
