package agent

import (
	"context"
	"errors"
	"time"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

// Dialer issues the outbound dial against the SIP trunk and waits for the
// callee's media participant to appear in the room. Two sequential
// blocking points: answer, then participant join; each fails
// independently and neither is retried within one attempt.
type Dialer struct {
	sip         SIPClient
	trunkID     string
	joinTimeout time.Duration
}

func NewDialer(sip SIPClient, trunkID string, joinTimeout time.Duration) *Dialer {
	if joinTimeout <= 0 {
		joinTimeout = 30 * time.Second
	}
	return &Dialer{sip: sip, trunkID: trunkID, joinTimeout: joinTimeout}
}

// Dial blocks until the callee answered and joined the room, and returns
// the bound participant.
func (d *Dialer) Dial(ctx context.Context, room RoomSession, info ResolvedDialInfo) (Participant, error) {
	if d.trunkID == "" {
		return Participant{}, ErrTrunkNotConfigured
	}

	logger.Log.Infof("Dialing %s into room %s (trunk %s)", info.PhoneNumber, room.Name(), d.trunkID)

	err := d.sip.CreateParticipant(ctx, SIPDialRequest{
		RoomName:          room.Name(),
		TrunkID:           d.trunkID,
		ToNumber:          info.PhoneNumber,
		Identity:          PhoneUserIdentity,
		WaitUntilAnswered: true,
	})
	if err != nil {
		derr := &DialError{Reason: DialRejected, Err: err}
		var serr *SIPStatusError
		if errors.As(err, &serr) {
			derr.SIPStatusCode = serr.Code
			derr.SIPStatus = serr.Status
		}
		return Participant{}, derr
	}

	// Answered; now wait for the media participant, under an explicit
	// bound rather than an open-ended provider wait.
	joinCtx, cancel := context.WithTimeout(ctx, d.joinTimeout)
	defer cancel()

	p, err := room.WaitForParticipant(joinCtx, PhoneUserIdentity)
	if err != nil {
		return Participant{}, &DialError{Reason: DialJoinTimeout, Err: err}
	}

	logger.Log.Infof("Participant %s joined room %s", p.Identity, room.Name())
	return p, nil
}
