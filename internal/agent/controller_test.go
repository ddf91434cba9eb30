package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundController(sip SIPClient, admin RoomAdmin, transferTo string) *Controller {
	ctrl := NewController("job-1", "room-1", ResolvedDialInfo{
		FirstName:   "Jayden",
		PhoneNumber: "+15105550123",
		TransferTo:  transferTo,
	}, sip, admin)
	ctrl.Bind(Participant{Identity: PhoneUserIdentity, SID: "PA_test"})
	return ctrl
}

func TestControllerTransferUnbound(t *testing.T) {
	sip := &fakeSIP{}
	admin := &fakeAdmin{}
	ctrl := NewController("job-1", "room-1", ResolvedDialInfo{TransferTo: "+15105550999"}, sip, admin)

	reply, err := ctrl.Handle(context.Background(), ActionTransfer)
	assert.ErrorIs(t, err, ErrNotBound)
	assert.True(t, IsRefusal(err))
	assert.Equal(t, "cannot transfer call", reply)
	assert.Empty(t, sip.transfers)
	assert.Equal(t, 0, admin.count(), "a refused transfer must not tear the call down")
}

func TestControllerTransferNoTarget(t *testing.T) {
	sip := &fakeSIP{}
	admin := &fakeAdmin{}
	ctrl := boundController(sip, admin, "")

	reply, err := ctrl.Handle(context.Background(), ActionTransfer)
	assert.ErrorIs(t, err, ErrNoTransferTarget)
	assert.True(t, IsRefusal(err))
	assert.Equal(t, "cannot transfer call", reply)

	// The call stays up and a later end_call still works.
	assert.Equal(t, StateBound, ctrl.State())
	_, err = ctrl.Handle(context.Background(), ActionEnd)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.count())
}

func TestControllerTransferAnnouncesBeforeTransferring(t *testing.T) {
	log := &callLog{}
	sip := &loggingSIP{log: log}
	admin := &loggingAdmin{log: log}
	ctrl := boundController(sip, admin, "+15105550999")
	ctrl.SetNotifier(&loggingNotifier{log: log})

	reply, err := ctrl.Handle(context.Background(), ActionTransfer)
	require.NoError(t, err)
	assert.Equal(t, "call transferred", reply)
	assert.True(t, ctrl.Transferred())

	entries := log.all()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0], "reply:", "announcement must precede the transfer")
	assert.Equal(t, "transfer:tel:+15105550999", entries[1])
	assert.Equal(t, 0, admin.count(), "successful transfer leaves the room to the provider")
}

func TestControllerTransferFailureHangsUp(t *testing.T) {
	log := &callLog{}
	sip := &loggingSIP{log: log}
	sip.transferErr = errors.New("trunk unavailable")
	admin := &loggingAdmin{log: log}
	ctrl := boundController(sip, admin, "+15105550999")
	ctrl.SetNotifier(&loggingNotifier{log: log})

	_, err := ctrl.Handle(context.Background(), ActionTransfer)
	require.Error(t, err)
	assert.False(t, IsRefusal(err))
	assert.False(t, ctrl.Transferred())

	// A failed transfer never leaves the call silently connected: the
	// error is announced, then the room is deleted.
	entries := log.all()
	require.Len(t, entries, 4)
	assert.Contains(t, entries[0], "reply:")
	assert.Equal(t, "transfer:tel:+15105550999", entries[1])
	assert.Contains(t, entries[2], "reply:")
	assert.Equal(t, "delete:room-1", entries[3])
	assert.Equal(t, StateClosed, ctrl.State())
}

func TestControllerEndWaitsForPlayout(t *testing.T) {
	log := &callLog{}
	sip := &loggingSIP{log: log}
	admin := &loggingAdmin{log: log}
	ctrl := boundController(sip, admin, "")
	ctrl.SetNotifier(&loggingNotifier{log: log})

	reply, err := ctrl.Handle(context.Background(), ActionEnd)
	require.NoError(t, err)
	assert.Equal(t, "ending call", reply)

	entries := log.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "playout", entries[0], "speech must finish before hangup")
	assert.Equal(t, "delete:room-1", entries[1])
}

func TestControllerVoicemailSkipsPlayout(t *testing.T) {
	log := &callLog{}
	sip := &loggingSIP{log: log}
	admin := &loggingAdmin{log: log}
	ctrl := boundController(sip, admin, "")
	ctrl.SetNotifier(&loggingNotifier{log: log})

	reply, err := ctrl.Handle(context.Background(), ActionVoicemailDetected)
	require.NoError(t, err)
	assert.Equal(t, "hanging up", reply)
	assert.True(t, ctrl.VoicemailWasDetected())

	// No human is listening; hang up immediately.
	entries := log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "delete:room-1", entries[0])
}

func TestControllerHangupIdempotent(t *testing.T) {
	sip := &fakeSIP{}
	admin := &fakeAdmin{}
	ctrl := boundController(sip, admin, "")

	select {
	case <-ctrl.Closed():
		t.Fatal("closed signal fired before hangup")
	default:
	}

	require.NoError(t, ctrl.Hangup(context.Background()))
	require.NoError(t, ctrl.Hangup(context.Background()))
	require.NoError(t, ctrl.Hangup(context.Background()))
	assert.Equal(t, 1, admin.count(), "exactly one provider delete per attempt")

	select {
	case <-ctrl.Closed():
	default:
		t.Fatal("closed signal must fire on hangup")
	}

	// Actions after close are acknowledged without re-deleting.
	reply, err := ctrl.Handle(context.Background(), ActionEnd)
	require.NoError(t, err)
	assert.Equal(t, "call already ended", reply)
	assert.Equal(t, 1, admin.count())
}

func TestControllerRebindLastWins(t *testing.T) {
	sip := &fakeSIP{}
	admin := &fakeAdmin{}
	ctrl := boundController(sip, admin, "+15105550999")
	ctrl.Bind(Participant{Identity: "phone_user_2", SID: "PA_second"})

	_, err := ctrl.Handle(context.Background(), ActionTransfer)
	require.NoError(t, err)
	require.Len(t, sip.identities, 1)
	assert.Equal(t, "phone_user_2", sip.identities[0], "the most recent bind owns the call")
}

func TestControllerUnknownAction(t *testing.T) {
	ctrl := boundController(&fakeSIP{}, &fakeAdmin{}, "")
	_, err := ctrl.Handle(context.Background(), Action(99))
	assert.ErrorIs(t, err, ErrUnknownAction)
}
