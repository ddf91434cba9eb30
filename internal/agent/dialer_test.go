package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emiago/sipgo/sip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialerNoTrunk(t *testing.T) {
	fs := &fakeSIP{}
	d := NewDialer(fs, "", time.Second)

	_, err := d.Dial(context.Background(), newFakeRoom("room-1"), ResolvedDialInfo{PhoneNumber: "+15105550123"})
	assert.ErrorIs(t, err, ErrTrunkNotConfigured)
	assert.Empty(t, fs.dials, "no dial may be attempted without a trunk")
}

func TestDialerSuccess(t *testing.T) {
	fs := &fakeSIP{}
	room := newFakeRoom("room-1")
	close(room.join) // callee is already in the room

	d := NewDialer(fs, "ST_trunk", time.Second)
	p, err := d.Dial(context.Background(), room, ResolvedDialInfo{PhoneNumber: "+15105550123"})
	require.NoError(t, err)
	assert.Equal(t, PhoneUserIdentity, p.Identity)

	require.Len(t, fs.dials, 1)
	req := fs.dials[0]
	assert.Equal(t, "ST_trunk", req.TrunkID)
	assert.Equal(t, "+15105550123", req.ToNumber)
	assert.Equal(t, "room-1", req.RoomName)
	assert.Equal(t, PhoneUserIdentity, req.Identity)
	assert.True(t, req.WaitUntilAnswered)
}

func TestDialerRejectedPreservesSIPStatus(t *testing.T) {
	fs := &fakeSIP{dialErr: &SIPStatusError{
		Code:   sip.StatusCode(486),
		Status: "Busy Here",
		Err:    errors.New("callee busy"),
	}}

	d := NewDialer(fs, "ST_trunk", time.Second)
	_, err := d.Dial(context.Background(), newFakeRoom("room-1"), ResolvedDialInfo{PhoneNumber: "+15105550123"})
	require.Error(t, err)

	var derr *DialError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DialRejected, derr.Reason)
	assert.Equal(t, sip.StatusCode(486), derr.SIPStatusCode)
	assert.Equal(t, "Busy Here", derr.SIPStatus)
	assert.Equal(t, "busy", derr.Disposition())
}

func TestDialerJoinTimeout(t *testing.T) {
	fs := &fakeSIP{}
	room := newFakeRoom("room-1") // join never signalled

	d := NewDialer(fs, "ST_trunk", 20*time.Millisecond)
	_, err := d.Dial(context.Background(), room, ResolvedDialInfo{PhoneNumber: "+15105550123"})
	require.Error(t, err)

	var derr *DialError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DialJoinTimeout, derr.Reason)
	assert.Equal(t, "join_timeout", derr.Disposition())
}

func TestDialErrorDispositions(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{486, "busy"},
		{600, "busy"},
		{480, "no_answer"},
		{487, "no_answer"},
		{408, "no_answer"},
		{403, "rejected"},
		{0, "rejected"},
	}
	for _, tc := range cases {
		derr := &DialError{Reason: DialRejected, SIPStatusCode: sip.StatusCode(tc.code)}
		assert.Equal(t, tc.want, derr.Disposition(), "sip status %d", tc.code)
	}
}
