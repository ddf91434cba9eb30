package agent

import "context"

// Participant is the callee once it has materialized in the room.
type Participant struct {
	Identity string
	SID      string
}

// RoomSession is one live connection to a room.
type RoomSession interface {
	Name() string
	// WaitForParticipant blocks until a remote participant with the given
	// identity is present in the room, or ctx expires.
	WaitForParticipant(ctx context.Context, identity string) (Participant, error)
	Disconnect()
}

// RoomConnector establishes room connections. Connection failures are
// fatal for the call attempt and are never retried here; retry policy
// belongs to whoever dispatched the job.
type RoomConnector interface {
	Connect(ctx context.Context, roomName string) (RoomSession, error)
}

// SIPDialRequest asks the provider to dial a number into a room.
type SIPDialRequest struct {
	RoomName          string
	TrunkID           string
	ToNumber          string
	Identity          string
	WaitUntilAnswered bool
}

// SIPClient is the provider's SIP surface. CreateParticipant blocks until
// the call is answered or definitively fails when WaitUntilAnswered is
// set. The provider's acknowledgment is the only success signal.
type SIPClient interface {
	CreateParticipant(ctx context.Context, req SIPDialRequest) error
	TransferParticipant(ctx context.Context, roomName, identity, transferTo string) error
}

// RoomAdmin deletes rooms. Deleting the room is the sole mechanism for
// ending a call; there is no separate drop-participant primitive.
type RoomAdmin interface {
	DeleteRoom(ctx context.Context, roomName string) error
}
