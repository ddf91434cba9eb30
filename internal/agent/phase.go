package agent

// Phase tracks the lifecycle of one call attempt. Phases only move
// forward; Terminated is reachable from every phase on fatal error.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRoomConnected
	PhaseSessionStarted
	PhaseDialing
	PhaseParticipantBound
	PhaseActive
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRoomConnected:
		return "room_connected"
	case PhaseSessionStarted:
		return "session_started"
	case PhaseDialing:
		return "dialing"
	case PhaseParticipantBound:
		return "participant_bound"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
