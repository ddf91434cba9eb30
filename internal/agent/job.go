package agent

// Job is one dispatched outbound call attempt. The metadata string is the
// JSON payload attached by the dispatch surface; it is opaque until the
// resolver decodes it.
type Job struct {
	ID       string
	RoomName string
	Metadata string
}
