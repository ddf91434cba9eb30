package agent

import (
	"context"
	"sync"
)

// fakeSIP records dial and transfer calls and returns scripted errors.
type fakeSIP struct {
	mu           sync.Mutex
	dialErr      error
	transferErr  error
	dials        []SIPDialRequest
	transfers    []string // transferTo values, in order
	identities   []string
	transferRoom string
}

func (f *fakeSIP) CreateParticipant(ctx context.Context, req SIPDialRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials = append(f.dials, req)
	return f.dialErr
}

func (f *fakeSIP) TransferParticipant(ctx context.Context, roomName, identity, transferTo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferRoom = roomName
	f.transfers = append(f.transfers, transferTo)
	f.identities = append(f.identities, identity)
	return f.transferErr
}

// fakeAdmin counts room deletions.
type fakeAdmin struct {
	mu      sync.Mutex
	deletes int
	rooms   []string
	err     error
}

func (f *fakeAdmin) DeleteRoom(ctx context.Context, roomName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	f.rooms = append(f.rooms, roomName)
	return f.err
}

func (f *fakeAdmin) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// fakeRoom satisfies RoomSession; join is closed when the participant
// should appear.
type fakeRoom struct {
	name        string
	join        chan struct{}
	participant Participant
}

func newFakeRoom(name string) *fakeRoom {
	return &fakeRoom{
		name:        name,
		join:        make(chan struct{}),
		participant: Participant{Identity: PhoneUserIdentity, SID: "PA_test"},
	}
}

func (f *fakeRoom) Name() string { return f.name }

func (f *fakeRoom) WaitForParticipant(ctx context.Context, identity string) (Participant, error) {
	select {
	case <-f.join:
		return f.participant, nil
	case <-ctx.Done():
		return Participant{}, ctx.Err()
	}
}

func (f *fakeRoom) Disconnect() {}

type fakeConnector struct {
	room *fakeRoom
	err  error
}

func (f *fakeConnector) Connect(ctx context.Context, roomName string) (RoomSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

// fakeEngine is a scripted conversation: Run blocks until finish is
// closed or ctx is cancelled, and records ordering-sensitive calls.
type fakeEngine struct {
	mu        sync.Mutex
	runErr    error
	finish    chan struct{}
	running   chan struct{}
	runOnce   sync.Once
	replies   []string
	playouts  int
	cancelled bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		finish:  make(chan struct{}),
		running: make(chan struct{}),
	}
}

func (f *fakeEngine) Run(ctx context.Context) error {
	f.runOnce.Do(func() { close(f.running) })
	select {
	case <-f.finish:
		return f.runErr
	case <-ctx.Done():
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
		return ctx.Err()
	}
}

func (f *fakeEngine) GenerateReply(ctx context.Context, instructions string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, instructions)
	return nil
}

func (f *fakeEngine) WaitForPlayout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playouts++
	return nil
}

func (f *fakeEngine) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

type fakeEngineFactory struct {
	engine *fakeEngine
	err    error
	tools  ToolHandler
}

func (f *fakeEngineFactory) NewEngine(job Job, info ResolvedDialInfo, tools ToolHandler) (Engine, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tools = tools
	return f.engine, nil
}

type fakeBook struct {
	times []string
}

func (f *fakeBook) Availability(ctx context.Context, date string) ([]string, error) {
	return f.times, nil
}

func (f *fakeBook) Confirm(ctx context.Context, date, timeOfDay string) (string, error) {
	return "reservation confirmed", nil
}

// callLog records the interleaving of notifier, SIP and admin calls so
// tests can assert ordering.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

type loggingNotifier struct {
	log *callLog
}

func (n *loggingNotifier) GenerateReply(ctx context.Context, instructions string) error {
	n.log.add("reply:" + instructions)
	return nil
}

func (n *loggingNotifier) WaitForPlayout(ctx context.Context) error {
	n.log.add("playout")
	return nil
}

type loggingSIP struct {
	fakeSIP
	log *callLog
}

func (s *loggingSIP) TransferParticipant(ctx context.Context, roomName, identity, transferTo string) error {
	s.log.add("transfer:" + transferTo)
	return s.fakeSIP.TransferParticipant(ctx, roomName, identity, transferTo)
}

type loggingAdmin struct {
	fakeAdmin
	log *callLog
}

func (a *loggingAdmin) DeleteRoom(ctx context.Context, roomName string) error {
	a.log.add("delete:" + roomName)
	return a.fakeAdmin.DeleteRoom(ctx, roomName)
}
