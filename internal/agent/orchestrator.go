package agent

import (
	"context"
	"errors"
	"time"

	"github.com/ydjemai93/test-drive/internal/events"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

// EngineFactory builds a conversation engine for one call attempt.
type EngineFactory interface {
	NewEngine(job Job, info ResolvedDialInfo, tools ToolHandler) (Engine, error)
}

// CallResult is the terminal outcome of one orchestrated attempt.
type CallResult struct {
	Phase         Phase
	Disposition   string
	SIPStatusCode int
	SIPStatus     string
	DialedAt      *time.Time
	AnsweredAt    *time.Time
	EndedAt       *time.Time
	Err           error
}

// Orchestrator drives one call attempt through its phases: resolve config,
// connect the room, start the conversation session, dial, bind the callee,
// then idle while the session owns the call. On any fatal setup step it
// cancels the session task (if started) and tears down exactly once.
type Orchestrator struct {
	Connector    RoomConnector
	SIP          SIPClient
	Admin        RoomAdmin
	Engines      EngineFactory
	Appointments AppointmentBook

	TrunkID          string
	FallbackMetadata string
	FallbackPhone    string
	JoinTimeout      time.Duration

	Events *events.Hub
}

func (o *Orchestrator) publish(job Job, phase Phase, detail string) {
	if o.Events == nil {
		return
	}
	evType := events.TypePhase
	if detail != "" && phase == PhaseTerminated {
		evType = events.TypeError
	}
	o.Events.Publish(events.Event{
		JobID:  job.ID,
		Type:   evType,
		Phase:  phase.String(),
		Detail: detail,
	})
}

// Run executes the attempt and blocks until it reaches Terminated.
func (o *Orchestrator) Run(ctx context.Context, job Job) CallResult {
	res := CallResult{Phase: PhaseInit}
	o.publish(job, PhaseInit, "")

	info, err := ResolveDialInfo(job.Metadata, o.FallbackMetadata, o.FallbackPhone)
	if err != nil {
		// No dial was attempted and no room was connected; nothing to
		// tear down.
		logger.Log.Errorf("[%s] Dial info resolution failed: %v", job.ID, err)
		return o.terminate(job, res, "error", err)
	}

	logger.Log.Infof("[%s] Connecting to room %s", job.ID, job.RoomName)
	room, err := o.Connector.Connect(ctx, job.RoomName)
	if err != nil {
		logger.Log.Errorf("[%s] Room connection failed: %v", job.ID, err)
		return o.terminate(job, res, "error", err)
	}
	defer room.Disconnect()
	res.Phase = PhaseRoomConnected
	o.publish(job, PhaseRoomConnected, "")

	ctrl := NewController(job.ID, room.Name(), info, o.SIP, o.Admin)
	eng, err := o.Engines.NewEngine(job, info, ToolDispatcher(ctrl, o.Appointments))
	if err != nil {
		logger.Log.Errorf("[%s] Engine setup failed: %v", job.ID, err)
		o.hangupQuiet(ctx, ctrl)
		return o.terminate(job, res, "error", err)
	}
	sess := NewSession(eng)
	ctrl.SetNotifier(sess)

	// The session must be listening before the callee's audio arrives:
	// start it now, strictly before dialing.
	sess.Start(ctx)
	res.Phase = PhaseSessionStarted
	o.publish(job, PhaseSessionStarted, "")

	dialer := NewDialer(o.SIP, o.TrunkID, o.JoinTimeout)
	res.Phase = PhaseDialing
	o.publish(job, PhaseDialing, "")
	dialedAt := time.Now()
	res.DialedAt = &dialedAt

	participant, err := dialer.Dial(ctx, room, info)
	if err != nil {
		logger.Log.Errorf("[%s] Dial failed: %v", job.ID, err)
		// Never leave the session task running unsupervised after a
		// fatal dial failure.
		sess.Cancel()
		<-sess.Done()
		o.hangupQuiet(ctx, ctrl)

		var derr *DialError
		if errors.As(err, &derr) {
			res.SIPStatusCode = int(derr.SIPStatusCode)
			res.SIPStatus = derr.SIPStatus
			return o.terminate(job, res, derr.Disposition(), err)
		}
		return o.terminate(job, res, "error", err)
	}

	answeredAt := time.Now()
	res.AnsweredAt = &answeredAt
	ctrl.Bind(participant)
	res.Phase = PhaseParticipantBound
	o.publish(job, PhaseParticipantBound, "")

	res.Phase = PhaseActive
	o.publish(job, PhaseActive, "")
	logger.Log.Infof("[%s] Call active with %s", job.ID, participant.Identity)

	// The session task owns the call from here; supervise it until the
	// conversation ends, a control action hangs the call up, or the
	// attempt is cancelled from outside. The engine's socket outlives the
	// room, so a hangup must actively stop the session task.
	select {
	case <-sess.Done():
	case <-ctrl.Closed():
		sess.Cancel()
		<-sess.Done()
	case <-ctx.Done():
		sess.Cancel()
		<-sess.Done()
	}

	// Most conversations end through a control action that already hung
	// up; this covers the remote-hangup and cancellation paths.
	o.hangupQuiet(ctx, ctrl)

	disposition := "answered"
	switch {
	case ctrl.Transferred():
		disposition = "transferred"
	case ctrl.VoicemailWasDetected():
		disposition = "voicemail"
	}
	return o.terminate(job, res, disposition, sess.Err())
}

func (o *Orchestrator) hangupQuiet(ctx context.Context, ctrl *Controller) {
	// Teardown must proceed even when the attempt's context is already
	// cancelled.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := ctrl.Hangup(ctx); err != nil {
		logger.Log.Errorf("Room teardown failed: %v", err)
	}
}

func (o *Orchestrator) terminate(job Job, res CallResult, disposition string, err error) CallResult {
	now := time.Now()
	res.EndedAt = &now
	res.Phase = PhaseTerminated
	res.Disposition = disposition
	res.Err = err
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	o.publish(job, PhaseTerminated, detail)
	return res
}
