package agent

import (
	"context"
	"sync"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

// Engine is the conversation engine behind the session: it produces and
// consumes speech and invokes call-control tools. Run blocks until the
// conversation ends or ctx is cancelled.
type Engine interface {
	Run(ctx context.Context) error
	// GenerateReply asks the engine to speak according to the given
	// instructions.
	GenerateReply(ctx context.Context, instructions string) error
	// WaitForPlayout blocks until any in-flight utterance has finished
	// playing.
	WaitForPlayout(ctx context.Context) error
}

// Session runs the conversation as a cancellable background task. It is
// started before the dial completes so the engine is already listening
// when the callee's audio arrives.
type Session struct {
	engine Engine

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

func NewSession(engine Engine) *Session {
	return &Session{
		engine: engine,
		done:   make(chan struct{}),
	}
}

// Start launches the engine in the background. It returns once the
// session task is running, so callers can rely on the conversation
// layer being scheduled before they dial.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	ready := make(chan struct{})
	go func() {
		defer close(s.done)
		// Release the run context so nothing watching it (the engine's
		// socket closer, for one) outlives the task.
		defer cancel()
		close(ready)
		if err := s.engine.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.Log.Errorf("Conversation session ended with error: %v", err)
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()
	<-ready
}

// Cancel requests cooperative shutdown of the session task. It performs
// no network operations itself.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
}

// Done is closed once the session task has fully exited. A session that
// was never started never closes it.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports the engine failure, if any, once Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) GenerateReply(ctx context.Context, instructions string) error {
	return s.engine.GenerateReply(ctx, instructions)
}

func (s *Session) WaitForPlayout(ctx context.Context) error {
	return s.engine.WaitForPlayout(ctx)
}
