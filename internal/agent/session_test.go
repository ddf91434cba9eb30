package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRunsAndFinishes(t *testing.T) {
	eng := newFakeEngine()
	s := NewSession(eng)
	s.Start(context.Background())

	select {
	case <-eng.running:
	case <-time.After(time.Second):
		t.Fatal("engine never started")
	}

	close(eng.finish)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session never finished")
	}
	assert.NoError(t, s.Err())
}

func TestSessionCancel(t *testing.T) {
	eng := newFakeEngine()
	s := NewSession(eng)
	s.Start(context.Background())
	<-eng.running

	s.Cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not stop the session")
	}
	assert.True(t, eng.wasCancelled())
	// Cancellation is not an engine failure.
	assert.NoError(t, s.Err())
}

func TestSessionReportsEngineError(t *testing.T) {
	eng := newFakeEngine()
	eng.runErr = errors.New("socket dropped")
	s := NewSession(eng)
	s.Start(context.Background())
	<-eng.running

	close(eng.finish)
	<-s.Done()
	require.Error(t, s.Err())
}

func TestSessionStartIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	s := NewSession(eng)
	s.Start(context.Background())
	s.Start(context.Background())
	<-eng.running

	close(eng.finish)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session never finished")
	}
}
