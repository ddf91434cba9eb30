package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe("job-1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("job-1")
	defer cancel2()
	other, cancelOther := h.Subscribe("job-2")
	defer cancelOther()

	h.Publish(Event{JobID: "job-1", Type: TypePhase, Phase: "dialing"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "dialing", ev.Phase)
			assert.False(t, ev.Time.IsZero(), "publish stamps the time")
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case ev := <-other:
		t.Fatalf("job-2 subscriber received foreign event: %+v", ev)
	default:
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("job-1")
	cancel()

	h.Publish(Event{JobID: "job-1", Type: TypePhase, Phase: "dialing"})
	select {
	case ev := <-ch:
		t.Fatalf("cancelled subscriber received event: %+v", ev)
	default:
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("job-1")
	defer cancel()

	// Overrun the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			h.Publish(Event{JobID: "job-1", Type: TypePhase, Phase: "active"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffered prefix is still readable; the overflow was dropped.
	require.Equal(t, 16, len(ch))
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	h := NewHub()
	h.Publish(Event{JobID: "nobody", Type: TypeError, Detail: "boom"})
}
