package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	event := Event{Step: StepScenario, Status: StatusInProgress, Progress: 5, Message: "Generating scenario..."}
	b.Publish(event)

	assert.Equal(t, event, <-ch1)
	assert.Equal(t, event, <-ch2)
}

func TestBroadcaster_SlowSubscriberDropsEvents(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	// overflow the buffer without reading; Publish must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish(Event{Step: StepImages, Progress: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestBroadcaster_CloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster()
	ch, _ := b.Subscribe()

	b.Close()
	b.Close()

	_, open := <-ch
	assert.False(t, open)

	// publishing after close is a no-op
	b.Publish(Event{Step: StepAudio})
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster()
	b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // second cancel is harmless

	_, open := <-ch
	assert.False(t, open)

	b.Publish(Event{Step: StepBgm})
}

func TestHub(t *testing.T) {
	h := NewHub()

	assert.Nil(t, h.Get("job-1"))

	b := h.Open("job-1")
	require.NotNil(t, b)
	assert.Same(t, b, h.Open("job-1"))
	assert.Same(t, b, h.Get("job-1"))

	ch, cancel := b.Subscribe()
	defer cancel()

	h.CloseAndRemove("job-1")
	assert.Nil(t, h.Get("job-1"))

	_, open := <-ch
	assert.False(t, open)

	// removing twice is harmless
	h.CloseAndRemove("job-1")
}

func TestEventTerminal(t *testing.T) {
	assert.True(t, Event{Step: StepComplete, Status: StatusCompleted}.Terminal())
	assert.True(t, Event{Step: StepComplete, Status: StatusError}.Terminal())
	assert.False(t, Event{Step: StepBgm, Status: StatusCompleted}.Terminal())
}
