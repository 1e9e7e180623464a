package progress

import (
	"sync"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// Step names the pipeline stage an event belongs to, in fixed order.
type Step string

const (
	StepScenario Step = "scenario"
	StepImages   Step = "images"
	StepAudio    Step = "audio"
	StepAssembly Step = "assembly"
	StepBgm      Step = "bgm"
	StepComplete Step = "complete"
)

// EventStatus qualifies an event within its step.
type EventStatus string

const (
	StatusInProgress EventStatus = "in_progress"
	StatusCompleted  EventStatus = "completed"
	StatusError      EventStatus = "error"
)

// Event is one progress update, delivered over SSE and mirrored onto the
// job record for polling clients.
type Event struct {
	Step     Step           `json:"step"`
	Status   EventStatus    `json:"status"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

// Terminal reports whether this event ends the stream.
func (e Event) Terminal() bool {
	return e.Step == StepComplete
}

// subscriber buffer; a subscriber that falls this far behind loses events
// rather than blocking the pipeline
const subscriberBuffer = 16

// Broadcaster fans one job's events out to any number of subscribers.
// Publishing never blocks: slow subscribers drop events.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events and an unsubscribe function. The
// channel is closed when the broadcaster closes or on unsubscribe.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subscribers[ch]; ok {
				delete(b.subscribers, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. A no-op after Close.
func (b *Broadcaster) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			log.Warn("Dropping progress event for slow subscriber (step=%s)", event.Step)
		}
	}
}

// Close ends the stream for every subscriber. Idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Hub tracks the live broadcaster per running job.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*Broadcaster
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]*Broadcaster)}
}

// Open creates (or returns) the broadcaster for a job.
func (h *Hub) Open(jobID string) *Broadcaster {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.channels[jobID]; ok {
		return b
	}
	b := NewBroadcaster()
	h.channels[jobID] = b
	return b
}

// Get returns the live broadcaster for a job, or nil when the job is not
// running (finished jobs fall back to snapshots).
func (h *Hub) Get(jobID string) *Broadcaster {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[jobID]
}

// CloseAndRemove tears down a job's broadcaster after its terminal event.
func (h *Hub) CloseAndRemove(jobID string) {
	h.mu.Lock()
	b, ok := h.channels[jobID]
	delete(h.channels, jobID)
	h.mu.Unlock()
	if ok {
		b.Close()
	}
}
