package dictation

import (
	"sync"
	"time"

	"hark/log"
)

type EventKind string

const (
	RecordingStarted       EventKind = "recording_started"
	RecordingStopped       EventKind = "recording_stopped"
	RecordingCancelled     EventKind = "recording_cancelled"
	RecordingBlocked       EventKind = "recording_blocked"
	TranscriptionStarted   EventKind = "transcription_started"
	TranscriptionCompleted EventKind = "transcription_completed"
	TranscriptionFailed    EventKind = "transcription_failed"
	TypingFailed           EventKind = "typing_failed"
	ManualMuteOn           EventKind = "manual_mute_on"
	ManualMuteOff          EventKind = "manual_mute_off"
)

// Event is one lifecycle notification. Cycle identifies the dictation cycle
// the event belongs to and is empty for mute changes.
type Event struct {
	Kind            EventKind `json:"kind"`
	At              time.Time `json:"at"`
	Version         string    `json:"version"`
	Cycle           string    `json:"cycle,omitempty"`
	Text            string    `json:"text,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	Error           string    `json:"error,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

// Bus fans events out to subscribers. Each subscriber sees events in publish
// order. Publish never blocks: a subscriber whose buffer is full misses the
// event.
type Bus struct {
	version string
	now     func() time.Time

	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func NewBus(version string) *Bus {
	return &Bus{version: version, now: time.Now, subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of future events and a func that detaches it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = b.now()
	}
	if e.Version == "" {
		e.Version = b.version
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Warnf("event bus: subscriber %d full, dropped %s", id, e.Kind)
		}
	}
}

// Close detaches and closes every subscriber.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
