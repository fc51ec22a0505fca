package dictation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"hark/log"
)

// Capture is the audio source. Only the Controller calls it, and never with
// two captures open.
type Capture interface {
	StartCapture() error
	StopCapture() ([]byte, error)
}

// session is the open recording.
type session struct {
	id        string
	started   time.Time
	stopping  bool
	cancelled bool
}

// Status is a point-in-time view of the controller.
type Status struct {
	State             State    `json:"state"`
	IsRecording       bool     `json:"isRecording"`
	IsTranscribing    bool     `json:"isTranscribing"`
	RecordingDuration *float64 `json:"recordingDurationSeconds,omitempty"`
	Muted             bool     `json:"muted"`
}

// Controller is the only writer of the dictation State. Local input and
// remote commands both go through it, and every method reports whether the
// transition it attempted actually happened.
//
// Cancel beats stop: a cancel that arrives while a stop is still closing the
// capture wins, and the cycle ends in Idle without transcribing.
type Controller struct {
	capture      Capture
	mute         *Mute
	bus          *Bus
	minRecording time.Duration
	now          func() time.Time

	// handoff receives the audio of every recording that reached
	// Transcribing. It is called with mu held and must not block.
	handoff func(cycle string, audio []byte)

	mu      sync.Mutex
	state   State
	session *session
	cycle   string
}

func NewController(capture Capture, mute *Mute, bus *Bus, minRecording time.Duration) *Controller {
	return &Controller{
		capture:      capture,
		mute:         mute,
		bus:          bus,
		minRecording: minRecording,
		now:          time.Now,
		handoff:      func(string, []byte) {},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		State:          c.state,
		IsRecording:    c.state == Recording,
		IsTranscribing: c.state == Transcribing,
		Muted:          c.mute.Muted(),
	}
	if c.session != nil {
		d := c.now().Sub(c.session.started).Seconds()
		st.RecordingDuration = &d
	}
	return st
}

func (c *Controller) setLocked(to State, trigger string) {
	log.StateChange(c.state.String(), to.String(), trigger)
	c.state = to
}

// StartRecording moves Idle to Recording. It fails when not Idle, when muted
// (a RecordingBlocked event is published) or when the capture cannot open.
func (c *Controller) StartRecording(trigger string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		log.Infof("start ignored in %s (%s)", c.state, trigger)
		return false
	}
	if c.mute.Muted() {
		c.bus.Publish(Event{Kind: RecordingBlocked, Reason: "muted"})
		return false
	}
	if err := c.capture.StartCapture(); err != nil {
		log.Errorf("start capture: %v", err)
		c.bus.Publish(Event{Kind: RecordingBlocked, Reason: "capture_failed", Error: err.Error()})
		return false
	}

	c.session = &session{id: uuid.NewString(), started: c.now()}
	c.cycle = c.session.id
	c.setLocked(Recording, trigger)
	c.bus.Publish(Event{Kind: RecordingStarted, Cycle: c.cycle})
	return true
}

// StopRecording moves Recording to Transcribing and hands the audio on. The
// capture is closed without holding the lock so a cancel can still land.
func (c *Controller) StopRecording(trigger string) bool {
	c.mu.Lock()
	if c.state != Recording || c.session.stopping {
		state := c.state
		c.mu.Unlock()
		log.Infof("stop ignored in %s (%s)", state, trigger)
		return false
	}
	s := c.session
	s.stopping = true
	c.mu.Unlock()

	audio, err := c.capture.StopCapture()

	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := c.now().Sub(s.started)

	switch {
	case s.cancelled:
		c.endLocked(s, Event{Kind: RecordingCancelled, Cycle: s.id, Reason: "cancelled"}, "cancel")
		return false
	case err != nil:
		log.Errorf("stop capture: %v", err)
		c.endLocked(s, Event{Kind: RecordingCancelled, Cycle: s.id, Reason: "capture_failed", Error: err.Error()}, trigger)
		return false
	case elapsed < c.minRecording:
		c.endLocked(s, Event{Kind: RecordingCancelled, Cycle: s.id, Reason: "too_short",
			DurationSeconds: elapsed.Seconds()}, trigger)
		return false
	}

	c.session = nil
	c.setLocked(Transcribing, trigger)
	c.bus.Publish(Event{Kind: RecordingStopped, Cycle: s.id, DurationSeconds: elapsed.Seconds()})
	c.handoff(s.id, audio)
	return true
}

// ToggleRecording starts when Idle and stops when Recording. In any other
// state it does nothing.
func (c *Controller) ToggleRecording(trigger string) bool {
	switch c.State() {
	case Idle:
		return c.StartRecording(trigger)
	case Recording:
		return c.StopRecording(trigger)
	}
	log.Infof("toggle ignored while busy (%s)", trigger)
	return false
}

// CancelRecording discards the open recording and returns to Idle. When a
// stop is in flight, the stop path performs the final transition.
func (c *Controller) CancelRecording(trigger string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording {
		return false
	}
	s := c.session
	s.cancelled = true
	if s.stopping {
		return true
	}
	if _, err := c.capture.StopCapture(); err != nil {
		log.Warnf("stop capture on cancel: %v", err)
	}
	c.endLocked(s, Event{Kind: RecordingCancelled, Cycle: s.id, Reason: "cancelled"}, trigger)
	return true
}

func (c *Controller) endLocked(s *session, e Event, trigger string) {
	if c.session == s {
		c.session = nil
	}
	c.setLocked(Idle, trigger)
	c.bus.Publish(e)
}

// beginTyping moves Transcribing to Typing for cycle.
func (c *Controller) beginTyping(cycle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Transcribing || c.cycle != cycle {
		return false
	}
	c.setLocked(Typing, "transcribed")
	return true
}

// finish returns cycle to Idle from Transcribing or Typing.
func (c *Controller) finish(cycle, trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle != cycle || (c.state != Transcribing && c.state != Typing) {
		return
	}
	c.setLocked(Idle, trigger)
}
