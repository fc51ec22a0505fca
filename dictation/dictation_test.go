package dictation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hark/transcriber"
)

type fakeCapture struct {
	audio    []byte
	startErr error

	starts atomic.Int32
	stops  atomic.Int32
	open   atomic.Bool

	// When set, StopCapture blocks until release is closed.
	release chan struct{}
}

func (f *fakeCapture) StartCapture() error {
	if f.startErr != nil {
		return f.startErr
	}
	if !f.open.CompareAndSwap(false, true) {
		return errors.New("capture already open")
	}
	f.starts.Add(1)
	return nil
}

func (f *fakeCapture) StopCapture() ([]byte, error) {
	f.stops.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.open.Store(false)
	return f.audio, nil
}

type fakeTyper struct {
	mu    sync.Mutex
	typed []string
	err   error
}

func (f *fakeTyper) Type(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, text)
	return f.err
}

func (f *fakeTyper) Typed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.typed...)
}

type harness struct {
	o       *Orchestrator
	capture *fakeCapture
	stt     *transcriber.Fake
	typer   *fakeTyper
	events  <-chan Event
}

func newHarness(t *testing.T, text string) *harness {
	t.Helper()
	conf := 0.9
	h := &harness{
		capture: &fakeCapture{audio: make([]byte, 2*32000)},
		stt:     &transcriber.Fake{ID: "fake", Text: text, Confidence: &conf},
		typer:   &fakeTyper{},
	}
	bus := NewBus("test-1.0")
	events, cancel := bus.Subscribe(64)
	t.Cleanup(cancel)
	h.events = events
	orch := transcriber.NewOrchestrator([]transcriber.Provider{h.stt}, transcriber.Options{})
	h.o = New(Config{Language: "en"}, h.capture, orch, h.typer, bus)
	return h
}

// drain collects every event published so far.
func (h *harness) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-h.events:
			out = append(out, e)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func expectKinds(t *testing.T, got []Event, want ...EventKind) {
	t.Helper()
	k := kinds(got)
	if len(k) != len(want) {
		t.Fatalf("events = %v, want %v", k, want)
	}
	for i := range want {
		if k[i] != want[i] {
			t.Fatalf("events = %v, want %v", k, want)
		}
	}
}

func hasKind(events []Event, kind EventKind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestFullCycle(t *testing.T) {
	h := newHarness(t, "hello")

	if !h.o.Start("test") {
		t.Fatal("start refused")
	}
	if h.o.State() != Recording {
		t.Fatalf("state = %s, want recording", h.o.State())
	}
	if !h.o.Stop("test") {
		t.Fatal("stop refused")
	}
	h.o.Wait()

	if h.o.State() != Idle {
		t.Fatalf("state = %s, want idle", h.o.State())
	}
	events := h.drain()
	expectKinds(t, events, RecordingStarted, RecordingStopped, TranscriptionStarted, TranscriptionCompleted)

	done := events[3]
	if done.Text != "hello" || done.Confidence == nil || *done.Confidence != 0.9 {
		t.Errorf("completed = %+v", done)
	}
	if done.DurationSeconds != 2 {
		t.Errorf("duration = %v, want 2", done.DurationSeconds)
	}
	for _, e := range events {
		if e.Version != "test-1.0" || e.At.IsZero() || e.Cycle != events[0].Cycle {
			t.Errorf("event not stamped: %+v", e)
		}
	}
	if typed := h.typer.Typed(); len(typed) != 1 || typed[0] != "hello" {
		t.Errorf("typed = %v", typed)
	}
	if h.o.LastText() != "hello" || h.o.Count() != 1 {
		t.Errorf("last = %q, count = %d", h.o.LastText(), h.o.Count())
	}
	if got := h.stt.LastRequest().Language; got != "en" {
		t.Errorf("language = %q", got)
	}
}

func TestCancelDiscardsRecording(t *testing.T) {
	h := newHarness(t, "hello")

	h.o.Start("test")
	if !h.o.Cancel("escape") {
		t.Fatal("cancel refused")
	}
	h.o.Wait()

	if h.o.State() != Idle {
		t.Fatalf("state = %s, want idle", h.o.State())
	}
	events := h.drain()
	expectKinds(t, events, RecordingStarted, RecordingCancelled)
	if h.stt.Calls() != 0 || h.capture.open.Load() {
		t.Errorf("provider calls %d, capture open %v", h.stt.Calls(), h.capture.open.Load())
	}
	if h.o.Cancel("escape") {
		t.Error("second cancel should report no transition")
	}
}

func TestMutedStartIsBlocked(t *testing.T) {
	h := newHarness(t, "hello")

	if !h.o.ToggleMute() {
		t.Fatal("expected muted after toggle")
	}
	if h.o.Start("test") || h.o.Toggle("test") {
		t.Fatal("start accepted while muted")
	}
	if h.o.State() != Idle || h.capture.starts.Load() != 0 {
		t.Fatalf("state %s, capture starts %d", h.o.State(), h.capture.starts.Load())
	}
	events := h.drain()
	if hasKind(events, RecordingStarted) {
		t.Fatal("RecordingStarted while muted")
	}
	expectKinds(t, events, ManualMuteOn, RecordingBlocked, RecordingBlocked)

	h.o.ToggleMute()
	if !h.o.Start("test") {
		t.Fatal("start refused after unmute")
	}
}

func TestCancelWinsOverInFlightStop(t *testing.T) {
	h := newHarness(t, "hello")
	h.capture.release = make(chan struct{})

	h.o.Start("test")
	stopped := make(chan bool)
	go func() { stopped <- h.o.Stop("toggle") }()

	for h.capture.stops.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if h.o.Stop("toggle") {
		t.Error("second stop accepted while first in flight")
	}
	if !h.o.Cancel("escape") {
		t.Fatal("cancel refused during stop")
	}
	close(h.capture.release)

	if <-stopped {
		t.Fatal("stop reported success after cancel")
	}
	h.o.Wait()

	if h.o.State() != Idle {
		t.Fatalf("state = %s, want idle", h.o.State())
	}
	events := h.drain()
	expectKinds(t, events, RecordingStarted, RecordingCancelled)
	if h.stt.Calls() != 0 {
		t.Errorf("provider called %d times", h.stt.Calls())
	}
}

func TestCancelRacingStopNeverTranscribes(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t, "hello")
		h.o.Start("test")

		var wg sync.WaitGroup
		var cancelled bool
		wg.Add(2)
		go func() { defer wg.Done(); h.o.Stop("toggle") }()
		go func() { defer wg.Done(); cancelled = h.o.Cancel("escape") }()
		wg.Wait()
		h.o.Wait()

		if h.o.State() != Idle {
			t.Fatalf("iteration %d: state = %s", i, h.o.State())
		}
		events := h.drain()
		if cancelled && hasKind(events, TranscriptionStarted) {
			t.Fatalf("iteration %d: cancel won but transcription ran: %v", i, kinds(events))
		}
		if !cancelled && !hasKind(events, TranscriptionCompleted) {
			t.Fatalf("iteration %d: stop won but no transcription: %v", i, kinds(events))
		}
	}
}

func TestTriggersIgnoredWhileTranscribing(t *testing.T) {
	h := newHarness(t, "hello")
	h.stt.Delay = 100 * time.Millisecond

	h.o.Start("test")
	h.o.Stop("test")
	if h.o.State() != Transcribing {
		t.Fatalf("state = %s, want transcribing", h.o.State())
	}
	if h.o.Start("test") || h.o.Toggle("test") || h.o.Stop("test") || h.o.Cancel("test") {
		t.Fatal("trigger accepted during transcribing")
	}
	st := h.o.Status()
	if !st.IsTranscribing || st.IsRecording || st.RecordingDuration != nil {
		t.Errorf("status = %+v", st)
	}
	h.o.Wait()
	if h.o.State() != Idle {
		t.Fatalf("state = %s, want idle", h.o.State())
	}
	if h.capture.starts.Load() != 1 {
		t.Errorf("capture started %d times", h.capture.starts.Load())
	}
}

func TestEmptyTranscriptSkipsTyping(t *testing.T) {
	h := newHarness(t, "   ")
	h.o.Start("test")
	h.o.Stop("test")
	h.o.Wait()

	events := h.drain()
	expectKinds(t, events, RecordingStarted, RecordingStopped, TranscriptionStarted, TranscriptionFailed)
	if len(h.typer.Typed()) != 0 {
		t.Error("typed an empty transcript")
	}
	if h.o.State() != Idle {
		t.Fatalf("state = %s", h.o.State())
	}
}

func TestProviderFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t, "hello")
	h.stt.Err = errors.New("503")
	h.o.Start("test")
	h.o.Stop("test")
	h.o.Wait()

	events := h.drain()
	last := events[len(events)-1]
	if last.Kind != TranscriptionFailed || last.Error == "" {
		t.Fatalf("last event = %+v", last)
	}
	if h.o.State() != Idle {
		t.Fatalf("state = %s", h.o.State())
	}
}

func TestTypingFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t, "hello")
	h.typer.err = errors.New("no focus")
	h.o.Start("test")
	h.o.Stop("test")
	h.o.Wait()

	events := h.drain()
	expectKinds(t, events, RecordingStarted, RecordingStopped, TranscriptionStarted, TranscriptionCompleted, TypingFailed)
	if h.o.State() != Idle {
		t.Fatalf("state = %s", h.o.State())
	}
	if !h.o.Start("test") {
		t.Fatal("next cycle refused after typing failure")
	}
}

func TestShortRecordingDiscarded(t *testing.T) {
	h := newHarness(t, "hello")
	h.o.ctl.minRecording = time.Hour
	h.o.Start("test")
	if h.o.Stop("test") {
		t.Fatal("short recording was accepted")
	}
	events := h.drain()
	expectKinds(t, events, RecordingStarted, RecordingCancelled)
	if events[1].Reason != "too_short" {
		t.Errorf("reason = %q", events[1].Reason)
	}
}

func TestCaptureFailureBlocksStart(t *testing.T) {
	h := newHarness(t, "hello")
	h.capture.startErr = errors.New("no device")
	if h.o.Start("test") {
		t.Fatal("start accepted without capture")
	}
	events := h.drain()
	expectKinds(t, events, RecordingBlocked)
	if events[0].Reason != "capture_failed" {
		t.Errorf("reason = %q", events[0].Reason)
	}
}

func TestStatusWhileRecording(t *testing.T) {
	h := newHarness(t, "hello")
	h.o.Start("test")
	st := h.o.Status()
	if !st.IsRecording || st.RecordingDuration == nil || *st.RecordingDuration < 0 {
		t.Fatalf("status = %+v", st)
	}
	h.o.Cancel("test")
}

func TestControlsAndCopyLast(t *testing.T) {
	h := newHarness(t, "hello")
	var copied string
	h.o.copyText = func(s string) error { copied = s; return nil }

	c := h.o.Controls("click")
	for _, name := range []string{"dictation:toggle", "dictation:start", "dictation:stop", "dictation:cancel", "mute:toggle", "copy-last"} {
		if _, ok := c[name]; !ok {
			t.Errorf("missing control %q", name)
		}
	}

	if err := c["copy-last"].Execute(context.Background()); err == nil {
		t.Error("copy-last with no history should fail")
	}
	c["dictation:toggle"].Execute(context.Background())
	c["dictation:toggle"].Execute(context.Background())
	h.o.Wait()
	if err := c["copy-last"].Execute(context.Background()); err != nil || copied != "hello" {
		t.Fatalf("copy-last: %v, copied %q", err, copied)
	}
	c["mute:toggle"].Execute(context.Background())
	if !h.o.Muted() {
		t.Error("mute control did not mute")
	}
}

func TestBusDropsForFullSubscriber(t *testing.T) {
	bus := NewBus("v")
	slow, cancelSlow := bus.Subscribe(1)
	fast, cancelFast := bus.Subscribe(8)
	defer cancelFast()

	for i := 0; i < 3; i++ {
		bus.Publish(Event{Kind: RecordingStarted})
	}
	if len(slow) != 1 || len(fast) != 3 {
		t.Fatalf("slow %d, fast %d", len(slow), len(fast))
	}
	cancelSlow()
	cancelSlow()
	bus.Close()
	if _, ok := <-fast; !ok {
		t.Fatal("buffered events should survive close")
	}
}

func TestMuteSetAndToggle(t *testing.T) {
	bus := NewBus("v")
	events, cancel := bus.Subscribe(8)
	defer cancel()
	m := NewMute(bus)

	if m.Set(false) {
		t.Error("Set(false) on unmuted should not change")
	}
	if !m.Set(true) || !m.Muted() {
		t.Error("Set(true) failed")
	}
	if m.Toggle() {
		t.Error("toggle should unmute")
	}
	if got := (<-events).Kind; got != ManualMuteOn {
		t.Errorf("first = %s", got)
	}
	if got := (<-events).Kind; got != ManualMuteOff {
		t.Errorf("second = %s", got)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Recording: "recording", Transcribing: "transcribing", Typing: "typing", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d: %q", s, s.String())
		}
	}
}
