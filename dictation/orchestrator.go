package dictation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hark/action"
	"hark/clipboard"
	"hark/log"
	"hark/transcriber"
)

// Transcriber is satisfied by *transcriber.Orchestrator.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcriber.Request) transcriber.Result
}

// Typer delivers text to the focused application.
type Typer interface {
	Type(ctx context.Context, text string) error
}

type Config struct {
	Language          string
	PreferredProvider string
	Model             string
	Models            map[string]string
	MinRecording      time.Duration
}

// Orchestrator wires the Controller to transcription and typing. Only one
// cycle is ever in flight, so triggers during Transcribing or Typing are
// dropped rather than queued.
type Orchestrator struct {
	cfg   Config
	bus   *Bus
	mute  *Mute
	ctl   *Controller
	stt   Transcriber
	typer Typer

	copyText func(string) error

	wg     sync.WaitGroup
	count  atomic.Int64
	lastMu sync.Mutex
	last   string
}

func New(cfg Config, capture Capture, stt Transcriber, typer Typer, bus *Bus) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		bus:      bus,
		mute:     NewMute(bus),
		stt:      stt,
		typer:    typer,
		copyText: clipboard.Copy,
	}
	o.ctl = NewController(capture, o.mute, bus, cfg.MinRecording)
	o.ctl.handoff = o.handoff
	return o
}

func (o *Orchestrator) Controller() *Controller { return o.ctl }
func (o *Orchestrator) Mute() *Mute             { return o.mute }
func (o *Orchestrator) Bus() *Bus               { return o.bus }
func (o *Orchestrator) State() State            { return o.ctl.State() }
func (o *Orchestrator) Status() Status          { return o.ctl.Status() }

// Count is the number of texts transcribed since start.
func (o *Orchestrator) Count() int { return int(o.count.Load()) }

func (o *Orchestrator) LastText() string {
	o.lastMu.Lock()
	defer o.lastMu.Unlock()
	return o.last
}

func (o *Orchestrator) Start(trigger string) bool  { return o.ctl.StartRecording(trigger) }
func (o *Orchestrator) Stop(trigger string) bool   { return o.ctl.StopRecording(trigger) }
func (o *Orchestrator) Toggle(trigger string) bool { return o.ctl.ToggleRecording(trigger) }
func (o *Orchestrator) Cancel(trigger string) bool { return o.ctl.CancelRecording(trigger) }

// ToggleMute flips manual mute and returns the new value. Subscribers learn
// about it through ManualMuteOn or ManualMuteOff.
func (o *Orchestrator) ToggleMute() bool { return o.mute.Toggle() }
func (o *Orchestrator) Muted() bool      { return o.mute.Muted() }

// Wait blocks until every handed-off cycle has finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) handoff(cycle string, audio []byte) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.process(cycle, audio)
	}()
}

func (o *Orchestrator) process(cycle string, audio []byte) {
	ctx := context.Background()
	o.bus.Publish(Event{Kind: TranscriptionStarted, Cycle: cycle})

	res := o.stt.Transcribe(ctx, transcriber.Request{
		Audio:             audio,
		Language:          o.cfg.Language,
		PreferredProvider: o.cfg.PreferredProvider,
		Model:             o.cfg.Model,
		Models:            o.cfg.Models,
	})
	if !res.OK {
		log.Errorf("transcription failed: %v", res.Err)
		o.bus.Publish(Event{Kind: TranscriptionFailed, Cycle: cycle, Error: res.ErrorMessage()})
		o.ctl.finish(cycle, "transcription_failed")
		return
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		o.bus.Publish(Event{Kind: TranscriptionFailed, Cycle: cycle, Error: "no speech detected", Reason: "empty"})
		o.ctl.finish(cycle, "empty_transcript")
		return
	}

	o.count.Add(1)
	o.lastMu.Lock()
	o.last = text
	o.lastMu.Unlock()
	log.TranscriptionText(text)
	o.bus.Publish(Event{
		Kind:            TranscriptionCompleted,
		Cycle:           cycle,
		Text:            text,
		Confidence:      res.Confidence,
		DurationSeconds: res.AudioDuration.Seconds(),
	})

	if o.typer == nil || !o.ctl.beginTyping(cycle) {
		o.ctl.finish(cycle, "transcribed")
		return
	}
	if err := o.typer.Type(ctx, text); err != nil {
		log.Errorf("typing failed: %v", err)
		o.bus.Publish(Event{Kind: TypingFailed, Cycle: cycle, Error: err.Error()})
		o.ctl.finish(cycle, "typing_failed")
		return
	}
	o.ctl.finish(cycle, "typed")
}

// CopyLast puts the most recent transcription on the clipboard.
func (o *Orchestrator) CopyLast() error {
	text := o.LastText()
	if text == "" {
		return errors.New("nothing transcribed yet")
	}
	return o.copyText(text)
}

func (o *Orchestrator) ToggleAction(trigger string) action.Action {
	return action.Func{Label: "dictation:toggle", Fn: func(context.Context) error {
		o.Toggle(trigger)
		return nil
	}}
}

func (o *Orchestrator) StartAction(trigger string) action.Action {
	return action.Func{Label: "dictation:start", Fn: func(context.Context) error {
		o.Start(trigger)
		return nil
	}}
}

func (o *Orchestrator) StopAction(trigger string) action.Action {
	return action.Func{Label: "dictation:stop", Fn: func(context.Context) error {
		o.Stop(trigger)
		return nil
	}}
}

func (o *Orchestrator) CancelAction(trigger string) action.Action {
	return action.Func{Label: "dictation:cancel", Fn: func(context.Context) error {
		o.Cancel(trigger)
		return nil
	}}
}

func (o *Orchestrator) MuteAction() action.Action {
	return action.Func{Label: "mute:toggle", Fn: func(context.Context) error {
		o.ToggleMute()
		return nil
	}}
}

func (o *Orchestrator) CopyLastAction() action.Action {
	return action.Func{Label: "copy-last", Fn: func(context.Context) error {
		return o.CopyLast()
	}}
}

// Controls exposes the dictation actions to action.Parse under their config
// names.
func (o *Orchestrator) Controls(trigger string) action.Controls {
	controls := action.Controls{}
	for _, a := range []action.Action{
		o.ToggleAction(trigger),
		o.StartAction(trigger),
		o.StopAction(trigger),
		o.CancelAction(trigger),
		o.MuteAction(),
		o.CopyLastAction(),
	} {
		controls[a.Name()] = a
	}
	return controls
}
