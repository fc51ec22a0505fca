// Package beep plays short audible cues for dictation events.
package beep

import (
	"math"
	"sync"

	"hark/dictation"
)

const sampleRate = 44100

type Sound int

const (
	Start Sound = iota
	End
	Error
)

func (s Sound) String() string {
	switch s {
	case Start:
		return "start"
	case End:
		return "end"
	case Error:
		return "error"
	}
	return "unknown"
}

// tone is a decaying sine, mono at sampleRate.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * math.Exp(-t*decay))
	}
	return out
}

func doubleTone(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tone(freq, beepDur, volume, decay)
	out := make([]int16, 0, 2*len(b)+int(sampleRate*gapDur))
	out = append(out, b...)
	out = append(out, make([]int16, int(sampleRate*gapDur))...)
	return append(out, b...)
}

var (
	samplesOnce sync.Once
	samples     map[Sound][]int16
)

// Samples returns the PCM for s. The tail length covers the platform's
// output buffer so the tick is not clipped.
func Samples(s Sound) []int16 {
	samplesOnce.Do(func() {
		samples = map[Sound][]int16{
			Start: tone(1200, tailSeconds, 0.5, 60),
			End:   tone(900, tailSeconds, 0.5, 40),
			Error: doubleTone(350, 0.08, 0.05, 0.6, 30),
		}
	})
	return samples[s]
}

// CueFor maps a dictation event to the sound it should make.
func CueFor(e dictation.Event) (Sound, bool) {
	switch e.Kind {
	case dictation.RecordingStarted:
		return Start, true
	case dictation.RecordingStopped:
		return End, true
	case dictation.RecordingBlocked, dictation.TranscriptionFailed, dictation.TypingFailed:
		return Error, true
	}
	return 0, false
}

// Cues plays a sound for every event it receives until events closes.
type Cues struct {
	play func([]int16)
}

func NewCues() *Cues { return &Cues{play: play} }

func (c *Cues) Run(events <-chan dictation.Event) {
	for e := range events {
		if s, ok := CueFor(e); ok {
			c.play(Samples(s))
		}
	}
}
