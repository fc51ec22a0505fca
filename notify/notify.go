// Package notify shows desktop notifications for dictation events.
package notify

import (
	"strings"

	"github.com/gen2brain/beeep"

	"hark/dictation"
	"hark/log"
)

const title = "hark"

// maxPreview bounds how much transcript text goes in a notification body.
const maxPreview = 80

// Message returns the notification body for e, or false when e is not worth
// interrupting the user for.
func Message(e dictation.Event) (string, bool) {
	switch e.Kind {
	case dictation.TranscriptionCompleted:
		return preview(e.Text), true
	case dictation.TranscriptionFailed:
		if e.Reason == "empty" {
			return "No speech detected", true
		}
		return "Transcription failed: " + e.Error, true
	case dictation.TypingFailed:
		return "Could not type text: " + e.Error, true
	case dictation.RecordingBlocked:
		if e.Reason == "muted" {
			return "Muted: recording blocked", true
		}
		return "Microphone unavailable: " + e.Error, true
	case dictation.ManualMuteOn:
		return "Muted", true
	case dictation.ManualMuteOff:
		return "Unmuted", true
	}
	return "", false
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= maxPreview {
		return text
	}
	return string(r[:maxPreview-1]) + "…"
}

// Notifier posts a notification for every relevant event.
type Notifier struct {
	send func(title, body string) error
}

func New() *Notifier {
	return &Notifier{send: func(t, b string) error { return beeep.Notify(t, b, "") }}
}

func (n *Notifier) Run(events <-chan dictation.Event) {
	for e := range events {
		body, ok := Message(e)
		if !ok {
			continue
		}
		if err := n.send(title, body); err != nil {
			log.Warnf("notify: %v", err)
		}
	}
}
