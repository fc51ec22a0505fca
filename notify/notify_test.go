package notify

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"hark/dictation"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		e    dictation.Event
		want string
		ok   bool
	}{
		{dictation.Event{Kind: dictation.TranscriptionCompleted, Text: "hello\n world"}, "hello world", true},
		{dictation.Event{Kind: dictation.TranscriptionFailed, Reason: "empty"}, "No speech detected", true},
		{dictation.Event{Kind: dictation.TranscriptionFailed, Error: "timeout"}, "Transcription failed: timeout", true},
		{dictation.Event{Kind: dictation.RecordingBlocked, Reason: "muted"}, "Muted: recording blocked", true},
		{dictation.Event{Kind: dictation.ManualMuteOff}, "Unmuted", true},
		{dictation.Event{Kind: dictation.RecordingStarted}, "", false},
	}
	for _, tt := range tests {
		got, ok := Message(tt.e)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Message(%s) = %q, %v; want %q, %v", tt.e.Kind, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("ü", 200)
	got := preview(long)
	if n := utf8.RuneCountInString(got); n != maxPreview {
		t.Errorf("preview has %d runes, want %d", n, maxPreview)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("missing ellipsis")
	}
}

func TestRunSendsRelevantEvents(t *testing.T) {
	var bodies []string
	n := &Notifier{send: func(title, body string) error {
		bodies = append(bodies, body)
		return errors.New("no notification daemon")
	}}
	events := make(chan dictation.Event, 3)
	events <- dictation.Event{Kind: dictation.RecordingStarted}
	events <- dictation.Event{Kind: dictation.TranscriptionCompleted, Text: "ok"}
	events <- dictation.Event{Kind: dictation.ManualMuteOn}
	close(events)
	n.Run(events)

	if len(bodies) != 2 || bodies[0] != "ok" || bodies[1] != "Muted" {
		t.Errorf("bodies = %q", bodies)
	}
}
