// Package transcriber turns captured PCM into text through one of several
// speech-to-text providers.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const DefaultMaxAudioBytes = 10 << 20

var (
	ErrEmptyAudio    = errors.New("audio is empty")
	ErrAudioTooLarge = errors.New("audio exceeds size limit")
	ErrNoProvider    = errors.New("no transcription provider available")
	ErrProviderPanic = errors.New("provider panicked")
)

// Request is one recording to transcribe. Audio is 16 kHz mono PCM16LE.
// Empty optional fields mean "provider default".
//
// Model names a model of one provider only: PreferredProvider, or the
// highest priority provider when none is preferred. Models overrides per
// provider name and wins over Model. Every other provider keeps its default.
type Request struct {
	Audio             []byte
	Language          string
	PreferredProvider string
	Model             string
	Models            map[string]string
}

// forProvider is the request as sent to provider. owner is the provider
// Model belongs to.
func (r Request) forProvider(provider, owner string) Request {
	model := r.Models[provider]
	if model == "" && provider == owner {
		model = r.Model
	}
	r.Model = model
	r.Models = nil
	return r
}

func (r Request) Validate(maxBytes int) error {
	if len(r.Audio) == 0 {
		return ErrEmptyAudio
	}
	if maxBytes > 0 && len(r.Audio) > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrAudioTooLarge, len(r.Audio), maxBytes)
	}
	return nil
}

// Transcript is what a provider returns for a successful attempt.
type Transcript struct {
	Text       string
	Language   string
	Confidence *float64
	Duration   time.Duration // audio length as reported by the provider
	Metrics    *NetworkMetrics
	RateLimit  string
}

// Provider is one speech-to-text backend.
type Provider interface {
	Name() string
	Available() bool
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}

type Attempt struct {
	Provider string
	Elapsed  time.Duration
	Err      error
}

// Result is the outcome of a Request across all attempts. Elapsed covers the
// whole request including every failed attempt.
type Result struct {
	OK            bool
	Text          string
	Language      string
	Provider      string
	Elapsed       time.Duration
	Confidence    *float64
	AudioDuration time.Duration
	Err           error
	Attempts      []Attempt
}

// ErrorMessage is the failure text, empty on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
