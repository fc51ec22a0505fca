package transcriber

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Fake is an in-process Provider for tests and offline runs.
type Fake struct {
	ID          string
	Text        string
	Confidence  *float64
	Err         error
	Delay       time.Duration
	Unavailable bool

	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32

	mu   sync.Mutex
	last Request
}

func NewFake(text string, err error) *Fake {
	return &Fake{ID: "fake", Text: text, Err: err}
}

func (f *Fake) Name() string {
	if f.ID == "" {
		return "fake"
	}
	return f.ID
}

func (f *Fake) Available() bool { return !f.Unavailable }

func (f *Fake) Transcribe(ctx context.Context, r Request) (*Transcript, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.last = r
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &Transcript{Text: f.Text, Language: r.Language, Confidence: f.Confidence}, nil
}

func (f *Fake) Calls() int { return int(f.calls.Load()) }

// Peak is the highest number of concurrent Transcribe calls observed.
func (f *Fake) Peak() int { return int(f.peak.Load()) }

func (f *Fake) LastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
