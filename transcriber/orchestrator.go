package transcriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"hark/encoder"
	"hark/log"
)

const DefaultMaxConcurrent = 3

type Options struct {
	MaxConcurrent int
	MaxAudioBytes int
}

// Orchestrator admits at most MaxConcurrent requests at a time and walks the
// provider list until one succeeds. Excess requests block; none are
// rejected for load.
type Orchestrator struct {
	providers []Provider
	sem       *semaphore.Weighted
	opts      Options
}

// NewOrchestrator keeps providers in the given priority order.
func NewOrchestrator(providers []Provider, opts Options) *Orchestrator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = DefaultMaxAudioBytes
	}
	return &Orchestrator{
		providers: providers,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts:      opts,
	}
}

func (o *Orchestrator) Options() Options { return o.opts }

// Providers lists registered provider names in priority order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// warmer is implemented by providers that can pre-open their connection.
type warmer interface{ Warm() }

// Warm pre-opens connections to every available provider that supports it
// and returns once all of them have answered or failed.
func (o *Orchestrator) Warm() {
	var wg sync.WaitGroup
	for _, p := range o.providers {
		w, ok := p.(warmer)
		if !ok || !p.Available() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Warm()
		}()
	}
	wg.Wait()
}

// order puts preferred first when it is registered and available, then the
// rest in priority order. Unavailable providers are skipped.
func (o *Orchestrator) order(preferred string) []Provider {
	out := make([]Provider, 0, len(o.providers))
	first := -1
	if preferred != "" {
		for i, p := range o.providers {
			if p.Name() == preferred && p.Available() {
				out = append(out, p)
				first = i
				break
			}
		}
	}
	for i, p := range o.providers {
		if i == first || !p.Available() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Transcribe never returns a nil-equivalent result: on failure Err is set and
// Provider names the last provider tried, if any.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) Result {
	start := time.Now()
	if err := req.Validate(o.opts.MaxAudioBytes); err != nil {
		return Result{Err: err, Elapsed: time.Since(start)}
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return Result{Err: fmt.Errorf("waiting for transcription slot: %w", err), Elapsed: time.Since(start)}
	}
	defer o.sem.Release(1)

	candidates := o.order(req.PreferredProvider)
	if len(candidates) == 0 {
		return Result{Err: ErrNoProvider, Elapsed: time.Since(start)}
	}

	owner := req.PreferredProvider
	if owner == "" {
		owner = o.providers[0].Name()
	}

	var res Result
	var lastErr error
	for _, p := range candidates {
		attemptStart := time.Now()
		t, err := attempt(ctx, p, req.forProvider(p.Name(), owner))
		elapsed := time.Since(attemptStart)
		log.Attempt(p.Name(), elapsed, err)
		res.Attempts = append(res.Attempts, Attempt{Provider: p.Name(), Elapsed: elapsed, Err: err})
		res.Provider = p.Name()

		if err == nil {
			res.OK = true
			res.Text = t.Text
			res.Language = t.Language
			res.Confidence = t.Confidence
			res.AudioDuration = t.Duration
			if res.AudioDuration <= 0 {
				res.AudioDuration = encoder.Duration(len(req.Audio))
			}
			res.Elapsed = time.Since(start)
			log.Transcription(p.Name(), res.Elapsed, res.AudioDuration.Seconds(), res.Confidence)
			return res
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	res.Err = fmt.Errorf("all providers failed: %w", lastErr)
	res.Elapsed = time.Since(start)
	return res
}

// attempt runs one provider call. A panicking provider counts as a failed
// attempt so the next provider still gets its turn.
func attempt(ctx context.Context, p Provider, req Request) (t *Transcript, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("%w: %s: %v", ErrProviderPanic, p.Name(), r)
		}
	}()
	t, err = p.Transcribe(ctx, req)
	if err == nil && t == nil {
		err = fmt.Errorf("%s returned no transcript", p.Name())
	}
	return t, err
}
