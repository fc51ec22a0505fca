package hotkey

import (
	"sync/atomic"
	"time"
)

// Hybrid turns one key into both push-to-talk and tap-to-toggle. Every press
// from idle starts a recording; holding past longPress makes the release stop
// it, while a shorter tap leaves it running until the next press is released.
type Hybrid struct {
	start  chan struct{}
	stop   chan struct{}
	toggle atomic.Bool
	done   chan struct{}
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		start: make(chan struct{}, 1),
		stop:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan struct{} { return h.start }
func (h *Hybrid) Stop() <-chan struct{}  { return h.stop }

// IsToggle reports whether the current recording was started by a tap.
func (h *Hybrid) IsToggle() bool { return h.toggle.Load() }

func (h *Hybrid) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hybrid) emit(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	case <-h.done:
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		select {
		case <-hk.Keydown():
		case <-h.done:
			return
		}
		h.toggle.Store(false)
		h.emit(h.start)

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			// held: release ends it
			select {
			case <-hk.Keyup():
			case <-h.done:
				return
			}
			h.emit(h.stop)
			continue
		case <-hk.Keyup():
			timer.Stop()
		case <-h.done:
			timer.Stop()
			return
		}

		h.toggle.Store(true)
		for _, ch := range []<-chan struct{}{hk.Keydown(), hk.Keyup()} {
			select {
			case <-ch:
			case <-h.done:
				return
			}
		}
		h.emit(h.stop)
	}
}
