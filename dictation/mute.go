package dictation

import (
	"sync/atomic"

	"hark/log"
)

// Mute is the process-wide manual mute switch. While muted, no recording can
// start.
type Mute struct {
	muted atomic.Bool
	bus   *Bus
}

func NewMute(bus *Bus) *Mute {
	return &Mute{bus: bus}
}

func (m *Mute) Muted() bool { return m.muted.Load() }

// Toggle flips the switch and returns the new value.
func (m *Mute) Toggle() bool {
	for {
		old := m.muted.Load()
		if m.muted.CompareAndSwap(old, !old) {
			m.announce(!old)
			return !old
		}
	}
}

// Set changes the switch and reports whether it actually changed.
func (m *Mute) Set(muted bool) bool {
	if m.muted.Swap(muted) == muted {
		return false
	}
	m.announce(muted)
	return true
}

func (m *Mute) announce(muted bool) {
	kind := ManualMuteOff
	if muted {
		kind = ManualMuteOn
	}
	log.Infof("manual mute: %v", muted)
	if m.bus != nil {
		m.bus.Publish(Event{Kind: kind})
	}
}
