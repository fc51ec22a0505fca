//go:build linux

package hotkey

import (
	"fmt"
	"os"
	"sync"
)

// evdevHotkey reads /dev/input directly, which works on Wayland and X11
// alike but needs the user in the 'input' group.
type evdevHotkey struct {
	combo   Combo
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	once    sync.Once
}

func New(c Combo) (Hotkey, error) {
	if _, ok := evdevKeys[c.Key]; !ok {
		return nil, fmt.Errorf("hotkey %s: unsupported key %q", c, c.Key)
	}
	return &evdevHotkey{
		combo:   c,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findDevices(evdevKeys["a"], evdevKeys[h.combo.Key])
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	h.files, err = openDevices(keyboards, "keyboard")
	if err != nil {
		return err
	}
	for _, f := range h.files {
		m, _ := newComboMatcher(h.combo)
		go readDevice(f, func(ev inputEvent) {
			switch m.feed(ev) {
			case 1:
				signal(h.keydown)
			case -1:
				signal(h.keyup)
			}
		})
	}
	return nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }
