//go:build linux

package hotkey

import (
	"fmt"
	"os"
	"sync"

	"hark/click"
)

// Buttons turns presses of selected mouse buttons into click.Press values
// stamped with the kernel event time.
type Buttons struct {
	names map[uint16]string
	files []*os.File

	mu     sync.RWMutex
	out    chan click.Press
	closed bool
}

// NewButtons watches the buttons in codes, keyed by the name presses are
// reported under. Values are anything ButtonCode accepts.
func NewButtons(codes map[string]string) (*Buttons, error) {
	names, err := buttonNames(codes)
	if err != nil {
		return nil, err
	}
	return &Buttons{names: names, out: make(chan click.Press, 32)}, nil
}

func (b *Buttons) Start() error {
	if len(b.names) == 0 {
		return nil
	}
	paths, err := findDevices(evdevButtons["left"])
	if err != nil {
		return fmt.Errorf("finding mice: %w", err)
	}
	b.files, err = openDevices(paths, "mouse")
	if err != nil {
		return err
	}
	for _, f := range b.files {
		go readDevice(f, b.handle)
	}
	return nil
}

func (b *Buttons) handle(ev inputEvent) {
	if ev.typ != evKey || ev.value != keyPress {
		return
	}
	name, ok := b.names[ev.code]
	if !ok {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.out <- click.Press{Button: name, At: ev.at}:
	default:
	}
}

// Presses is closed by Close.
func (b *Buttons) Presses() <-chan click.Press { return b.out }

// Close stops delivery and closes Presses. A reader still blocked on its
// device drops whatever it reads afterwards.
func (b *Buttons) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.out)
	b.mu.Unlock()

	for _, f := range b.files {
		f.Close()
	}
}
