//go:build !linux

package hotkey

import (
	"errors"
	"sync"

	"hark/click"
)

var ErrButtonsUnsupported = errors.New("mouse button bindings need evdev (linux only)")

type Buttons struct {
	n    int
	out  chan click.Press
	once sync.Once
}

func NewButtons(codes map[string]string) (*Buttons, error) {
	names, err := buttonNames(codes)
	if err != nil {
		return nil, err
	}
	return &Buttons{n: len(names), out: make(chan click.Press)}, nil
}

func (b *Buttons) Start() error {
	if b.n == 0 {
		return nil
	}
	return ErrButtonsUnsupported
}

// Presses is closed by Close.
func (b *Buttons) Presses() <-chan click.Press { return b.out }

func (b *Buttons) Close() { b.once.Do(func() { close(b.out) }) }
