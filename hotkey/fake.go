package hotkey

import "sync/atomic"

// FakeHotkey is driven by hand in tests. RegisterErr, when set, is returned
// by Register and leaves the fake unregistered.
type FakeHotkey struct {
	RegisterErr error

	down, up   chan struct{}
	registered atomic.Bool
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		down: make(chan struct{}, 1),
		up:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.registered.Store(true)
	return nil
}

func (f *FakeHotkey) Unregister()              { f.registered.Store(false) }
func (f *FakeHotkey) Registered() bool         { return f.registered.Load() }
func (f *FakeHotkey) Keydown() <-chan struct{} { return f.down }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.up }

// Press and Release block while the previous edge is still unread.
func (f *FakeHotkey) Press()   { f.down <- struct{}{} }
func (f *FakeHotkey) Release() { f.up <- struct{}{} }
