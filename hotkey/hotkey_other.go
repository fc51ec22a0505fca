//go:build darwin || windows

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

var xKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "enter": hotkey.KeyReturn, "return": hotkey.KeyReturn,
	"escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape, "tab": hotkey.KeyTab,
	"left": hotkey.KeyLeft, "right": hotkey.KeyRight, "up": hotkey.KeyUp, "down": hotkey.KeyDown,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

type xHotkey struct {
	combo   Combo
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	done    chan struct{}
}

func New(c Combo) (Hotkey, error) {
	key, ok := xKeys[c.Key]
	if !ok {
		return nil, fmt.Errorf("hotkey %s: unsupported key %q", c, c.Key)
	}
	var mods []hotkey.Modifier
	for _, m := range c.Mods {
		mod, ok := xMods[m]
		if !ok {
			return nil, fmt.Errorf("hotkey %s: unsupported modifier %q", c, m)
		}
		mods = append(mods, mod)
	}
	return &xHotkey{
		combo:   c,
		hk:      hotkey.New(mods, key),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", h.combo, err)
	}
	go h.forward(h.hk.Keydown(), h.keydown)
	go h.forward(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *xHotkey) forward(in <-chan hotkey.Event, out chan struct{}) {
	for {
		select {
		case <-in:
			select {
			case out <- struct{}{}:
			case <-h.done:
				return
			}
		case <-h.done:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	select {
	case <-h.done:
		return
	default:
	}
	close(h.done)
	h.hk.Unregister()
}

func (h *xHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *xHotkey) Keyup() <-chan struct{}   { return h.keyup }

func Diagnose() (string, error) {
	return "global hotkeys available", nil
}
