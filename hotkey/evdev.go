package hotkey

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Linux input subsystem constants (linux/input-event-codes.h).
const (
	evKey      = 1
	keyRelease = 0
	keyPress   = 1

	// input_event on 64-bit: timeval (16) + type (2) + code (2) + value (4)
	inputEventSize = 24
)

var evdevKeys = map[string]uint16{
	"escape": 1, "esc": 1,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"backspace": 14, "tab": 15,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"enter": 28, "return": 28,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"space": 57, "capslock": 58,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"f11": 87, "f12": 88,
	"home": 102, "up": 103, "pageup": 104, "left": 105, "right": 106, "end": 107, "down": 108,
	"pagedown": 109, "insert": 110, "delete": 111, "pause": 119,
}

var evdevMods = map[uint16]string{
	29: "ctrl", 97: "ctrl",
	42: "shift", 54: "shift",
	56: "alt", 100: "alt",
	125: "super", 126: "super",
}

// Mouse buttons (BTN_LEFT .. BTN_BACK).
var evdevButtons = map[string]uint16{
	"left":    0x110,
	"right":   0x111,
	"middle":  0x112,
	"side":    0x113,
	"extra":   0x114,
	"forward": 0x115,
	"back":    0x116,
}

// ButtonCode resolves a button name, or "code:<n>" for any raw key code.
func ButtonCode(name string) (uint16, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := evdevButtons[name]; ok {
		return c, true
	}
	if raw, ok := strings.CutPrefix(name, "code:"); ok {
		n, err := strconv.ParseUint(raw, 0, 16)
		return uint16(n), err == nil
	}
	return 0, false
}

// buttonNames resolves every button spec in codes, keyed by the name
// presses are reported under, and inverts the map. Two names on one code
// are an error.
func buttonNames(codes map[string]string) (map[uint16]string, error) {
	names := make(map[uint16]string, len(codes))
	for name, spec := range codes {
		code, ok := ButtonCode(spec)
		if !ok {
			return nil, fmt.Errorf("button %s: unknown mouse button %q", name, spec)
		}
		if other, dup := names[code]; dup {
			a, b := min(name, other), max(name, other)
			return nil, fmt.Errorf("buttons %s and %s both use mouse button %q", a, b, spec)
		}
		names[code] = name
	}
	return names, nil
}

type inputEvent struct {
	at    time.Time
	typ   uint16
	code  uint16
	value int32
}

func decodeEvents(buf []byte) []inputEvent {
	var out []inputEvent
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		sec := int64(binary.LittleEndian.Uint64(buf[i:]))
		usec := int64(binary.LittleEndian.Uint64(buf[i+8:]))
		out = append(out, inputEvent{
			at:    time.Unix(sec, usec*1000),
			typ:   binary.LittleEndian.Uint16(buf[i+16:]),
			code:  binary.LittleEndian.Uint16(buf[i+18:]),
			value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return out
}

// hasCapBit reads a sysfs capability bitmap: hex words of 64 bits,
// most significant word first.
func hasCapBit(bitmap string, bit uint16) bool {
	words := strings.Fields(bitmap)
	idx := len(words) - 1 - int(bit/64)
	if idx < 0 {
		return false
	}
	w, err := strconv.ParseUint(words[idx], 16, 64)
	if err != nil {
		return false
	}
	return w&(1<<(bit%64)) != 0
}

// comboMatcher tracks modifier state on one device and reports when the
// combo goes down and when its key comes back up.
type comboMatcher struct {
	mods map[string]bool
	key  uint16
	held map[uint16]bool
	down bool
}

func newComboMatcher(c Combo) (*comboMatcher, bool) {
	key, ok := evdevKeys[c.Key]
	if !ok {
		return nil, false
	}
	m := &comboMatcher{mods: map[string]bool{}, key: key, held: map[uint16]bool{}}
	for _, mod := range c.Mods {
		m.mods[mod] = true
	}
	return m, true
}

func (m *comboMatcher) modsHeld() bool {
	for want := range m.mods {
		found := false
		for code, pressed := range m.held {
			if pressed && evdevMods[code] == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// feed returns +1 on combo press, -1 on release of a pressed combo, else 0.
// Autorepeat events are ignored.
func (m *comboMatcher) feed(ev inputEvent) int {
	if ev.typ != evKey {
		return 0
	}
	if _, ok := evdevMods[ev.code]; ok && ev.code != m.key {
		switch ev.value {
		case keyPress:
			m.held[ev.code] = true
		case keyRelease:
			m.held[ev.code] = false
		}
		return 0
	}
	if ev.code != m.key {
		return 0
	}
	switch {
	case ev.value == keyPress && !m.down && m.modsHeld():
		m.down = true
		return 1
	case ev.value == keyRelease && m.down:
		m.down = false
		return -1
	}
	return 0
}
