package action

import (
	"fmt"
	"strings"
	"sync"

	"github.com/micmonay/keybd_event"
)

// Keyboard injects synthetic key taps.
type Keyboard interface {
	Tap(mods []string, key string) error
}

var keyCodes = map[string]int{
	"a": keybd_event.VK_A, "b": keybd_event.VK_B, "c": keybd_event.VK_C, "d": keybd_event.VK_D,
	"e": keybd_event.VK_E, "f": keybd_event.VK_F, "g": keybd_event.VK_G, "h": keybd_event.VK_H,
	"i": keybd_event.VK_I, "j": keybd_event.VK_J, "k": keybd_event.VK_K, "l": keybd_event.VK_L,
	"m": keybd_event.VK_M, "n": keybd_event.VK_N, "o": keybd_event.VK_O, "p": keybd_event.VK_P,
	"q": keybd_event.VK_Q, "r": keybd_event.VK_R, "s": keybd_event.VK_S, "t": keybd_event.VK_T,
	"u": keybd_event.VK_U, "v": keybd_event.VK_V, "w": keybd_event.VK_W, "x": keybd_event.VK_X,
	"y": keybd_event.VK_Y, "z": keybd_event.VK_Z,
	"0": keybd_event.VK_0, "1": keybd_event.VK_1, "2": keybd_event.VK_2, "3": keybd_event.VK_3,
	"4": keybd_event.VK_4, "5": keybd_event.VK_5, "6": keybd_event.VK_6, "7": keybd_event.VK_7,
	"8": keybd_event.VK_8, "9": keybd_event.VK_9,
	"f1": keybd_event.VK_F1, "f2": keybd_event.VK_F2, "f3": keybd_event.VK_F3, "f4": keybd_event.VK_F4,
	"f5": keybd_event.VK_F5, "f6": keybd_event.VK_F6, "f7": keybd_event.VK_F7, "f8": keybd_event.VK_F8,
	"f9": keybd_event.VK_F9, "f10": keybd_event.VK_F10, "f11": keybd_event.VK_F11, "f12": keybd_event.VK_F12,
	"space": keybd_event.VK_SPACE,
	"tab":   keybd_event.VK_TAB,
}

var modAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"super":   "super",
	"cmd":     "super",
	"win":     "super",
	"meta":    "super",
}

// KnownKey reports whether name can be tapped.
func KnownKey(name string) bool {
	_, ok := keyCodes[strings.ToLower(name)]
	return ok
}

// NormalizeMod maps a modifier alias to its canonical name.
func NormalizeMod(name string) (string, bool) {
	m, ok := modAliases[strings.ToLower(name)]
	return m, ok
}

// Keybd is the system Keyboard. The key bonding is created on first use.
type Keybd struct {
	mu   sync.Mutex
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

func (k *Keybd) init() error {
	k.once.Do(func() {
		k.kb, k.err = keybd_event.NewKeyBonding()
	})
	return k.err
}

func (k *Keybd) Tap(mods []string, key string) error {
	code, ok := keyCodes[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	if err := k.init(); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.kb.Clear()
	k.kb.SetKeys(code)
	for _, m := range mods {
		canon, ok := NormalizeMod(m)
		if !ok {
			return fmt.Errorf("unknown modifier %q", m)
		}
		switch canon {
		case "ctrl":
			k.kb.HasCTRL(true)
		case "shift":
			k.kb.HasSHIFT(true)
		case "alt":
			k.kb.HasALT(true)
		case "super":
			k.kb.HasSuper(true)
		}
	}
	return k.kb.Launching()
}
