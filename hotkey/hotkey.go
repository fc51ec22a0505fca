// Package hotkey watches global key combinations and mouse buttons.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Combo is zero or more modifiers plus one key, written "ctrl+shift+space".
type Combo struct {
	Mods []string
	Key  string
}

var modNames = map[string]string{
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

func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var c Combo
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Combo{}, fmt.Errorf("hotkey %q: empty part", s)
		}
		if i == len(parts)-1 {
			c.Key = p
			break
		}
		m, ok := modNames[p]
		if !ok {
			return Combo{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
		}
		c.Mods = append(c.Mods, m)
	}
	return c, nil
}

func (c Combo) String() string {
	return strings.Join(append(append([]string{}, c.Mods...), c.Key), "+")
}
