package action

import (
	"fmt"
	"strings"
)

// Controls resolves named application actions such as "dictation:toggle"
// or "copy-last" that the parser cannot build on its own.
type Controls map[string]Action

// Parse builds an Action from its config form:
//
//	noop
//	key:<name>
//	combo:<mod>+[<mod>+]<key>
//	shell:<command>
//	paste
//
// Any other name is looked up in controls.
func Parse(spec string, kb Keyboard, controls Controls) (Action, error) {
	spec = strings.TrimSpace(spec)
	kind, arg, hasArg := strings.Cut(spec, ":")

	switch {
	case spec == "" || spec == "noop":
		return NoOp{}, nil
	case spec == "paste":
		return Paste{}, nil
	case kind == "key" && hasArg:
		key := strings.ToLower(strings.TrimSpace(arg))
		if !KnownKey(key) {
			return nil, fmt.Errorf("%q: unknown key %q", spec, key)
		}
		return NewKeyPress(kb, key), nil
	case kind == "combo" && hasArg:
		return parseCombo(spec, arg, kb)
	case kind == "shell" && hasArg:
		cmd := strings.TrimSpace(arg)
		if cmd == "" {
			return nil, fmt.Errorf("%q: empty shell command", spec)
		}
		return ShellCommand{Command: cmd}, nil
	}

	if a, ok := controls[spec]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, spec)
}

func parseCombo(spec, arg string, kb Keyboard) (Action, error) {
	parts := strings.Split(arg, "+")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("%q: combo needs one or two modifiers and a key", spec)
	}
	key := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if !KnownKey(key) {
		return nil, fmt.Errorf("%q: unknown key %q", spec, key)
	}
	mods := make([]string, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		m, ok := NormalizeMod(strings.TrimSpace(p))
		if !ok {
			return nil, fmt.Errorf("%q: unknown modifier %q", spec, p)
		}
		for _, seen := range mods {
			if seen == m {
				return nil, fmt.Errorf("%q: duplicate modifier %q", spec, m)
			}
		}
		mods = append(mods, m)
	}
	return NewKeyCombo(kb, mods, key), nil
}
