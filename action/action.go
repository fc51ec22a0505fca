// Package action binds classified clicks to things the user wants done and
// runs them, one at a time per button.
package action

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"hark/clipboard"
)

var ErrUnknownAction = errors.New("unknown action")

// Action is a bindable unit of work.
type Action interface {
	Execute(ctx context.Context) error
	Name() string
}

// KeyPress taps a single key.
type KeyPress struct {
	Key string
	kb  Keyboard
}

func NewKeyPress(kb Keyboard, key string) *KeyPress {
	return &KeyPress{Key: key, kb: kb}
}

func (a *KeyPress) Execute(ctx context.Context) error {
	return a.kb.Tap(nil, a.Key)
}

func (a *KeyPress) Name() string { return "key:" + a.Key }

// KeyCombo holds one or two modifiers while tapping Key.
type KeyCombo struct {
	Mods []string
	Key  string
	kb   Keyboard
}

func NewKeyCombo(kb Keyboard, mods []string, key string) *KeyCombo {
	return &KeyCombo{Mods: mods, Key: key, kb: kb}
}

func (a *KeyCombo) Execute(ctx context.Context) error {
	return a.kb.Tap(a.Mods, a.Key)
}

func (a *KeyCombo) Name() string {
	return "combo:" + strings.Join(append(append([]string{}, a.Mods...), a.Key), "+")
}

const shellTimeout = 30 * time.Second

// ShellCommand runs Command through the platform shell.
type ShellCommand struct {
	Command string
}

func (a ShellCommand) Execute(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", a.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", a.Command)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("shell %q: %w: %s", a.Command, err, msg)
		}
		return fmt.Errorf("shell %q: %w", a.Command, err)
	}
	return nil
}

func (a ShellCommand) Name() string { return "shell:" + a.Command }

// NoOp explicitly suppresses a click count.
type NoOp struct{}

func (NoOp) Execute(context.Context) error { return nil }
func (NoOp) Name() string                  { return "noop" }

// Func adapts a plain function, used for dictation controls.
type Func struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (f Func) Execute(ctx context.Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}

func (f Func) Name() string { return f.Label }

// Paste sends the platform paste shortcut into the focused window.
type Paste struct{}

func (Paste) Execute(context.Context) error { return clipboard.Paste() }
func (Paste) Name() string                  { return "paste" }
