package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const DefaultRestoreDelay = 600 * time.Millisecond

// Typer injects text with copy + paste. With Restore set, the clipboard
// content from before the paste is put back after RestoreDelay, giving the
// target application time to read the pasted text first.
type Typer struct {
	Restore      bool
	RestoreDelay time.Duration

	copy  func(string) error
	read  func() (string, error)
	paste func() error
}

func NewTyper(restore bool) *Typer {
	return &Typer{
		Restore:      restore,
		RestoreDelay: DefaultRestoreDelay,
		copy:         Copy,
		read:         Read,
		paste:        Paste,
	}
}

func (t *Typer) Type(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("nothing to type")
	}

	var prev string
	havePrev := false
	if t.Restore {
		if s, err := t.read(); err == nil {
			prev, havePrev = s, true
		}
	}

	if err := t.copy(text); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := t.paste(); err != nil {
		err = fmt.Errorf("paste: %w", err)
		// Nothing reached the target, so the old content goes back at once.
		if havePrev {
			if rerr := t.copy(prev); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore clipboard: %w", rerr))
			}
		}
		return err
	}

	if !havePrev {
		return nil
	}
	select {
	case <-time.After(t.RestoreDelay):
	case <-ctx.Done():
	}
	if err := t.copy(prev); err != nil {
		return fmt.Errorf("restore clipboard: %w", err)
	}
	return nil
}
