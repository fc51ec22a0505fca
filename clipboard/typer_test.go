package clipboard

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeBoard struct {
	content  string
	pasted   []string
	pasteErr error
}

func newFakeTyper(restore bool, board *fakeBoard) *Typer {
	return &Typer{
		Restore:      restore,
		RestoreDelay: time.Millisecond,
		copy:         func(s string) error { board.content = s; return nil },
		read:         func() (string, error) { return board.content, nil },
		paste: func() error {
			if board.pasteErr != nil {
				return board.pasteErr
			}
			board.pasted = append(board.pasted, board.content)
			return nil
		},
	}
}

func TestTypePastesText(t *testing.T) {
	board := &fakeBoard{content: "before"}
	typer := newFakeTyper(false, board)
	if err := typer.Type(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(board.pasted) != 1 || board.pasted[0] != "hello" {
		t.Fatalf("pasted = %v", board.pasted)
	}
	if board.content != "hello" {
		t.Errorf("clipboard = %q, want hello left in place", board.content)
	}
}

func TestTypeRestoresClipboard(t *testing.T) {
	board := &fakeBoard{content: "before"}
	typer := newFakeTyper(true, board)
	if err := typer.Type(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if board.pasted[0] != "hello" {
		t.Fatalf("pasted = %v", board.pasted)
	}
	if board.content != "before" {
		t.Errorf("clipboard = %q, want before", board.content)
	}
}

func TestTypeEmpty(t *testing.T) {
	board := &fakeBoard{}
	if err := newFakeTyper(false, board).Type(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty text")
	}
	if len(board.pasted) != 0 {
		t.Fatal("nothing should be pasted")
	}
}

func TestTypePasteError(t *testing.T) {
	board := &fakeBoard{pasteErr: errors.New("no uinput")}
	err := newFakeTyper(true, board).Type(context.Background(), "hello")
	if err == nil || !errors.Is(err, board.pasteErr) {
		t.Fatalf("got %v, want wrapped paste error", err)
	}
}

func TestTypePasteErrorRestoresClipboard(t *testing.T) {
	board := &fakeBoard{content: "before", pasteErr: errors.New("no uinput")}
	if err := newFakeTyper(true, board).Type(context.Background(), "hello"); err == nil {
		t.Fatal("expected paste error")
	}
	if board.content != "before" {
		t.Errorf("clipboard = %q, want before", board.content)
	}

	board = &fakeBoard{content: "before", pasteErr: errors.New("no uinput")}
	newFakeTyper(false, board).Type(context.Background(), "hello")
	if board.content != "hello" {
		t.Errorf("without restore clipboard = %q, want hello", board.content)
	}
}
