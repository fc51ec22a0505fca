//go:build linux

package hotkey

import (
	"testing"
	"time"
)

func TestButtonsHandle(t *testing.T) {
	b, err := NewButtons(map[string]string{"wheel": "middle"})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Unix(100, 0)
	b.handle(inputEvent{at: at, typ: evKey, code: 0x112, value: keyRelease})
	b.handle(inputEvent{at: at, typ: evKey, code: 0x110, value: keyPress})
	b.handle(inputEvent{at: at, typ: evKey, code: 0x112, value: keyPress})

	select {
	case p := <-b.Presses():
		if p.Button != "wheel" || !p.At.Equal(at) {
			t.Errorf("press = %+v", p)
		}
	default:
		t.Fatal("middle press not delivered")
	}
	if len(b.Presses()) != 0 {
		t.Errorf("%d extra presses", len(b.Presses()))
	}

	b.Close()
	// A reader that wakes after Close must not send on the closed channel.
	b.handle(inputEvent{at: at, typ: evKey, code: 0x112, value: keyPress})
	if _, ok := <-b.Presses(); ok {
		t.Error("press delivered after Close")
	}
}
