package action

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hark/click"
)

type tap struct {
	mods []string
	key  string
}

type fakeKeyboard struct {
	mu   sync.Mutex
	taps []tap
}

func (f *fakeKeyboard) Tap(mods []string, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taps = append(f.taps, tap{mods: mods, key: key})
	return nil
}

func TestParse(t *testing.T) {
	toggle := Func{Label: "dictation:toggle"}
	controls := Controls{"dictation:toggle": toggle}

	tests := []struct {
		spec string
		name string
	}{
		{"", "noop"},
		{"noop", "noop"},
		{"paste", "paste"},
		{"key:F5", "key:f5"},
		{"key: space ", "key:space"},
		{"combo:ctrl+c", "combo:ctrl+c"},
		{"combo:cmd+shift+z", "combo:super+shift+z"},
		{"shell:echo hi", "shell:echo hi"},
		{"dictation:toggle", "dictation:toggle"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			a, err := Parse(tt.spec, &fakeKeyboard{}, controls)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.spec, err)
			}
			if a.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", a.Name(), tt.name)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"key:",
		"key:banana",
		"combo:c",
		"combo:ctrl+alt+shift+c",
		"combo:hyper+c",
		"combo:ctrl+ctrl+c",
		"shell:",
		"dictation:toggle",
		"launch-rockets",
	}
	for _, spec := range bad {
		if _, err := Parse(spec, &fakeKeyboard{}, nil); err == nil {
			t.Errorf("Parse(%q): expected error", spec)
		}
	}
	_, err := Parse("launch-rockets", &fakeKeyboard{}, nil)
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestKeyActionsTap(t *testing.T) {
	kb := &fakeKeyboard{}
	press, _ := Parse("key:f5", kb, nil)
	combo, _ := Parse("combo:ctrl+shift+v", kb, nil)
	if err := press.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := combo.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(kb.taps) != 2 {
		t.Fatalf("got %d taps", len(kb.taps))
	}
	if kb.taps[0].key != "f5" || len(kb.taps[0].mods) != 0 {
		t.Errorf("tap 0 = %+v", kb.taps[0])
	}
	if kb.taps[1].key != "v" || len(kb.taps[1].mods) != 2 || kb.taps[1].mods[0] != "ctrl" {
		t.Errorf("tap 1 = %+v", kb.taps[1])
	}
}

func TestShellCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if err := (ShellCommand{Command: "true"}).Execute(context.Background()); err != nil {
		t.Fatalf("true: %v", err)
	}
	if err := (ShellCommand{Command: "echo nope >&2; exit 3"}).Execute(context.Background()); err == nil {
		t.Fatal("expected error from exit 3")
	}
}

func TestBindingsCapCount(t *testing.T) {
	one, three := NoOp{}, Func{Label: "third"}
	b := NewBindings(3, map[string][]Action{"middle": {one, nil, three}})

	if a, ok := b.Lookup("middle", 1); !ok || a.Name() != "noop" {
		t.Errorf("count 1: %v %v", a, ok)
	}
	if _, ok := b.Lookup("middle", 2); ok {
		t.Error("count 2 should be unbound")
	}
	if a, ok := b.Lookup("middle", 7); !ok || a.Name() != "third" {
		t.Errorf("count 7 should map to max bucket, got %v %v", a, ok)
	}
	if _, ok := b.Lookup("side", 1); ok {
		t.Error("side should be unbound")
	}
}

func TestDispatchSerializesPerButton(t *testing.T) {
	var running, peak atomic.Int32
	var order []int
	var mu sync.Mutex
	done := make(chan struct{}, 10)

	mk := func(i int) Action {
		return Func{Label: "step", Fn: func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
			done <- struct{}{}
			return nil
		}}
	}

	b := NewBindings(3, map[string][]Action{"middle": {mk(1), mk(2), mk(3)}})
	d := NewDispatcher(b)
	for i := 1; i <= 3; i++ {
		d.Dispatch(click.Click{Button: "middle", Count: i})
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out")
		}
	}
	d.Close()

	if peak.Load() != 1 {
		t.Errorf("peak concurrency %d, want 1", peak.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i+1 {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestDispatchButtonsRunConcurrently(t *testing.T) {
	started := make(chan string, 2)
	release := make(chan struct{})
	block := func(name string) Action {
		return Func{Label: name, Fn: func(context.Context) error {
			started <- name
			<-release
			return nil
		}}
	}
	b := NewBindings(3, map[string][]Action{
		"middle": {block("middle")},
		"side":   {block("side")},
	})
	d := NewDispatcher(b)
	d.Dispatch(click.Click{Button: "middle", Count: 1})
	d.Dispatch(click.Click{Button: "side", Count: 1})

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("both buttons should run at once")
		}
	}
	close(release)
	d.Close()
}

func TestDispatchUnboundAndClosed(t *testing.T) {
	d := NewDispatcher(NewBindings(3, nil))
	d.Dispatch(click.Click{Button: "middle", Count: 1})
	if err := d.DispatchSync(context.Background(), click.Click{Button: "middle", Count: 1}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("DispatchSync unbound: %v", err)
	}
	d.Close()
	d.Close()
}

func TestDispatchSyncNoOp(t *testing.T) {
	d := NewDispatcher(NewBindings(3, map[string][]Action{"hotkey": {NoOp{}}}))
	defer d.Close()
	if err := d.DispatchSync(context.Background(), click.Click{Button: "hotkey", Count: 1}); err != nil {
		t.Fatalf("noop: %v", err)
	}
}
