// Package clipboard delivers text into the focused application by way of
// the system clipboard and a synthetic paste keystroke.
package clipboard

import (
	"runtime"
	"sync"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

func Read() (string, error) { return cb.ReadAll() }

func Copy(text string) error { return cb.WriteAll(text) }

// pasteKeys holds the one virtual keyboard shared by every paste. On linux
// the uinput device needs a moment after creation before the compositor
// sees its keystrokes, so it is made once and kept.
var pasteKeys struct {
	once sync.Once
	mu   sync.Mutex
	kb   keybd_event.KeyBonding
	err  error
}

// Init creates the virtual keyboard. Paste calls it on demand; callers that
// want the delay paid up front call it at startup.
func Init() error {
	pasteKeys.once.Do(func() {
		pasteKeys.kb, pasteKeys.err = keybd_event.NewKeyBonding()
	})
	return pasteKeys.err
}

// Paste sends Cmd+V on macOS and Ctrl+V elsewhere.
func Paste() error {
	if err := Init(); err != nil {
		return err
	}
	pasteKeys.mu.Lock()
	defer pasteKeys.mu.Unlock()
	kb := &pasteKeys.kb
	kb.Clear()
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}
