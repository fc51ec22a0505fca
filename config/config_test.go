package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	def := Default()
	if cfg.MaxConcurrent != 3 || cfg.Debounce != 300*time.Millisecond || cfg.RemoteAddr != def.RemoteAddr {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Providers) != 3 || cfg.Providers[0] != "groq" {
		t.Fatalf("providers = %v", cfg.Providers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
language = "de"
preferred_provider = "Deepgram"
providers = ["deepgram", "groq"]
max_concurrent = 1
debounce = "250ms"
min_recording = "0s"
remote_addr = ""
sounds = false

[models]
Groq = "distil-whisper-large-v3-en"

[hotkey]
toggle = "f9"
hybrid = true
longpress = "1s"

[[button]]
name = "middle"
actions = ["dictation:toggle", "dictation:cancel", "copy-last"]

[[button]]
name = "thumb"
code = "side"
actions = ["key:f5"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Language != "de" || cfg.PreferredProvider != "deepgram" || cfg.MaxConcurrent != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Debounce != 250*time.Millisecond || cfg.MinRecording != 0 || cfg.RemoteAddr != "" || cfg.Sounds {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Hotkey.Toggle != "f9" || !cfg.Hotkey.Hybrid || cfg.Hotkey.LongPress != time.Second {
		t.Fatalf("unexpected hotkey: %+v", cfg.Hotkey)
	}
	if cfg.Hotkey.Cancel != Default().Hotkey.Cancel {
		t.Fatalf("cancel should keep default, got %q", cfg.Hotkey.Cancel)
	}
	if len(cfg.Buttons) != 2 || cfg.Buttons[0].Code != "middle" || cfg.Buttons[1].Code != "side" {
		t.Fatalf("unexpected buttons: %+v", cfg.Buttons)
	}
	if cfg.Models["groq"] != "distil-whisper-large-v3-en" || len(cfg.Models) != 1 {
		t.Fatalf("models = %v", cfg.Models)
	}
	if len(cfg.Buttons[0].Actions) != 3 {
		t.Fatalf("actions = %v", cfg.Buttons[0].Actions)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := map[string]string{
		"unknown provider": `providers = ["whisperx"]`,
		"unknown key":      `languge = "en"`,
		"zero concurrency": `max_concurrent = 0`,
		"too many actions": "max_clicks = 1\n[[button]]\nname = \"middle\"\nactions = [\"noop\", \"noop\"]",
		"duplicate button": "[[button]]\nname = \"a\"\n[[button]]\nname = \"a\"",
		"bad syntax":       `language = `,
		"provider twice":   `providers = ["groq", "Groq"]`,
		"unknown model":    "[models]\nwhisperx = \"large\"",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	env := "GROQ_API_KEY=from-dotenv\nDEEPGRAM_API_KEY=dg-dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GROQ_API_KEY", "from-env")
	t.Setenv("DEEPGRAM_API_KEY", "")
	os.Unsetenv("DEEPGRAM_API_KEY")

	if _, err := Load(filepath.Join(dir, "missing.toml")); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := APIKey("groq"); got != "from-env" {
		t.Errorf("groq key = %q", got)
	}
	if got := APIKey("deepgram"); got != "dg-dotenv" {
		t.Errorf("deepgram key = %q", got)
	}
}

func TestAPIKeyFallsBackToKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv("OPENAI_API_KEY", "")

	if got := APIKey("openai"); got != "" {
		t.Fatalf("expected no key, got %q", got)
	}
	if err := StoreAPIKey("openai", " sk-test \n"); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if got := APIKey("openai"); got != "sk-test" {
		t.Fatalf("keyring key = %q", got)
	}
	t.Setenv("OPENAI_API_KEY", "sk-env")
	if got := APIKey("openai"); got != "sk-env" {
		t.Fatalf("env should win, got %q", got)
	}
	if err := StoreAPIKey("nope", "x"); err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestDefaultPathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/tmp/xdg", "hark", "config.toml") {
		t.Errorf("path = %q", p)
	}
}
