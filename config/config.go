// Package config loads hark settings from config.toml, .env and the OS
// keyring.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

const keyringService = "hark"

// Button binds a mouse button to one action spec per click count.
// Actions[i] runs for a count of i+1.
type Button struct {
	Name    string   `toml:"name"`
	Code    string   `toml:"code"`
	Actions []string `toml:"actions"`
}

type Hotkeys struct {
	Toggle    string        `toml:"toggle"`
	Cancel    string        `toml:"cancel"`
	Hybrid    bool          `toml:"hybrid"`
	LongPress time.Duration `toml:"longpress"`
}

type Config struct {
	Language          string            `toml:"language"`
	Model             string            `toml:"model"`
	Models            map[string]string `toml:"models"`
	PreferredProvider string            `toml:"preferred_provider"`
	Providers         []string          `toml:"providers"`
	MaxConcurrent     int               `toml:"max_concurrent"`
	MaxAudioBytes     int               `toml:"max_audio_bytes"`
	MinRecording      time.Duration     `toml:"min_recording"`
	Debounce          time.Duration     `toml:"debounce"`
	MaxClicks         int               `toml:"max_clicks"`
	RemoteAddr        string            `toml:"remote_addr"`
	Device            string            `toml:"device"`
	Notifications     bool              `toml:"notifications"`
	Sounds            bool              `toml:"sounds"`
	AutoPaste         bool              `toml:"autopaste"`
	RestoreClipboard  bool              `toml:"restore_clipboard"`
	Hotkey            Hotkeys           `toml:"hotkey"`
	Buttons           []Button          `toml:"button"`
}

var knownProviders = []string{"groq", "openai", "deepgram"}

func Default() Config {
	return Config{
		Providers:        append([]string(nil), knownProviders...),
		MaxConcurrent:    3,
		MaxAudioBytes:    10 << 20,
		MinRecording:     100 * time.Millisecond,
		Debounce:         300 * time.Millisecond,
		MaxClicks:        3,
		RemoteAddr:       "127.0.0.1:7313",
		Sounds:           true,
		AutoPaste:        true,
		RestoreClipboard: true,
		Hotkey: Hotkeys{
			Toggle:    "ctrl+shift+space",
			Cancel:    "ctrl+shift+x",
			LongPress: 400 * time.Millisecond,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/hark/config.toml, or the OS equivalent.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "hark", "config.toml"), nil
}

// Load reads .env from the working directory, then the TOML file at path
// over Default(). A missing file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		err = cfg.Validate()
		return cfg, err
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parsing %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for i, p := range c.Providers {
		c.Providers[i] = strings.ToLower(strings.TrimSpace(p))
		if !known(c.Providers[i]) {
			return fmt.Errorf("unknown provider %q", p)
		}
		if slices.Contains(c.Providers[:i], c.Providers[i]) {
			return fmt.Errorf("provider %q listed twice", c.Providers[i])
		}
	}
	if len(c.Models) > 0 {
		models := make(map[string]string, len(c.Models))
		for p, m := range c.Models {
			name := strings.ToLower(strings.TrimSpace(p))
			if !known(name) {
				return fmt.Errorf("models: unknown provider %q", p)
			}
			models[name] = m
		}
		c.Models = models
	}
	c.PreferredProvider = strings.ToLower(strings.TrimSpace(c.PreferredProvider))
	if c.PreferredProvider != "" && !known(c.PreferredProvider) {
		return fmt.Errorf("unknown preferred_provider %q", c.PreferredProvider)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.MaxAudioBytes < 1 {
		return fmt.Errorf("max_audio_bytes must be positive, got %d", c.MaxAudioBytes)
	}
	if c.MaxClicks < 1 {
		return fmt.Errorf("max_clicks must be at least 1, got %d", c.MaxClicks)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.MinRecording < 0 {
		return fmt.Errorf("min_recording must not be negative, got %s", c.MinRecording)
	}
	seen := map[string]bool{}
	for i, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("button %d: name is required", i+1)
		}
		if seen[b.Name] {
			return fmt.Errorf("button %s: defined twice", b.Name)
		}
		seen[b.Name] = true
		if c.Buttons[i].Code == "" {
			c.Buttons[i].Code = b.Name
		}
		if len(b.Actions) > c.MaxClicks {
			return fmt.Errorf("button %s: %d actions but max_clicks is %d", b.Name, len(b.Actions), c.MaxClicks)
		}
	}
	return nil
}

func known(provider string) bool { return slices.Contains(knownProviders, provider) }

// APIKey returns the key for provider from <PROVIDER>_API_KEY, falling back
// to the OS keyring. Empty means the provider is not configured.
func APIKey(provider string) string {
	if v := strings.TrimSpace(os.Getenv(strings.ToUpper(provider) + "_API_KEY")); v != "" {
		return v
	}
	key, err := keyring.Get(keyringService, provider)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(key)
}

// StoreAPIKey saves key for provider in the OS keyring.
func StoreAPIKey(provider, key string) error {
	if !known(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	return keyring.Set(keyringService, provider, strings.TrimSpace(key))
}
