// Package doctor runs interactive checks of the pieces hark needs at
// runtime: API keys, the global hotkey, the microphone with a real
// transcription, and the clipboard.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"hark/audio"
	"hark/clipboard"
	"hark/config"
	"hark/hotkey"
	"hark/transcriber"
)

type Check struct {
	Name string
	Run  func(w io.Writer) error
}

// Run executes checks in order, stopping at the first failure, and returns
// the process exit code.
func Run(w io.Writer, checks []Check) int {
	fmt.Fprintln(w, "hark doctor - system diagnostics")
	fmt.Fprintln(w, "================================")

	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		if err := c.Run(w); err != nil {
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			fmt.Fprintln(w, "\nSome checks failed. See details above.")
			return 1
		}
		fmt.Fprintln(w, "  PASS")
	}
	fmt.Fprintln(w, "\nAll checks passed!")
	return 0
}

// Default returns the standard checks for cfg.
func Default(cfg config.Config, providers []transcriber.Provider) []Check {
	return []Check{
		{Name: "Provider keys", Run: func(w io.Writer) error { return checkProviders(w, providers) }},
		{Name: "Hotkey detection", Run: func(w io.Writer) error { return checkHotkey(w, cfg.Hotkey.Toggle) }},
		{Name: "Microphone and transcription", Run: func(w io.Writer) error {
			return checkMic(w, cfg, providers)
		}},
		{Name: "Clipboard", Run: checkClipboard},
	}
}

func checkProviders(w io.Writer, providers []transcriber.Provider) error {
	n := 0
	for _, p := range providers {
		state := "no key"
		if p.Available() {
			state = "ok"
			n++
		}
		fmt.Fprintf(w, "  %-9s %s\n", p.Name(), state)
	}
	if n == 0 {
		return errors.New("no provider has an API key (set GROQ_API_KEY, OPENAI_API_KEY or DEEPGRAM_API_KEY, or run: hark -login <provider>)")
	}
	return nil
}

func checkHotkey(w io.Writer, combo string) error {
	msg, err := hotkey.Diagnose()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s\n", msg)
	c, err := hotkey.ParseCombo(combo)
	if err != nil {
		return err
	}
	hk, err := hotkey.New(c)
	if err != nil {
		return err
	}
	if err := hk.Register(); err != nil {
		return fmt.Errorf("could not register hotkey: %w", err)
	}
	defer hk.Unregister()

	restore := saveTerminal()
	defer restore()

	fmt.Fprintf(w, "  Press %s...\n", c)
	select {
	case <-hk.Keydown():
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("timeout waiting for hotkey")
	}
}

const sampleSeconds = 3

func checkMic(w io.Writer, cfg config.Config, providers []transcriber.Provider) error {
	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("cannot connect to audio: %w", err)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if cfg.Device != "" {
		if device, err = audio.FindDevice(actx, cfg.Device); err != nil {
			return err
		}
	}
	rec := audio.NewRecorder(actx, device)
	defer rec.Close()

	fmt.Fprintf(w, "  Using %s. Speak for %d seconds", rec.DeviceName(), sampleSeconds)
	if err := rec.StartCapture(); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	for range sampleSeconds * 2 {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, ".")
	}
	pcm, err := rec.StopCapture()
	fmt.Fprintln(w)
	if err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	if len(pcm) == 0 {
		return errors.New("no audio captured")
	}
	fmt.Fprintf(w, "  Recorded %.1f KB, transcribing...\n", float64(len(pcm))/1024)

	stt := transcriber.NewOrchestrator(providers, transcriber.Options{MaxAudioBytes: cfg.MaxAudioBytes})
	res := stt.Transcribe(context.Background(), transcriber.Request{
		Audio:             pcm,
		Language:          cfg.Language,
		PreferredProvider: cfg.PreferredProvider,
		Model:             cfg.Model,
		Models:            cfg.Models,
	})
	if !res.OK {
		return fmt.Errorf("transcription: %s", res.ErrorMessage())
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Fprintf(w, "  %s (%s): %s\n", res.Provider, res.Elapsed.Round(time.Millisecond), text)
	return nil
}

func checkClipboard(w io.Writer) error {
	prev, _ := clipboard.Read()
	defer clipboard.Copy(prev)

	const probe = "hark-doctor-test"
	if err := clipboard.Copy(probe); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if got != probe {
		return fmt.Errorf("clipboard round trip returned %q", got)
	}
	if err := clipboard.Init(); err != nil {
		fmt.Fprintf(w, "  Warning: paste keystrokes unavailable: %v\n", err)
	}
	return nil
}

// saveTerminal snapshots the terminal mode; global key grabs can leave it in
// raw mode.
func saveTerminal() func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	st, err := term.GetState(fd)
	if err != nil {
		return func() {}
	}
	return func() { term.Restore(fd, st) }
}
