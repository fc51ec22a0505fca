package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"hark/action"
	"hark/audio"
	"hark/beep"
	"hark/click"
	"hark/clipboard"
	"hark/config"
	"hark/dictation"
	"hark/doctor"
	"hark/hotkey"
	"hark/log"
	"hark/notify"
	"hark/remote"
	"hark/shutdown"
	"hark/transcriber"
)

var version = "dev"

type flags struct {
	config    *string
	lang      *string
	provider  *string
	remote    *string
	device    *string
	logPath   *string
	autoPaste *bool
	tui       *bool
	setup     *bool
	hybrid    *bool
	longPress *time.Duration
	version   *bool
	doctor    *bool
	login     *string
	wav       *string
}

func parseFlags() flags {
	f := flags{
		config:    flag.String("config", "", "config file (default: $XDG_CONFIG_HOME/hark/config.toml)"),
		lang:      flag.String("lang", "", "Language code for transcription (e.g., en, es, fr). Empty = auto-detect"),
		provider:  flag.String("provider", "", "Preferred transcription provider: groq, openai or deepgram"),
		remote:    flag.String("remote", "", "Remote control listen address (empty string in config disables)"),
		device:    flag.String("device", "", "Use microphone whose name contains this text"),
		logPath:   flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)"),
		autoPaste: flag.Bool("autopaste", true, "Paste into the focused window after transcription"),
		tui:       flag.Bool("tui", true, "Run with terminal UI when attached to a terminal"),
		setup:     flag.Bool("setup", false, "Pick the microphone interactively"),
		hybrid:    flag.Bool("hybrid", false, "Tap the toggle hotkey to toggle, hold it to talk"),
		longPress: flag.Duration("longpress", 0, "Hold threshold for -hybrid (e.g., 400ms)"),
		version:   flag.Bool("version", false, "Print version and exit"),
		doctor:    flag.Bool("doctor", false, "Run system diagnostics and exit"),
		login:     flag.String("login", "", "Store an API key for provider in the OS keyring and exit"),
		wav:       flag.String("wav", "", "Replay this 16 kHz mono WAV file instead of the microphone"),
	}
	flag.Parse()
	return f
}

// apply copies explicitly set flags over the file configuration.
func (f flags) apply(cfg *config.Config) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "lang":
			cfg.Language = *f.lang
		case "provider":
			cfg.PreferredProvider = *f.provider
		case "remote":
			cfg.RemoteAddr = *f.remote
		case "device":
			cfg.Device = *f.device
		case "autopaste":
			cfg.AutoPaste = *f.autoPaste
		case "hybrid":
			cfg.Hotkey.Hybrid = *f.hybrid
		case "longpress":
			cfg.Hotkey.LongPress = *f.longPress
		}
	})
}

func fatal(format string, args ...any) int {
	msg := fmt.Sprintf(format, args...)
	log.Error(msg)
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	return 1
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func buildProviders(cfg config.Config) []transcriber.Provider {
	byName := map[string]func(string) transcriber.Provider{
		"groq":     func(k string) transcriber.Provider { return transcriber.NewGroq(k) },
		"openai":   func(k string) transcriber.Provider { return transcriber.NewOpenAI(k) },
		"deepgram": func(k string) transcriber.Provider { return transcriber.NewDeepgram(k) },
	}
	var out []transcriber.Provider
	for _, name := range cfg.Providers {
		out = append(out, byName[name](config.APIKey(name)))
	}
	return out
}

func login(provider string) int {
	fmt.Printf("%s API key: ", provider)
	var key []byte
	var err error
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		key, err = term.ReadPassword(fd)
		fmt.Println()
	} else {
		var line string
		line, err = bufio.NewReader(os.Stdin).ReadString('\n')
		key = []byte(line)
	}
	if err != nil {
		return fatal("reading key: %v", err)
	}
	if strings.TrimSpace(string(key)) == "" {
		return fatal("an API key is required")
	}
	if err := config.StoreAPIKey(provider, string(key)); err != nil {
		return fatal("storing key: %v", err)
	}
	fmt.Printf("Saved %s key to the system keyring.\n", provider)
	return 0
}

// buildBindings turns configured buttons plus the two hotkeys into dispatcher
// bindings. Hotkeys always report a click count of one.
func buildBindings(cfg config.Config, kb action.Keyboard, controls action.Controls) (*action.Bindings, map[string]string, error) {
	buttons := map[string][]action.Action{
		"hotkey": {controls["dictation:toggle"]},
		"cancel": {controls["dictation:cancel"]},
	}
	codes := map[string]string{}
	for _, b := range cfg.Buttons {
		if _, ok := buttons[b.Name]; ok {
			return nil, nil, fmt.Errorf("button name %q is reserved", b.Name)
		}
		acts := make([]action.Action, len(b.Actions))
		for i, spec := range b.Actions {
			a, err := action.Parse(spec, kb, controls)
			if err != nil {
				return nil, nil, fmt.Errorf("button %s, %d click(s): %w", b.Name, i+1, err)
			}
			acts[i] = a
		}
		buttons[b.Name] = acts
		codes[b.Name] = b.Code
	}
	return action.NewBindings(cfg.MaxClicks, buttons), codes, nil
}

// copyTyper leaves the text on the clipboard without pasting.
type copyTyper struct{}

func (copyTyper) Type(_ context.Context, text string) error { return clipboard.Copy(text) }

func run() int {
	f := parseFlags()

	if *f.version {
		fmt.Printf("hark %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(*f.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *f.login != "" {
		return login(strings.ToLower(*f.login))
	}

	cfg, err := config.Load(*f.config)
	if err != nil {
		return fatal("%v", err)
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fatal("%v", err)
	}

	providers := buildProviders(cfg)
	if *f.doctor {
		return doctor.Run(os.Stdout, doctor.Default(cfg, providers))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	stt := transcriber.NewOrchestrator(providers, transcriber.Options{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxAudioBytes: cfg.MaxAudioBytes,
	})
	var ready []string
	for _, p := range providers {
		if p.Available() {
			ready = append(ready, p.Name())
		}
	}
	if len(ready) == 0 {
		return fatal("no transcription provider has an API key (set GROQ_API_KEY, OPENAI_API_KEY or DEEPGRAM_API_KEY, or run: hark -login groq)")
	}
	log.SessionStart(version, ready)
	go stt.Warm()

	var actx audio.Context
	if *f.wav != "" {
		actx, err = audio.NewFakeContextFromWAV(*f.wav, true)
	} else {
		actx, err = audio.NewContext()
	}
	if err != nil {
		return fatal("initializing audio: %v", err)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	switch {
	case cfg.Device != "":
		if device, err = audio.FindDevice(actx, cfg.Device); err != nil {
			return fatal("%v", err)
		}
	case *f.setup:
		if device, err = audio.SelectDevice(actx); err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Println("Falling back to default device")
		}
	}
	rec := audio.NewRecorder(actx, device)
	defer rec.Close()
	log.Info("recording_device: " + rec.DeviceName())

	var typer dictation.Typer = copyTyper{}
	if cfg.AutoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: paste init failed, text will only be copied: %v\n", err)
		} else {
			typer = clipboard.NewTyper(cfg.RestoreClipboard)
		}
	}

	bus := dictation.NewBus(version)
	orch := dictation.New(dictation.Config{
		Language:          cfg.Language,
		PreferredProvider: cfg.PreferredProvider,
		Model:             cfg.Model,
		Models:            cfg.Models,
		MinRecording:      cfg.MinRecording,
	}, rec, stt, typer, bus)

	bindings, codes, err := buildBindings(cfg, &action.Keybd{}, orch.Controls("button"))
	if err != nil {
		return fatal("%v", err)
	}
	disp := action.NewDispatcher(bindings)
	defer disp.Close()

	classifier := click.NewClassifier(click.Config{Window: cfg.Debounce, MaxCount: cfg.MaxClicks})
	defer classifier.Close()
	go disp.Run(classifier.Clicks())

	buttons, err := hotkey.NewButtons(codes)
	if err != nil {
		return fatal("%v", err)
	}
	if err := buttons.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: mouse buttons disabled: %v\n", err)
		log.Warnf("mouse buttons disabled: %v", err)
	}
	defer buttons.Close()
	go classifier.Feed(buttons.Presses())

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if err := watchHotkeys(ctx, cfg, orch, disp); err != nil {
		return fatal("%v", err)
	}

	if cfg.RemoteAddr != "" {
		srv := remote.New(cfg.RemoteAddr, orch)
		if _, err := srv.Start(); err != nil {
			return fatal("%v", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
	}

	if cfg.Sounds {
		events, _ := bus.Subscribe(16)
		go beep.NewCues().Run(events)
	}
	if cfg.Notifications {
		events, _ := bus.Subscribe(16)
		go notify.New().Run(events)
	}

	if *f.tui && term.IsTerminal(int(os.Stdout.Fd())) {
		events, _ := bus.Subscribe(64)
		header := fmt.Sprintf("[%s | %s]", strings.Join(ready, " > "), firstNonEmpty(cfg.Language, "auto"))
		p := tea.NewProgram(newTUIModel(orch, events, header), tea.WithAltScreen(), tea.WithContext(ctx))
		go func() {
			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				log.Errorf("TUI error: %v", err)
			}
			stop()
		}()
	} else {
		fmt.Printf("hark %s ready. Toggle with %s.\n", version, cfg.Hotkey.Toggle)
	}

	<-ctx.Done()
	log.Info("shutting down")
	orch.Cancel("shutdown")
	orch.Wait()
	bus.Close()
	log.SessionEnd(orch.Count())
	return 0
}

// watchHotkeys registers the toggle and cancel combos and forwards them
// until ctx ends.
func watchHotkeys(ctx context.Context, cfg config.Config, orch *dictation.Orchestrator, disp *action.Dispatcher) error {
	register := func(spec string) (hotkey.Hotkey, error) {
		c, err := hotkey.ParseCombo(spec)
		if err != nil {
			return nil, err
		}
		hk, err := hotkey.New(c)
		if err != nil {
			return nil, err
		}
		if err := hk.Register(); err != nil {
			return nil, fmt.Errorf("registering hotkey %s: %w", c, err)
		}
		go func() {
			<-ctx.Done()
			hk.Unregister()
		}()
		return hk, nil
	}

	toggle, err := register(cfg.Hotkey.Toggle)
	if err != nil {
		return err
	}
	if cfg.Hotkey.Cancel != "" {
		cancel, err := register(cfg.Hotkey.Cancel)
		if err != nil {
			return err
		}
		go forward(ctx, cancel.Keydown(), func() {
			disp.Dispatch(click.Click{Button: "cancel", Count: 1, At: time.Now()})
		})
	}

	if !cfg.Hotkey.Hybrid {
		go forward(ctx, toggle.Keydown(), func() {
			disp.Dispatch(click.Click{Button: "hotkey", Count: 1, At: time.Now()})
		})
		return nil
	}

	hy := hotkey.NewHybrid(toggle, cfg.Hotkey.LongPress)
	go func() {
		<-ctx.Done()
		hy.Close()
	}()
	go forward(ctx, hy.Start(), func() { orch.Start("hotkey") })
	go forward(ctx, hy.Stop(), func() {
		mode := "hold"
		if hy.IsToggle() {
			mode = "tap"
		}
		log.Infof("hybrid stop (%s)", mode)
		orch.Stop("hotkey")
	})
	return nil
}

func forward(ctx context.Context, ch <-chan struct{}, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
