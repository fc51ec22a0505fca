package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: HARK_LOG_PATH environment variable
	if envPath := os.Getenv("HARK_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return defaultDir()
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "hark"), nil
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "hark", "logs"), nil
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "hark", "logs"), nil
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady = false
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// StateChange records one dictation state transition and what caused it.
func StateChange(from, to, trigger string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Str("trigger", trigger).
		Msg("state")
}

// Click records a classified click and the action it resolved to.
func Click(button string, count int, action string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("button", button).
		Int("count", count).
		Str("action", action).
		Msg("click")
}

// Attempt records a single provider attempt. A nil err means the attempt succeeded.
func Attempt(provider string, elapsed time.Duration, err error) {
	if !ready() {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Str("err", err.Error())
	}
	ev.Str("provider", provider).
		Float64("elapsed_ms", float64(elapsed.Microseconds())/1000).
		Msg("transcribe_attempt")
}

type NetworkTimings struct {
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	ConnReused bool
}

func Network(provider string, t NetworkTimings) {
	if !ready() {
		return
	}
	connStatus := "new"
	if t.ConnReused {
		connStatus = "reused"
	}
	diagLog.Info().
		Str("provider", provider).
		Str("conn", connStatus).
		Float64("dns_ms", t.DNSMs).
		Float64("tls_ms", t.TLSMs).
		Float64("ttfb_ms", t.TTFBMs).
		Float64("total_ms", t.TotalMs).
		Msg("network")
}

func Transcription(provider string, elapsed time.Duration, audioS float64, confidence *float64) {
	if !ready() {
		return
	}
	ev := diagLog.Info().
		Str("provider", provider).
		Float64("audio_s", audioS).
		Float64("total_ms", float64(elapsed.Milliseconds()))
	if confidence != nil {
		ev = ev.Float64("confidence", *confidence)
	}
	ev.Msg("transcription")
}

func TranscriptionText(text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || transcribeFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func SessionStart(version string, providers []string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("version", version).
		Str("providers", strings.Join(providers, ",")).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
