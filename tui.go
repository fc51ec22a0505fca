package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hark/dictation"
)

// tuiControl is what the terminal UI may drive.
type tuiControl interface {
	Status() dictation.Status
	Toggle(trigger string) bool
	Cancel(trigger string) bool
	ToggleMute() bool
	CopyLast() error
}

type eventMsg dictation.Event
type statusMsg dictation.Status
type busClosedMsg struct{}

const maxHistory = 5

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231"))
	recStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	idleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("93"))
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type tuiModel struct {
	ctl     tuiControl
	events  <-chan dictation.Event
	header  string
	status  dictation.Status
	history []string
	notice  string
	isErr   bool
	width   int
}

func newTUIModel(ctl tuiControl, events <-chan dictation.Event, header string) tuiModel {
	return tuiModel{ctl: ctl, events: events, header: header, status: ctl.Status()}
}

func waitEvent(events <-chan dictation.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return busClosedMsg{}
		}
		return eventMsg(e)
	}
}

func pollStatus(ctl tuiControl) tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return statusMsg(ctl.Status())
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(waitEvent(m.events), pollStatus(m.ctl))
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			m.ctl.Toggle("tui")
		case "esc":
			m.ctl.Cancel("tui")
		case "m":
			m.ctl.ToggleMute()
		case "c":
			if err := m.ctl.CopyLast(); err != nil {
				m.notice, m.isErr = err.Error(), true
			} else {
				m.notice, m.isErr = "copied last transcription", false
			}
		}
		m.status = m.ctl.Status()

	case statusMsg:
		m.status = dictation.Status(msg)
		return m, pollStatus(m.ctl)

	case eventMsg:
		m.apply(dictation.Event(msg))
		return m, waitEvent(m.events)

	case busClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *tuiModel) apply(e dictation.Event) {
	switch e.Kind {
	case dictation.TranscriptionCompleted:
		line := e.Text
		if e.Confidence != nil {
			line += fmt.Sprintf("  (%.0f%%)", *e.Confidence*100)
		}
		m.history = append(m.history, line)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		m.notice = ""
	case dictation.TranscriptionFailed, dictation.TypingFailed:
		m.notice, m.isErr = firstNonEmpty(e.Error, e.Reason), true
	case dictation.RecordingBlocked:
		m.notice, m.isErr = "recording blocked: "+e.Reason, true
	case dictation.RecordingCancelled:
		m.notice, m.isErr = "recording discarded ("+e.Reason+")", false
	case dictation.ManualMuteOn, dictation.ManualMuteOff, dictation.RecordingStarted:
		m.notice = ""
	}
	m.status = m.ctl.Status()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (m tuiModel) stateLine() string {
	st := m.status
	var s string
	switch st.State {
	case dictation.Recording:
		d := 0.0
		if st.RecordingDuration != nil {
			d = *st.RecordingDuration
		}
		s = recStyle.Render(fmt.Sprintf("● REC %.1fs", d))
	case dictation.Transcribing:
		s = busyStyle.Render("transcribing...")
	case dictation.Typing:
		s = busyStyle.Render("typing...")
	default:
		s = idleStyle.Render("idle")
	}
	if st.Muted {
		s += "  " + mutedStyle.Render("[muted]")
	}
	return s
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("hark") + "  " + idleStyle.Render(m.header) + "\n\n")
	b.WriteString(m.stateLine() + "\n\n")
	for _, h := range m.history {
		b.WriteString(textStyle.Render("› "+h) + "\n")
	}
	if m.notice != "" {
		style := idleStyle
		if m.isErr {
			style = errStyle
		}
		b.WriteString("\n" + style.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("space toggle · esc cancel · m mute · c copy last · q quit"))
	return b.String()
}
