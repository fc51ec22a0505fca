package audio

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitle  = lipgloss.NewStyle().Bold(true)
	pickerCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	pickerWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type pickerModel struct {
	devices   []DeviceInfo
	cursor    int
	chosen    int
	cancelled bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = m.cursor
		return m, tea.Quit
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitle.Render("Select input device (↑/↓, Enter to confirm)"))
	b.WriteString("\n\n")
	for i, d := range m.devices {
		line := d.Name
		if IsBluetooth(d.Name) {
			line += pickerWarn.Render(" [lower audio quality]")
		}
		if i == m.cursor {
			b.WriteString(pickerCursor.Render("▶ ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

// SelectDevice lets the user pick a capture device in the terminal. With a
// single device it returns that device without asking.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	final, err := tea.NewProgram(pickerModel{devices: devices, chosen: -1}).Run()
	if err != nil {
		return nil, fmt.Errorf("device picker: %w", err)
	}
	m := final.(pickerModel)
	if m.cancelled || m.chosen < 0 {
		return nil, errors.New("no device selected")
	}
	return &devices[m.chosen], nil
}
