package audio

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var ErrSelectionCancelled = errors.New("device selection cancelled")

var (
	pickerTitle  = lipgloss.NewStyle().Bold(true)
	pickerCursor = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	pickerWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

type pickerModel struct {
	devices   []DeviceInfo
	cursor    int
	chosen    bool
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
		m.chosen = true
		return m, tea.Quit
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.chosen || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(pickerTitle.Render("Select input device (↑/↓, Enter to confirm):"))
	b.WriteString("\n\n")
	for i, d := range m.devices {
		label := fmt.Sprintf("%d. %s", i, d.Name)
		if IsBluetooth(d.Name) {
			label += pickerWarn.Render(" [⚠ Lower audio quality]")
		}
		if i == m.cursor {
			b.WriteString(pickerCursor.Render("▶ "+label) + "\n")
		} else {
			b.WriteString("  " + label + "\n")
		}
	}
	return b.String()
}

// SelectDevice presents an interactive device picker and returns the selected device.
// If only one device is available, it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	final, err := tea.NewProgram(pickerModel{devices: devices}).Run()
	if err != nil {
		return nil, fmt.Errorf("device picker: %w", err)
	}
	m := final.(pickerModel)
	if !m.chosen {
		return nil, ErrSelectionCancelled
	}
	return &devices[m.cursor], nil
}
