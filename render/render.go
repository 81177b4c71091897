package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const (
	boxWidth = 60

	NoTranscription = "(no transcription captured)"
	NoResponse      = "(no response)"
)

var (
	cyan   = lipgloss.Color("6")
	green  = lipgloss.Color("2")
	red    = lipgloss.Color("1")
	yellow = lipgloss.Color("3")
	gray   = lipgloss.Color("8")
)

// Renderer prints conversation turns and status lines. Color is only
// emitted when w is a terminal that supports it.
type Renderer struct {
	mu sync.Mutex
	w  io.Writer

	label     lipgloss.Style
	box       lipgloss.Style
	errStyle  lipgloss.Style
	infoStyle lipgloss.Style
	warnStyle lipgloss.Style
	dim       lipgloss.Style
}

func New(w io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		w:         w,
		label:     lr.NewStyle().Bold(true),
		box:       lr.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(boxWidth),
		errStyle:  lr.NewStyle().Foreground(red).Bold(true),
		infoStyle: lr.NewStyle().Foreground(yellow),
		warnStyle: lr.NewStyle().Foreground(yellow).Bold(true),
		dim:       lr.NewStyle().Foreground(gray),
	}
}

func (r *Renderer) print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, s)
}

func (r *Renderer) turn(label string, color lipgloss.Color, text, placeholder string) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = placeholder
	}
	r.print(lipgloss.JoinVertical(lipgloss.Left,
		r.label.Foreground(color).Render(label),
		r.box.BorderForeground(color).Render(text),
	))
}

func (r *Renderer) User(text string) {
	r.turn("YOU", cyan, text, NoTranscription)
}

func (r *Renderer) Assistant(text string) {
	r.turn("ASSISTANT", green, text, NoResponse)
}

func (r *Renderer) Error(msg string) {
	r.print(r.errStyle.Render("✗ " + msg))
}

func (r *Renderer) Info(msg string) {
	r.print(r.infoStyle.Render(msg))
}

func (r *Renderer) Warn(msg string) {
	r.print(r.warnStyle.Render("⚠ " + msg))
}

// Prompt prints label without a trailing newline so the typed line follows it.
func (r *Renderer) Prompt(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.w, r.label.Foreground(cyan).Render(label)+" ")
}

// Banner prints the startup summary: a title and one "key  action" row per
// binding.
func (r *Renderer) Banner(title string, rows [][2]string) {
	var b strings.Builder
	b.WriteString(r.label.Render(title))
	for _, row := range rows {
		b.WriteString("\n  " + r.label.Render(fmt.Sprintf("%-8s", row[0])) + r.dim.Render(row[1]))
	}
	r.print(b.String())
}
