package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotTerminal means stdin is not an interactive terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

type Mode int

const (
	// Cooperative is the line-buffered, echoing mode the shell left us in.
	Cooperative Mode = iota
	// Raw delivers single keystrokes without echo. Signals stay enabled.
	Raw
)

func (m Mode) String() string {
	if m == Raw {
		return "raw"
	}
	return "cooperative"
}

type Terminal interface {
	EnterRaw() error
	Restore() error
	Mode() Mode
	// ReadKey waits up to timeout for one byte. ok is false on timeout.
	ReadKey(timeout time.Duration) (key byte, ok bool, err error)
	// ReadLine reads one line in cooperative mode, without the line ending.
	ReadLine(ctx context.Context) (string, error)
}

// Control keys as delivered in raw mode.
const (
	CtrlC byte = 0x03
	CtrlN byte = 0x0e
	CtrlR byte = 0x12
	CtrlS byte = 0x13
	CtrlT byte = 0x14
	CtrlY byte = 0x19
)

// KeyName renders a key the way ParseKey accepts it.
func KeyName(b byte) string {
	switch {
	case b >= 1 && b <= 26:
		return "ctrl+" + string(rune('a'+b-1))
	case b == ' ':
		return "space"
	case b > ' ' && b < 0x7f:
		return string(rune(b))
	}
	return fmt.Sprintf("0x%02x", b)
}

// ParseKey accepts "ctrl+t", "space" or a single printable character.
func ParseKey(s string) (byte, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if c, ok := strings.CutPrefix(lower, "ctrl+"); ok && len(c) == 1 && c[0] >= 'a' && c[0] <= 'z' {
		return c[0] - 'a' + 1, nil
	}
	if lower == "space" {
		return ' ', nil
	}
	if len(s) == 1 && s[0] > ' ' && s[0] < 0x7f {
		return s[0], nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}
