//go:build windows

package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

const linePoll = 100 * time.Millisecond

// TTY is the console attached to stdin. Raw mode disables processed input,
// so Ctrl+C arrives as the CtrlC byte rather than as a signal.
type TTY struct {
	fd   int
	orig *term.State

	mu   sync.Mutex
	mode Mode
}

func Open() (*TTY, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	st, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("reading console state: %w", err)
	}
	return &TTY{fd: fd, orig: st}, nil
}

func (t *TTY) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *TTY) EnterRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := term.MakeRaw(t.fd); err != nil {
		return fmt.Errorf("console raw mode: %w", err)
	}
	t.mode = Raw
	return nil
}

func (t *TTY) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := term.Restore(t.fd, t.orig); err != nil {
		return fmt.Errorf("restoring console: %w", err)
	}
	t.mode = Cooperative
	return nil
}

func (t *TTY) ReadKey(timeout time.Duration) (byte, bool, error) {
	ev, err := windows.WaitForSingleObject(windows.Handle(t.fd), uint32(timeout.Milliseconds()))
	if err != nil {
		return 0, false, fmt.Errorf("waiting for console input: %w", err)
	}
	if ev != windows.WAIT_OBJECT_0 {
		return 0, false, nil
	}

	var b [1]byte
	n, err := os.Stdin.Read(b[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, io.EOF
	}
	return b[0], true, nil
}

func (t *TTY) ReadLine(ctx context.Context) (string, error) {
	var line []byte
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b, ok, err := t.ReadKey(linePoll)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if b == '\n' {
			return trimLine(line), nil
		}
		line = append(line, b)
	}
}
