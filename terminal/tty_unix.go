//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const linePoll = 100 * time.Millisecond

// TTY is the process's controlling terminal on stdin.
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
		return nil, fmt.Errorf("reading terminal state: %w", err)
	}
	return &TTY{fd: fd, orig: st}, nil
}

func (t *TTY) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// EnterRaw switches to cbreak mode, see cbreak.
func (t *TTY) EnterRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tio, err := unix.IoctlGetTermios(t.fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	cbreak(tio)
	if err := unix.IoctlSetTermios(t.fd, ioctlSetTermios, tio); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	t.mode = Raw
	return nil
}

// cbreak turns off line buffering and echo but keeps ISIG so Ctrl+C still
// raises SIGINT. IXON is cleared so Ctrl+S reaches us instead of pausing
// output, and platform control characters bound to our keys are disabled.
func cbreak(tio *unix.Termios) {
	tio.Lflag &^= unix.ICANON | unix.ECHO
	tio.Iflag &^= unix.IXON
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	disableKeyChars(tio)
}

func (t *TTY) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := term.Restore(t.fd, t.orig); err != nil {
		return fmt.Errorf("restoring terminal: %w", err)
	}
	t.mode = Cooperative
	return nil
}

// ReadKey uses select(2); poll(2) does not work on ttys on macOS.
func (t *TTY) ReadKey(timeout time.Duration) (byte, bool, error) {
	var set unix.FdSet
	set.Zero()
	set.Set(t.fd)
	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	n, err := unix.Select(t.fd+1, &set, nil, nil, &tv)
	if err == unix.EINTR {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}

	var b [1]byte
	n, err = unix.Read(t.fd, b[:])
	if err == unix.EINTR || err == unix.EAGAIN {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read: %w", err)
	}
	if n == 0 {
		return 0, false, io.EOF
	}
	return b[0], true, nil
}

// ReadLine polls so a cancelled ctx is noticed while the user is typing.
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
