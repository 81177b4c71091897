//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package terminal

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestCbreak(t *testing.T) {
	var tio unix.Termios
	tio.Lflag = unix.ICANON | unix.ECHO | unix.ISIG | unix.IEXTEN
	tio.Iflag = unix.IXON | unix.ICRNL
	tio.Cc[unix.VINTR] = CtrlC
	tio.Cc[unix.VMIN] = 0

	cbreak(&tio)

	if tio.Lflag&(unix.ICANON|unix.ECHO) != 0 {
		t.Error("canonical mode or echo still on")
	}
	if tio.Lflag&unix.ISIG == 0 {
		t.Error("ISIG cleared; Ctrl+C would no longer interrupt")
	}
	if tio.Iflag&unix.IXON != 0 {
		t.Error("IXON still on; Ctrl+S would pause output")
	}
	if tio.Iflag&unix.ICRNL == 0 {
		t.Error("unrelated input flag cleared")
	}
	if tio.Cc[unix.VMIN] != 1 || tio.Cc[unix.VTIME] != 0 {
		t.Errorf("VMIN=%d VTIME=%d", tio.Cc[unix.VMIN], tio.Cc[unix.VTIME])
	}
	if tio.Cc[unix.VINTR] != CtrlC {
		t.Error("interrupt character changed")
	}
}
