//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package terminal

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestCbreakFreesCopyAndToggleKeys(t *testing.T) {
	var tio unix.Termios
	tio.Lflag = unix.ICANON | unix.ECHO | unix.ISIG | unix.IEXTEN
	tio.Cc[unix.VDSUSP] = CtrlY
	tio.Cc[unix.VSTATUS] = CtrlT
	tio.Cc[unix.VSUSP] = 0x1a

	cbreak(&tio)

	if tio.Cc[unix.VDSUSP] != posixVDisable {
		t.Errorf("VDSUSP = %#x, Ctrl+Y would suspend", tio.Cc[unix.VDSUSP])
	}
	if tio.Cc[unix.VSTATUS] != posixVDisable {
		t.Errorf("VSTATUS = %#x, Ctrl+T would raise SIGINFO", tio.Cc[unix.VSTATUS])
	}
	if tio.Cc[unix.VSUSP] != 0x1a {
		t.Error("Ctrl+Z suspend should be left alone")
	}
}
