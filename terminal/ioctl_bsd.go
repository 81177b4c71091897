//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package terminal

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

const posixVDisable = 0xff

// disableKeyChars frees Ctrl+Y (delayed suspend) and Ctrl+T (status) so they
// arrive as key bytes instead of raising SIGTSTP or SIGINFO under ISIG.
func disableKeyChars(tio *unix.Termios) {
	tio.Cc[unix.VDSUSP] = posixVDisable
	tio.Cc[unix.VSTATUS] = posixVDisable
}
