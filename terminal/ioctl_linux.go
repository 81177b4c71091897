package terminal

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

// Linux has no delayed-suspend or status character.
func disableKeyChars(*unix.Termios) {}
