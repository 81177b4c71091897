//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package terminal

import (
	"context"
	"errors"
	"time"
)

var errUnsupported = errors.New("interactive terminal not supported on this platform")

type TTY struct{}

func Open() (*TTY, error) { return nil, errUnsupported }

func (t *TTY) Mode() Mode                                { return Cooperative }
func (t *TTY) EnterRaw() error                           { return errUnsupported }
func (t *TTY) Restore() error                            { return nil }
func (t *TTY) ReadKey(time.Duration) (byte, bool, error) { return 0, false, errUnsupported }
func (t *TTY) ReadLine(context.Context) (string, error)  { return "", errUnsupported }
