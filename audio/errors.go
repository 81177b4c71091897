package audio

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrNoAudioCaptured  = errors.New("no audio captured")
)

// DeviceError means the input device could not be found or opened.
type DeviceError struct {
	Device string // selector as given; empty for the system default
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("default input device: %v", e.Err)
	}
	return fmt.Sprintf("input device %q: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
