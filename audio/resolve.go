package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNoSuchDevice = errors.New("no matching capture device")

// ResolveDevice maps a user selector to a device. An empty selector means the
// system default and yields nil. All-digit selectors index into the device
// list; anything else matches by exact name, then by case-insensitive
// substring.
func ResolveDevice(ctx Context, selector string) (*DeviceInfo, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, nil
	}

	devices, err := ctx.Devices()
	if err != nil {
		return nil, &DeviceError{Device: selector, Err: err}
	}

	if idx, err := strconv.Atoi(selector); err == nil && isDigits(selector) {
		if idx < 0 || idx >= len(devices) {
			return nil, &DeviceError{Device: selector, Err: fmt.Errorf("index out of range (%d devices)", len(devices))}
		}
		return &devices[idx], nil
	}

	for i := range devices {
		if devices[i].Name == selector {
			return &devices[i], nil
		}
	}
	lower := strings.ToLower(selector)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return &devices[i], nil
		}
	}
	return nil, &DeviceError{Device: selector, Err: errNoSuchDevice}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
