package clipboard

import (
	"errors"
	"strings"

	cb "github.com/atotto/clipboard"
)

// ErrEmpty means there is nothing to copy.
var ErrEmpty = errors.New("nothing to copy")

// Available reports whether a system clipboard backend was found
// (xclip, xsel or wl-copy on linux).
func Available() bool {
	return !cb.Unsupported
}

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	return cb.WriteAll(text)
}
