package clipboard

import (
	"errors"
	"testing"
)

func TestCopyEmpty(t *testing.T) {
	for _, s := range []string{"", "  \n"} {
		if err := Copy(s); !errors.Is(err, ErrEmpty) {
			t.Errorf("Copy(%q) err = %v, want ErrEmpty", s, err)
		}
	}
}

func TestCopyRoundTrip(t *testing.T) {
	if !Available() {
		t.Skip("no clipboard backend")
	}
	if err := Copy("murmur clipboard test"); err != nil {
		t.Skipf("clipboard not usable here: %v", err)
	}
	got, err := Read()
	if err != nil {
		t.Skipf("clipboard not readable here: %v", err)
	}
	if got != "murmur clipboard test" {
		t.Errorf("Read = %q", got)
	}
}
