package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

var errScriptOrder = errors.New("script step does not match the read")

type stepKind int

const (
	stepKey stepKind = iota
	stepLine
	stepSleep
)

// Step is one scripted input event.
type Step struct {
	kind  stepKind
	key   byte
	line  string
	sleep time.Duration
}

func Key(b byte) Step            { return Step{kind: stepKey, key: b} }
func Line(s string) Step         { return Step{kind: stepLine, line: s} }
func Sleep(d time.Duration) Step { return Step{kind: stepSleep, sleep: d} }

// ParseScript reads one step per line:
//
//	KEY ctrl+t
//	LINE what is the weather
//	SLEEP 250
//
// Blank lines and lines starting with # are skipped.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(raw, " ")
		switch strings.ToUpper(cmd) {
		case "KEY":
			b, err := ParseKey(arg)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			steps = append(steps, Key(b))
		case "LINE":
			steps = append(steps, Line(arg))
		case "SLEEP":
			ms, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad SLEEP: %w", n, err)
			}
			steps = append(steps, Sleep(time.Duration(ms)*time.Millisecond))
		default:
			return nil, fmt.Errorf("line %d: unknown command %q", n, cmd)
		}
	}
	return steps, sc.Err()
}

// Scripted replays steps instead of reading a keyboard and records every
// mode change. Reads past the end of the script return io.EOF.
type Scripted struct {
	RawErr error // returned by EnterRaw when set

	mu          sync.Mutex
	steps       []Step
	mode        Mode
	transitions []Mode
}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

func (s *Scripted) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Scripted) EnterRaw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RawErr != nil {
		return s.RawErr
	}
	s.mode = Raw
	s.transitions = append(s.transitions, Raw)
	return nil
}

func (s *Scripted) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Cooperative
	s.transitions = append(s.transitions, Cooperative)
	return nil
}

// Transitions lists every mode entered, in order.
func (s *Scripted) Transitions() []Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mode(nil), s.transitions...)
}

func (s *Scripted) next() (Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return Step{}, false
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st, true
}

func (s *Scripted) ReadKey(time.Duration) (byte, bool, error) {
	st, ok := s.next()
	if !ok {
		return 0, false, io.EOF
	}
	switch st.kind {
	case stepSleep:
		time.Sleep(st.sleep)
		return 0, false, nil
	case stepKey:
		return st.key, true, nil
	}
	return 0, false, fmt.Errorf("%w: line %q while reading a key", errScriptOrder, st.line)
}

func (s *Scripted) ReadLine(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		st, ok := s.next()
		if !ok {
			return "", io.EOF
		}
		switch st.kind {
		case stepSleep:
			time.Sleep(st.sleep)
		case stepLine:
			return st.line, nil
		default:
			return "", fmt.Errorf("%w: key %s while reading a line", errScriptOrder, KeyName(st.key))
		}
	}
}

func trimLine(b []byte) string {
	return strings.TrimRight(string(b), "\r\n")
}
