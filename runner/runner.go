package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrTimeout is returned when a process does not finish within Cmd.Timeout.
var ErrTimeout = errors.New("timed out")

// Cmd describes one synchronous invocation of an external binary.
type Cmd struct {
	Engine  string // label used in errors; defaults to the binary's base name
	Name    string
	Args    []string
	Stdin   []byte
	Timeout time.Duration // 0 = no limit
}

type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// Func adapts a plain function to the Runner interface.
type Func func(ctx context.Context, cmd Cmd) (Result, error)

func (f Func) Run(ctx context.Context, cmd Cmd) (Result, error) { return f(ctx, cmd) }

// EngineError reports a non-zero exit from an external engine.
type EngineError struct {
	Engine   string
	ExitCode int
	Stderr   string
	Stdout   string
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s failed (%d)", e.Engine, e.ExitCode)
	if e.Stderr != "" {
		msg += "\nSTDERR: " + e.Stderr
	}
	if e.Stdout != "" {
		msg += "\nSTDOUT: " + e.Stdout
	}
	return msg
}

// killGrace bounds how long Run waits for pipes to drain after the
// process is killed on timeout or cancellation.
const killGrace = 2 * time.Second

// Exec runs commands with os/exec. Cancelling ctx kills the child.
type Exec struct{}

func (Exec) Run(ctx context.Context, cmd Cmd) (Result, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.WaitDelay = killGrace
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	engine := cmd.Engine
	if engine == "" {
		engine = filepath.Base(cmd.Name)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", engine, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%s %w after %s", engine, ErrTimeout, cmd.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &EngineError{
			Engine:   engine,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
			Stdout:   strings.TrimSpace(stdout.String()),
		}
	}
	return res, fmt.Errorf("running %s: %w", engine, err)
}
