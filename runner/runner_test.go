package runner

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
}

func TestExecSuccess(t *testing.T) {
	requireShell(t)
	res, err := Exec{}.Run(context.Background(), Cmd{
		Name:  "sh",
		Args:  []string{"-c", "cat"},
		Stdin: []byte("hello"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello")
	}
}

func TestExecNonZeroExit(t *testing.T) {
	requireShell(t)
	_, err := Exec{}.Run(context.Background(), Cmd{
		Engine: "ollama",
		Name:   "sh",
		Args:   []string{"-c", "echo partial; echo 'model not found' >&2; exit 3"},
	})
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("err = %v, want *EngineError", err)
	}
	if engErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", engErr.ExitCode)
	}
	if engErr.Stderr != "model not found" {
		t.Errorf("Stderr = %q", engErr.Stderr)
	}
	if engErr.Stdout != "partial" {
		t.Errorf("Stdout = %q", engErr.Stdout)
	}
	if !strings.HasPrefix(engErr.Error(), "ollama failed (3)") {
		t.Errorf("Error() = %q", engErr.Error())
	}
	if !strings.Contains(engErr.Error(), "STDERR: model not found") {
		t.Errorf("Error() = %q", engErr.Error())
	}
}

func TestExecTimeout(t *testing.T) {
	requireShell(t)
	start := time.Now()
	_, err := Exec{}.Run(context.Background(), Cmd{
		Name:    "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("process was not killed on timeout")
	}
}

func TestExecCancelled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := Exec{}.Run(ctx, Cmd{Name: "sh", Args: []string{"-c", "sleep 5"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("cancellation must not be reported as timeout")
	}
}

func TestExecMissingBinary(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), Cmd{Name: "/nonexistent/murmur-engine"})
	if err == nil {
		t.Fatal("expected error")
	}
	var engErr *EngineError
	if errors.As(err, &engErr) {
		t.Error("missing binary should not be an EngineError")
	}
}
