package transcriber

import (
	"context"
	"fmt"
	"sync"
)

type FakeTranscriber struct {
	text string
	err  error
	lang string

	mu    sync.Mutex
	calls []string
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string            { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

func (f *FakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audioPath)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", fmt.Errorf("fake transcriber error: %w", f.err)
	}
	return f.text, nil
}

// Calls returns the audio paths passed to Transcribe, in order.
func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
