package generator

import (
	"context"
	"sync"

	"murmur/history"
)

// FakeCall records one Generate invocation.
type FakeCall struct {
	System string
	Turns  []history.Turn
	User   string
}

type FakeGenerator struct {
	reply string
	err   error

	mu    sync.Mutex
	calls []FakeCall
}

func NewFake(reply string, err error) *FakeGenerator {
	return &FakeGenerator{reply: reply, err: err}
}

func (f *FakeGenerator) Name() string { return "fake" }

func (f *FakeGenerator) Generate(ctx context.Context, system string, turns []history.Turn, user string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{System: system, Turns: turns, User: user})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *FakeGenerator) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
