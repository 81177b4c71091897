package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"murmur/audio"
	"murmur/encoder"
	"murmur/generator"
	"murmur/log"
	"murmur/render"
	"murmur/runner"
	"murmur/terminal"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(nil, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if o.model != "llama3" || o.system != "You are a concise assistant." {
		t.Errorf("model=%q system=%q", o.model, o.system)
	}
	if o.whisperBinary != "./whisper.cpp/build/bin/whisper-cli" || o.whisperModel != "./whisper.cpp/models/ggml-base.en.bin" {
		t.Errorf("whisper paths = %q %q", o.whisperBinary, o.whisperModel)
	}
	if o.threads != 4 || o.sampleRate != 16000 || o.channels != 1 || o.maxHistory != 10 {
		t.Errorf("numbers = %d %d %d %d", o.threads, o.sampleRate, o.channels, o.maxHistory)
	}
	if o.recordDir != ".voice-recordings" || o.keep || o.inputDevice != "" {
		t.Errorf("recording = %q %v %q", o.recordDir, o.keep, o.inputDevice)
	}
	if o.whisperTimeout != 5*time.Minute || o.ollamaTimeout != 120*time.Second || o.maxRecord != 10*time.Minute {
		t.Errorf("timeouts = %s %s %s", o.whisperTimeout, o.ollamaTimeout, o.maxRecord)
	}
	if o.format != encoder.WAV || !o.beep || o.ollamaURL != "" {
		t.Errorf("format=%q beep=%v url=%q", o.format, o.beep, o.ollamaURL)
	}
}

func TestParseFlagsEnvFallback(t *testing.T) {
	env := envMap(map[string]string{
		"MURMUR_MODEL":          "mistral",
		"MURMUR_SYSTEM":         "Answer in French.",
		"MURMUR_WHISPER_BINARY": "/opt/whisper-cli",
		"MURMUR_WHISPER_MODEL":  "/opt/ggml-small.bin",
		"MURMUR_INPUT_DEVICE":   "2",
		"OLLAMA_HOST":           "127.0.0.1:11434",
	})

	o, err := parseFlags(nil, env)
	if err != nil {
		t.Fatal(err)
	}
	if o.model != "mistral" || o.system != "Answer in French." || o.whisperBinary != "/opt/whisper-cli" ||
		o.whisperModel != "/opt/ggml-small.bin" || o.inputDevice != "2" || o.ollamaURL != "127.0.0.1:11434" {
		t.Errorf("env not applied: %+v", o)
	}

	o, err = parseFlags([]string{"-model", "phi3", "-input-device", "Yeti", "-ollama-url", ""}, env)
	if err != nil {
		t.Fatal(err)
	}
	if o.model != "phi3" || o.inputDevice != "Yeti" || o.ollamaURL != "" {
		t.Errorf("flags should override env: model=%q device=%q url=%q", o.model, o.inputDevice, o.ollamaURL)
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"-format", "mp3"}},
		{"channels", []string{"-channels", "6"}},
		{"threads", []string{"-threads", "0"}},
		{"sample rate", []string{"-sample-rate", "-1"}},
		{"test without wav", []string{"-test"}},
		{"unknown flag", []string{"-autopaste"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(tt.args, envMap(nil)); err == nil {
				t.Errorf("parseFlags(%v): expected error", tt.args)
			}
		})
	}
}

func TestParseFlagsTestMode(t *testing.T) {
	o, err := parseFlags([]string{"-test", "-format", "flac", "clip.wav"}, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !o.test || len(o.args) != 1 || o.args[0] != "clip.wav" || o.format != encoder.FLAC {
		t.Errorf("test=%v args=%v format=%q", o.test, o.args, o.format)
	}
}

func TestNewGenerator(t *testing.T) {
	o, _ := parseFlags([]string{"-model", "phi3"}, envMap(nil))
	if g, ok := newGenerator(o).(*generator.Ollama); !ok || g.Model != "phi3" || g.Binary != "ollama" {
		t.Errorf("CLI generator = %#v", newGenerator(o))
	}

	o, _ = parseFlags([]string{"-ollama-url", "localhost:11434/"}, envMap(nil))
	g, ok := newGenerator(o).(*generator.OllamaHTTP)
	if !ok {
		t.Fatalf("HTTP generator = %#v", newGenerator(o))
	}
	if g.BaseURL != "http://localhost:11434" || g.Timeout != 120*time.Second {
		t.Errorf("base=%q timeout=%s", g.BaseURL, g.Timeout)
	}
}

func TestNewTranscriber(t *testing.T) {
	o, _ := parseFlags([]string{"-language", "de", "-no-gpu", "-threads", "8", "-whisper-timeout", "30s"}, envMap(nil))
	w := newTranscriber(o)
	if w.GetLanguage() != "de" || !w.NoGPU || w.Threads != 8 || w.Timeout != 30*time.Second {
		t.Errorf("transcriber = %+v", w)
	}
}

func TestRepeatedInterruptShutsDownOnce(t *testing.T) {
	dir := t.TempDir()
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	opts, err := parseFlags([]string{"-beep=false", "-record-dir", filepath.Join(dir, "recs")}, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	started := make(chan struct{})
	llm := generator.NewOllama("ollama", "llama3", time.Minute)
	llm.Runner = runner.Func(func(ctx context.Context, _ runner.Cmd) (runner.Result, error) {
		close(started)
		<-ctx.Done()
		return runner.Result{}, ctx.Err()
	})
	tty := terminal.NewScripted(terminal.Key(terminal.CtrlR), terminal.Line("hello"))
	actx := audio.NewFakeContextPCM(nil, 16000, 1)

	sigCh := make(chan os.Signal, 2)
	defer close(sigCh)
	code := make(chan int, 1)
	go func() {
		code <- startSession(opts, tty, actx, newTranscriber(opts), llm, render.New(&bytes.Buffer{}), sigCh)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("generation never started")
	}
	sigCh <- os.Interrupt
	sigCh <- os.Interrupt

	select {
	case c := <-code:
		if c != 0 {
			t.Errorf("exit code = %d, want 0", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not return after interrupts")
	}

	if tty.Mode() != terminal.Cooperative {
		t.Error("terminal left in raw mode")
	}
	diag, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(diag), "session_end"); n != 1 {
		t.Errorf("session_end logged %d times:\n%s", n, diag)
	}
}
