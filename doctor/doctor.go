package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/generator"
	"murmur/transcriber"
)

type Config struct {
	Out io.Writer

	Whisper      *transcriber.WhisperCpp
	OllamaBinary string
	OllamaHTTP   *generator.OllamaHTTP // nil when the CLI is used

	NewAudio func() (audio.Context, error)
	Device   string

	RecordDir  string
	IsTerminal func() bool
}

type check struct {
	title string
	run   func(cfg Config) (msg string, ok bool)
	// advisory checks print WARN instead of failing the run
	advisory bool
}

var checks = []check{
	{title: "Interactive terminal", run: checkTerminal},
	{title: "whisper.cpp", run: checkWhisper},
	{title: "Ollama", run: checkOllama},
	{title: "Input device", run: checkAudio},
	{title: "Recording directory", run: checkRecordDir},
	{title: "Clipboard", run: checkClipboard, advisory: true},
}

// Run executes the diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg Config) int {
	out := cfg.Out
	fmt.Fprintln(out, "murmur doctor - system diagnostics")
	fmt.Fprintln(out, "==================================")

	allPass := true
	for i, c := range checks {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(checks), c.title)
		msg, ok := c.run(cfg)
		switch {
		case ok:
			fmt.Fprintf(out, "  PASS: %s\n", msg)
		case c.advisory:
			fmt.Fprintf(out, "  WARN: %s\n", msg)
		default:
			fmt.Fprintf(out, "  FAIL: %s\n", msg)
			allPass = false
		}
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkTerminal(cfg Config) (string, bool) {
	if cfg.IsTerminal == nil || !cfg.IsTerminal() {
		return "stdin is not a terminal; run murmur from an interactive shell", false
	}
	return "stdin is a terminal", true
}

func checkWhisper(cfg Config) (string, bool) {
	if err := cfg.Whisper.Check(); err != nil {
		return err.Error() + " (see -whisper-binary and -whisper-model)", false
	}
	return fmt.Sprintf("%s with model %s", cfg.Whisper.Binary, cfg.Whisper.Model), true
}

func checkOllama(cfg Config) (string, bool) {
	if cfg.OllamaHTTP != nil {
		if err := cfg.OllamaHTTP.Ping(context.Background()); err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("server at %s has model %s", cfg.OllamaHTTP.BaseURL, cfg.OllamaHTTP.Model), true
	}
	path, err := exec.LookPath(cfg.OllamaBinary)
	if err != nil {
		return fmt.Sprintf("%s not found on PATH; install from https://ollama.com", cfg.OllamaBinary), false
	}
	return "found " + path, true
}

func checkAudio(cfg Config) (string, bool) {
	ctx, err := cfg.NewAudio()
	if err != nil {
		return fmt.Sprintf("cannot connect to audio: %v", err), false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		return fmt.Sprintf("cannot list devices: %v", err), false
	}
	if len(devices) == 0 {
		return "no capture devices found", false
	}
	for i, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = " [bluetooth: lower audio quality]"
		}
		fmt.Fprintf(cfg.Out, "    %d. %s%s\n", i, d.Name, tag)
	}

	dev, err := audio.ResolveDevice(ctx, cfg.Device)
	if err != nil {
		return err.Error(), false
	}
	if dev == nil {
		return fmt.Sprintf("%d devices, using system default", len(devices)), true
	}
	return "using " + dev.Name, true
}

func checkRecordDir(cfg Config) (string, bool) {
	if err := os.MkdirAll(cfg.RecordDir, 0o755); err != nil {
		return err.Error(), false
	}
	f, err := os.CreateTemp(cfg.RecordDir, ".doctor-*")
	if err != nil {
		return fmt.Sprintf("%s is not writable: %v", cfg.RecordDir, err), false
	}
	f.Close()
	os.Remove(f.Name())
	return cfg.RecordDir + " is writable", true
}

func checkClipboard(Config) (string, bool) {
	if !clipboard.Available() {
		return "no clipboard tool found (install xclip, xsel or wl-clipboard); copying replies is disabled", false
	}
	return "available", true
}
