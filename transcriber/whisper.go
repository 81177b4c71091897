package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"murmur/log"
	"murmur/runner"
)

// captionLine matches whisper.cpp's console output:
//
//	[00:00:00.000 --> 00:00:04.000]   Text here
var captionLine = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3} --> \d{2}:\d{2}:\d{2}\.\d{3}\]\s*(.+)`)

// WhisperCpp drives the whisper.cpp command line tool.
type WhisperCpp struct {
	Binary  string
	Model   string
	Threads int
	NoGPU   bool
	Timeout time.Duration // 0 = no limit
	Runner  runner.Runner

	lang string
}

func NewWhisperCpp(binary, model string, threads int) *WhisperCpp {
	return &WhisperCpp{
		Binary:  binary,
		Model:   model,
		Threads: threads,
		Runner:  runner.Exec{},
	}
}

func (w *WhisperCpp) Name() string            { return "whisper.cpp" }
func (w *WhisperCpp) SetLanguage(lang string) { w.lang = lang }
func (w *WhisperCpp) GetLanguage() string     { return w.lang }

// Check reports the first missing dependency of the engine.
func (w *WhisperCpp) Check() error {
	if _, err := w.binaryPath(); err != nil {
		return err
	}
	if _, err := os.Stat(w.Model); err != nil {
		return &ConfigError{What: "whisper.cpp model", Path: w.Model}
	}
	return nil
}

// binaryPath accepts a filesystem path or a bare command on PATH.
func (w *WhisperCpp) binaryPath() (string, error) {
	if _, err := os.Stat(w.Binary); err == nil {
		return w.Binary, nil
	}
	if p, err := exec.LookPath(w.Binary); err == nil {
		return p, nil
	}
	return "", &ConfigError{What: "whisper.cpp binary", Path: w.Binary}
}

func (w *WhisperCpp) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if err := w.Check(); err != nil {
		return "", err
	}
	bin, _ := w.binaryPath()
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", &ConfigError{What: "audio file", Path: audioPath}
	}

	tmp, err := os.CreateTemp("", "murmur-whisper-*")
	if err != nil {
		return "", fmt.Errorf("creating transcript file: %w", err)
	}
	base := tmp.Name()
	tmp.Close()
	defer os.Remove(base)
	defer os.Remove(base + ".txt")

	args := []string{
		"-m", w.Model,
		"-f", audioPath,
		"-otxt",
		"-of", base,
		"--no-prints",
		"--threads", strconv.Itoa(max(w.Threads, 1)),
	}
	if w.lang != "" {
		args = append(args, "-l", w.lang)
	}
	if w.NoGPU {
		args = append(args, "--no-gpu")
	}

	res, err := w.Runner.Run(ctx, runner.Cmd{
		Engine:  w.Name(),
		Name:    bin,
		Args:    args,
		Timeout: w.Timeout,
	})
	if err != nil {
		return "", err
	}

	text, fromStdout := "", false
	if data, err := os.ReadFile(base + ".txt"); err == nil {
		text = strings.TrimSpace(string(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warnf("reading whisper output: %v", err)
	}
	if text == "" {
		text = ParseCaptions(string(res.Stdout))
		fromStdout = true
	}
	if text == "" {
		return "", ErrNoTranscript
	}

	log.TranscriptionMetrics(w.Name(), log.TranscriptionStats{
		FileSizeKB:  float64(info.Size()) / 1024,
		TotalTimeMs: float64(res.Duration.Microseconds()) / 1000,
		Chars:       len(text),
		FromStdout:  fromStdout,
	})
	return text, nil
}

// ParseCaptions extracts the text of timestamped caption lines and joins
// them with single spaces.
func ParseCaptions(stdout string) string {
	var parts []string
	for _, m := range captionLine.FindAllStringSubmatch(stdout, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
