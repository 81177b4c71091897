package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	convFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// TranscriptionStats describes one speech-to-text call.
type TranscriptionStats struct {
	FileSizeKB  float64
	TotalTimeMs float64
	Chars       int
	FromStdout  bool
}

// GenerationStats describes one text-generation call.
type GenerationStats struct {
	PromptChars   int
	ReplyChars    int
	HistoryTurns  int
	TotalTimeMs   float64
	DNSTimeMs     float64
	ConnectTimeMs float64
	TTFBMs        float64
	NetworkTimeMs float64 // connection phases plus download
	ConnReused    bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: MURMUR_LOG_PATH environment variable
	if envPath := os.Getenv("MURMUR_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	convFile, err = os.OpenFile(filepath.Join(dir, "conversation_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if convFile != nil {
		convFile.Close()
		convFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func TranscriptionMetrics(engine string, s TranscriptionStats) {
	if !logReady {
		return
	}
	source := "txt"
	if s.FromStdout {
		source = "stdout"
	}
	diagLog.Info().
		Str("engine", engine).
		Str("source", source).
		Float64("file_kb", s.FileSizeKB).
		Float64("total_ms", s.TotalTimeMs).
		Int("chars", s.Chars).
		Msg("transcription")
}

func GenerationMetrics(engine, model string, s GenerationStats) {
	if !logReady {
		return
	}
	ev := diagLog.Info().
		Str("engine", engine).
		Str("model", model).
		Int("prompt_chars", s.PromptChars).
		Int("reply_chars", s.ReplyChars).
		Int("history_turns", s.HistoryTurns).
		Float64("total_ms", s.TotalTimeMs)
	if s.TTFBMs > 0 {
		conn := "new"
		if s.ConnReused {
			conn = "reused"
		}
		ev = ev.Str("conn", conn).
			Float64("dns_ms", s.DNSTimeMs).
			Float64("connect_ms", s.ConnectTimeMs).
			Float64("ttfb_ms", s.TTFBMs).
			Float64("network_ms", s.NetworkTimeMs)
	}
	ev.Msg("generation")
}

// Exchange appends one user/assistant pair to the conversation log.
func Exchange(user, reply string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	now := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(convFile, "%s\t[%d]\tuser\t%s\n", now, pid, oneLine(user))
	fmt.Fprintf(convFile, "%s\t[%d]\tassistant\t%s\n", now, pid, oneLine(reply))
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

func SessionStart(model, engine, format string, maxHistory int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("model", model).
		Str("engine", engine).
		Str("format", format).
		Int("max_history", maxHistory).
		Msg("session_start")
}

func SessionEnd(exchanges int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("exchanges", exchanges).
		Msg("session_end")
}
