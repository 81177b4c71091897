//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("MURMUR_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "MURMUR_TEST_BIN not set; build murmur and point it at the binary")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func generateSilenceWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return os.WriteFile(path, buf, 0644)
}

const whisperStub = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in -of) shift; out="$1";; esac
  shift
done
echo "what is the capital of France" > "$out.txt"
`

const failingWhisperStub = `#!/bin/sh
echo "model load failed" >&2
exit 2
`

const ollamaStub = `#!/bin/sh
cat > /dev/null
echo "Paris, says $2."
`

type env struct {
	dir     string
	wav     string
	logDir  string
	args    []string
	whisper string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub engines are shell scripts")
	}
	dir := t.TempDir()
	e := &env{
		dir:     dir,
		wav:     filepath.Join(dir, "silence.wav"),
		logDir:  filepath.Join(dir, "logs"),
		whisper: filepath.Join(dir, "whisper-cli"),
	}
	if err := generateSilenceWAV(e.wav, 16000, 1.0); err != nil {
		t.Fatal(err)
	}
	writeScript(t, e.whisper, whisperStub)
	writeScript(t, filepath.Join(dir, "ollama"), ollamaStub)
	model := filepath.Join(dir, "ggml-base.en.bin")
	if err := os.WriteFile(model, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	e.args = []string{
		"-logpath", e.logDir,
		"-whisper-binary", e.whisper,
		"-whisper-model", model,
		"-ollama-binary", filepath.Join(dir, "ollama"),
		"-ollama-url", "",
		"-record-dir", filepath.Join(dir, "recs"),
		"-model", "llama3",
	}
	return e
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func (e *env) run(t *testing.T, script string, extra ...string) string {
	t.Helper()
	args := append(append([]string{}, e.args...), extra...)
	args = append(args, "-test", e.wav)
	cmd := exec.Command(testBinary, args...)
	cmd.Stdin = strings.NewReader(script)
	cmd.Env = append(os.Environ(), "MURMUR_MODEL=", "OLLAMA_HOST=")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("murmur exited with error: %v\noutput: %s", err, out)
	}
	return string(out)
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestVoiceTurn(t *testing.T) {
	e := newEnv(t)
	out := e.run(t, cmds("KEY ctrl+t", "KEY ctrl+t", "KEY q"))

	for _, want := range []string{"Recording...", "Saved audio:", "what is the capital of France", "Paris, says llama3."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	conv := readLog(t, e.logDir, "conversation_log.txt")
	if !strings.Contains(conv, "\tuser\twhat is the capital of France") || !strings.Contains(conv, "\tassistant\tParis") {
		t.Errorf("conversation log:\n%s", conv)
	}
	diag := readLog(t, e.logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "transcription", "generation", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
	entries, _ := os.ReadDir(filepath.Join(e.dir, "recs"))
	if len(entries) != 0 {
		t.Errorf("recordings left behind: %v", entries)
	}
}

func TestTextTurn(t *testing.T) {
	e := newEnv(t)
	out := e.run(t, cmds("KEY ctrl+r", "LINE hello there", "KEY q"))
	if !strings.Contains(out, "hello there") || !strings.Contains(out, "Paris, says llama3.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestKeepRecordingsFlac(t *testing.T) {
	e := newEnv(t)
	e.run(t, cmds("KEY ctrl+t", "KEY ctrl+t", "KEY q"), "-keep-recordings", "-format", "flac")

	matches, _ := filepath.Glob(filepath.Join(e.dir, "recs", "rec-*.flac"))
	if len(matches) != 1 {
		t.Fatalf("kept recordings = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "fLaC") {
		t.Error("kept recording is not FLAC")
	}
}

func TestWhisperFailure(t *testing.T) {
	e := newEnv(t)
	writeScript(t, e.whisper, failingWhisperStub)
	out := e.run(t, cmds("KEY ctrl+t", "KEY ctrl+t", "KEY q"))
	if !strings.Contains(out, "Transcription failed") || !strings.Contains(out, "whisper.cpp failed (2)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.TrimSpace(readLog(t, e.logDir, "conversation_log.txt")) != "" {
		t.Error("failed turn reached the conversation log")
	}
}

func TestOllamaHTTP(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"response":"Paris, over HTTP.","done":true}`))
	}))
	defer srv.Close()

	out := e.run(t, cmds("KEY ctrl+r", "LINE capital of France?", "KEY q"), "-ollama-url", srv.URL)
	if !strings.Contains(out, "Paris, over HTTP.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVersionAndBadFlag(t *testing.T) {
	out, err := exec.Command(testBinary, "-version").CombinedOutput()
	if err != nil || !strings.HasPrefix(string(out), "murmur ") {
		t.Errorf("-version: %v %q", err, out)
	}

	err = exec.Command(testBinary, "-channels", "6").Run()
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != 1 {
		t.Errorf("bad flag exit: %v", err)
	}
}
