package encoder

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", WAV, false},
		{"wav", WAV, false},
		{"FLAC", FLAC, false},
		{" flac ", FLAC, false},
		{"mp3", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if FLAC.Ext() != ".flac" {
		t.Errorf("Ext = %q", FLAC.Ext())
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234, -4321, 42}
	path := filepath.Join(t.TempDir(), "clip.wav")

	if err := WriteFile(path, WAV, pcmBytes(samples), 16000, 2); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw[:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header: %q", raw[:12])
	}
	if len(raw) != 44+len(samples)*2 {
		t.Errorf("file size = %d, want %d", len(raw), 44+len(samples)*2)
	}

	clip, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if clip.SampleRate != 16000 || clip.Channels != 2 {
		t.Errorf("format = %d Hz x%d", clip.SampleRate, clip.Channels)
	}
	got := Samples(clip.PCM)
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestWriteFileFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.flac")
	if err := WriteFile(path, FLAC, pcmBytes(sine(5000, 1)), 16000, 1); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw[:4]) != "fLaC" {
		t.Errorf("magic = %q", raw[:4])
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(path, []byte("not a wav file at all"), 0o644)
	if _, err := ReadWAV(path); err == nil {
		t.Error("expected error")
	}
}
