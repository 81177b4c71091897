package encoder

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	BitsPerSample = 16
	BlockSize     = 4096
)

// Format is the container a recording is persisted in.
type Format string

const (
	WAV  Format = "wav"
	FLAC Format = "flac"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", WAV:
		return WAV, nil
	case FLAC:
		return FLAC, nil
	}
	return "", fmt.Errorf("unknown audio format %q (want wav or flac)", s)
}

func (f Format) Ext() string { return "." + string(f) }

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// Samples converts little-endian 16-bit PCM bytes to samples. A trailing odd
// byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// WriteFile persists interleaved 16-bit PCM to path in the given format.
func WriteFile(path string, format Format, pcm []byte, rate, channels int) error {
	switch format {
	case FLAC:
		return writeFlac(path, pcm, rate, channels)
	case WAV, "":
		return writeWav(path, pcm, rate, channels)
	}
	return fmt.Errorf("unsupported format %q", format)
}

func writeWav(path string, pcm []byte, rate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples := Samples(pcm)
	enc := wav.NewEncoder(f, rate, BitsPerSample, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  rate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: BitsPerSample,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("writing wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

func writeFlac(path string, pcm []byte, rate, channels int) error {
	enc, err := NewFlac(rate, channels)
	if err != nil {
		return err
	}
	samples := Samples(pcm)
	step := BlockSize * channels
	for i := 0; i < len(samples); i += step {
		end := min(i+step, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing flac: %w", err)
	}
	return os.WriteFile(path, enc.Bytes(), 0o644)
}

// Clip is decoded PCM with its format.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// ReadWAV decodes a 16-bit PCM WAV file.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	if dec.BitDepth != BitsPerSample {
		return nil, fmt.Errorf("%s: %d-bit wav not supported", path, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return &Clip{
		PCM:        pcm,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}
