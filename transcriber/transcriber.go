package transcriber

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTranscript means the engine ran successfully but produced no text.
var ErrNoTranscript = errors.New("speech engine did not produce a transcript")

// ConfigError reports a missing binary, model or input file.
type ConfigError struct {
	What string
	Path string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not found at %s", e.What, e.Path)
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
