package generator

import (
	"context"
	"strings"
	"time"

	"murmur/history"
	"murmur/log"
	"murmur/runner"
)

type Generator interface {
	Name() string
	Generate(ctx context.Context, system string, turns []history.Turn, user string) (string, error)
}

// BuildPrompt renders the conversation as the line-oriented transcript the
// model continues from. The result always ends with "Assistant:".
func BuildPrompt(system string, turns []history.Turn, user string) string {
	lines := make([]string, 0, len(turns)+3)
	if system != "" {
		lines = append(lines, "System: "+system)
	}
	for _, t := range turns {
		lines = append(lines, t.Role.Label()+": "+t.Text)
	}
	lines = append(lines, "User: "+user, "Assistant:")
	return strings.Join(lines, "\n")
}

// Ollama runs prompts through the `ollama run` command.
type Ollama struct {
	Binary  string
	Model   string
	Timeout time.Duration
	Runner  runner.Runner
}

func NewOllama(binary, model string, timeout time.Duration) *Ollama {
	if binary == "" {
		binary = "ollama"
	}
	return &Ollama{Binary: binary, Model: model, Timeout: timeout, Runner: runner.Exec{}}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, system string, turns []history.Turn, user string) (string, error) {
	prompt := BuildPrompt(system, turns, user)
	res, err := o.Runner.Run(ctx, runner.Cmd{
		Engine:  o.Name(),
		Name:    o.Binary,
		Args:    []string{"run", o.Model},
		Stdin:   []byte(prompt),
		Timeout: o.Timeout,
	})
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(string(res.Stdout))
	log.GenerationMetrics(o.Name(), o.Model, log.GenerationStats{
		PromptChars:  len(prompt),
		ReplyChars:   len(reply),
		HistoryTurns: len(turns),
		TotalTimeMs:  float64(res.Duration.Microseconds()) / 1000,
	})
	return reply, nil
}
