package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"murmur/history"
	"murmur/log"
	"murmur/runner"
)

// OllamaHTTP talks to a running Ollama server instead of spawning the CLI.
type OllamaHTTP struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	client  *TracedClient
}

// NewOllamaHTTP accepts the same host forms as OLLAMA_HOST, with or without
// a scheme.
func NewOllamaHTTP(host, model string, timeout time.Duration) *OllamaHTTP {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return &OllamaHTTP{BaseURL: host, Model: model, Timeout: timeout, client: NewTracedClient()}
}

func (o *OllamaHTTP) Name() string { return "ollama-http" }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *OllamaHTTP) Generate(ctx context.Context, system string, turns []history.Turn, user string) (string, error) {
	prompt := BuildPrompt(system, turns, user)
	body, err := json.Marshal(generateRequest{Model: o.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	reqCtx := ctx
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", o.requestError(ctx, reqCtx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &runner.EngineError{
			Engine:   o.Name(),
			ExitCode: resp.StatusCode,
			Stderr:   errorBody(resp.Body),
		}
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if out.Error != "" {
		return "", &runner.EngineError{Engine: o.Name(), ExitCode: resp.StatusCode, Stderr: out.Error}
	}

	reply := strings.TrimSpace(out.Response)
	m := resp.Metrics
	log.GenerationMetrics(o.Name(), o.Model, log.GenerationStats{
		PromptChars:   len(prompt),
		ReplyChars:    len(reply),
		HistoryTurns:  len(turns),
		TotalTimeMs:   float64(m.Total.Microseconds()) / 1000,
		DNSTimeMs:     float64(m.DNS.Microseconds()) / 1000,
		ConnectTimeMs: float64(m.TCP.Microseconds()) / 1000,
		TTFBMs:        float64(m.TTFB.Microseconds()) / 1000,
		NetworkTimeMs: float64(m.Sum().Microseconds()) / 1000,
		ConnReused:    m.ConnReused,
	})
	return reply, nil
}

func (o *OllamaHTTP) requestError(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", o.Name(), parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s %w after %s", o.Name(), runner.ErrTimeout, o.Timeout)
	}
	return fmt.Errorf("%s request: %w", o.Name(), err)
}

// errorBody prefers Ollama's {"error": "..."} message over the raw body.
func errorBody(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Ping checks that the server answers and has the configured model pulled.
func (o *OllamaHTTP) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama server at %s: %w", o.BaseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama server at %s: HTTP %d", o.BaseURL, resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body, &tags); err != nil {
		return fmt.Errorf("decoding model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == o.Model || strings.TrimSuffix(m.Name, ":latest") == o.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q not pulled on %s", o.Model, o.BaseURL)
}
