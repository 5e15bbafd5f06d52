package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultOllamaModel is used when no local model is configured
	DefaultOllamaModel = "llama3.1"
	// DefaultOllamaURL is the default Ollama API endpoint
	DefaultOllamaURL = "http://localhost:11434"
)

// Ollama completes prompts against a local Ollama server.
type Ollama struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// NewOllama creates a new Ollama completer
func NewOllama(rawURL, model string, logger *slog.Logger) (*Ollama, error) {
	if rawURL == "" {
		rawURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
	}

	return &Ollama{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
		logger: logger,
	}, nil
}

func (o *Ollama) Name() string { return "ollama/" + o.model }

// Complete runs a non-streaming chat request.
func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	var messages []api.Message
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	chat := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
	}
	if req.JSON {
		chat.Format = json.RawMessage(`"json"`)
	}

	o.logger.Debug("Requesting completion", "model", o.model, "prompt_chars", len(req.Prompt))
	var out strings.Builder
	err := o.client.Chat(ctx, chat, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	if strings.TrimSpace(out.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return out.String(), nil
}
