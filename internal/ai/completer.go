// Package ai holds the text-completion backends used to classify commits and
// merge weekly reports.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"standup-reporter/internal/config"
	custom_errors "standup-reporter/internal/errors"
)

// Request is a single system + user prompt exchange.
type Request struct {
	System string
	Prompt string
	// JSON asks the backend for a JSON-only answer where it supports it.
	JSON bool
	// Timeout bounds the call; zero means no extra bound beyond ctx.
	Timeout time.Duration
}

// Completer turns a prompt into the model's text answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrEmptyCompletion is returned when the backend answers with no content.
var ErrEmptyCompletion = errors.New("completion returned no content")

// New builds the completer selected by cfg.AIProvider.
// For the hosted provider a missing key yields ErrMissingCredential, which
// callers treat as "AI disabled" rather than a fatal error.
func New(cfg *config.Config, logger *slog.Logger) (Completer, error) {
	switch cfg.AIProvider {
	case config.ProviderOllama:
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel, logger)
	default:
		if cfg.OpenAIKey == "" {
			return nil, &custom_errors.ErrMissingCredential{Name: "OPENAI_API_KEY"}
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger), nil
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
