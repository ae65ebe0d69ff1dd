// Package oracle implements the interview oracles on top of a chat
// completion backend.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/interviewd/internal/config"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

// ErrEmptyCompletion indicates the backend returned no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Prompt is a single-turn chat request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int

	// JSON asks the backend to constrain output to a JSON object.
	JSON bool
}

// Completer returns the model's reply to a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// NewCompleter builds the configured backend wrapped in rate limiting and retries.
func NewCompleter(cfg config.LLMConfig, logger *logging.Logger) (Completer, error) {
	var (
		backend Completer
		err     error
	)
	switch cfg.Provider {
	case "openai":
		backend, err = NewOpenAI(OpenAIConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey.Value(),
		})
	case "anthropic":
		backend, err = NewAnthropic(AnthropicConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey.Value(),
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewRetrying(backend, RetryConfig{
		MaxAttempts:       cfg.MaxRetries,
		BaseDelay:         time.Second,
		Timeout:           cfg.Timeout.Duration(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger), nil
}
