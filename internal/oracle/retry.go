package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

// RetryConfig bounds calls to a backend.
type RetryConfig struct {
	MaxAttempts int
	// BaseDelay doubles after each failed attempt.
	BaseDelay time.Duration
	// Timeout applies to each attempt. Zero disables it.
	Timeout time.Duration

	// RequestsPerSecond of zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int
}

// Retrying wraps a Completer with a shared rate limit and bounded retries.
type Retrying struct {
	next    Completer
	cfg     RetryConfig
	limiter *rate.Limiter
	log     *logging.Logger
}

// NewRetrying wraps next.
func NewRetrying(next Completer, cfg RetryConfig, logger *logging.Logger) *Retrying {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Retrying{next: next, cfg: cfg, limiter: limiter, log: logger.Named("oracle")}
}

// Complete implements Completer.
func (r *Retrying) Complete(ctx context.Context, p Prompt) (string, error) {
	var lastErr error
	delay := r.cfg.BaseDelay

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		text, err := r.attempt(ctx, p)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		r.log.Warn(ctx, "completion attempt failed; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	r.log.Error(ctx, "completion failed", zap.Int("attempts", r.cfg.MaxAttempts), zap.Error(lastErr))
	return "", fmt.Errorf("after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}

func (r *Retrying) attempt(ctx context.Context, p Prompt) (string, error) {
	if r.cfg.Timeout <= 0 {
		return r.next.Complete(ctx, p)
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	text, err := r.next.Complete(ctx, p)
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("attempt timed out after %s: %w", r.cfg.Timeout, err)
	}
	return text, err
}
