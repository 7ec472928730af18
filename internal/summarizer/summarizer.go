package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-herald/internal/markup"
	"github.com/lysyi3m/rss-herald/internal/metrics"
)

var (
	ErrEmptyText = errors.New("article text is empty")
	ErrNoSummary = errors.New("no provider produced a summary")
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Summarizer struct {
	primary     Provider
	fallback    Provider
	maxAttempts int
	baseDelay   time.Duration
	language    string
	sleep       Sleeper
}

func New(primary, fallback Provider, maxAttempts int, baseDelay time.Duration, language string) *Summarizer {
	return &Summarizer{
		primary:     primary,
		fallback:    fallback,
		maxAttempts: max(maxAttempts, 1),
		baseDelay:   baseDelay,
		language:    language,
		sleep:       Sleep,
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func (s *Summarizer) WithSleeper(sleep Sleeper) *Summarizer {
	s.sleep = sleep
	return s
}

// Summarize produces a sanitized Markdown post for the article. The primary
// provider gets up to maxAttempts tries with exponential backoff unless it
// reports a quota error; the fallback gets exactly one.
func (s *Summarizer) Summarize(ctx context.Context, title, text, emoji string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	req := Request{
		Instruction: Instruction(emoji, title, s.language),
		Title:       title,
		Text:        text,
	}

	summary, err := s.runPrimary(ctx, req)
	if err != nil {
		return "", err
	}
	if summary != "" {
		return summary, nil
	}

	slog.Info("Switching to fallback provider", "provider", s.fallback.Name(), "title", title)
	result := s.call(ctx, s.fallback, req)
	if result.Outcome != OutcomeSuccess {
		slog.Error("Fallback provider failed", "provider", s.fallback.Name(), "error", result.Err)
		return "", ErrNoSummary
	}

	summary = markup.Sanitize(result.Text)
	if summary == "" {
		return "", ErrNoSummary
	}
	return summary, nil
}

// runPrimary returns the sanitized summary, or "" when the fallback should
// take over. A non-nil error means ctx ended during backoff.
func (s *Summarizer) runPrimary(ctx context.Context, req Request) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		slog.Debug("Requesting summary", "provider", s.primary.Name(), "attempt", attempt+1, "max_attempts", s.maxAttempts, "title", req.Title)

		result := s.call(ctx, s.primary, req)
		switch result.Outcome {
		case OutcomeSuccess:
			if summary := markup.Sanitize(result.Text); summary != "" {
				return summary, nil
			}
			slog.Warn("Primary provider returned nothing usable", "provider", s.primary.Name(), "attempt", attempt+1)
		case OutcomeTerminal:
			slog.Warn("Primary provider quota exhausted", "provider", s.primary.Name(), "error", result.Err)
			return "", nil
		default:
			slog.Warn("Primary provider failed", "provider", s.primary.Name(), "attempt", attempt+1, "error", result.Err)
		}

		if attempt+1 < s.maxAttempts {
			delay := s.baseDelay * time.Duration(1<<attempt)
			slog.Debug("Backing off before next attempt", "delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("summarization interrupted: %w", err)
			}
		}
	}

	return "", nil
}

func (s *Summarizer) call(ctx context.Context, provider Provider, req Request) Result {
	result := provider.Generate(ctx, req)
	metrics.ProviderCalls.WithLabelValues(provider.Name(), result.Outcome.String()).Inc()
	return result
}
