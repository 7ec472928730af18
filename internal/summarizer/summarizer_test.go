package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeProvider struct {
	name     string
	results  []Result
	requests []Request
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) Generate(ctx context.Context, req Request) Result {
	p.requests = append(p.requests, req)
	if len(p.results) == 0 {
		return Retryable(errors.New("no scripted result"))
	}
	result := p.results[0]
	p.results = p.results[1:]
	return result
}

type sleepRecorder struct {
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func newTestSummarizer(primary, fallback *fakeProvider, sleeper *sleepRecorder) *Summarizer {
	return New(primary, fallback, 3, 10*time.Second, "Russian").WithSleeper(sleeper.sleep)
}

func TestSummarizePrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []Result{Success("⚙️ **Title**\n\nBody")}}
	fallback := &fakeProvider{name: "fallback"}
	sleeper := &sleepRecorder{}

	summary, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "⚙️")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary != "⚙️ **Title**\n\nBody" {
		t.Errorf("Expected primary summary, got: %q", summary)
	}
	if len(primary.requests) != 1 {
		t.Errorf("Expected 1 primary call, got: %d", len(primary.requests))
	}
	if len(fallback.requests) != 0 {
		t.Errorf("Expected no fallback calls, got: %d", len(fallback.requests))
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no sleeps, got: %v", sleeper.delays)
	}

	req := primary.requests[0]
	if req.Title != "Title" || req.Text != "Article text" {
		t.Errorf("Expected title and text to be passed through, got: %+v", req)
	}
	if !strings.Contains(req.Instruction, "⚙️ **Title**") {
		t.Errorf("Expected instruction to render emoji and title, got: %q", req.Instruction)
	}
	if !strings.Contains(req.Instruction, "Russian") {
		t.Errorf("Expected instruction to name the language, got: %q", req.Instruction)
	}
}

func TestSummarizeQuotaSkipsRetries(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []Result{
		Terminal(errors.New("429 quota exceeded")),
		Success("never reached"),
	}}
	fallback := &fakeProvider{name: "fallback", results: []Result{Success("Fallback summary")}}
	sleeper := &sleepRecorder{}

	summary, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "📰")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary != "Fallback summary" {
		t.Errorf("Expected fallback summary, got: %q", summary)
	}
	if len(primary.requests) != 1 {
		t.Errorf("Expected exactly 1 primary call, got: %d", len(primary.requests))
	}
	if len(fallback.requests) != 1 {
		t.Errorf("Expected exactly 1 fallback call, got: %d", len(fallback.requests))
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected zero backoff sleeps, got: %v", sleeper.delays)
	}
}

func TestSummarizeBackoffThenFallback(t *testing.T) {
	transient := errors.New("connection reset")
	primary := &fakeProvider{name: "primary", results: []Result{
		Retryable(transient), Retryable(transient), Retryable(transient),
	}}
	fallback := &fakeProvider{name: "fallback", results: []Result{Success("Fallback summary")}}
	sleeper := &sleepRecorder{}

	summary, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "📰")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary != "Fallback summary" {
		t.Errorf("Expected fallback summary, got: %q", summary)
	}
	if len(primary.requests) != 3 {
		t.Errorf("Expected 3 primary calls, got: %d", len(primary.requests))
	}

	expected := []time.Duration{10 * time.Second, 20 * time.Second}
	if len(sleeper.delays) != len(expected) {
		t.Fatalf("Expected delays %v, got: %v", expected, sleeper.delays)
	}
	for i, d := range expected {
		if sleeper.delays[i] != d {
			t.Errorf("Expected delay %d to be %v, got: %v", i, d, sleeper.delays[i])
		}
	}
}

func TestSummarizeRecoversOnSecondAttempt(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []Result{
		Retryable(errors.New("timeout")),
		Success("Second try"),
	}}
	fallback := &fakeProvider{name: "fallback"}
	sleeper := &sleepRecorder{}

	summary, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "📰")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary != "Second try" {
		t.Errorf("Expected second attempt summary, got: %q", summary)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 10*time.Second {
		t.Errorf("Expected a single 10s backoff, got: %v", sleeper.delays)
	}
	if len(fallback.requests) != 0 {
		t.Errorf("Expected no fallback calls, got: %d", len(fallback.requests))
	}
}

func TestSummarizeBothProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []Result{Terminal(errors.New("quota"))}}
	fallback := &fakeProvider{name: "fallback", results: []Result{Retryable(errors.New("server error"))}}
	sleeper := &sleepRecorder{}

	_, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "📰")
	if !errors.Is(err, ErrNoSummary) {
		t.Errorf("Expected ErrNoSummary, got: %v", err)
	}
	if len(fallback.requests) != 1 {
		t.Errorf("Expected exactly 1 fallback call, got: %d", len(fallback.requests))
	}
}

func TestSummarizeEmptyText(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	fallback := &fakeProvider{name: "fallback"}
	sleeper := &sleepRecorder{}

	_, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "", "📰")
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got: %v", err)
	}
	if len(primary.requests)+len(fallback.requests) != 0 {
		t.Errorf("Expected no provider calls, got: %d", len(primary.requests)+len(fallback.requests))
	}
}

func TestSummarizeSanitizesOutput(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []Result{Success("a **b* c")}}
	fallback := &fakeProvider{name: "fallback"}
	sleeper := &sleepRecorder{}

	summary, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "📰")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary != "a" {
		t.Errorf("Expected sanitized summary %q, got: %q", "a", summary)
	}
}

func TestSummarizeInterruptedBackoff(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []Result{Retryable(errors.New("timeout"))}}
	fallback := &fakeProvider{name: "fallback", results: []Result{Success("unused")}}
	sleeper := &sleepRecorder{err: context.Canceled}

	_, err := newTestSummarizer(primary, fallback, sleeper).Summarize(context.Background(), "Title", "Article text", "📰")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if len(fallback.requests) != 0 {
		t.Errorf("Expected no fallback call after interruption, got: %d", len(fallback.requests))
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Expected sleep to return immediately on a canceled context")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		expected Outcome
	}{
		{"Status 429", errors.New("too many requests"), 429, OutcomeTerminal},
		{"Quota in message", errors.New("Resource exhausted: check QUOTA"), 0, OutcomeTerminal},
		{"429 in message", errors.New("error, status code: 429"), 0, OutcomeTerminal},
		{"Server error", errors.New("internal"), 500, OutcomeRetryable},
		{"Transport error", errors.New("connection refused"), 0, OutcomeRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := classify(tt.err, tt.status); result.Outcome != tt.expected {
				t.Errorf("Expected %v, got: %v", tt.expected, result.Outcome)
			}
		})
	}
}
