package summarizer

import (
	"context"
	"errors"
	"strings"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeTerminal // quota or rate limit; retrying the same provider is pointless
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

func Success(text string) Result {
	return Result{Outcome: OutcomeSuccess, Text: text}
}

func Retryable(err error) Result {
	return Result{Outcome: OutcomeRetryable, Err: err}
}

func Terminal(err error) Result {
	return Result{Outcome: OutcomeTerminal, Err: err}
}

type Request struct {
	Instruction string
	Title       string
	Text        string
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) Result
}

var errEmptyResponse = errors.New("provider returned an empty response")

// classify maps a provider error to an outcome. statusCode is the HTTP status
// reported by the SDK, or 0 when unknown.
func classify(err error, statusCode int) Result {
	if statusCode == 429 || isQuotaMessage(err) {
		return Terminal(err)
	}
	return Retryable(err)
}

func isQuotaMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
