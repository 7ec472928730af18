package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional endpoint override
}

// Gemini sends the instruction and the article as a single prompt.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, config GeminiConfig) (*Gemini, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: config.Model}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Generate(ctx context.Context, req Request) Result {
	prompt := req.Instruction + "\n\nARTICLE TEXT FOR ANALYSIS:\n" + req.Text

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return classify(fmt.Errorf("gemini: %w", err), geminiStatus(err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Retryable(errEmptyResponse)
	}
	return Success(text)
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
