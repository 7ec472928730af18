package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional endpoint override
}

// OpenAI sends the instruction as the system message and the article as the
// user message.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(config OpenAIConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) Generate(ctx context.Context, req Request) Result {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instruction},
			{Role: openai.ChatMessageRoleUser, Content: "Title: " + req.Title + "\n\nFull article text:\n" + req.Text},
		},
	})
	if err != nil {
		return classify(fmt.Errorf("openai: %w", err), openAIStatus(err))
	}

	if len(resp.Choices) == 0 {
		return Retryable(errEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Retryable(errEmptyResponse)
	}
	return Success(text)
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
