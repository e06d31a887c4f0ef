package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/m3rciful/askbot/core/config"
)

// OpenAIProvider asks an OpenAI compatible chat completions endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a client for cfg. A nil httpClient keeps the SDK default.
func NewOpenAI(cfg config.ProviderConfig, httpClient *http.Client) *OpenAIProvider {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		c.HTTPClient = httpClient
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(c), model: cfg.Model}
}

func (o *OpenAIProvider) ID() ID { return ChatGPT }

// Ask sends question as a single user message and returns the first choice.
func (o *OpenAIProvider) Ask(ctx context.Context, question string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyAnswer)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) errorStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		quota := code == "insufficient_quota" || apiErr.Type == "insufficient_quota"
		return apiErr.HTTPStatusCode, quota
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, false
	}
	return 0, false
}
