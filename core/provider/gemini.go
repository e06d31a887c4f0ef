package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/m3rciful/askbot/core/config"
)

// contentGenerator is the slice of *genai.GenerativeModel the provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiProvider asks Google Gemini.
type GeminiProvider struct {
	client *genai.Client
	model  contentGenerator
}

// NewGemini creates a Gemini client for cfg.Model. Extra options are appended after the API key.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, opts ...option.ClientOption) (*GeminiProvider, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: client.GenerativeModel(cfg.Model)}, nil
}

func (g *GeminiProvider) ID() ID { return Gemini }

// Ask sends question as a single user turn and joins the text parts of the first candidate.
func (g *GeminiProvider) Ask(ctx context.Context, question string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(question))
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return "", fmt.Errorf("%w: %v", ErrEmptyAnswer, err)
	}
	if err != nil {
		return "", err
	}
	return geminiText(resp)
}

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyAnswer
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyAnswer
	}
	return b.String(), nil
}

func (g *GeminiProvider) errorStatus(err error) (int, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		quota := gerr.Code == 429 || strings.Contains(strings.ToUpper(gerr.Message), "RESOURCE_EXHAUSTED")
		return gerr.Code, quota
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return coded.HTTPCode(), coded.HTTPCode() == 429
	}
	return 0, false
}
