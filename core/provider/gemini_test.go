package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestGeminiAskJoinsTextParts(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text("Hello, "), genai.Text("World"))}
	p := &GeminiProvider{model: gen}

	answer, err := p.Ask(context.Background(), "Say Hello World")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", answer)
	require.Len(t, gen.parts, 1)
	assert.Equal(t, genai.Text("Say Hello World"), gen.parts[0])
	assert.Equal(t, Gemini, p.ID())
	assert.NoError(t, p.Close())
}

func TestGeminiEmptyResponses(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"no content":    {Candidates: []*genai.Candidate{{}}},
		"blank text":    textResponse(genai.Text("  ")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := (&GeminiProvider{model: &fakeGenerator{resp: resp}}).Ask(context.Background(), "q")
			assert.ErrorIs(t, err, ErrEmptyAnswer)
		})
	}
}

func TestGeminiErrorStatus(t *testing.T) {
	p := &GeminiProvider{}
	code, quota := p.errorStatus(&googleapi.Error{Code: 429, Message: "RESOURCE_EXHAUSTED"})
	assert.Equal(t, 429, code)
	assert.True(t, quota)

	code, quota = p.errorStatus(errors.Join(errors.New("wrapped"), &googleapi.Error{Code: 500}))
	assert.Equal(t, 500, code)
	assert.False(t, quota)

	e := asError(p, &googleapi.Error{Code: 403, Message: "billing disabled"})
	assert.Equal(t, KindUnknown, e.Kind)
	assert.Equal(t, 403, e.Status)
}
