package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (g *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if text, ok := parts[0].(genai.Text); ok {
			g.prompt = string(text)
		}
	}
	return g.resp, g.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestClient(gen generator) *GeminiClient {
	logger := zap.NewNop()
	return &GeminiClient{
		model:         gen,
		modelName:     "gemini-test",
		maxTextSize:   100,
		logger:        logger,
		textProcessor: utils.NewTextProcessor(logger),
	}
}

func TestGeminiClient_Classify(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text(`{"decision":`), genai.Text(`"YES","explanation":"model release"}`))}

	result, err := newTestClient(gen).Classify(context.Background(), &core.ClassificationRequest{
		Text: "A new open-weights model tops the leaderboard",
		URL:  "https://x.test/9",
	})
	require.NoError(t, err)

	assert.False(t, result.Reject)
	assert.Equal(t, "model release", result.Explanation)
	assert.Equal(t, "gemini-test", result.Model)
	assert.Contains(t, gen.prompt, "URL: https://x.test/9")
}

func TestGeminiClient_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"api error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"no candidates", &fakeGenerator{resp: &genai.GenerateContentResponse{}}},
		{"not json", &fakeGenerator{resp: textResponse(genai.Text("NO"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient(tt.gen).Classify(context.Background(), &core.ClassificationRequest{Text: "x"})
			assert.Error(t, err)
		})
	}
}

func TestFactory_RequiresAPIKey(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	_, err := NewFactory(cfg, zap.NewNop(), utils.NewTextProcessor(zap.NewNop())).CreateClient()
	assert.Error(t, err)
}
