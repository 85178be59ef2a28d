package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GenkitGenerator implements Generator on a Genkit instance.
type GenkitGenerator struct {
	g           *genkit.Genkit
	modelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	temperature float32
	maxTokens   int
}

// NewGenkitGenerator wraps an initialized Genkit instance.
func NewGenkitGenerator(g *genkit.Genkit, modelName string, temperature float32, maxTokens int) *GenkitGenerator {
	return &GenkitGenerator{
		g:           g,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate runs one completion.
func (gg *GenkitGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(gg.temperature),
			MaxOutputTokens: gg.maxTokens,
		}),
	}
	if gg.modelName != "" {
		opts = append(opts, ai.WithModelName(gg.modelName))
	}

	resp, err := genkit.Generate(ctx, gg.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return resp.Text(), nil
}

// ModelName returns the provider-qualified model identifier.
func (gg *GenkitGenerator) ModelName() string { return gg.modelName }

// ModelInfo describes the configured model for /services/info.
type ModelInfo struct {
	ModelName    string  `json:"model_name"`
	Provider     string  `json:"provider"`
	Temperature  float32 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	RetrieverK   int     `json:"retriever_k"`
	ResponseMode string  `json:"response_mode"`
	StrictMode   bool    `json:"strict_mode"`
}

// Info reports the generator configuration plus the answerer's retrieval depth.
func (gg *GenkitGenerator) Info(topK int) ModelInfo {
	provider, model, found := strings.Cut(gg.modelName, "/")
	if !found {
		provider, model = "", gg.modelName
	}
	return ModelInfo{
		ModelName:    model,
		Provider:     provider,
		Temperature:  gg.temperature,
		MaxTokens:    gg.maxTokens,
		RetrieverK:   topK,
		ResponseMode: "Document content only",
		StrictMode:   true,
	}
}
