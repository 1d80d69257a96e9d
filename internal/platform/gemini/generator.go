// Package gemini implements the generation.Generator interface using
// Google's Gemini API as an alternate inference backend for deployments
// without a local llama.cpp server.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelchef/reelchef/internal/config"
	"github.com/reelchef/reelchef/internal/generation"
	"google.golang.org/genai"
)

// Generator calls the Gemini API with the fixed system prompt and returns
// the raw model text. Sampling mirrors the llama.cpp backend so extraction
// stays deterministic across providers.
type Generator struct {
	logger       *slog.Logger
	client       *genai.Client
	model        string
	systemPrompt string
}

// NewGenerator creates a Generator backed by the Gemini API. Initialization
// is eager so credential problems surface at process start, not on the
// first task.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, systemPrompt string) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if systemPrompt == "" {
		return nil, fmt.Errorf("%w: system prompt cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:       logger,
		client:       client,
		model:        cfg.ModelName,
		systemPrompt: systemPrompt,
	}, nil
}

// Generate sends the prompt to the Gemini API and returns the raw response
// text. API failures and empty responses wrap generation.ErrRequestFailed.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}

	g.logger.DebugContext(ctx, "calling Gemini API",
		"model", g.model,
		"prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: g.systemPrompt}},
			},
			Temperature: genai.Ptr[float32](0.1),
			TopP:        genai.Ptr[float32](0.1),
		})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrRequestFailed, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: response contained no text", generation.ErrRequestFailed)
	}

	g.logger.DebugContext(ctx, "Gemini API responded", "response_length", len(text))

	return text, nil
}
