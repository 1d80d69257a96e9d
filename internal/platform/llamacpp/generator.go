// Package llamacpp implements the generation.Generator interface against an
// OpenAI-compatible llama.cpp chat completion server.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/reelchef/reelchef/internal/config"
	"github.com/reelchef/reelchef/internal/generation"
)

// Fixed sampling parameters. Low temperature and top-p keep extraction
// deterministic; the repetition penalty stops small models from looping on
// ingredient lists.
const (
	samplingTemperature = 0.1
	samplingTopP        = 0.1
	repeatPenalty       = 1.2
)

// Generator calls a llama.cpp server's /v1/chat/completions endpoint with a
// fixed two-message exchange and returns the raw assistant text.
type Generator struct {
	logger       *slog.Logger
	serverURL    string
	systemPrompt string
	httpClient   *http.Client
}

// chatMessage is one entry of the chat completion exchange.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the llama.cpp chat completion request body.
type chatRequest struct {
	Messages      []chatMessage `json:"messages"`
	Temperature   float64       `json:"temperature"`
	TopP          float64       `json:"top_p"`
	RepeatPenalty float64       `json:"repeat_penalty"`
	Stream        bool          `json:"stream"`
}

// chatResponse is the subset of the chat completion response envelope we
// consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewGenerator creates a Generator for the configured llama.cpp server.
// Initialization is eager: configuration problems surface here, at process
// start, not on the first task.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig, systemPrompt string) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: llama.cpp server URL cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ResponseTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("%w: response timeout must be positive", generation.ErrInvalidConfig)
	}

	if systemPrompt == "" {
		return nil, fmt.Errorf("%w: system prompt cannot be empty", generation.ErrInvalidConfig)
	}

	return &Generator{
		logger:       logger,
		serverURL:    strings.TrimRight(cfg.ServerURL, "/"),
		systemPrompt: systemPrompt,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.ResponseTimeoutSeconds) * time.Second,
		},
	}, nil
}

// Generate sends the system prompt plus the user prompt to the server and
// returns the assistant message text. Network failures, non-2xx responses,
// and non-JSON bodies all wrap generation.ErrRequestFailed.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: g.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:   samplingTemperature,
		TopP:          samplingTopP,
		RepeatPenalty: repeatPenalty,
		Stream:        false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	url := g.serverURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	g.logger.DebugContext(ctx, "calling LLM server",
		"url", url,
		"prompt_length", len(prompt))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrRequestFailed, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.WarnContext(ctx, "failed to close LLM response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response body: %v", generation.ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %d", generation.ErrRequestFailed, resp.StatusCode)
	}

	var envelope chatResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("%w: invalid JSON response: %v", generation.ErrRequestFailed, err)
	}

	if len(envelope.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", generation.ErrRequestFailed)
	}

	content := envelope.Choices[0].Message.Content
	g.logger.DebugContext(ctx, "LLM server responded", "response_length", len(content))

	return content, nil
}
