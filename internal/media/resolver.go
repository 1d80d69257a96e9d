// Package media is the HTTP adapter for the external fetch-and-transcribe
// service that turns a video URL into caption, transcription, and thumbnail.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/reelchef/reelchef/internal/config"
	"github.com/reelchef/reelchef/internal/domain"
)

// ErrExtractionFailed is returned when the extractor service cannot be
// reached or rejects a request.
var ErrExtractionFailed = errors.New("media extraction failed")

// Audio download plus transcription routinely takes minutes for long videos.
const requestTimeout = 10 * time.Minute

// extractResponse is the extractor service's response body.
type extractResponse struct {
	Caption       string `json:"caption"`
	Transcription string `json:"transcription"`
	ThumbnailURL  string `json:"thumbnail_url"`
}

// Resolver resolves a video URL into a task context by calling the
// extractor service. It implements scheduler.ContextResolver.
type Resolver struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
}

// NewResolver creates a Resolver for the configured extractor service.
func NewResolver(logger *slog.Logger, cfg config.ExtractorConfig) (*Resolver, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("extractor base URL cannot be empty")
	}

	return &Resolver{
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Resolve fetches caption, transcription, and thumbnail for the given URL.
func (r *Resolver) Resolve(ctx context.Context, url string) (*domain.TaskContext, error) {
	body, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/api/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.DebugContext(ctx, "requesting media extraction", "url", url)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			r.logger.WarnContext(ctx, "failed to close extractor response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrExtractionFailed, resp.StatusCode)
	}

	var extracted extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON response: %v", ErrExtractionFailed, err)
	}

	r.logger.DebugContext(ctx, "media extraction finished",
		"caption_length", len(extracted.Caption),
		"transcription_length", len(extracted.Transcription))

	return &domain.TaskContext{
		Caption:       extracted.Caption,
		Transcription: extracted.Transcription,
		ThumbnailURL:  extracted.ThumbnailURL,
	}, nil
}
