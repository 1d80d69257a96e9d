// Package mealie is the HTTP adapter for the Mealie recipe store, the
// external system of record for finished recipes.
package mealie

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
	"github.com/reelchef/reelchef/internal/domain"
)

// ErrStoreRequestFailed is returned when the Mealie API cannot be reached
// or rejects a request. The core never retries these; a failure during
// saving fails the active task.
var ErrStoreRequestFailed = errors.New("recipe store request failed")

const requestTimeout = 30 * time.Second

// RecipeFields is the partial update payload for an existing recipe. Nil
// slices and empty strings are omitted so untouched fields keep their
// current values.
type RecipeFields struct {
	RecipeIngredient   []string                 `json:"recipeIngredient,omitempty"`
	RecipeInstructions []domain.InstructionStep `json:"recipeInstructions,omitempty"`
	Description        string                   `json:"description,omitempty"`
	OrgURL             string                   `json:"orgURL,omitempty"`
}

// Client talks to the Mealie REST API using a bearer token.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Mealie client from configuration. The endpoint and
// token are validated eagerly: a store that cannot be configured is a fatal
// startup error, surfaced before any task is accepted.
func NewClient(logger *slog.Logger, cfg config.MealieConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("mealie base URL cannot be empty")
	}

	if cfg.Token == "" {
		return nil, errors.New("mealie token cannot be empty")
	}

	return &Client{
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Create creates a bare recipe record with the given name and returns its
// slug. Mealie responds to recipe creation with the slug as a JSON string.
func (c *Client) Create(ctx context.Context, name string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/recipes", map[string]string{"name": name})
	if err != nil {
		return "", err
	}

	var slug string
	if err := json.Unmarshal(body, &slug); err != nil {
		return "", fmt.Errorf("%w: invalid create response: %v", ErrStoreRequestFailed, err)
	}

	c.logger.DebugContext(ctx, "created recipe record", "slug", slug)
	return slug, nil
}

// Update applies a partial update to the recipe identified by slug.
func (c *Client) Update(ctx context.Context, slug string, fields RecipeFields) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/recipes/"+slug, fields)
	return err
}

// SetThumbnail points the recipe's image at the given URL.
func (c *Client) SetThumbnail(ctx context.Context, slug, url string) error {
	payload := map[string]any{"includeTags": true, "url": url}
	_, err := c.do(ctx, http.MethodPost, "/api/recipes/"+slug+"/image", payload)
	return err
}

// Get fetches the current state of the recipe identified by slug.
func (c *Client) Get(ctx context.Context, slug string) (*domain.Recipe, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/recipes/"+slug, nil)
	if err != nil {
		return nil, err
	}

	var recipe domain.Recipe
	if err := json.Unmarshal(body, &recipe); err != nil {
		return nil, fmt.Errorf("%w: invalid recipe response: %v", ErrStoreRequestFailed, err)
	}
	return &recipe, nil
}

// do performs one authenticated request and returns the response body.
// Connection errors and non-2xx statuses wrap ErrStoreRequestFailed.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not connect to Mealie at %s: %v",
			ErrStoreRequestFailed, c.baseURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.WarnContext(ctx, "failed to close Mealie response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrStoreRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned status %d",
			ErrStoreRequestFailed, method, path, resp.StatusCode)
	}

	return body, nil
}
