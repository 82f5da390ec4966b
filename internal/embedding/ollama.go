// Package embedding turns text into vectors through an Ollama-compatible
// /api/embed endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"courseguide/internal/domain"
)

// Client is an Ollama embeddings client implementing domain.Embedder.
// It makes exactly one request per Embed call and never retries.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// Config configures the embeddings client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "bge-m3"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
		logger:  logger,
	}
}

// Model returns the embedding model name.
func (c *Client) Model() string { return c.model }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings *[][]float64 `json:"embeddings"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vecs, err := c.embed(ctx, texts)
	if err != nil {
		c.logger.Warn("embedding request failed", zap.Int("inputs", len(texts)), zap.Error(err))
		return nil, &domain.EmbeddingServiceError{Err: err}
	}
	return vecs, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float64, error) {
	data, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	url := c.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.Embeddings == nil {
		return nil, errors.New(`response has no "embeddings" field`)
	}
	vecs := *out.Embeddings
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
	}
	c.logger.Debug("embedded texts",
		zap.Int("inputs", len(texts)),
		zap.Int("dimensions", len(vecs[0])),
		zap.Duration("took", time.Since(start)),
	)
	return vecs, nil
}

// statusError builds an error from a non-success response, including the
// service's own error message when it sends one.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("service returned %s: %s", resp.Status, payload.Error)
	}
	return fmt.Errorf("service returned %s", resp.Status)
}
