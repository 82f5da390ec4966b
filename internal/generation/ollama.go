// Package generation asks an Ollama-compatible /api/generate endpoint to
// answer a grounding prompt.
package generation

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

// Client implements domain.Generator with a single non-streaming request.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// Config configures the generation client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new generation client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 300 * time.Second
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

// Model returns the generation model name.
func (c *Client) Model() string { return c.model }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// Generate returns the full answer text for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := c.generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("generation request failed", zap.Error(err))
		return "", &domain.GenerationServiceError{Err: err}
	}
	return answer, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return "", fmt.Errorf("service returned %s: %s", resp.Status, payload.Error)
		}
		return "", fmt.Errorf("service returned %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Response == nil {
		return "", errors.New(`response has no "response" field`)
	}
	c.logger.Debug("generated answer",
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("answer_bytes", len(*out.Response)),
		zap.Duration("took", time.Since(start)),
	)
	return *out.Response, nil
}
