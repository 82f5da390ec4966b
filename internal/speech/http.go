package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// HTTPSynthesizer calls an OpenAI-compatible /v1/audio/speech endpoint.
type HTTPSynthesizer struct {
	baseURL string
	model   string
	voice   string
	apiKey  string
	client  *http.Client
}

// HTTPConfig configures an HTTPSynthesizer.
type HTTPConfig struct {
	BaseURL string
	Model   string
	Voice   string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPSynthesizer creates a synthesizer backed by a speech endpoint.
func NewHTTPSynthesizer(cfg HTTPConfig) *HTTPSynthesizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8880"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTTPSynthesizer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		voice:   cfg.Voice,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, out string) error {
	data, err := json.Marshal(speechRequest{Model: s.model, Input: text, Voice: s.voice, ResponseFormat: "mp3"})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/speech", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling speech service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("speech service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("opening %s: %w", out, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("speech service returned no audio")
	}
	return nil
}
