package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperTranscriber calls a whisper-compatible /v1/audio/transcriptions endpoint.
type WhisperTranscriber struct {
	baseURL  string
	model    string
	language string
	client   *http.Client
}

// WhisperConfig configures a WhisperTranscriber.
type WhisperConfig struct {
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// NewWhisperTranscriber creates a transcription client.
func NewWhisperTranscriber(cfg WhisperConfig) *WhisperTranscriber {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WhisperTranscriber{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		language: cfg.Language,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "speech.wav")
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	for _, field := range [][2]string{
		{"model", w.model},
		{"language", w.language},
		{"response_format", "json"},
	} {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return "", fmt.Errorf("building request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling transcription service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription service returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Text, nil
}
