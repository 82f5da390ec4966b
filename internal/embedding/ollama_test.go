package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"courseguide/internal/domain"
)

func TestClient_Embed(t *testing.T) {
	var got embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "test-model"}, nil)
	vecs, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vecs) != 2 || vecs[1][2] != 0.6 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
	if got.Model != "test-model" || len(got.Input) != 2 || got.Input[0] != "a" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestClient_EmbedFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"model not loaded"}`))
			},
			want: "model not loaded",
		},
		{
			name: "missing field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"embedding":[0.1]}`))
			},
			want: `no "embeddings" field`,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			want: "decoding response",
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"embeddings":[]}`))
			},
			want: "got 0 embeddings for 1 inputs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL}, nil)
			_, err := client.Embed(context.Background(), []string{"q"})
			var svcErr *domain.EmbeddingServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("expected EmbeddingServiceError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	calls := 0
	client := NewClient(Config{BaseURL: url}, nil)
	client.client.Transport = countingTransport{base: http.DefaultTransport, calls: &calls}
	_, err := client.Embed(context.Background(), []string{"q"})
	var svcErr *domain.EmbeddingServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected EmbeddingServiceError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
}

func TestClient_DefaultValues(t *testing.T) {
	client := NewClient(Config{}, nil)
	if client.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
	if client.Model() != "bge-m3" {
		t.Error("should default to bge-m3")
	}
}

type countingTransport struct {
	base  http.RoundTripper
	calls *int
}

func (c countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	*c.calls++
	return c.base.RoundTrip(r)
}
