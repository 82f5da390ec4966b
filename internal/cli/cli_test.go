package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courseguide/internal/config"
	"courseguide/internal/domain"
	"courseguide/internal/service"
)

type staticStore []domain.Chunk

func (s staticStore) All() []domain.Chunk { return s }

type staticEmbedder struct {
	vec []float64
	err error
}

func (e staticEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return [][]float64{e.vec}, nil
}

type staticGenerator string

func (g staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return string(g), nil
}

func sampleChunks() staticStore {
	return staticStore{
		{Index: 0, Title: "Intro", Number: 1, Start: 270, End: 284, Text: "CSS styles pages", Embedding: []float64{1, 0}},
		{Index: 1, Title: "Forms", Number: 9, Start: 3700, End: 3725, Text: "Inputs collect data", Embedding: []float64{0, 1}},
	}
}

func TestAskOnce(t *testing.T) {
	c := service.NewTurnController(service.Dependencies{
		Store:     sampleChunks(),
		Embedder:  staticEmbedder{vec: []float64{1, 0}},
		Generator: staticGenerator("CSS is covered in Intro at 04:30."),
	}, nil)
	defer c.Close()

	turn, err := askOnce(c, "What is CSS?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if turn.Answer != "CSS is covered in Intro at 04:30." {
		t.Errorf("unexpected answer %q", turn.Answer)
	}
	if len(turn.Retrieval) != 2 || turn.Retrieval[0].Chunk.Title != "Intro" {
		t.Errorf("unexpected retrieval %+v", turn.Retrieval)
	}
}

func TestAskOnce_Failure(t *testing.T) {
	c := service.NewTurnController(service.Dependencies{
		Store:     sampleChunks(),
		Embedder:  staticEmbedder{err: &domain.EmbeddingServiceError{Err: errors.New("connection refused")}},
		Generator: staticGenerator("unused"),
	}, nil)
	defer c.Close()

	_, err := askOnce(c, "What is CSS?")
	var svcErr *domain.EmbeddingServiceError
	if !errors.As(err, &svcErr) {
		t.Errorf("expected EmbeddingServiceError, got %v", err)
	}

	if _, err := askOnce(c, "  "); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestPrintResults(t *testing.T) {
	chunks := sampleChunks()
	results := []domain.ScoredChunk{{Chunk: chunks[0], Score: 0.91}, {Chunk: chunks[1], Score: 0.12}}
	var buf bytes.Buffer
	printResults(&buf, results)
	out := buf.String()
	for _, want := range []string{"1. [0.910] Video 1: Intro (04:30-04:44)", "2. [0.120] Video 9: Forms (1:01:40-1:02:05)", "CSS styles pages"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeJSON(&buf, results); err != nil {
		t.Fatal(err)
	}
	var rows []resultJSON
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(rows) != 2 || rows[0].Rank != 1 || rows[1].Title != "Forms" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	artifact := `[
  {"title":"Intro","number":1,"start":0,"end":12.5,"text":"Welcome","embedding":[0.1,0.2]},
  {"title":"Intro","number":1,"start":12.5,"end":30,"text":"CSS basics","embedding":[0.3,0.4]},
  {"title":"Forms","number":9,"start":0,"end":20,"text":"Inputs","embedding":[0.5,0.6]}
]`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg = &config.AppConfig{Artifact: config.ArtifactConfig{Path: path}}
	defer func() { cfg = nil }()

	var out, errOut bytes.Buffer
	inspectCmd.SetOut(&out)
	inspectCmd.SetErr(&errOut)
	if err := runInspect(inspectCmd, nil); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"(json)", "Chunks:     3", "Dimension:  2", "Videos:     2", "- Intro", "- Forms"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestInspect_BadArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	os.WriteFile(path, []byte(`[{"title":"Intro"}]`), 0o644)
	cfg = &config.AppConfig{}
	defer func() { cfg = nil }()

	var out bytes.Buffer
	inspectCmd.SetOut(&out)
	inspectCmd.SetErr(&out)
	err := runInspect(inspectCmd, []string{path})
	var le *domain.LoadError
	if !errors.As(err, &le) {
		t.Errorf("expected LoadError, got %v", err)
	}
}
