package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArtifact_NotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 4)
	if err := Artifact(ctx, path, nil, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	// unrelated files in the same directory are ignored
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	select {
	case <-changed:
		t.Fatal("unexpected notification for another file")
	case <-time.After(3 * debounce):
	}

	os.WriteFile(path, []byte(`[{"title":"Intro"}]`), 0o644)
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after the artifact changed")
	}
}

func TestArtifact_MissingDirectory(t *testing.T) {
	err := Artifact(context.Background(), filepath.Join(t.TempDir(), "absent", "embeddings.json"), nil, func() {})
	if err == nil {
		t.Error("expected error for a missing directory")
	}
}
