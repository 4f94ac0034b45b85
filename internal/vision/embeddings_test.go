package vision

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_embeddings.json")
	content := `{"S001": [0.6, 0.8], "S002": [1.0, 0.0]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write embeddings: %v", err)
	}

	known, err := LoadEmbeddings(path)
	if err != nil {
		t.Fatalf("LoadEmbeddings: %v", err)
	}
	if len(known) != 2 {
		t.Fatalf("loaded %d embeddings, want 2", len(known))
	}
	if got := known["S001"]; len(got) != 2 || got[0] != 0.6 {
		t.Errorf("S001 embedding = %v", got)
	}
}

func TestLoadEmbeddingsMissingFile(t *testing.T) {
	if _, err := LoadEmbeddings(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected an error for a missing embeddings file")
	}
}

func TestLoadEmbeddingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"S001": "not a vector"}`), 0644)
	if _, err := LoadEmbeddings(path); err == nil {
		t.Error("expected an error for malformed embeddings")
	}
}

func TestLoadEmbeddingsEmptyVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	os.WriteFile(path, []byte(`{"S001": []}`), 0644)
	if _, err := LoadEmbeddings(path); err == nil {
		t.Error("expected an error for an empty vector")
	}
}
