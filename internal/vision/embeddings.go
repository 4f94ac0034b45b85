package vision

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadEmbeddings reads the known-embeddings file, a JSON object mapping
// identity id to a fixed-length vector. The set is loaded once at startup
// and read-only afterwards. Extra ids without a roster row are tolerated
// here; the ledger refuses to fine them later.
func LoadEmbeddings(path string) (map[string][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embeddings file %q: %w", path, err)
	}

	embeddings := make(map[string][]float64)
	if err := json.Unmarshal(data, &embeddings); err != nil {
		return nil, fmt.Errorf("parse embeddings file %q: %w", path, err)
	}

	for id, vec := range embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("embeddings file %q: empty vector for %q", path, id)
		}
	}
	return embeddings, nil
}
