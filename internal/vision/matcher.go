package vision

import (
	"math"
	"sort"

	"badge-compliance-service/internal/domain/compliance"
)

// CosineSimilarity returns 1 - cosine distance between two embeddings,
// in [-1, 1]. A length mismatch or zero-magnitude vector yields 0.0
// rather than an error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Match scans all known embeddings and returns the identity with the
// highest cosine similarity to the query, together with that similarity.
// The strict > comparison keeps the first candidate on an exact tie;
// identities are scanned in sorted order so the selection is deterministic.
// Threshold acceptance is the caller's responsibility: the returned id is
// never filtered here.
func Match(query []float64, known map[string][]float64) (string, float64) {
	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bestID := ""
	bestSim := 0.0
	for _, id := range ids {
		if sim := CosineSimilarity(query, known[id]); sim > bestSim {
			bestSim = sim
			bestID = id
		}
	}
	return bestID, bestSim
}

// LargestFace picks the face with the largest bounding-box area, a proxy
// for the closest and most prominent face when a region contains several.
func LargestFace(faces []compliance.Face) compliance.Face {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Box.Area() > best.Box.Area() {
			best = f
		}
	}
	return best
}
