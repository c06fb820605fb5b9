package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
// It returns 0 when either vector is empty, the lengths differ or a norm is zero.
func CosineSimilarity(a, b []float64) float64 {
	score, _ := Similarity(a, b)
	return score
}

// Similarity is CosineSimilarity plus a flag reporting whether the score is
// the zero fallback rather than a computed value.
func Similarity(a, b []float64) (score float64, degenerate bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, true
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, true
	}

	score = dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0, true
	}
	return score, false
}

// SimilarityRanker scores chunks against a query vector by linear scan.
type SimilarityRanker struct{}

// Rank returns up to opts.Limit chunks ordered by descending similarity.
// A Limit of zero or less means DefaultSearchLimit.
// Chunks without an embedding are never ranked. Ties keep index order.
func (SimilarityRanker) Rank(query []float64, chunks []domain.Chunk, opts domain.SearchOptions) []domain.ScoredChunk {
	limit := opts.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for i := range chunks {
		if !chunks[i].HasEmbedding() {
			continue
		}

		score, degenerate := Similarity(query, chunks[i].Embedding)
		if degenerate && opts.ExcludeDegenerate {
			continue
		}
		if opts.MinScore != 0 && score < opts.MinScore {
			continue
		}

		scored = append(scored, domain.ScoredChunk{
			Chunk:      chunks[i],
			Similarity: score,
			Degenerate: degenerate,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
