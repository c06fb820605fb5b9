// Package hashing provides an offline embedding service based on feature hashing.
// Vectors are bag-of-words counts hashed into a fixed number of buckets and
// L2-normalised. Texts sharing words score a positive cosine similarity.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = 256
	DefaultModel      = "hashing-v1"
)

// EmbeddingService embeds text locally without any network call.
type EmbeddingService struct {
	dim   int
	model string
}

// NewEmbeddingService creates a hashing embedder with the given vector size.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dim: dimensions, model: DefaultModel}
}

// Embed hashes each lower-cased word into a bucket. TokensUsed is the word count.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (*domain.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, s.dim)
	terms := Tokenize(text)
	for _, term := range terms {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()

		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		vec[sum%uint64(s.dim)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] *= inv
		}
	}

	return &domain.Embedding{
		Vector:     vec,
		Model:      s.model,
		TokensUsed: len(terms),
	}, nil
}

// Tokenize splits text into lower-cased letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dim
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
