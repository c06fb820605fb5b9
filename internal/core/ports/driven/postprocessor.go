package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and its content and returns chunks.
	// A processor that creates chunks (e.g., chunker) receives nil chunks.
	// A processor that refines chunks receives and returns them.
	Process(ctx context.Context, doc *domain.Document, content string, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.Document, content string) ([]domain.Chunk, error)
}

// TokenEstimator estimates the token count of a text.
// The chunker sizes windows against it, so a real tokenizer can be
// substituted without touching the windowing logic.
type TokenEstimator interface {
	Estimate(text string) int
}
