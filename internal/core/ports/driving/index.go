package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IndexService manages ingestion into the index and its lifecycle.
type IndexService interface {
	SearchService

	// ProcessDocument chunks, embeds and appends a single document.
	// Chunks whose embedding failed are kept without a vector; the
	// returned result reports them via FailedChunks.
	ProcessDocument(ctx context.Context, input domain.DocumentInput) (*domain.ProcessResult, error)

	// ProcessDocuments ingests each input independently and reports
	// one outcome per input without aborting the batch.
	ProcessDocuments(ctx context.Context, inputs []domain.DocumentInput) []domain.BatchOutcome

	// ReindexDocument replaces an existing document's chunks with a fresh
	// ingestion of input, keeping the document ID.
	ReindexDocument(ctx context.Context, id string, input domain.DocumentInput) (*domain.ProcessResult, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// Documents lists ingested documents in insertion order.
	Documents(ctx context.Context) []domain.Document

	// Stats reports index counts and footprint.
	Stats(ctx context.Context) domain.IndexStats

	// Save persists the index to path and returns bytes written.
	// An empty path uses the configured index path.
	Save(ctx context.Context, path string) (int64, error)

	// Load replaces the in-memory index with the one persisted at path.
	// An empty path uses the configured index path.
	Load(ctx context.Context, path string) error

	// Clear empties the index, keeping model and chunk settings.
	Clear(ctx context.Context)
}
