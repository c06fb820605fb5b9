package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure IndexService implements the interfaces.
var (
	_ driving.IndexService  = (*IndexService)(nil)
	_ driving.SearchService = (*IndexService)(nil)
)

// IndexService ingests documents into a vector index and answers
// similarity queries against it.
//
// Embedding calls are made one at a time, in chunk order, and documents in
// a batch are processed sequentially. Writers must be serialised by the
// caller; Search may run alongside a writer.
type IndexService struct {
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	store     driven.IndexStore
	indexPath string
	ranker    SimilarityRanker
	now       func() time.Time
}

// NewIndexService creates a new index service.
// indexPath is used by Save and Load when they are given an empty path.
func NewIndexService(
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	store driven.IndexStore,
	indexPath string,
) *IndexService {
	return &IndexService{
		pipeline:  pipeline,
		embedder:  embedder,
		index:     index,
		store:     store,
		indexPath: indexPath,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IndexPath returns the configured index path.
func (s *IndexService) IndexPath() string {
	return s.indexPath
}

// ProcessDocument chunks, embeds and appends a single document under a fresh ID.
func (s *IndexService) ProcessDocument(ctx context.Context, input domain.DocumentInput) (*domain.ProcessResult, error) {
	result, err := s.ingest(ctx, uuid.New().String(), input)
	if err != nil {
		return nil, err
	}

	if err := s.index.Append(result.Document, result.Chunks); err != nil {
		return nil, fmt.Errorf("append document: %w", err)
	}

	logger.Info("Indexed %q: %d chunks, %d tokens, %d failed",
		result.Document.Name, len(result.Chunks), result.TokensUsed, result.FailedChunks)
	return result, nil
}

// ingest builds the document and its embedded chunks without touching the index.
func (s *IndexService) ingest(ctx context.Context, id string, input domain.DocumentInput) (*domain.ProcessResult, error) {
	logger.Section("Ingest")
	logger.Debug("Document %q (%s), %d bytes", input.Name, id, len(input.Content))

	metadata, err := domain.NormaliseMetadata(input.Metadata)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", input.Name, err)
	}

	doc := domain.Document{
		ID:       id,
		Name:     input.Name,
		Type:     input.Type,
		Metadata: metadata,
	}

	chunks, err := s.pipeline.Process(ctx, &doc, input.Content)
	if err != nil {
		return nil, fmt.Errorf("chunk document %q: %w", input.Name, err)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	result := &domain.ProcessResult{Chunks: chunks}

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		emb, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			markFailed(&chunks[i], err)
			result.FailedChunks++
			logger.Warn("Chunk %d of %q failed to embed: %v", chunks[i].Position, input.Name, err)
			continue
		}
		if len(emb.Vector) == 0 {
			markFailed(&chunks[i], &domain.ProviderError{
				Provider: s.embedder.ModelName(),
				Message:  "empty embedding",
			})
			result.FailedChunks++
			continue
		}

		chunks[i].Embedding = emb.Vector
		chunks[i].EmbeddingModel = emb.Model
		chunks[i].TokensUsed = emb.TokensUsed
		result.TokensUsed += emb.TokensUsed
	}

	doc.ChunkCount = len(chunks)
	doc.TotalTokens = result.TokensUsed
	doc.ProcessedAt = s.now()
	result.Document = doc

	return result, nil
}

func markFailed(c *domain.Chunk, err error) {
	c.Embedding = nil
	c.Error = err.Error()
	if c.Error == "" {
		c.Error = "embedding failed"
	}
}

// ProcessDocuments ingests each input independently. A failed document never
// aborts the batch; once ctx is cancelled every remaining input is reported
// as failed.
func (s *IndexService) ProcessDocuments(ctx context.Context, inputs []domain.DocumentInput) []domain.BatchOutcome {
	outcomes := make([]domain.BatchOutcome, 0, len(inputs))

	for i, input := range inputs {
		outcome := domain.BatchOutcome{Name: input.Name}

		if err := ctx.Err(); err != nil {
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			continue
		}

		logger.Debug("Batch item %d/%d: %s", i+1, len(inputs), input.Name)
		result, err := s.ProcessDocument(ctx, input)
		if err != nil {
			logger.Warn("Failed to index %q: %v", input.Name, err)
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.Success = true
		outcome.DocumentID = result.Document.ID
		outcome.ChunkCount = len(result.Chunks)
		outcome.FailedChunks = result.FailedChunks
		outcome.TokensUsed = result.TokensUsed
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// ReindexDocument re-ingests input under an existing document ID. Name, type
// and metadata left empty in input are carried over from the old document.
// The old chunks are replaced only after the new ones are fully embedded.
func (s *IndexService) ReindexDocument(
	ctx context.Context, id string, input domain.DocumentInput,
) (*domain.ProcessResult, error) {
	old, ok := s.index.Document(id)
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	if input.Name == "" {
		input.Name = old.Name
	}
	if input.Type == "" {
		input.Type = old.Type
	}
	if input.Metadata == nil {
		input.Metadata = old.Metadata
	}

	result, err := s.ingest(ctx, id, input)
	if err != nil {
		return nil, err
	}

	if _, err := s.index.DeleteDocument(id); err != nil {
		return nil, fmt.Errorf("remove old document %s: %w", id, err)
	}
	if err := s.index.Append(result.Document, result.Chunks); err != nil {
		return nil, fmt.Errorf("append document: %w", err)
	}

	logger.Info("Reindexed %q: %d chunks", result.Document.Name, len(result.Chunks))
	return result, nil
}

// DeleteDocument removes a document and its chunks.
func (s *IndexService) DeleteDocument(_ context.Context, id string) error {
	doc, err := s.index.DeleteDocument(id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	logger.Info("Deleted %q (%d chunks)", doc.Name, doc.ChunkCount)
	return nil
}

// Search embeds the query and ranks every embedded chunk against it.
func (s *IndexService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	logger.Section("Search")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if opts.Limit < 0 {
		return nil, &domain.ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	if opts.Limit == 0 {
		opts.Limit = domain.DefaultSearchLimit
	}
	logger.Debug("Query: %q, limit: %d", query, opts.Limit)

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := s.ranker.Rank(emb.Vector, s.index.Chunks(), opts)
	logger.Debug("Ranked %d of %d chunks", len(scored), s.index.Len())

	docs := make(map[string]domain.Document)
	for _, d := range s.index.Documents() {
		docs[d.ID] = d
	}

	results := make([]domain.SearchResult, 0, len(scored))
	for i := range scored {
		doc, ok := docs[scored[i].Chunk.DocumentID()]
		if !ok {
			// Deleted between the two reads.
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:      scored[i].Chunk,
			Document:   doc,
			Rank:       len(results) + 1,
			Similarity: scored[i].Similarity,
			Degenerate: scored[i].Degenerate,
		})
	}

	model := emb.Model
	if model == "" {
		model = s.embedder.ModelName()
	}

	logger.Info("Search returned %d results", len(results))
	return &domain.SearchResponse{
		Results:     results,
		QueryTokens: emb.TokensUsed,
		Model:       model,
	}, nil
}

// Documents lists ingested documents in insertion order.
func (s *IndexService) Documents(_ context.Context) []domain.Document {
	return s.index.Documents()
}

// Stats reports index counts and footprint.
func (s *IndexService) Stats(_ context.Context) domain.IndexStats {
	return domain.ComputeStats(s.index.Snapshot())
}

// Save persists the index and returns bytes written.
func (s *IndexService) Save(ctx context.Context, path string) (int64, error) {
	path = s.resolvePath(path)
	if path == "" {
		return 0, &domain.ValidationError{Field: "index path", Reason: "not configured"}
	}

	n, err := s.store.Save(ctx, path, s.index.Snapshot())
	if err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}

	logger.Debug("Saved index to %s (%d bytes)", path, n)
	return n, nil
}

// Load replaces the in-memory index with the persisted one.
func (s *IndexService) Load(ctx context.Context, path string) error {
	path = s.resolvePath(path)
	if path == "" {
		return &domain.ValidationError{Field: "index path", Reason: "not configured"}
	}

	idx, err := s.store.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	if model := idx.Metadata.Model; model != "" && model != s.embedder.ModelName() {
		logger.Warn("Index at %s was built with %q, current model is %q", path, model, s.embedder.ModelName())
	}

	if err := s.index.Restore(idx); err != nil {
		return fmt.Errorf("restore index: %w", err)
	}

	logger.Debug("Loaded %d documents, %d chunks from %s",
		idx.Metadata.TotalDocuments, idx.Metadata.TotalChunks, path)
	return nil
}

// LoadIfExists loads the persisted index, treating a missing file as empty.
func (s *IndexService) LoadIfExists(ctx context.Context) error {
	err := s.Load(ctx, "")
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("No index at %s yet", s.indexPath)
		return nil
	}
	return err
}

// Clear empties the index, keeping model and chunk settings.
func (s *IndexService) Clear(_ context.Context) {
	s.index.Clear()
	logger.Info("Index cleared")
}

// Close releases the embedding client.
func (s *IndexService) Close() error {
	return s.embedder.Close()
}

func (s *IndexService) resolvePath(path string) string {
	if path == "" {
		return s.indexPath
	}
	return path
}
