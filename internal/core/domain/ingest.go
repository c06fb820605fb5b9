package domain

// ProcessResult is the outcome of ingesting one document.
type ProcessResult struct {
	Document Document
	Chunks   []Chunk

	// TokensUsed is the embedding token usage summed over all chunks.
	TokensUsed int

	// FailedChunks counts chunks retained without an embedding.
	FailedChunks int
}

// Err returns a PartialFailureError when any chunk failed to embed.
func (r *ProcessResult) Err() error {
	if r.FailedChunks == 0 {
		return nil
	}
	return &PartialFailureError{
		DocumentID: r.Document.ID,
		Failed:     r.FailedChunks,
		Total:      len(r.Chunks),
	}
}

// BatchOutcome reports the result of one document in a batch.
type BatchOutcome struct {
	Name         string
	DocumentID   string
	Success      bool
	ChunkCount   int
	FailedChunks int
	TokensUsed   int

	// Err is set when the document was not ingested at all.
	Err error
}
