package domain

// DefaultSearchLimit is used when a query does not ask for a result count.
const DefaultSearchLimit = 5

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results (top-K). Zero means
	// DefaultSearchLimit; IndexService.Search rejects negative values.
	Limit int

	// ExcludeDegenerate drops chunks whose similarity could not be computed
	// (dimension mismatch or zero-norm vector) instead of ranking them at 0.
	ExcludeDegenerate bool

	// MinScore drops results scoring below the threshold when non-zero.
	MinScore float64
}

// SearchResult represents a single ranked hit.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Document is the chunk's parent document.
	Document Document

	// Rank is the 1-based position in the result list.
	Rank int

	// Similarity is the cosine similarity to the query vector.
	Similarity float64

	// Degenerate is true when Similarity is a fallback zero.
	Degenerate bool
}

// ScoredChunk is a chunk paired with its similarity to a query vector.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64
	Degenerate bool
}

// SearchResponse carries ranked results plus the query's own cost.
type SearchResponse struct {
	Results []SearchResult

	// QueryTokens is the provider-reported token usage of the query embedding.
	QueryTokens int

	// Model is the embedding model used for the query.
	Model string
}

// Embedding is a provider response for a single input text.
type Embedding struct {
	Vector     []float64
	Model      string
	TokensUsed int
}
