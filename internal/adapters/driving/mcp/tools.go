package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query             string  `json:"query" jsonschema:"the natural language query to embed and rank chunks against"`
	Limit             int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default from settings)"`
	ExcludeDegenerate bool    `json:"exclude_degenerate,omitempty" jsonschema:"drop chunks whose similarity could not be computed"`
	MinScore          float64 `json:"min_score,omitempty" jsonschema:"drop results scoring below this similarity"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results     []SearchResultOutput `json:"results"`
	Count       int                  `json:"count"`
	QueryTokens int                  `json:"query_tokens"`
	Model       string               `json:"model"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Rank         int            `json:"rank"`
	DocumentID   string         `json:"document_id"`
	DocumentName string         `json:"document_name"`
	ChunkID      string         `json:"chunk_id"`
	Position     int            `json:"position"`
	Similarity   float64        `json:"similarity"`
	Degenerate   bool           `json:"degenerate,omitempty"`
	Text         string         `json:"text"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IndexDocumentInput is the input schema for the index_document tool.
type IndexDocumentInput struct {
	Name     string         `json:"name" jsonschema:"document name"`
	Type     string         `json:"type,omitempty" jsonschema:"document type such as markdown or text"`
	Content  string         `json:"content" jsonschema:"full document text to chunk and embed"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"extra key-value pairs stored with every chunk"`
}

// IndexDocumentOutput is the output schema for the index_document tool.
type IndexDocumentOutput struct {
	DocumentID   string `json:"document_id"`
	ChunkCount   int    `json:"chunk_count"`
	FailedChunks int    `json:"failed_chunks"`
	TokensUsed   int    `json:"tokens_used"`
	BytesWritten int64  `json:"bytes_written"`
	Warning      string `json:"warning,omitempty"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	TotalDocuments     int     `json:"total_documents"`
	TotalChunks        int     `json:"total_chunks"`
	EmbeddedChunks     int     `json:"embedded_chunks"`
	FailedChunks       int     `json:"failed_chunks"`
	Dimension          int     `json:"dimension"`
	MemoryBytes        int64   `json:"memory_bytes"`
	AverageChunkTokens float64 `json:"average_chunk_tokens"`
	Model              string  `json:"model"`
	ChunkSize          int     `json:"chunk_size"`
	ChunkOverlap       int     `json:"chunk_overlap"`
	Created            string  `json:"created,omitempty"`
	Updated            string  `json:"updated,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over the chunks of all indexed documents",
	}, s.handleSearch)

	if s.ports.Index == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Chunk, embed and add a document to the index, then save it",
	}, s.handleIndexDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Report document and chunk counts, vector dimension and settings of the index",
	}, s.handleStats)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	resp, err := s.ports.Search.Search(ctx, input.Query, s.ports.searchOptions(input))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:     make([]SearchResultOutput, len(resp.Results)),
		Count:       len(resp.Results),
		QueryTokens: resp.QueryTokens,
		Model:       resp.Model,
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			Rank:         r.Rank,
			DocumentID:   r.Document.ID,
			DocumentName: r.Document.Name,
			ChunkID:      r.Chunk.ID,
			Position:     r.Chunk.Position,
			Similarity:   r.Similarity,
			Degenerate:   r.Degenerate,
			Text:         r.Chunk.Text,
			Metadata:     r.Chunk.Metadata.Extra,
		}
	}

	return nil, output, nil
}

// handleIndexDocument ingests one document and persists the index.
func (s *Server) handleIndexDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexDocumentInput,
) (*mcp.CallToolResult, IndexDocumentOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexDocumentOutput{}, ErrIndexUnavailable
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, IndexDocumentOutput{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	result, err := s.ports.Index.ProcessDocument(ctx, domain.DocumentInput{
		Name:     input.Name,
		Type:     input.Type,
		Content:  input.Content,
		Metadata: input.Metadata,
	})
	if err != nil {
		return nil, IndexDocumentOutput{}, err
	}

	n, err := s.ports.Index.Save(ctx, "")
	if err != nil {
		return nil, IndexDocumentOutput{}, err
	}

	output := IndexDocumentOutput{
		DocumentID:   result.Document.ID,
		ChunkCount:   len(result.Chunks),
		FailedChunks: result.FailedChunks,
		TokensUsed:   result.TokensUsed,
		BytesWritten: n,
	}
	if perr := result.Err(); perr != nil {
		output.Warning = perr.Error()
		logger.Warn("%v", perr)
	}

	return nil, output, nil
}

// handleStats reports index statistics.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	if s.ports.Index == nil {
		return nil, StatsOutput{}, ErrIndexUnavailable
	}
	return nil, statsOutput(s.ports.Index.Stats(ctx)), nil
}

func statsOutput(st domain.IndexStats) StatsOutput {
	out := StatsOutput{
		TotalDocuments:     st.TotalDocuments,
		TotalChunks:        st.TotalChunks,
		EmbeddedChunks:     st.EmbeddedChunks,
		FailedChunks:       st.FailedChunks,
		Dimension:          st.Dimension,
		MemoryBytes:        st.MemoryBytes,
		AverageChunkTokens: st.AverageChunkTokens,
		Model:              st.Model,
		ChunkSize:          st.ChunkSize,
		ChunkOverlap:       st.ChunkOverlap,
	}
	if st.Created != nil {
		out.Created = st.Created.Format(time.RFC3339)
	}
	if st.Updated != nil {
		out.Updated = st.Updated.Format(time.RFC3339)
	}
	return out
}
