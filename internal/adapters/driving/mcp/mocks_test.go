package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response *domain.SearchResponse
	err      error
	query    string
	opts     domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.query = query
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.response, nil
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	mockSearchService

	documents  []domain.Document
	stats      domain.IndexStats
	result     *domain.ProcessResult
	processErr error
	saveErr    error
	inputs     []domain.DocumentInput
	saves      int
}

func (m *mockIndexService) ProcessDocument(_ context.Context, input domain.DocumentInput) (*domain.ProcessResult, error) {
	m.inputs = append(m.inputs, input)
	if m.processErr != nil {
		return nil, m.processErr
	}
	return m.result, nil
}

func (m *mockIndexService) ProcessDocuments(_ context.Context, _ []domain.DocumentInput) []domain.BatchOutcome {
	return nil
}

func (m *mockIndexService) ReindexDocument(_ context.Context, _ string, _ domain.DocumentInput) (*domain.ProcessResult, error) {
	return m.result, m.processErr
}

func (m *mockIndexService) DeleteDocument(_ context.Context, _ string) error {
	return nil
}

func (m *mockIndexService) Documents(_ context.Context) []domain.Document {
	return m.documents
}

func (m *mockIndexService) Stats(_ context.Context) domain.IndexStats {
	return m.stats
}

func (m *mockIndexService) Save(_ context.Context, _ string) (int64, error) {
	m.saves++
	return 128, m.saveErr
}

func (m *mockIndexService) Load(_ context.Context, _ string) error {
	return nil
}

func (m *mockIndexService) Clear(_ context.Context) {}
