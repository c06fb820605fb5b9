package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockSource returns canned inputs.
type mockSource struct {
	inputs []domain.DocumentInput
	err    error
	paths  []string
}

func (m *mockSource) Collect(_ context.Context, paths []string) ([]domain.DocumentInput, error) {
	m.paths = paths
	return m.inputs, m.err
}

func fileInput(path, content string) domain.DocumentInput {
	return domain.DocumentInput{
		Name:     path,
		Type:     "text",
		Content:  content,
		Metadata: map[string]any{domain.MetadataPath: path},
	}
}

func TestSyncOrchestrator_Sync(t *testing.T) {
	ctx := context.Background()
	svc, index := newTestService(t, newMockEmbedder(), largeBudget)
	source := &mockSource{inputs: []domain.DocumentInput{
		fileInput("/docs/a.txt", "cats and dogs"),
		fileInput("/docs/b.txt", "stock market"),
	}}
	o := NewSyncOrchestrator(source, svc)

	report, err := o.Sync(ctx, []string{"/docs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs"}, source.paths)
	assert.Equal(t, 2, report.Added)
	assert.Zero(t, report.Updated)
	assert.Zero(t, report.Failed)
	assert.Positive(t, report.BytesWritten)
	assert.Equal(t, 2, index.Metadata().TotalDocuments)

	_, err = os.Stat(svc.IndexPath())
	assert.NoError(t, err, "index is saved")

	status := o.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 2, status.DocumentsProcessed)
	assert.False(t, status.LastRun.IsZero())
}

func TestSyncOrchestrator_ResyncReindexes(t *testing.T) {
	ctx := context.Background()
	svc, index := newTestService(t, newMockEmbedder(), largeBudget)
	o := NewSyncOrchestrator(nil, svc)

	first, err := o.SyncInputs(ctx, []domain.DocumentInput{fileInput("/docs/a.txt", "cats")})
	require.NoError(t, err)
	id := first.Outcomes[0].DocumentID

	second, err := o.SyncInputs(ctx, []domain.DocumentInput{fileInput("/docs/a.txt", "dogs and pets")})
	require.NoError(t, err)
	assert.Zero(t, second.Added)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, id, second.Outcomes[0].DocumentID)

	assert.Equal(t, 1, index.Metadata().TotalDocuments)
	assert.Equal(t, "dogs and pets", index.Chunks()[0].Text)
}

func TestSyncOrchestrator_SameFileTwiceInOneBatch(t *testing.T) {
	ctx := context.Background()
	svc, index := newTestService(t, newMockEmbedder(), largeBudget)
	o := NewSyncOrchestrator(nil, svc)

	report, err := o.SyncInputs(ctx, []domain.DocumentInput{
		fileInput("/docs/a.txt", "cats"),
		fileInput("/docs/a.txt", "dogs"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, index.Metadata().TotalDocuments)
}

func TestSyncOrchestrator_NothingChanged(t *testing.T) {
	svc, _ := newTestService(t, newMockEmbedder(), largeBudget)
	o := NewSyncOrchestrator(&mockSource{}, svc)

	report, err := o.Sync(context.Background(), []string{"/empty"})
	require.NoError(t, err)
	assert.Zero(t, report.BytesWritten)

	_, err = os.Stat(svc.IndexPath())
	assert.True(t, os.IsNotExist(err))
}

func TestSyncOrchestrator_CollectError(t *testing.T) {
	svc, _ := newTestService(t, newMockEmbedder(), largeBudget)
	o := NewSyncOrchestrator(&mockSource{err: errors.New("permission denied")}, svc)

	_, err := o.Sync(context.Background(), []string{"/root"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSyncOrchestrator_NoSource(t *testing.T) {
	svc, _ := newTestService(t, newMockEmbedder(), largeBudget)
	_, err := NewSyncOrchestrator(nil, svc).Sync(context.Background(), nil)
	assert.Error(t, err)
}

func TestSyncOrchestrator_Cancelled(t *testing.T) {
	svc, _ := newTestService(t, newMockEmbedder(), largeBudget)
	o := NewSyncOrchestrator(nil, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.SyncInputs(ctx, []domain.DocumentInput{fileInput("/a", "cats")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.ErrorIs(t, report.Outcomes[0].Err, context.Canceled)
	assert.Equal(t, 1, o.Status().ErrorCount)
}

func TestSyncOrchestrator_RemovePath(t *testing.T) {
	ctx := context.Background()
	svc, index := newTestService(t, newMockEmbedder(), largeBudget)
	o := NewSyncOrchestrator(nil, svc)

	_, err := o.SyncInputs(ctx, []domain.DocumentInput{
		fileInput("/docs/a.txt", "cats"),
		fileInput("/docs/b.txt", "dogs"),
	})
	require.NoError(t, err)

	n, err := o.RemovePath(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, index.Metadata().TotalDocuments)

	n, err = o.RemovePath(ctx, "/docs/missing.txt")
	require.NoError(t, err)
	assert.Zero(t, n)
}
