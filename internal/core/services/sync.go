package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator coordinates ingestion of files from disk.
// Documents are matched to files through their "path" metadata, so syncing
// the same file twice reindexes it rather than adding a duplicate.
type SyncOrchestrator struct {
	source driven.DocumentSource
	index  driving.IndexService
	now    func() time.Time

	// runMu serialises writers; the index has a single logical writer.
	runMu sync.Mutex

	mu     sync.RWMutex
	status driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(source driven.DocumentSource, index driving.IndexService) *SyncOrchestrator {
	return &SyncOrchestrator{
		source: source,
		index:  index,
		now:    time.Now,
	}
}

// Sync collects documents under paths, ingests them and saves the index.
func (o *SyncOrchestrator) Sync(ctx context.Context, paths []string) (*driving.SyncReport, error) {
	if o.source == nil {
		return nil, fmt.Errorf("collect documents: no document source configured")
	}

	inputs, err := o.source.Collect(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("collect documents: %w", err)
	}
	logger.Info("Collected %d documents from %d paths", len(inputs), len(paths))

	return o.SyncInputs(ctx, inputs)
}

// SyncInputs ingests already-collected documents and saves the index.
func (o *SyncOrchestrator) SyncInputs(ctx context.Context, inputs []domain.DocumentInput) (*driving.SyncReport, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	o.setStatus(driving.SyncStatus{Running: true, LastRun: o.now()})
	defer o.finish()

	known := o.documentsByPath(ctx)
	report := &driving.SyncReport{Outcomes: make([]domain.BatchOutcome, 0, len(inputs))}

	for _, input := range inputs {
		outcome := domain.BatchOutcome{Name: input.Name}

		if err := ctx.Err(); err != nil {
			outcome.Err = err
			report.Failed++
			report.Outcomes = append(report.Outcomes, outcome)
			o.recordError()
			continue
		}

		var (
			result *domain.ProcessResult
			err    error
		)
		path := pathOf(input.Metadata)
		id, exists := known[path]
		if path != "" && exists {
			logger.Debug("Reindexing %s (%s)", path, id)
			result, err = o.index.ReindexDocument(ctx, id, input)
		} else {
			result, err = o.index.ProcessDocument(ctx, input)
		}

		if err != nil {
			logger.Warn("Failed to sync %q: %v", input.Name, err)
			outcome.Err = err
			report.Failed++
			report.Outcomes = append(report.Outcomes, outcome)
			o.recordError()
			continue
		}

		if exists {
			report.Updated++
		} else {
			report.Added++
			if path != "" {
				known[path] = result.Document.ID
			}
		}

		outcome.Success = true
		outcome.DocumentID = result.Document.ID
		outcome.ChunkCount = len(result.Chunks)
		outcome.FailedChunks = result.FailedChunks
		outcome.TokensUsed = result.TokensUsed
		report.Outcomes = append(report.Outcomes, outcome)
		o.recordProcessed()
	}

	if report.Added+report.Updated > 0 {
		n, err := o.index.Save(ctx, "")
		if err != nil {
			return report, err
		}
		report.BytesWritten = n
	}

	logger.Info("Sync complete: %d added, %d updated, %d failed", report.Added, report.Updated, report.Failed)
	return report, nil
}

// RemovePath deletes every document ingested from path and saves the index.
func (o *SyncOrchestrator) RemovePath(ctx context.Context, path string) (int, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	removed := 0
	for _, doc := range o.index.Documents(ctx) {
		if pathOf(doc.Metadata) != path {
			continue
		}
		if err := o.index.DeleteDocument(ctx, doc.ID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		if _, err := o.index.Save(ctx, ""); err != nil {
			return removed, err
		}
		logger.Info("Removed %d documents for %s", removed, path)
	}
	return removed, nil
}

// Status returns the current or most recent sync status.
func (o *SyncOrchestrator) Status() driving.SyncStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *SyncOrchestrator) documentsByPath(ctx context.Context) map[string]string {
	out := make(map[string]string)
	for _, doc := range o.index.Documents(ctx) {
		if p := pathOf(doc.Metadata); p != "" {
			out[p] = doc.ID
		}
	}
	return out
}

func pathOf(metadata map[string]any) string {
	p, _ := metadata[domain.MetadataPath].(string)
	return p
}

func (o *SyncOrchestrator) setStatus(status driving.SyncStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

func (o *SyncOrchestrator) recordProcessed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.DocumentsProcessed++
}

func (o *SyncOrchestrator) recordError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.ErrorCount++
}

func (o *SyncOrchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.Running = false
}
