package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SyncOrchestrator keeps the index in step with files on disk.
type SyncOrchestrator interface {
	// Sync collects documents under paths, ingests them and saves the index.
	// Files already in the index (matched by path) are reindexed in place.
	Sync(ctx context.Context, paths []string) (*SyncReport, error)

	// SyncInputs ingests already-collected documents and saves the index.
	SyncInputs(ctx context.Context, inputs []domain.DocumentInput) (*SyncReport, error)

	// RemovePath deletes every document that was ingested from path.
	RemovePath(ctx context.Context, path string) (int, error)

	// Status returns the current or most recent sync status.
	Status() SyncStatus
}

// SyncReport summarises one sync run.
type SyncReport struct {
	Outcomes []domain.BatchOutcome

	// Added and Updated count documents ingested as new or reindexed.
	Added   int
	Updated int
	Failed  int

	// BytesWritten is the size of the saved index; zero when nothing changed.
	BytesWritten int64
}

// SyncStatus represents the current sync status.
type SyncStatus struct {
	Running            bool
	DocumentsProcessed int
	ErrorCount         int
	LastRun            time.Time
}
