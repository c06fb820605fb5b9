package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Index a directory and keep it in sync",
	Long: `Indexes every supported file under dir (text, Markdown, HTML, DOCX and
email), then watches the tree and reindexes files as they are written. Deleted files are removed from the index.
The index is saved after each change. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.SetTimestamps(true)

	orch, err := requireSync(ctx)
	if err != nil {
		return err
	}

	dir := args[0]
	cmd.Printf("Indexing %s...\n", dir)
	report, err := orch.Sync(ctx, []string{dir})
	if err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}
	printSyncReport(cmd, report)

	changes, err := requireWatcher().Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)

	for change := range changes {
		applyChange(ctx, cmd, orch, change)
	}

	cmd.Println("Stopped watching.")
	return nil
}

// applyChange mirrors one filesystem change into the index. Failures are
// reported and the watch continues.
func applyChange(ctx context.Context, cmd *cobra.Command, orch driving.SyncOrchestrator, change domain.DocumentChange) {
	if change.Removed {
		n, err := orch.RemovePath(ctx, change.Path)
		if err != nil {
			logger.Error("removing %s: %v", change.Path, err)
			return
		}
		if n > 0 {
			cmd.Printf("- %s\n", change.Path)
		}
		return
	}

	report, err := orch.SyncInputs(ctx, []domain.DocumentInput{change.Input})
	if err != nil {
		logger.Error("indexing %s: %v", change.Path, err)
		return
	}
	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		switch {
		case !o.Success:
			cmd.Printf("! %s: %v\n", change.Path, o.Err)
		case report.Updated > 0:
			cmd.Printf("~ %s (%d chunks)\n", change.Path, o.ChunkCount)
		default:
			cmd.Printf("+ %s (%d chunks)\n", change.Path, o.ChunkCount)
		}
	}
}
