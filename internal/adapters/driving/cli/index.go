package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage indexed documents",
	Long: `Add, list, delete and export documents in the index.

Every command that changes the index saves it before returning.`,
}

var indexAddCmd = &cobra.Command{
	Use:   "add [paths...]",
	Short: "Chunk, embed and index files",
	Long: `Collects text, Markdown, HTML, Word (.docx) and email (.eml) files from
the given files, directories or glob patterns and ingests them. Markup is
stripped before chunking. Files already in the index are reindexed in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexAdd,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDelete,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Delete every document ingested from a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all documents from the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexClear,
}

var indexExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write a copy of the index to another file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexExport,
}

var indexImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Replace the index with one saved elsewhere",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexImport,
}

func init() {
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexDeleteCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	indexCmd.AddCommand(indexClearCmd)
	indexCmd.AddCommand(indexExportCmd)
	indexCmd.AddCommand(indexImportCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	orch, err := requireSync(cmd.Context())
	if err != nil {
		return err
	}

	report, err := orch.Sync(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("index add failed: %w", err)
	}

	printSyncReport(cmd, report)
	return nil
}

func printSyncReport(cmd *cobra.Command, report *driving.SyncReport) {
	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		if !o.Success {
			cmd.Printf("  FAIL %s: %v\n", o.Name, o.Err)
			continue
		}
		cmd.Printf("  ok   %s (%d chunks, %d tokens)\n", o.Name, o.ChunkCount, o.TokensUsed)
		if o.FailedChunks > 0 {
			cmd.Printf("       %d of %d chunks have no embedding\n", o.FailedChunks, o.ChunkCount)
		}
	}

	cmd.Printf("Added %d, updated %d, failed %d.\n", report.Added, report.Updated, report.Failed)
	if report.BytesWritten > 0 {
		cmd.Printf("Index saved (%d bytes).\n", report.BytesWritten)
	}
}

func runIndexList(cmd *cobra.Command, _ []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	docs := idx.Documents(cmd.Context())
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Printf("%-36s  %6s  %s\n", "ID", "CHUNKS", "NAME")
	for i := range docs {
		name := docs[i].Name
		if path, ok := docs[i].Metadata[domain.MetadataPath].(string); ok && path != "" {
			name = path
		}
		cmd.Printf("%-36s  %6d  %s\n", docs[i].ID, docs[i].ChunkCount, name)
	}
	cmd.Printf("\n%d documents\n", len(docs))
	return nil
}

func runIndexDelete(cmd *cobra.Command, args []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	if err := idx.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if _, err := idx.Save(cmd.Context(), ""); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	orch, err := requireSync(cmd.Context())
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	n, err := orch.RemovePath(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	if n == 0 {
		cmd.Printf("No documents indexed from %s\n", path)
		return nil
	}

	cmd.Printf("Removed %d documents indexed from %s\n", n, path)
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	idx.Clear(cmd.Context())
	if _, err := idx.Save(cmd.Context(), ""); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	cmd.Println("Index cleared.")
	return nil
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	n, err := idx.Save(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	cmd.Printf("Wrote %d bytes to %s\n", n, args[0])
	return nil
}

func runIndexImport(cmd *cobra.Command, args []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	if err := idx.Load(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if _, err := idx.Save(cmd.Context(), ""); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	st := idx.Stats(cmd.Context())
	cmd.Printf("Imported %d documents (%d chunks) from %s\n", st.TotalDocuments, st.TotalChunks, args[0])
	return nil
}
