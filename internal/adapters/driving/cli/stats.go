package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

type statsOutput struct {
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

func newStatsOutput(st domain.IndexStats) statsOutput {
	out := statsOutput{
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

func runStats(cmd *cobra.Command, _ []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	out := newStatsOutput(idx.Stats(cmd.Context()))
	if statsJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Index Statistics")
	cmd.Println("================")
	cmd.Printf("  Documents:      %d\n", out.TotalDocuments)
	cmd.Printf("  Chunks:         %d (%d embedded, %d failed)\n", out.TotalChunks, out.EmbeddedChunks, out.FailedChunks)
	cmd.Printf("  Dimension:      %d\n", out.Dimension)
	cmd.Printf("  Vector memory:  %s\n", formatBytes(out.MemoryBytes))
	cmd.Printf("  Avg chunk:      %.1f tokens\n", out.AverageChunkTokens)
	cmd.Printf("  Model:          %s\n", out.Model)
	cmd.Printf("  Chunking:       %d tokens, %d overlap\n", out.ChunkSize, out.ChunkOverlap)
	if out.Created != "" {
		cmd.Printf("  Created:        %s\n", out.Created)
	}
	if out.Updated != "" {
		cmd.Printf("  Updated:        %s\n", out.Updated)
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
