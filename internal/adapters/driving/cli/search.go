package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// previewLen is the rune length of the chunk preview in table output.
const previewLen = 160

var (
	searchLimit     int
	searchJSON      bool
	searchExcludeNA bool
	searchMinScore  float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and ranks every indexed chunk by cosine similarity.
Chunks whose similarity cannot be computed score 0 and are marked n/a.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default search.top_k)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchExcludeNA, "exclude-degenerate", false, "drop chunks without a usable similarity")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this similarity")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return err
	}

	defaults := searchDefaults()
	opts := domain.SearchOptions{
		Limit:             searchLimit,
		ExcludeDegenerate: searchExcludeNA || defaults.ExcludeDegenerate,
		MinScore:          searchMinScore,
	}
	if opts.Limit == 0 {
		opts.Limit = defaults.TopK
	}

	resp, err := idx.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, args[0], resp)
}

// searchResultJSON is the --json shape of one hit. Vectors are omitted.
type searchResultJSON struct {
	Rank         int            `json:"rank"`
	Similarity   float64        `json:"similarity"`
	Degenerate   bool           `json:"degenerate,omitempty"`
	DocumentID   string         `json:"document_id"`
	DocumentName string         `json:"document_name"`
	ChunkID      string         `json:"chunk_id"`
	Position     int            `json:"position"`
	StartWord    int            `json:"start_word"`
	EndWord      int            `json:"end_word"`
	Text         string         `json:"text"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type searchResponseJSON struct {
	Model       string             `json:"model"`
	QueryTokens int                `json:"query_tokens"`
	Results     []searchResultJSON `json:"results"`
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	out := searchResponseJSON{
		Model:       resp.Model,
		QueryTokens: resp.QueryTokens,
		Results:     make([]searchResultJSON, len(resp.Results)),
	}
	for i := range resp.Results {
		r := &resp.Results[i]
		out.Results[i] = searchResultJSON{
			Rank:         r.Rank,
			Similarity:   r.Similarity,
			Degenerate:   r.Degenerate,
			DocumentID:   r.Document.ID,
			DocumentName: r.Document.Name,
			ChunkID:      r.Chunk.ID,
			Position:     r.Chunk.Position,
			StartWord:    r.Chunk.StartWord,
			EndWord:      r.Chunk.EndWord,
			Text:         r.Chunk.Text,
			Metadata:     r.Chunk.Metadata.Extra,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, query string, resp *domain.SearchResponse) error {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results for %q (%s, %d query tokens):\n\n", query, resp.Model, resp.QueryTokens)
	for i := range resp.Results {
		r := &resp.Results[i]

		name := r.Document.Name
		if name == "" {
			name = r.Chunk.Metadata.DocumentName
		}
		score := fmt.Sprintf("%.3f", r.Similarity)
		if r.Degenerate {
			score = "n/a"
		}

		cmd.Printf("  [%d] %s  %s #%d\n", r.Rank, score, name, r.Chunk.Position)
		if path, ok := r.Chunk.Metadata.Extra[domain.MetadataPath].(string); ok && path != "" {
			cmd.Printf("      %s\n", path)
		}
		cmd.Printf("      %s\n\n", preview(r.Chunk.Text, previewLen))
	}
	return nil
}

// preview collapses whitespace and truncates to n runes.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
