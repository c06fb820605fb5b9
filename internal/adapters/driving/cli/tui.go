package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive search interface.

Controls:
  Enter    - Search / expand result
  ↑/k, ↓/j - Navigate results
  n, /     - New search
  d        - Toggle n/a results
  +, -     - More or fewer results
  ?        - Help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Recover so a rendering panic leaves a stack trace after the alt screen closes.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newTUIApp(cmd)
	if err != nil {
		return err
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func newTUIApp(cmd *cobra.Command) (*tui.App, error) {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return nil, err
	}

	app, err := tui.NewApp(&tui.Ports{
		Search:   idx,
		Index:    idx,
		Defaults: defaultSearchOptions(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}

	return app.WithContext(cmd.Context()), nil
}
