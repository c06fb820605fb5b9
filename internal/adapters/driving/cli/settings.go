package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, chunk sizes, index location
and search defaults.

Settings live in ~/.sercha-rag/config.toml unless --config points elsewhere.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long:  `Set a single setting by key. Run 'sercha-rag settings keys' for the list.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Reset a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsProviderCmd = &cobra.Command{
	Use:   "provider [name] [model]",
	Short: "Configure the embedding provider",
	Long: `Select the embedding provider and model. Without arguments an
interactive menu is shown.

Providers:
  openai   - OpenAI or any compatible endpoint (requires an API key)
  ollama   - Local Ollama instance
  hashing  - Offline feature hashing, no service required`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSettingsProvider,
}

var settingsAPIKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Store the embedding API key",
	Long:  `Prompt for the embedding API key without echoing it and store it in the config file.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsAPIKey,
}

var settingsChunkingCmd = &cobra.Command{
	Use:   "chunking [size] [overlap]",
	Short: "Set chunk size and overlap in tokens",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsChunking,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the embedding provider is reachable",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsProviderCmd)
	settingsCmd.AddCommand(settingsAPIKeyCmd)
	settingsCmd.AddCommand(settingsChunkingCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

// Prompt input; tests replace both.
var (
	stdin           = bufio.NewReader(os.Stdin)
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set, checked %s)\n", settings.Embedding.APIKeyEnv)
		}
	}
	if settings.Embedding.Provider == domain.AIProviderHashing {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	}
	cmd.Printf("  Min interval: %s\n", settings.Embedding.MinInterval)
	cmd.Printf("  Timeout: %s\n", settings.Embedding.Timeout)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d tokens\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d tokens\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Index]")
	path := settings.Index.Path
	if indexPathFl != "" {
		path = indexPathFl
	}
	cmd.Printf("  Path: %s\n", path)
	cmd.Printf("  Backend: %s\n", settings.Index.Backend)
	cmd.Printf("  Atomic write: %t\n", settings.Index.AtomicWrite)
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Top K: %d\n", settings.Search.TopK)
	cmd.Printf("  Exclude n/a: %t\n", settings.Search.ExcludeDegenerate)
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-rag settings provider' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := svc.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if strings.HasSuffix(key, "api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	if err := svc.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("%s reset to default\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	for _, k := range svc.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsProvider(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	var provider domain.AIProvider
	var model string

	if len(args) == 0 {
		provider, model = promptProvider(cmd)
	} else {
		provider = domain.AIProvider(strings.ToLower(args[0]))
		if len(args) > 1 {
			model = args[1]
		}
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		current, err := svc.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if current.Embedding.Provider != provider || current.Embedding.APIKey == "" {
			cmd.Print("Enter API key: ")
			apiKey = readPassword()
			cmd.Println()
			if apiKey == "" {
				return errors.New("API key is required for this provider")
			}
		}
	}

	if err := svc.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n",
		settings.Embedding.Provider.Description(), settings.Embedding.Model)
	return nil
}

// promptProvider shows the provider menu and asks for a model name.
func promptProvider(cmd *cobra.Command) (domain.AIProvider, string) {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(stdin), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(stdin)
	if model == "" {
		model = defaultModel
	}
	return provider, model
}

func runSettingsAPIKey(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	cmd.Print("Enter API key: ")
	key := readPassword()
	cmd.Println()
	if key == "" {
		return errors.New("no API key entered")
	}

	if err := svc.Set("embedding.api_key", key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	cmd.Printf("API key stored: %s\n", maskAPIKey(key))
	return nil
}

func runSettingsChunking(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	size, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[0], err)
	}
	overlap, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid overlap %q: %w", args[1], err)
	}

	if err := svc.SetChunking(size, overlap); err != nil {
		return fmt.Errorf("failed to set chunking: %w", err)
	}
	cmd.Printf("Chunking set to %d tokens with %d overlap.\n", size, overlap)
	cmd.Println("Existing indexes keep their chunk boundaries until documents are reindexed.")
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Printf("Checking %s (%s)... ", settings.Embedding.Provider.Description(), settings.Embedding.Model)
	if err := ai.ValidateEmbeddingConfig(cmd.Context(), &settings.Embedding); err != nil {
		cmd.Println("FAILED")
		return err
	}
	cmd.Println("OK")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if stdinIsTerminal() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(stdin)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
