package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Expose the index to AI assistants over the Model Context Protocol.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Serve the index over the Model Context Protocol.

Tools: search, index_document, stats.
Resources: index://stats, index://documents, index://documents/{id}.

Without --port the server speaks JSON-RPC on stdio, which is what desktop
assistants launch. With --port it serves streamable HTTP on --host, plus
GET /healthz for probes.

Examples:
  sercha-rag mcp serve
  sercha-rag mcp serve --port 8080
  sercha-rag mcp serve --host 0.0.0.0 --port 8080

Client configuration:
  {
    "mcpServers": {
      "sercha-rag": {
        "command": "/path/to/sercha-rag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("host", "127.0.0.1", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("getting host flag: %w", err)
	}

	logger.SetTimestamps(true)

	server, err := newMCPServer(cmd)
	if err != nil {
		return err
	}

	if port <= 0 {
		return server.Run(cmd.Context())
	}

	addr := listenAddr(host, port)
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}

func listenAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func newMCPServer(cmd *cobra.Command) (*mcp.Server, error) {
	idx, err := requireIndex(cmd.Context())
	if err != nil {
		return nil, err
	}
	return mcp.NewServer(&mcp.Ports{Search: idx, Index: idx, Defaults: defaultSearchOptions()})
}
