// Command sercha-rag indexes local documents as embedded chunks and answers
// semantic queries over them from the command line, a TUI or an MCP server.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
)

func main() {
	// A missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
