// Package main provides the entry point for the standalone engai MCP server.
//
// Supports multiple transport modes:
//   - stdio (default): Standard input/output for CLI integration
//   - http: Streamable HTTP transport for web integration
//   - http+oauth: HTTP with OAuth 2.1 authentication
//
// Usage:
//
//	engai-mcp                           # stdio mode (default)
//	engai-mcp --transport http --port 8080
//	engai-mcp --transport http --port 8080 --oauth --issuer https://company.okta.com --audience api://engai
//
// MCP_TRANSPORT and MCP_PORT set the flag defaults.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tuannvm/engai/internal/cmd"
)

// Version is the server version, set by the build process.
var Version = "dev"

func main() {
	log.Println("Starting EngAi MCP Server...")
	cmd.SetVersion(Version)
	if err := cmd.MCP(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "engai-mcp: %v\n", err)
		os.Exit(1)
	}
}
