// Package cmd provides the CLI implementation using stdlib flag.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/telemetry"
)

var (
	verbose bool
	quiet   bool
	version = "dev"
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

// Execute runs the CLI
func Execute() error {
	if len(os.Args) < 2 {
		printUsage()
		return nil
	}

	// Load .env file if present before any command reads the environment.
	config.LoadDotEnv()

	cmd := os.Args[1]

	// For simplicity, we expect: engai <command> [flags] [args]

	switch cmd {
	case "generate", "run":
		return generateMain(os.Args[2:])
	case "serve":
		return serveMain(os.Args[2:])
	case "mcp":
		return mcpMain(os.Args[2:])
	case "usage":
		return usageMain(os.Args[2:])
	case "agents":
		return agentsMain(os.Args[2:])
	case "prompts":
		return promptsMain(os.Args[2:])
	case "ui":
		return uiMain(os.Args[2:])
	case "init":
		return initMain(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("engai version %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Print(`EngAi - Generate software projects with a pipeline of specialist agents

Usage:
  engai <command> [flags] [args]

Commands:
  generate <input>  Generate a project from a description file or directory
  serve             Run the HTTP API (and MCP at /mcp)
  mcp               Run the MCP server (stdio or HTTP)
  usage             Show LLM call and token usage
  agents            List agents, tools and the stage order
  prompts [agent]   List prompt templates or show one
  ui [input]        Interactive form for a generation
  init              Initialize engai configuration
  version           Print version information
  help              Show this help

Examples:
  engai generate ./idea.md
  engai generate -d "A todo list app with user authentication"
  engai serve --port 8000
  engai usage --remote http://localhost:8000
  engai ui

Environment:
  GEMINI_API_KEY    Gemini API key (required for generation)
  ENGAI_LOG_LEVEL   debug, info, warn, error (default: info)

Run 'engai <command> -h' for command-specific help.
`)
}

// Helper functions for logging
func logInfo(format string, args ...interface{}) {
	if !quiet {
		_, _ = fmt.Fprintf(os.Stdout, format+"\n", args...)
	}
}

func logVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		_, _ = fmt.Fprintf(os.Stdout, "[DEBUG] "+format+"\n", args...)
	}
}

// parseGlobalFlags registers -v and -q on fs
func parseGlobalFlags(fs *flag.FlagSet) {
	fs.BoolVar(&verbose, "v", false, "verbose output")
	fs.BoolVar(&verbose, "verbose", false, "verbose output")
	fs.BoolVar(&quiet, "q", false, "quiet output (errors only)")
	fs.BoolVar(&quiet, "quiet", false, "quiet output (errors only)")
}

// logLevel maps ENGAI_LOG_LEVEL and the global flags to a slog level.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("ENGAI_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if verbose {
		return slog.LevelDebug
	}
	if quiet {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger builds the structured logger for long-running commands. It
// writes to stderr so stdio transports keep stdout clean.
func newLogger(json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel()}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// startTelemetry initializes OpenTelemetry from cfg. The returned function
// flushes exporters and never fails the command.
func startTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.ServiceName, version, cfg.Telemetry.Insecure)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}
}
