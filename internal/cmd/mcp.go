package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tuannvm/engai/internal/config"
	engaimcp "github.com/tuannvm/engai/internal/mcp"
	"github.com/tuannvm/engai/internal/runner"
)

// MCP runs the MCP server with the given arguments. It backs the
// standalone engai-mcp binary.
func MCP(args []string) error {
	config.LoadDotEnv()
	return mcpMain(args)
}

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)

	var (
		transport      string
		port           int
		enableOAuth    bool
		oauthProvider  string
		oauthIssuer    string
		oauthAudience  string
		oauthServerURL string
		sessionTimeout time.Duration
		configPath     string
		routePlan      bool
	)

	fs.StringVar(&transport, "transport", getEnv("MCP_TRANSPORT", "stdio"), "transport mode: stdio, http")
	fs.IntVar(&port, "port", getEnvInt("MCP_PORT", 8080), "HTTP port (only used with --transport http)")
	fs.BoolVar(&enableOAuth, "oauth", false, "enable OAuth 2.1 authentication (only with http transport)")
	fs.StringVar(&oauthProvider, "provider", "okta", "OAuth provider: okta, google, azure, hmac")
	fs.StringVar(&oauthIssuer, "issuer", "", "OAuth issuer URL (required with --oauth)")
	fs.StringVar(&oauthAudience, "audience", "", "OAuth audience (required with --oauth)")
	fs.StringVar(&oauthServerURL, "server-url", "", "public base URL for OAuth callbacks")
	fs.DurationVar(&sessionTimeout, "session-timeout", 30*time.Minute, "HTTP session timeout")
	fs.StringVar(&configPath, "config", "", "path to engai config file")
	fs.BoolVar(&routePlan, "route-plan", false, "plan API routes before the backend stage")
	parseGlobalFlags(fs)

	fs.Usage = func() {
		fmt.Print(`Usage: engai mcp [flags]

Run engai as an MCP (Model Context Protocol) server.

Tools:
  generate_software   Run the full pipeline for a description
  get_usage           Usage totals and per-agent breakdown
  list_agents         Agents, their tools and the stage order
  run_stage           Call a single agent tool

Transports:
  stdio    Standard input/output for CLI integration (default)
  http     Streamable HTTP transport for web integration

Examples:
  engai mcp                                     # stdio mode
  engai mcp --transport http --port 8080        # HTTP mode
  engai mcp --transport http --oauth \
    --issuer https://company.okta.com \
    --audience api://engai                      # HTTP with OAuth

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unknown transport: %s (use: stdio, http)", transport)
	}

	logger := newLogger(true)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if routePlan {
		cfg.Pipeline.RoutePlan = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stopTelemetry := startTelemetry(ctx, cfg, logger)
	defer stopTelemetry()

	app, err := runner.NewApp(ctx, cfg, runner.WithLogger(logger))
	if err != nil {
		return err
	}
	defer app.Close()

	svc, err := app.Service()
	if err != nil {
		return err
	}

	srvCfg := &engaimcp.ServerConfig{
		Version:        version,
		Handlers:       engaimcp.NewHandlers(svc),
		Logger:         logger,
		Port:           port,
		SessionTimeout: sessionTimeout,
		WriteTimeout:   cfg.WriteTimeout(),
	}

	if enableOAuth {
		if oauthIssuer == "" || oauthAudience == "" {
			return fmt.Errorf("--issuer and --audience are required with --oauth")
		}
		srvCfg.OAuth = &engaimcp.OAuthConfig{
			Provider:  oauthProvider,
			Issuer:    oauthIssuer,
			Audience:  oauthAudience,
			ServerURL: oauthServerURL,
		}
	}

	server, err := engaimcp.NewServer(srvCfg)
	if err != nil {
		return err
	}

	logger.Info("starting MCP server", "transport", transport, "version", version)
	switch {
	case transport == "stdio":
		err = server.ServeStdio(ctx)
	case srvCfg.OAuth != nil:
		err = server.ServeHTTPWithOAuth(ctx)
	default:
		err = server.ServeHTTP(ctx)
	}
	if err != nil {
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
