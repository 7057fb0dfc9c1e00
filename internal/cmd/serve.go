package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tuannvm/engai/internal/config"
	engaimcp "github.com/tuannvm/engai/internal/mcp"
	"github.com/tuannvm/engai/internal/runner"
	"github.com/tuannvm/engai/internal/server"
)

func serveMain(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	var (
		configPath string
		port       int
		routePlan  bool
		noMCP      bool
		jsonLogs   bool
	)

	fs.StringVar(&configPath, "c", "", "config file path")
	fs.StringVar(&configPath, "config", "", "config file path")
	fs.IntVar(&port, "port", 0, "HTTP port (default: from config, 8000)")
	fs.BoolVar(&routePlan, "route-plan", false, "plan API routes before the backend stage")
	fs.BoolVar(&noMCP, "no-mcp", false, "do not mount the MCP endpoint at /mcp")
	fs.BoolVar(&jsonLogs, "json", false, "log as JSON")
	parseGlobalFlags(fs)

	fs.Usage = func() {
		fmt.Print(`Usage: engai serve [flags]

Run the HTTP API:
  POST /api/generate   Generate a project
  GET  /api/usage      Usage totals and per-agent breakdown
  GET  /api/health     Health check
  /mcp                 MCP streamable HTTP endpoint

Examples:
  engai serve
  engai serve --port 9000 --json

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(jsonLogs)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
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

	srvCfg := server.Config{
		ServiceName:  cfg.ServiceName,
		Port:         cfg.Server.Port,
		WriteTimeout: cfg.WriteTimeout(),
		CORSOrigins:  cfg.Server.CORSOrigins,
		Logger:       logger,
	}
	if !noMCP {
		mcpServer, err := engaimcp.NewServer(&engaimcp.ServerConfig{
			Version:  version,
			Handlers: engaimcp.NewHandlers(svc),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		srvCfg.MCP = mcpServer.Handler()
	}

	logger.Info("engai starting", "version", version, "port", cfg.Server.Port, "route_plan", cfg.Pipeline.RoutePlan)
	if err := server.New(svc, srvCfg).ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}
