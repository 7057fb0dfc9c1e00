package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	oauth "github.com/tuannvm/oauth-mcp-proxy"
	mcpoauth "github.com/tuannvm/oauth-mcp-proxy/mcp"
)

const (
	// ServerName is the MCP server name.
	ServerName = "engai"
	// ServerVersion is the MCP server version.
	ServerVersion = "1.0.0"
)

// ServerInstructions provides usage guidance for LLMs.
const ServerInstructions = `EngAi generates a software project from an application description using a fixed pipeline of specialist agents.

Available tools:
- generate_software: Run the full pipeline (architecture -> schema -> backend -> frontend -> tests)
- get_usage: Report LLM calls and token usage per agent
- list_agents: List agents, their tools and the stage order
- run_stage: Call a single stage tool with explicit inputs

Typical workflow:
1. Use list_agents to understand available stages
2. Use generate_software with a description (and optional requirements)
3. Check cost with get_usage
4. Re-run a single stage with run_stage to iterate on one output`

// ServerConfig holds configuration for creating an MCP server.
type ServerConfig struct {
	Name         string
	Version      string
	Instructions string
	Logger       *slog.Logger
	Handlers     *Handlers

	// Transport settings
	Port           int
	SessionTimeout time.Duration
	WriteTimeout   time.Duration

	// OAuth settings (optional)
	OAuth *OAuthConfig
}

// OAuthConfig holds OAuth-specific configuration.
type OAuthConfig struct {
	Provider  string // okta, google, azure, hmac
	Issuer    string
	Audience  string
	ServerURL string // Base URL for OAuth callbacks (e.g., https://example.com:8080)
}

// Server represents the MCP server with all components.
type Server struct {
	mcpServer   *mcp.Server
	config      *ServerConfig
	oauthServer *oauth.Server
}

// NewServer creates a new MCP server instance with all components.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil || cfg.Handlers == nil {
		return nil, errors.New("mcp: handlers are required")
	}
	if cfg.Name == "" {
		cfg.Name = ServerName
	}
	if cfg.Version == "" {
		cfg.Version = ServerVersion
	}
	if cfg.Instructions == "" {
		cfg.Instructions = ServerInstructions
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		&mcp.ServerOptions{
			Instructions: cfg.Instructions,
			Logger:       cfg.Logger,
		},
	)

	registerTools(mcpServer, cfg.Handlers, cfg.Logger)

	return &Server{
		mcpServer: mcpServer,
		config:    cfg,
	}, nil
}

// ServeStdio starts the MCP server with STDIO transport.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.config.Logger.Info("starting MCP server on stdio transport")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler, for mounting into another
// router.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		SessionTimeout: s.config.SessionTimeout,
		Logger:         s.config.Logger,
	})
}

// ServeHTTP starts the MCP server with streamable HTTP transport.
func (s *Server) ServeHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.Handler())
	s.addHealthCheck(mux)

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.config.Logger.Info("starting MCP server",
		"url", fmt.Sprintf("http://localhost%s/mcp", addr),
		"health", fmt.Sprintf("http://localhost%s/health", addr),
	)

	return s.runHTTPServer(ctx, addr, mux)
}

// ServeHTTPWithOAuth starts the MCP server with OAuth 2.1 authentication.
func (s *Server) ServeHTTPWithOAuth(ctx context.Context) error {
	if s.config.OAuth == nil {
		return fmt.Errorf("OAuth configuration is required")
	}

	// Use configured ServerURL or fall back to localhost
	serverURL := s.config.OAuth.ServerURL
	if serverURL == "" {
		serverURL = fmt.Sprintf("http://localhost:%d", s.config.Port)
	}

	mux := http.NewServeMux()

	// Create OAuth-protected handler
	oauthServer, handler, err := mcpoauth.WithOAuth(mux, &oauth.Config{
		Provider:  s.config.OAuth.Provider,
		Issuer:    s.config.OAuth.Issuer,
		Audience:  s.config.OAuth.Audience,
		ServerURL: serverURL,
	}, s.mcpServer)
	if err != nil {
		return fmt.Errorf("failed to create OAuth server: %w", err)
	}
	s.oauthServer = oauthServer

	mux.Handle("/mcp", handler)
	s.addHealthCheck(mux)

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.config.Logger.Info("starting MCP server with OAuth",
		"url", serverURL+"/mcp",
		"provider", s.config.OAuth.Provider,
		"issuer", s.config.OAuth.Issuer,
	)
	s.oauthServer.LogStartup(false)

	return s.runHTTPServer(ctx, addr, mux)
}

// addHealthCheck adds a health check endpoint to the mux. It reports the
// tools so a health check also catches a misconfigured server.
func (s *Server) addHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:  "healthy",
			Service: s.config.Name,
			Version: s.config.Version,
			Tools:   ToolNames(),
		})
	})
}

type healthResponse struct {
	Status  string   `json:"status"`
	Service string   `json:"service"`
	Version string   `json:"version"`
	Tools   []string `json:"tools"`
}

// runHTTPServer runs an HTTP server until ctx is done, then shuts it down
// gracefully.
func (s *Server) runHTTPServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.WriteTimeout, // a generation runs several LLM calls
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.config.Logger.Info("shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-errCh
}
