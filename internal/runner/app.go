package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/llm"
	"github.com/tuannvm/engai/internal/pipeline"
	"github.com/tuannvm/engai/internal/project"
	"github.com/tuannvm/engai/internal/prompt"
	"github.com/tuannvm/engai/internal/protocol"
	"github.com/tuannvm/engai/internal/usage"
)

// App holds the wired components shared by the CLI, HTTP and MCP
// surfaces. It is built once per process.
type App struct {
	Config   *config.Config
	Protocol *protocol.Server
	Agents   []*agent.StageAgent
	Tracker  *usage.Tracker
	Writer   *project.Writer
	Logger   *slog.Logger

	store *usage.SQLiteStore
}

type appOptions struct {
	generator llm.Generator
	logger    *slog.Logger
}

// AppOption configures NewApp.
type AppOption func(*appOptions)

// WithGenerator replaces the Gemini client, e.g. with a test double.
func WithGenerator(g llm.Generator) AppOption {
	return func(o *appOptions) { o.generator = g }
}

// WithLogger sets the structured logger for services.
func WithLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = logger }
}

// NewApp wires the generator, usage tracker, agents and protocol server
// from cfg.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppOption) (*App, error) {
	o := appOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	app := &App{Config: cfg, Logger: o.logger}

	trackerOpts := []usage.Option{usage.WithLogger(o.logger)}
	if cfg.Usage.DBPath != "" {
		store, err := usage.OpenSQLite(cfg.Usage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage store: %w", err)
		}
		app.store = store
		trackerOpts = append(trackerOpts, usage.WithStore(store))
	}
	app.Tracker = usage.NewTracker(trackerOpts...)
	if err := app.Tracker.Load(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}

	gen := o.generator
	if gen == nil {
		gemini, err := llm.NewGemini(ctx, cfg.APIKey,
			llm.WithModel(cfg.LLM.Model),
			llm.WithTimeout(cfg.LLMTimeout()),
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
			llm.WithGeminiLogger(o.logger),
		)
		if err != nil {
			app.Close()
			return nil, err
		}
		gen = gemini
	}

	app.Agents = agent.Defaults(agent.Config{
		Generator:   gen,
		Tracker:     app.Tracker,
		Prompts:     prompt.NewLoader(cfg.Prompts.Dir).WithOverrides(cfg.Prompts.Overrides),
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      o.logger,
	})
	app.Protocol = protocol.NewServer(protocol.WithLogger(o.logger))
	agent.RegisterAll(app.Protocol, app.Agents...)

	app.Writer = project.NewWriter(cfg.OutputDir, project.WithLogger(o.logger))
	return app, nil
}

// Orchestrator returns a pipeline over the app's protocol server.
func (a *App) Orchestrator(routePlan bool, obs pipeline.Observer) (*pipeline.Orchestrator, error) {
	opts := []pipeline.Option{
		pipeline.WithRoutePlan(routePlan),
		pipeline.WithLogger(a.Logger),
	}
	if obs != nil {
		opts = append(opts, pipeline.WithObserver(obs))
	}
	return pipeline.New(a.Protocol, opts...)
}

// Close releases the usage store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	if err != nil {
		return fmt.Errorf("failed to close usage store: %w", err)
	}
	return nil
}
