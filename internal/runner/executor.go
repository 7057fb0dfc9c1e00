// Package runner provides the execution logic for generation runs.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/input"
	"github.com/tuannvm/engai/internal/pipeline"
	"github.com/tuannvm/engai/internal/project"
)

// Logger provides logging methods for the executor
type Logger interface {
	Info(format string, args ...interface{})
	Verbose(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Outcome is what a run produced.
type Outcome struct {
	Result *pipeline.Result
	Files  *project.Files
	// Calls and Tokens are the usage added by this run.
	Calls  int64
	Tokens int64
}

// Execute runs the pipeline with the given options.
// This is the shared execution path for both CLI and TUI.
func Execute(ctx context.Context, opts config.RunOptions, logger Logger, appOpts ...AppOption) (*Outcome, error) {
	// Load config
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	applyOptions(cfg, opts)

	if err := ResolveInput(&opts); err != nil {
		return nil, err
	}

	app, err := NewApp(ctx, cfg, appOpts...)
	if err != nil {
		return nil, err
	}
	defer app.Close()

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("\nReceived interrupt, cancelling generation...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return Run(ctx, app, opts, logger)
}

// applyOptions applies RunOptions to the config
func applyOptions(cfg *config.Config, opts config.RunOptions) {
	// Override output directory if specified
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.Model != "" {
		cfg.LLM.Model = opts.Model
	}
	if opts.RoutePlan {
		cfg.Pipeline.RoutePlan = true
	}
}

// ResolveInput fills Description and Requirements from InputPath when no
// description was given directly.
func ResolveInput(opts *config.RunOptions) error {
	if strings.TrimSpace(opts.Description) != "" {
		return nil
	}
	if opts.InputPath == "" {
		return fmt.Errorf("a description or an input path is required")
	}

	src, err := input.Discover(opts.InputPath)
	if err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	text, err := src.Read()
	if err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	opts.Description = text.Description
	if opts.Requirements == "" {
		opts.Requirements = text.Requirements
	}
	return nil
}

// Run executes one generation on an existing app and writes the project
// when the run completes and SaveFiles is set.
func Run(ctx context.Context, app *App, opts config.RunOptions, logger Logger) (*Outcome, error) {
	routePlan := opts.RoutePlan || app.Config.Pipeline.RoutePlan
	orch, err := app.Orchestrator(routePlan, &progress{logger: logger})
	if err != nil {
		return nil, err
	}

	logStartup(logger, app, opts, orch.Stages())

	before := app.Tracker.Snapshot()
	res, runErr := orch.Run(ctx, pipeline.Request{
		Description:  opts.Description,
		Requirements: opts.Requirements,
	})
	if res == nil {
		return nil, runErr
	}

	after := app.Tracker.Snapshot()
	out := &Outcome{
		Result: res,
		Calls:  after.TotalAPICalls - before.TotalAPICalls,
		Tokens: after.TotalTokens - before.TotalTokens,
	}

	if runErr == nil && opts.SaveFiles {
		files, err := app.Writer.Write(project.FromResult(res), project.Meta{
			ProjectName:  opts.ProjectName,
			Description:  opts.Description,
			Requirements: opts.Requirements,
		})
		if err != nil {
			// The generated text is still returned to the caller.
			logger.Error("failed to save project: %v", err)
		} else {
			out.Files = files
		}
	}

	printSummary(out, orch.Stages(), logger)
	return out, runErr
}

func logStartup(logger Logger, app *App, opts config.RunOptions, stages []pipeline.Stage) {
	logger.Info("Starting EngAi")
	if opts.InputPath != "" {
		logger.Info("Input: %s", opts.InputPath)
	}
	logger.Verbose("Description: %s", truncate(opts.Description, 120))

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	logger.Info("Stages: %s", strings.Join(names, " → "))
	if opts.SaveFiles {
		logger.Info("Output: %s", app.Writer.BaseDir())
	}
	logger.Info("")
}

// progress reports stage transitions through a Logger.
type progress struct {
	logger Logger
}

var _ pipeline.Observer = (*progress)(nil)

func (p *progress) StageStarted(runID string, stage pipeline.Stage) {
	p.logger.Verbose("Running %s stage (%s)", stage.Name, stage.Tool)
}

func (p *progress) StageCompleted(runID string, stage pipeline.Stage, elapsed time.Duration) {
	p.logger.Info("✓ %s: completed (%s)", stage.Name, elapsed.Round(time.Millisecond))
}

func (p *progress) StageFailed(runID string, stage pipeline.Stage, err error) {
	detail := err.Error()
	if se, ok := err.(*pipeline.StageError); ok {
		detail = se.Detail()
	}
	p.logger.Info("✗ %s: failed (%s)", stage.Name, detail)
}

func printSummary(out *Outcome, stages []pipeline.Stage, logger Logger) {
	logger.Info("")
	logger.Info("=== Summary ===")

	res := out.Result
	succeeded := 0
	for _, s := range stages {
		if res.Get(s.Output) != "" {
			succeeded++
		}
	}
	logger.Info("%d/%d stages succeeded", succeeded, len(stages))
	logger.Info("LLM calls: %d, tokens: %d", out.Calls, out.Tokens)

	if !res.Success {
		logger.Info("Partial results kept.")
		return
	}
	if out.Files != nil {
		logger.Info("Project: %s", out.Files.ProjectPath)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
