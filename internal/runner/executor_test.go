package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/config"
	"github.com/tuannvm/engai/internal/llm"
	"github.com/tuannvm/engai/internal/mock"
	"github.com/tuannvm/engai/internal/pipeline"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Info(format string, args ...interface{}) {
	l.add(format, args...)
}

func (l *captureLogger) Verbose(format string, args ...interface{}) {
	l.add("[DEBUG] "+format, args...)
}

func (l *captureLogger) Error(format string, args ...interface{}) {
	l.add("Error: "+format, args...)
}

func (l *captureLogger) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *captureLogger) output() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Usage.DBPath = ""
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, gen llm.Generator) *App {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, WithGenerator(gen))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewAppRegistersAgents(t *testing.T) {
	app := newTestApp(t, testConfig(t), mock.EchoGenerator())

	assert.Len(t, app.Agents, 6)
	assert.Equal(t, 6, app.Protocol.Registry().Len())
	_, ok := app.Protocol.Registry().Lookup(agent.ToolCreateArchitecture)
	assert.True(t, ok)
}

func TestNewAppRequiresAPIKeyWithoutGenerator(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKey = ""

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
}

func TestRunWritesProject(t *testing.T) {
	cfg := testConfig(t)
	gen := mock.EchoGenerator()
	app := newTestApp(t, cfg, gen)
	logger := &captureLogger{}

	out, err := Run(context.Background(), app, config.RunOptions{
		Description: "A todo list app with user authentication",
		ProjectName: "todo app",
		SaveFiles:   true,
	}, logger)
	require.NoError(t, err)

	assert.True(t, out.Result.Success)
	assert.Equal(t, int64(5), out.Calls)
	assert.Positive(t, out.Tokens)
	assert.Equal(t, []string{
		agent.Architect, agent.Database, agent.CodeGenerator,
		agent.FrontendGenerator, agent.TestGenerator,
	}, gen.Agents())

	require.NotNil(t, out.Files)
	assert.True(t, strings.HasPrefix(filepath.Base(out.Files.ProjectPath), "todo-app_"))
	_, err = os.Stat(out.Files.Architecture)
	assert.NoError(t, err)

	text := logger.output()
	assert.Contains(t, text, "✓ architecture: completed")
	assert.Contains(t, text, "5/5 stages succeeded")
	assert.Contains(t, text, "LLM calls: 5")
}

func TestRunWithoutSaveWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg, mock.EchoGenerator())

	out, err := Run(context.Background(), app, config.RunOptions{Description: "notes app"}, &captureLogger{})
	require.NoError(t, err)
	assert.Nil(t, out.Files)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunStageFailureKeepsPartialResult(t *testing.T) {
	cfg := testConfig(t)
	echo := mock.EchoGenerator()
	gen := &mock.Generator{
		GenerateFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			if req.Agent == agent.CodeGenerator {
				return nil, errors.New("quota exceeded")
			}
			return echo.GenerateFn(ctx, req)
		},
	}
	app := newTestApp(t, cfg, gen)
	logger := &captureLogger{}

	out, err := Run(context.Background(), app, config.RunOptions{
		Description: "todo app",
		SaveFiles:   true,
	}, logger)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.Backend.Name, stageErr.Stage)

	require.NotNil(t, out)
	assert.False(t, out.Result.Success)
	assert.NotEmpty(t, out.Result.Architecture)
	assert.NotEmpty(t, out.Result.DatabaseSchema)
	assert.Empty(t, out.Result.Code)
	assert.Nil(t, out.Files)
	assert.Equal(t, int64(2), out.Calls)

	text := logger.output()
	assert.Contains(t, text, "✗ backend: failed")
	assert.Contains(t, text, "2/5 stages succeeded")
}

func TestRunValidation(t *testing.T) {
	app := newTestApp(t, testConfig(t), mock.EchoGenerator())

	out, err := Run(context.Background(), app, config.RunOptions{Description: "  "}, &captureLogger{})
	assert.Nil(t, out)
	assert.True(t, pipeline.IsValidation(err))
}

func TestRunRoutePlan(t *testing.T) {
	gen := mock.EchoGenerator()
	app := newTestApp(t, testConfig(t), gen)

	out, err := Run(context.Background(), app, config.RunOptions{
		Description: "todo app",
		RoutePlan:   true,
	}, &captureLogger{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), out.Calls)
	assert.Contains(t, gen.Agents(), agent.RoutePlanner)
}

func TestUsagePersistsAcrossApps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Usage.DBPath = filepath.Join(t.TempDir(), "usage.db")

	first, err := NewApp(context.Background(), cfg, WithGenerator(mock.EchoGenerator()))
	require.NoError(t, err)
	_, err = Run(context.Background(), first, config.RunOptions{Description: "todo app"}, &captureLogger{})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestApp(t, cfg, mock.EchoGenerator())
	snap := second.Tracker.Snapshot()
	assert.Equal(t, int64(5), snap.TotalAPICalls)
}

func TestResolveInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "description.md"), []byte("a todo app"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.md"), []byte("tags"), 0644))

	opts := config.RunOptions{InputPath: dir}
	require.NoError(t, ResolveInput(&opts))
	assert.Equal(t, "a todo app", opts.Description)
	assert.Equal(t, "tags", opts.Requirements)

	opts = config.RunOptions{Description: "given", InputPath: dir}
	require.NoError(t, ResolveInput(&opts))
	assert.Equal(t, "given", opts.Description)

	assert.Error(t, ResolveInput(&config.RunOptions{}))
}

func TestApplyOptions(t *testing.T) {
	cfg := config.Default()
	applyOptions(cfg, config.RunOptions{OutputDir: "/tmp/out", Model: "gemini-1.5-pro", RoutePlan: true})

	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Model)
	assert.True(t, cfg.Pipeline.RoutePlan)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate(" a\n b ", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
