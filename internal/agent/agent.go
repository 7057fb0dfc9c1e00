// Package agent provides the stage agents of the generation pipeline.
// Each agent exposes its capabilities as protocol tools and delegates the
// actual text generation to an llm.Generator.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/tuannvm/engai/internal/llm"
	"github.com/tuannvm/engai/internal/prompt"
	"github.com/tuannvm/engai/internal/protocol"
	"github.com/tuannvm/engai/internal/usage"
)

// Agent is a named owner of protocol tools.
type Agent interface {
	// Name returns the agent name used for usage accounting.
	Name() string

	// Tools returns the tools the agent registers.
	Tools() []protocol.Tool

	// Calls returns the number of LLM calls the agent has made.
	Calls() int64
}

// Interface compliance checks.
var (
	_ Agent = (*StageAgent)(nil)
)

// Agent names
const (
	Architect         = "architect"
	Database          = "database"
	RoutePlanner      = "api_route_planner"
	CodeGenerator     = "code_generator"
	FrontendGenerator = "frontend_generator"
	TestGenerator     = "test_generator"
)

// Tool names
const (
	ToolCreateArchitecture = "create_architecture"
	ToolDesignSchema       = "design_schema"
	ToolPlanAPIRoutes      = "plan_api_routes"
	ToolGenerateCode       = "generate_code"
	ToolGenerateFrontend   = "generate_frontend"
	ToolGenerateTests      = "generate_tests"
)

// Parameter and output keys shared by tools and the pipeline.
const (
	KeyDescription    = "description"
	KeyRequirements   = "requirements"
	KeyArchitecture   = "architecture"
	KeyDatabaseSchema = "database_schema"
	KeyAPIRoutePlan   = "api_route_plan"
	KeyCode           = "code"
	KeyFrontendCode   = "frontend_code"
	KeyTests          = "tests"
)

// Config holds the collaborators shared by all agents.
type Config struct {
	Generator llm.Generator
	Tracker   *usage.Tracker
	Prompts   *prompt.Loader

	// Temperature overrides the generator default when set.
	Temperature *float64
	MaxTokens   int

	Logger *slog.Logger
}

// Base implements the parts every agent shares: prompt rendering, the LLM
// call and usage accounting.
type Base struct {
	name  string
	cfg   Config
	calls atomic.Int64
}

// NewBase creates a base agent.
func NewBase(name string, cfg Config) *Base {
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.NewLoader("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Base{name: name, cfg: cfg}
}

// Name returns the agent name.
func (b *Base) Name() string {
	return b.name
}

// Calls returns the number of LLM calls attempted by the agent.
func (b *Base) Calls() int64 {
	return b.calls.Load()
}

// Generate renders the named prompt template with vars, sends it to the
// generator and records the token usage under the agent's name.
func (b *Base) Generate(ctx context.Context, template string, vars prompt.Variables) (string, error) {
	if b.cfg.Generator == nil {
		return "", fmt.Errorf("%s: no generator configured", b.name)
	}

	vars.AgentName = b.name
	text, err := b.cfg.Prompts.Prompt(template, vars)
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.name, err)
	}

	b.calls.Add(1)
	resp, err := b.cfg.Generator.Generate(ctx, llm.Request{
		Agent:       b.name,
		Prompt:      text,
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
	})
	if err != nil {
		b.cfg.Logger.WarnContext(ctx, "llm call failed", "agent", b.name, "error", err)
		return "", fmt.Errorf("%s: %w", b.name, err)
	}

	if b.cfg.Tracker != nil {
		b.cfg.Tracker.RecordContext(ctx, b.name, resp.InputTokens, resp.OutputTokens)
	}
	b.cfg.Logger.DebugContext(ctx, "llm call",
		"agent", b.name,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	return resp.Text, nil
}

// toolSpec describes the single tool of a stage agent.
type toolSpec struct {
	name        string
	description string
	required    []string
	output      string
}

// StageAgent is an agent with one generation tool.
type StageAgent struct {
	*Base
	spec toolSpec
}

func newStageAgent(name string, cfg Config, spec toolSpec) *StageAgent {
	return &StageAgent{Base: NewBase(name, cfg), spec: spec}
}

// Tool returns the agent's tool name.
func (a *StageAgent) Tool() string {
	return a.spec.name
}

// Output returns the result field the tool fills.
func (a *StageAgent) Output() string {
	return a.spec.output
}

// Required returns the parameters the tool cannot run without.
func (a *StageAgent) Required() []string {
	out := make([]string, len(a.spec.required))
	copy(out, a.spec.required)
	return out
}

// Tools returns the agent's single tool.
func (a *StageAgent) Tools() []protocol.Tool {
	return []protocol.Tool{{
		Name:        a.spec.name,
		Owner:       a.name,
		Description: a.spec.description,
		Handler:     protocol.HandlerFunc(a.handle),
	}}
}

func (a *StageAgent) handle(ctx context.Context, params protocol.Params) (any, error) {
	for _, key := range a.spec.required {
		if strings.TrimSpace(params.String(key)) == "" {
			return nil, protocol.MissingParam(key)
		}
	}

	text, err := a.Generate(ctx, a.name, variablesFrom(params))
	if err != nil {
		return nil, err
	}
	return map[string]any{a.spec.output: text}, nil
}

func variablesFrom(params protocol.Params) prompt.Variables {
	return prompt.Variables{
		Description:    params.String(KeyDescription),
		Requirements:   params.String(KeyRequirements),
		Architecture:   params.String(KeyArchitecture),
		DatabaseSchema: params.String(KeyDatabaseSchema),
		APIRoutePlan:   params.String(KeyAPIRoutePlan),
		Code:           params.String(KeyCode),
	}
}
