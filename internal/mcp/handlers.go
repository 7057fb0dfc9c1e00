package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/pipeline"
	"github.com/tuannvm/engai/internal/protocol"
	"github.com/tuannvm/engai/internal/runner"
	"github.com/tuannvm/engai/internal/usage"
)

// Service is what the tools need from the application. *runner.Service
// implements it.
type Service interface {
	Generate(ctx context.Context, req runner.GenerateRequest) (*runner.Generation, error)
	RunStage(ctx context.Context, tool string, params protocol.Params) (string, error)
	Usage() usage.Snapshot
	Agents() []agent.Info
	Stages() []pipeline.Stage
}

var _ Service = (*runner.Service)(nil)

// Handlers provides the business logic for MCP tool handlers.
// It can be used standalone or injected into the MCP server.
type Handlers struct {
	svc Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// GenerateSoftware runs the full pipeline. A stage failure is reported in
// the output; only an invalid request is an error.
func (h *Handlers) GenerateSoftware(ctx context.Context, input GenerateSoftwareInput) (GenerateSoftwareOutput, error) {
	if strings.TrimSpace(input.Description) == "" {
		return GenerateSoftwareOutput{}, fmt.Errorf("description is required")
	}

	save := true
	if input.SaveFiles != nil {
		save = *input.SaveFiles
	}

	gen, err := h.svc.Generate(ctx, runner.GenerateRequest{
		Description:  input.Description,
		Requirements: input.Requirements,
		ProjectName:  input.ProjectName,
		SaveFiles:    save,
	})
	if err != nil {
		return GenerateSoftwareOutput{}, err
	}

	res := gen.Result
	out := GenerateSoftwareOutput{
		Architecture:   res.Architecture,
		DatabaseSchema: res.DatabaseSchema,
		APIRoutePlan:   res.APIRoutePlan,
		Code:           res.Code,
		FrontendCode:   res.FrontendCode,
		Tests:          res.Tests,
		Success:        res.Success,
		Message:        res.Message,
		FailedStage:    res.FailedStage,
		Files:          gen.Files,
	}
	var stageErr *pipeline.StageError
	if errors.As(gen.Err, &stageErr) {
		out.Message = stageErr.Error()
	}
	return out, nil
}

// GetUsage returns the usage snapshot, optionally narrowed to one agent.
func (h *Handlers) GetUsage(_ context.Context, input GetUsageInput) (GetUsageOutput, error) {
	snap := h.svc.Usage()
	if input.AgentName == "" {
		return snap, nil
	}

	for _, rec := range snap.Agents {
		if rec.AgentName == input.AgentName {
			return usage.Snapshot{
				TotalAPICalls:     rec.APICalls,
				TotalInputTokens:  rec.InputTokens,
				TotalOutputTokens: rec.OutputTokens,
				TotalTokens:       rec.TotalTokens,
				Agents:            []usage.Record{rec},
			}, nil
		}
	}
	return usage.Snapshot{Agents: []usage.Record{}}, nil
}

// ListAgents returns all agents and the stage order.
func (h *Handlers) ListAgents(_ context.Context, _ ListAgentsInput) ListAgentsOutput {
	agents := h.svc.Agents()
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	stages := h.svc.Stages()
	out := ListAgentsOutput{Agents: agents, Stages: make([]StageInfo, len(stages))}
	for i, s := range stages {
		out.Stages[i] = StageInfo{Name: s.Name, Tool: s.Tool, Output: s.Output, Inputs: s.Inputs}
	}
	return out
}

// RunStage calls one stage tool with explicit params.
func (h *Handlers) RunStage(ctx context.Context, input RunStageInput) RunStageOutput {
	if input.Tool == "" {
		return RunStageOutput{Success: false, Error: "tool is required"}
	}

	keys := make([]string, 0, len(input.Params))
	for k := range input.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make(protocol.Params, 0, len(keys))
	for _, k := range keys {
		params = params.With(k, input.Params[k])
	}

	text, err := h.svc.RunStage(ctx, input.Tool, params)
	if err != nil {
		return RunStageOutput{Tool: input.Tool, Success: false, Error: err.Error()}
	}
	return RunStageOutput{Tool: input.Tool, Output: text, Success: true}
}
