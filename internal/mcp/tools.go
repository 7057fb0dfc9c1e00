package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/tuannvm/engai/internal/mcp")

// toolSpec is the static description of one tool.
type toolSpec struct {
	name        string
	title       string
	description string
	// readOnly tools only report state; the others call the LLM.
	readOnly bool
}

var (
	generateSoftwareSpec = toolSpec{
		name:        "generate_software",
		title:       "Generate Software",
		description: "Generate a software project from a description. Runs architecture, database schema, backend code, frontend and tests in order, and saves the project unless save_files is false.",
	}
	getUsageSpec = toolSpec{
		name:        "get_usage",
		title:       "Get Usage",
		description: "Get LLM call and token usage, in total and per agent.",
		readOnly:    true,
	}
	listAgentsSpec = toolSpec{
		name:        "list_agents",
		title:       "List Agents",
		description: "List the engai agents with their tools, required inputs and the pipeline stage order.",
		readOnly:    true,
	}
	runStageSpec = toolSpec{
		name:        "run_stage",
		title:       "Run Stage",
		description: "Run a single stage tool (e.g. design_schema) with explicit inputs, without running the rest of the pipeline.",
	}
)

var toolSpecs = []toolSpec{generateSoftwareSpec, getUsageSpec, listAgentsSpec, runStageSpec}

// ToolNames returns the names of the registered tools in registration order.
func ToolNames() []string {
	names := make([]string, len(toolSpecs))
	for i, spec := range toolSpecs {
		names[i] = spec.name
	}
	return names
}

func (s toolSpec) tool() *mcp.Tool {
	openWorld := !s.readOnly
	ann := &mcp.ToolAnnotations{
		Title:          s.title,
		ReadOnlyHint:   s.readOnly,
		IdempotentHint: s.readOnly,
		OpenWorldHint:  &openWorld,
	}
	if !s.readOnly {
		destructive := false
		ann.DestructiveHint = &destructive
	}
	return &mcp.Tool{Name: s.name, Description: s.description, Annotations: ann}
}

// addTool registers fn under spec, with a span and a log line per call.
func addTool[In, Out any](server *mcp.Server, logger *slog.Logger, spec toolSpec, fn func(context.Context, In) (Out, error)) {
	mcp.AddTool(server, spec.tool(), func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx, span := tracer.Start(ctx, "mcp.tool "+spec.name)
		defer span.End()
		span.SetAttributes(attribute.String("mcp.tool", spec.name))

		start := time.Now()
		out, err := fn(ctx, in)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WarnContext(ctx, "mcp tool failed", "tool", spec.name, "error", err, "duration", time.Since(start))
			return nil, out, err
		}
		logger.InfoContext(ctx, "mcp tool", "tool", spec.name, "duration", time.Since(start))
		return nil, out, nil
	})
}

// registerTools registers all engai tools with the MCP server.
func registerTools(server *mcp.Server, h *Handlers, logger *slog.Logger) {
	addTool(server, logger, generateSoftwareSpec, h.GenerateSoftware)
	addTool(server, logger, getUsageSpec, h.GetUsage)
	addTool(server, logger, listAgentsSpec, func(ctx context.Context, in ListAgentsInput) (ListAgentsOutput, error) {
		return h.ListAgents(ctx, in), nil
	})
	addTool(server, logger, runStageSpec, func(ctx context.Context, in RunStageInput) (RunStageOutput, error) {
		return h.RunStage(ctx, in), nil
	})
}
