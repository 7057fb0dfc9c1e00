// Package mcp exposes the engai generation pipeline as MCP tools.
package mcp

import (
	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/project"
	"github.com/tuannvm/engai/internal/usage"
)

// GenerateSoftwareInput defines parameters for a full generation.
type GenerateSoftwareInput struct {
	Description  string `json:"description" jsonschema:"Description of the application to generate"`
	Requirements string `json:"requirements,omitempty" jsonschema:"Additional requirements or constraints"`
	ProjectName  string `json:"project_name,omitempty" jsonschema:"Name of the generated project folder (default: project)"`
	SaveFiles    *bool  `json:"save_files,omitempty" jsonschema:"Write the project to the output directory (default: true)"`
}

// GenerateSoftwareOutput contains the stage outputs of a generation.
type GenerateSoftwareOutput struct {
	Architecture   string         `json:"architecture"`
	DatabaseSchema string         `json:"database_schema"`
	APIRoutePlan   string         `json:"api_route_plan,omitempty"`
	Code           string         `json:"code"`
	FrontendCode   string         `json:"frontend_code"`
	Tests          string         `json:"tests"`
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	FailedStage    string         `json:"failed_stage,omitempty"`
	Files          *project.Files `json:"files,omitempty"`
}

// GetUsageInput defines parameters for reading usage.
type GetUsageInput struct {
	AgentName string `json:"agent_name,omitempty" jsonschema:"Only report this agent (empty for all agents)"`
}

// GetUsageOutput is the usage snapshot.
type GetUsageOutput = usage.Snapshot

// ListAgentsInput defines parameters for listing agents.
type ListAgentsInput struct{}

// StageInfo describes one pipeline stage.
type StageInfo struct {
	Name   string   `json:"name"`
	Tool   string   `json:"tool"`
	Output string   `json:"output"`
	Inputs []string `json:"inputs"`
}

// ListAgentsOutput contains available agents and the stage order.
type ListAgentsOutput struct {
	Agents []agent.Info `json:"agents"`
	Stages []StageInfo  `json:"stages"`
}

// RunStageInput defines parameters for running a single stage tool.
type RunStageInput struct {
	Tool   string            `json:"tool" jsonschema:"Stage tool to call (create_architecture/design_schema/plan_api_routes/generate_code/generate_frontend/generate_tests)"`
	Params map[string]string `json:"params,omitempty" jsonschema:"Tool parameters such as description, architecture, database_schema"`
}

// RunStageOutput contains the text produced by the stage.
type RunStageOutput struct {
	Tool    string `json:"tool"`
	Output  string `json:"output"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
