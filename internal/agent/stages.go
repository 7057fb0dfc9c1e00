package agent

import (
	"github.com/tuannvm/engai/internal/protocol"
)

// NewArchitect creates the agent that drafts the system architecture.
func NewArchitect(cfg Config) *StageAgent {
	return newStageAgent(Architect, cfg, toolSpec{
		name:        ToolCreateArchitecture,
		description: "Create a high-level software architecture from an application description",
		required:    []string{KeyDescription},
		output:      KeyArchitecture,
	})
}

// NewDatabase creates the agent that designs the SQL schema.
func NewDatabase(cfg Config) *StageAgent {
	return newStageAgent(Database, cfg, toolSpec{
		name:        ToolDesignSchema,
		description: "Design a SQLite schema for an architecture",
		required:    []string{KeyArchitecture},
		output:      KeyDatabaseSchema,
	})
}

// NewRoutePlanner creates the agent that plans the JSON API routes.
func NewRoutePlanner(cfg Config) *StageAgent {
	return newStageAgent(RoutePlanner, cfg, toolSpec{
		name:        ToolPlanAPIRoutes,
		description: "Plan the REST API routes of an architecture as JSON",
		required:    []string{KeyArchitecture},
		output:      KeyAPIRoutePlan,
	})
}

// NewCodeGenerator creates the agent that writes the backend.
func NewCodeGenerator(cfg Config) *StageAgent {
	return newStageAgent(CodeGenerator, cfg, toolSpec{
		name:        ToolGenerateCode,
		description: "Generate the FastAPI backend from the architecture and schema",
		required:    []string{KeyArchitecture, KeyDatabaseSchema},
		output:      KeyCode,
	})
}

// NewFrontendGenerator creates the agent that writes the React frontend.
func NewFrontendGenerator(cfg Config) *StageAgent {
	return newStageAgent(FrontendGenerator, cfg, toolSpec{
		name:        ToolGenerateFrontend,
		description: "Generate a React frontend for the application",
		required:    []string{KeyDescription, KeyArchitecture},
		output:      KeyFrontendCode,
	})
}

// NewTestGenerator creates the agent that writes pytest tests for the backend.
func NewTestGenerator(cfg Config) *StageAgent {
	return newStageAgent(TestGenerator, cfg, toolSpec{
		name:        ToolGenerateTests,
		description: "Generate pytest tests for the backend code",
		required:    []string{KeyCode},
		output:      KeyTests,
	})
}

// Defaults returns every stage agent in pipeline order.
func Defaults(cfg Config) []*StageAgent {
	return []*StageAgent{
		NewArchitect(cfg),
		NewDatabase(cfg),
		NewRoutePlanner(cfg),
		NewCodeGenerator(cfg),
		NewFrontendGenerator(cfg),
		NewTestGenerator(cfg),
	}
}

// RegisterAll registers the tools of every agent with server.
func RegisterAll[A Agent](server *protocol.Server, agents ...A) {
	for _, a := range agents {
		for _, t := range a.Tools() {
			server.Register(t)
		}
	}
}

// Info describes an agent for listings.
type Info struct {
	Name     string   `json:"name"`
	Tool     string   `json:"tool"`
	Required []string `json:"required"`
	Output   string   `json:"output"`
	Calls    int64    `json:"calls"`
}

// Describe returns listing info for agents.
func Describe(agents []*StageAgent) []Info {
	out := make([]Info, len(agents))
	for i, a := range agents {
		out[i] = Info{
			Name:     a.Name(),
			Tool:     a.Tool(),
			Required: a.Required(),
			Output:   a.Output(),
			Calls:    a.Calls(),
		}
	}
	return out
}
