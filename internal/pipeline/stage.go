// Package pipeline drives the fixed sequence of generation stages. Each
// stage calls one agent tool through the in-process protocol and passes its
// output forward to the stages after it.
package pipeline

import (
	"fmt"

	"github.com/tuannvm/engai/internal/agent"
)

// State is the position of a run in the pipeline.
type State string

// Pipeline states
const (
	StateIdle         State = "idle"
	StateArchitecture State = "architecture"
	StateSchema       State = "schema"
	StateRoutePlan    State = "route_plan"
	StateBackend      State = "backend"
	StateFrontend     State = "frontend"
	StateTests        State = "tests"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Stage is one step of the pipeline.
type Stage struct {
	// Name identifies the stage in messages, e.g. "backend".
	Name  string
	State State
	// Tool is the protocol method the stage calls.
	Tool string
	// Output is the result field the stage fills.
	Output string
	// Inputs are the fields the stage's tool reads. Each one is either a
	// request field or the output of an earlier stage.
	Inputs []string
}

// Built-in stages
var (
	Architecture = Stage{
		Name:   "architecture",
		State:  StateArchitecture,
		Tool:   agent.ToolCreateArchitecture,
		Output: agent.KeyArchitecture,
		Inputs: []string{agent.KeyDescription, agent.KeyRequirements},
	}
	Schema = Stage{
		Name:   "schema",
		State:  StateSchema,
		Tool:   agent.ToolDesignSchema,
		Output: agent.KeyDatabaseSchema,
		Inputs: []string{agent.KeyArchitecture},
	}
	RoutePlanning = Stage{
		Name:   "route_plan",
		State:  StateRoutePlan,
		Tool:   agent.ToolPlanAPIRoutes,
		Output: agent.KeyAPIRoutePlan,
		Inputs: []string{agent.KeyArchitecture},
	}
	Backend = Stage{
		Name:   "backend",
		State:  StateBackend,
		Tool:   agent.ToolGenerateCode,
		Output: agent.KeyCode,
		Inputs: []string{agent.KeyArchitecture, agent.KeyDatabaseSchema, agent.KeyRequirements},
	}
	Frontend = Stage{
		Name:   "frontend",
		State:  StateFrontend,
		Tool:   agent.ToolGenerateFrontend,
		Output: agent.KeyFrontendCode,
		Inputs: []string{agent.KeyDescription, agent.KeyArchitecture},
	}
	Tests = Stage{
		Name:   "tests",
		State:  StateTests,
		Tool:   agent.ToolGenerateTests,
		Output: agent.KeyTests,
		Inputs: []string{agent.KeyCode},
	}
)

// DefaultStages returns the five standard stages in order.
func DefaultStages() []Stage {
	return []Stage{Architecture, Schema, Backend, Frontend, Tests}
}

// Stages returns the stage list, with the route planner between Schema and
// Backend when routePlan is set. Backend and Frontend then also read the
// route plan.
func Stages(routePlan bool) []Stage {
	if !routePlan {
		return DefaultStages()
	}
	backend := Backend
	backend.Inputs = append(append([]string{}, Backend.Inputs...), agent.KeyAPIRoutePlan)
	frontend := Frontend
	frontend.Inputs = append(append([]string{}, Frontend.Inputs...), agent.KeyAPIRoutePlan)
	return []Stage{Architecture, Schema, RoutePlanning, backend, frontend, Tests}
}

// ValidateStages checks that every stage reads only request fields and
// outputs of earlier stages, and that no output is produced twice.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("pipeline has no stages")
	}
	available := map[string]bool{
		agent.KeyDescription:  true,
		agent.KeyRequirements: true,
	}
	for i, s := range stages {
		if s.Tool == "" || s.Output == "" {
			return fmt.Errorf("stage %d (%s): tool and output are required", i, s.Name)
		}
		for _, in := range s.Inputs {
			if !available[in] {
				return fmt.Errorf("stage %s reads %q before it is produced", s.Name, in)
			}
		}
		if available[s.Output] {
			return fmt.Errorf("stage %s output %q is already produced", s.Name, s.Output)
		}
		available[s.Output] = true
	}
	return nil
}
