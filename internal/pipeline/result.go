package pipeline

import (
	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/protocol"
)

// Request is the input of one pipeline run.
type Request struct {
	Description  string
	Requirements string
}

// Result is the aggregate of a run. Fields of stages that did not complete
// are empty.
type Result struct {
	RunID          string `json:"run_id"`
	Architecture   string `json:"architecture"`
	DatabaseSchema string `json:"database_schema"`
	APIRoutePlan   string `json:"api_route_plan,omitempty"`
	Code           string `json:"code"`
	FrontendCode   string `json:"frontend_code"`
	Tests          string `json:"tests"`

	// RoutePlan is the parsed route plan, when the stage ran and produced
	// valid JSON.
	RoutePlan *RoutePlan `json:"-"`

	State       State  `json:"state"`
	FailedStage string `json:"failed_stage,omitempty"`
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
}

// Get returns the output stored under key.
func (r *Result) Get(key string) string {
	if p := r.field(key); p != nil {
		return *p
	}
	return ""
}

// Set stores an output under key. Unknown keys are ignored.
func (r *Result) Set(key, value string) {
	if p := r.field(key); p != nil {
		*p = value
	}
}

func (r *Result) field(key string) *string {
	switch key {
	case agent.KeyArchitecture:
		return &r.Architecture
	case agent.KeyDatabaseSchema:
		return &r.DatabaseSchema
	case agent.KeyAPIRoutePlan:
		return &r.APIRoutePlan
	case agent.KeyCode:
		return &r.Code
	case agent.KeyFrontendCode:
		return &r.FrontendCode
	case agent.KeyTests:
		return &r.Tests
	}
	return nil
}

// Outputs returns the produced outputs in stage order.
func (r *Result) Outputs(stages []Stage) protocol.Params {
	var p protocol.Params
	for _, s := range stages {
		if v := r.Get(s.Output); v != "" {
			p = p.With(s.Output, v)
		}
	}
	return p
}
