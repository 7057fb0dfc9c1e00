package runner

import (
	"context"
	"log/slog"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/pipeline"
	"github.com/tuannvm/engai/internal/project"
	"github.com/tuannvm/engai/internal/protocol"
	"github.com/tuannvm/engai/internal/usage"
)

// GenerateRequest is one generation as requested over HTTP or MCP.
type GenerateRequest struct {
	Description  string
	Requirements string
	ProjectName  string
	SaveFiles    bool
}

// Generation is the outcome of a request that passed validation.
// Err is the stage failure, if any; Result then holds the partial outputs.
type Generation struct {
	Result *pipeline.Result
	Files  *project.Files
	Err    error
}

// Service runs generations for the long-lived surfaces. It is safe for
// concurrent use.
type Service struct {
	pipeline pipeline.Runner
	client   *protocol.Client
	agents   []*agent.StageAgent
	tracker  *usage.Tracker
	writer   *project.Writer
	logger   *slog.Logger
}

// Service builds a Service over the app's components.
func (a *App) Service() (*Service, error) {
	orch, err := a.Orchestrator(a.Config.Pipeline.RoutePlan, nil)
	if err != nil {
		return nil, err
	}
	return &Service{
		pipeline: orch,
		client:   protocol.NewClient(a.Protocol),
		agents:   a.Agents,
		tracker:  a.Tracker,
		writer:   a.Writer,
		logger:   a.Logger,
	}, nil
}

// Generate runs the pipeline and saves the project when requested and the
// run succeeded. Only a validation failure is returned as an error.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	res, err := s.pipeline.Run(ctx, pipeline.Request{
		Description:  req.Description,
		Requirements: req.Requirements,
	})
	if res == nil {
		return nil, err
	}

	gen := &Generation{Result: res, Err: err}
	if err != nil || !req.SaveFiles {
		return gen, nil
	}

	files, werr := s.writer.Write(project.FromResult(res), project.Meta{
		ProjectName:  req.ProjectName,
		Description:  req.Description,
		Requirements: req.Requirements,
	})
	if werr != nil {
		s.logger.ErrorContext(ctx, "failed to save project", "run_id", res.RunID, "error", werr)
		return gen, nil
	}
	gen.Files = files
	return gen, nil
}

// RunStage dispatches a single stage tool with explicit params and returns
// its text output. Unknown tools fail with MethodNotFound from the protocol
// server.
func (s *Service) RunStage(ctx context.Context, tool string, params protocol.Params) (string, error) {
	field := ""
	for _, a := range s.agents {
		if a.Tool() == tool {
			field = a.Output()
			break
		}
	}
	return s.client.CallText(ctx, tool, params, field)
}

// Usage returns the current usage snapshot.
func (s *Service) Usage() usage.Snapshot {
	return s.tracker.Snapshot()
}

// Agents describes the registered agents.
func (s *Service) Agents() []agent.Info {
	return agent.Describe(s.agents)
}

// Stages returns the pipeline stages in execution order.
func (s *Service) Stages() []pipeline.Stage {
	return s.pipeline.Stages()
}
