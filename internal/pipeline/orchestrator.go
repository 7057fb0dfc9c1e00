package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/protocol"
)

var tracer = otel.Tracer("engai/pipeline")

// Notification methods emitted during a run.
const (
	MethodStageStarted   = "pipeline/stage_started"
	MethodStageCompleted = "pipeline/stage_completed"
	MethodStageFailed    = "pipeline/stage_failed"
	MethodCompleted      = "pipeline/completed"
)

// SuccessMessage is the message of a completed run.
const SuccessMessage = "Software generated successfully"

// Runner runs the pipeline. This abstraction lets the HTTP and MCP
// surfaces be tested without agents.
type Runner interface {
	// Run executes every stage in order. A validation failure returns a nil
	// result; a stage failure returns the partial result and a *StageError.
	Run(ctx context.Context, req Request) (*Result, error)

	// Stages returns the stages in execution order.
	Stages() []Stage
}

// Verify Orchestrator implements Runner at compile time
var _ Runner = (*Orchestrator)(nil)

// Observer is told about stage progress. Calls happen on the run's
// goroutine.
type Observer interface {
	StageStarted(runID string, stage Stage)
	StageCompleted(runID string, stage Stage, elapsed time.Duration)
	StageFailed(runID string, stage Stage, err error)
}

// Orchestrator runs the stage sequence against a protocol server.
type Orchestrator struct {
	client   *protocol.Client
	stages   []Stage
	observer Observer
	logger   *slog.Logger

	stageDuration otelmetric.Float64Histogram
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRoutePlan enables the route planner stage.
func WithRoutePlan(enabled bool) Option {
	return func(o *Orchestrator) { o.stages = Stages(enabled) }
}

// WithStages replaces the stage list.
func WithStages(stages ...Stage) Option {
	return func(o *Orchestrator) { o.stages = stages }
}

// WithObserver sets the progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator that dispatches through server.
func New(server protocol.Dispatcher, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		client: protocol.NewClient(server),
		stages: DefaultStages(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := ValidateStages(o.stages); err != nil {
		return nil, err
	}

	meter := otel.GetMeterProvider().Meter("engai/pipeline")
	o.stageDuration, _ = meter.Float64Histogram("engai.pipeline.stage.duration",
		otelmetric.WithDescription("Duration of a pipeline stage"),
		otelmetric.WithUnit("s"),
	)
	return o, nil
}

// Stages returns a copy of the stage list.
func (o *Orchestrator) Stages() []Stage {
	out := make([]Stage, len(o.stages))
	copy(out, o.stages)
	return out
}

// Run executes the stages in order. Stage k+1 starts only after stage k
// succeeded and sees the request plus every earlier output. The first
// failing stage ends the run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}

	res := &Result{RunID: uuid.NewString(), State: StateIdle}
	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("pipeline.run_id", res.RunID)),
	)
	defer span.End()

	start := time.Now()
	o.logger.InfoContext(ctx, "pipeline started", "run_id", res.RunID, "stages", len(o.stages))

	for _, stage := range o.stages {
		res.State = stage.State
		if err := o.runStage(ctx, req, res, stage); err != nil {
			res.State = StateFailed
			res.FailedStage = stage.Name
			res.Message = err.Error()

			span.SetStatus(codes.Error, res.Message)
			o.logger.WarnContext(ctx, "pipeline failed",
				"run_id", res.RunID,
				"stage", stage.Name,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			o.notify(ctx, MethodCompleted, protocol.NewParams(
				"run_id", res.RunID, "success", false, "message", res.Message,
			))
			return res, err
		}
	}

	res.State = StateCompleted
	res.Success = true
	res.Message = SuccessMessage

	o.logger.InfoContext(ctx, "pipeline completed",
		"run_id", res.RunID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	o.notify(ctx, MethodCompleted, protocol.NewParams(
		"run_id", res.RunID, "success", true, "message", res.Message,
	))
	return res, nil
}

func (o *Orchestrator) runStage(ctx context.Context, req Request, res *Result, stage Stage) error {
	ctx, span := tracer.Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("pipeline.stage", stage.Name),
			attribute.String("pipeline.tool", stage.Tool),
		),
	)
	defer span.End()

	params := protocol.NewParams(
		agent.KeyDescription, req.Description,
		agent.KeyRequirements, req.Requirements,
	)
	params = append(params, res.Outputs(o.stages)...)

	o.notify(ctx, MethodStageStarted, protocol.NewParams("run_id", res.RunID, "stage", stage.Name))
	if o.observer != nil {
		o.observer.StageStarted(res.RunID, stage)
	}

	start := time.Now()
	text, err := o.client.CallText(ctx, stage.Tool, params, stage.Output)
	elapsed := time.Since(start)
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, elapsed.Seconds(), otelmetric.WithAttributes(
			attribute.String("stage", stage.Name),
			attribute.Bool("success", err == nil),
		))
	}

	if err == nil && strings.TrimSpace(text) == "" {
		err = &protocol.CallError{Kind: protocol.ToolExecutionFailed, Detail: "empty output", Method: stage.Tool}
	}
	if err != nil {
		stageErr := &StageError{Stage: stage.Name, Err: err}
		if kind, ok := protocol.KindOf(err); ok {
			stageErr.Kind = kind
		}
		span.SetStatus(codes.Error, stageErr.Detail())
		o.notify(ctx, MethodStageFailed, protocol.NewParams(
			"run_id", res.RunID, "stage", stage.Name, "error", stageErr.Detail(),
		))
		if o.observer != nil {
			o.observer.StageFailed(res.RunID, stage, stageErr)
		}
		return stageErr
	}

	res.Set(stage.Output, text)
	if stage.Output == agent.KeyAPIRoutePlan {
		plan, perr := ParseRoutePlan(text)
		if perr != nil {
			o.logger.DebugContext(ctx, "route plan kept as text", "run_id", res.RunID, "error", perr)
		}
		res.RoutePlan = plan
	}

	o.notify(ctx, MethodStageCompleted, protocol.NewParams(
		"run_id", res.RunID, "stage", stage.Name, "duration_ms", elapsed.Milliseconds(),
	))
	if o.observer != nil {
		o.observer.StageCompleted(res.RunID, stage, elapsed)
	}
	o.logger.DebugContext(ctx, "stage completed", "run_id", res.RunID, "stage", stage.Name, "duration_ms", elapsed.Milliseconds())
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, method string, params protocol.Params) {
	if err := o.client.Notify(ctx, method, params); err != nil {
		o.logger.DebugContext(ctx, "notification dropped", "method", method, "error", err)
	}
}

// IsValidation reports whether err rejected the request before any stage ran.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
