package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/engai/internal/agent"
	"github.com/tuannvm/engai/internal/llm"
	"github.com/tuannvm/engai/internal/mock"
	"github.com/tuannvm/engai/internal/protocol"
	"github.com/tuannvm/engai/internal/usage"
)

type fixture struct {
	server  *protocol.Server
	gen     *mock.Generator
	tracker *usage.Tracker
}

func newFixture(t *testing.T, gen *mock.Generator) *fixture {
	t.Helper()
	tracker := usage.NewTracker()
	server := protocol.NewServer()
	agent.RegisterAll(server, agent.Defaults(agent.Config{Generator: gen, Tracker: tracker})...)
	return &fixture{server: server, gen: gen, tracker: tracker}
}

func (f *fixture) orchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(f.server, opts...)
	require.NoError(t, err)
	return o
}

// failingAt returns a generator that fails for one agent.
func failingAt(agentName string) *mock.Generator {
	echo := mock.EchoGenerator()
	return &mock.Generator{
		GenerateFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			if req.Agent == agentName {
				return nil, errors.New("model unavailable")
			}
			return echo.GenerateFn(ctx, req)
		},
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) StageStarted(runID string, s Stage) { r.add("start:" + s.Name) }
func (r *recordingObserver) StageCompleted(runID string, s Stage, d time.Duration) {
	r.add("done:" + s.Name)
}
func (r *recordingObserver) StageFailed(runID string, s Stage, err error) { r.add("fail:" + s.Name) }

func TestRunCompletesAllStagesInOrder(t *testing.T) {
	f := newFixture(t, mock.EchoGenerator())
	o := f.orchestrator(t)

	res, err := o.Run(context.Background(), Request{Description: "a todo list app"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, SuccessMessage, res.Message)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{
		agent.Architect,
		agent.Database,
		agent.CodeGenerator,
		agent.FrontendGenerator,
		agent.TestGenerator,
	}, f.gen.Agents())

	assert.Equal(t, "architect output", res.Architecture)
	assert.Equal(t, "database output", res.DatabaseSchema)
	assert.Equal(t, "code_generator output", res.Code)
	assert.Equal(t, "frontend_generator output", res.FrontendCode)
	assert.Equal(t, "test_generator output", res.Tests)
	assert.Empty(t, res.APIRoutePlan)

	assert.Equal(t, int64(5), f.tracker.Snapshot().TotalAPICalls)
}

func TestStagesSeeOnlyEarlierOutputs(t *testing.T) {
	server := protocol.NewServer()
	seen := make(map[string][]string)
	for _, s := range DefaultStages() {
		stage := s
		server.Register(protocol.Tool{
			Name: stage.Tool,
			Handler: protocol.HandlerFunc(func(ctx context.Context, p protocol.Params) (any, error) {
				seen[stage.Name] = p.Keys()
				return map[string]any{stage.Output: stage.Name + " text"}, nil
			}),
		})
	}

	o, err := New(server)
	require.NoError(t, err)
	_, err = o.Run(context.Background(), Request{Description: "a todo list app", Requirements: "auth"})
	require.NoError(t, err)

	base := []string{agent.KeyDescription, agent.KeyRequirements}
	assert.Equal(t, base, seen["architecture"])
	assert.Equal(t, append(base, agent.KeyArchitecture), seen["schema"])
	assert.Equal(t, append(base, agent.KeyArchitecture, agent.KeyDatabaseSchema), seen["backend"])
	assert.Equal(t, append(base, agent.KeyArchitecture, agent.KeyDatabaseSchema, agent.KeyCode), seen["frontend"])
	assert.Equal(t, append(base, agent.KeyArchitecture, agent.KeyDatabaseSchema, agent.KeyCode, agent.KeyFrontendCode), seen["tests"])
}

func TestFailFastAtEachStage(t *testing.T) {
	stageAgents := []string{
		agent.Architect,
		agent.Database,
		agent.CodeGenerator,
		agent.FrontendGenerator,
		agent.TestGenerator,
	}

	for k, stage := range DefaultStages() {
		t.Run(stage.Name, func(t *testing.T) {
			f := newFixture(t, failingAt(stageAgents[k]))
			obs := &recordingObserver{}
			o := f.orchestrator(t, WithObserver(obs))

			res, err := o.Run(context.Background(), Request{Description: "a todo list app"})
			require.Error(t, err)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, stage.Name, stageErr.Stage)
			assert.Equal(t, protocol.ToolExecutionFailed, stageErr.Kind)
			assert.ErrorIs(t, err, protocol.ErrToolExecutionFailed)

			require.NotNil(t, res)
			assert.False(t, res.Success)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, stage.Name, res.FailedStage)
			assert.Contains(t, res.Message, "generation failed at "+stage.Name+" stage")
			assert.Contains(t, res.Message, "model unavailable")

			// No stage after k was called.
			assert.Equal(t, stageAgents[:k+1], f.gen.Agents())
			assert.Equal(t, "fail:"+stage.Name, obs.events[len(obs.events)-1])

			// Earlier outputs are kept, later ones are empty.
			for i, s := range DefaultStages() {
				if i < k {
					assert.NotEmpty(t, res.Get(s.Output), s.Name)
				} else {
					assert.Empty(t, res.Get(s.Output), s.Name)
				}
			}
		})
	}
}

func TestBackendFailureKeepsEarlierOutputs(t *testing.T) {
	f := newFixture(t, failingAt(agent.CodeGenerator))
	o := f.orchestrator(t)

	res, err := o.Run(context.Background(), Request{Description: "a todo list app"})
	require.Error(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "failed at backend stage")
	assert.NotEmpty(t, res.Architecture)
	assert.NotEmpty(t, res.DatabaseSchema)
	assert.Empty(t, res.Code)
	assert.Empty(t, res.FrontendCode)
	assert.Empty(t, res.Tests)
}

func TestEmptyDescriptionIsRejectedBeforeAnyStage(t *testing.T) {
	for _, desc := range []string{"", "   \n"} {
		f := newFixture(t, mock.EchoGenerator())
		o := f.orchestrator(t)

		res, err := o.Run(context.Background(), Request{Description: desc})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, IsValidation(err))
		assert.ErrorIs(t, err, protocol.ErrValidationFailed)
		assert.Empty(t, f.gen.Requests())
	}
}

func TestEmptyStageOutputFails(t *testing.T) {
	gen := &mock.Generator{
		GenerateFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "  "}, nil
		},
	}
	f := newFixture(t, gen)
	o := f.orchestrator(t)

	res, err := o.Run(context.Background(), Request{Description: "a todo list app"})
	require.Error(t, err)
	assert.Equal(t, "architecture", res.FailedStage)
	assert.Contains(t, res.Message, "empty output")
}

func TestMissingToolFailsWithMethodNotFound(t *testing.T) {
	f := newFixture(t, mock.EchoGenerator())
	f.server.Registry().Unregister(agent.ToolGenerateFrontend)
	o := f.orchestrator(t)

	res, err := o.Run(context.Background(), Request{Description: "a todo list app"})
	require.ErrorIs(t, err, protocol.ErrMethodNotFound)
	assert.Equal(t, "frontend", res.FailedStage)
	assert.Equal(t, 3, len(f.gen.Requests()))
}

func TestRoutePlanStage(t *testing.T) {
	planJSON := "```json\n{\"api_route_plan\": {\"base_url\": \"http://localhost:8000/api\", \"routes\": [{\"method\": \"get\", \"path\": \"/todos\"}]}}\n```"
	echo := mock.EchoGenerator()
	gen := &mock.Generator{
		GenerateFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			if req.Agent == agent.RoutePlanner {
				return &llm.Response{Text: planJSON, InputTokens: 10, OutputTokens: 20}, nil
			}
			return echo.GenerateFn(ctx, req)
		},
	}
	f := newFixture(t, gen)
	o := f.orchestrator(t, WithRoutePlan(true))

	res, err := o.Run(context.Background(), Request{Description: "a todo list app"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		agent.Architect,
		agent.Database,
		agent.RoutePlanner,
		agent.CodeGenerator,
		agent.FrontendGenerator,
		agent.TestGenerator,
	}, f.gen.Agents())
	assert.Equal(t, int64(6), f.tracker.Snapshot().TotalAPICalls)

	require.NotNil(t, res.RoutePlan)
	require.Len(t, res.RoutePlan.Routes, 1)
	assert.Equal(t, "GET", res.RoutePlan.Routes[0].Method)

	// Backend and frontend prompts carry the plan.
	reqs := f.gen.Requests()
	assert.Contains(t, reqs[3].Prompt, "/todos")
	assert.Contains(t, reqs[4].Prompt, "/todos")
}

func TestNotificationsAreEmitted(t *testing.T) {
	f := newFixture(t, failingAt(agent.Database))

	var mu sync.Mutex
	var methods []string
	f.server.Subscribe(func(m protocol.Message) {
		mu.Lock()
		defer mu.Unlock()
		methods = append(methods, m.Method)
	})

	o := f.orchestrator(t)
	_, err := o.Run(context.Background(), Request{Description: "a todo list app"})
	require.Error(t, err)

	assert.Equal(t, []string{
		MethodStageStarted,
		MethodStageCompleted,
		MethodStageStarted,
		MethodStageFailed,
		MethodCompleted,
	}, methods)
}

func TestConcurrentRunsKeepUsageConsistent(t *testing.T) {
	f := newFixture(t, mock.EchoGenerator())
	o := f.orchestrator(t)

	const runs = 8
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.Run(context.Background(), Request{Description: "a todo list app"})
		}()
	}
	wg.Wait()

	snap := f.tracker.Snapshot()
	assert.Equal(t, int64(runs*5), snap.TotalAPICalls)
	var sum int64
	for _, a := range snap.Agents {
		assert.Equal(t, int64(runs), a.APICalls)
		sum += a.TotalTokens
	}
	assert.Equal(t, snap.TotalTokens, sum)
}

func TestValidateStages(t *testing.T) {
	require.NoError(t, ValidateStages(DefaultStages()))
	require.NoError(t, ValidateStages(Stages(true)))

	assert.Error(t, ValidateStages(nil))
	assert.Error(t, ValidateStages([]Stage{Schema, Architecture}), "schema before architecture")
	assert.Error(t, ValidateStages([]Stage{Architecture, Architecture}), "duplicate output")

	_, err := New(protocol.NewServer(), WithStages(Backend))
	assert.Error(t, err)
}
