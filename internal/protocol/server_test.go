package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string, calls *int) Tool {
	return Tool{
		Name:  name,
		Owner: "test",
		Handler: HandlerFunc(func(ctx context.Context, params Params) (any, error) {
			*calls++
			return params.String("text"), nil
		}),
	}
}

func TestDispatchReturnsResponseWithRequestID(t *testing.T) {
	s := NewServer()
	calls := 0
	s.Register(echoTool("echo", &calls))

	req := NewRequest("echo", NewParams("text", "hello"))
	resp := s.Dispatch(context.Background(), req)

	require.Equal(t, KindResponse, resp.Kind)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, "hello", resp.Result)
	assert.Equal(t, 1, calls)
}

func TestDispatchUnknownMethodInvokesNoHandler(t *testing.T) {
	s := NewServer()
	calls := 0
	s.Register(echoTool("echo", &calls))

	req := NewRequest("missing", nil)
	resp := s.Dispatch(context.Background(), req)

	require.Equal(t, KindError, resp.Kind)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, MethodNotFound, resp.Error.Kind)
	assert.Zero(t, calls)
}

func TestDispatchEmptyMethodIsInvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
	}{
		{"empty", ""},
		{"whitespace", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer()
			calls := 0
			s.Register(echoTool("", &calls))
			s.Register(echoTool("   ", &calls))

			req := NewRequest(tt.method, nil)
			resp := s.Dispatch(context.Background(), req)

			require.Equal(t, KindError, resp.Kind)
			assert.Equal(t, req.ID, resp.ID)
			assert.Equal(t, InvalidRequest, resp.Error.Kind)
			assert.Zero(t, calls, "handler must not run for an invalid request")
		})
	}
}

func TestDispatchNeverAnswersNotification(t *testing.T) {
	s := NewServer()
	calls := 0
	s.Register(echoTool("echo", &calls))

	var got []Message
	s.Subscribe(func(msg Message) { got = append(got, msg) })

	resp := s.Dispatch(context.Background(), NewNotification("echo", NewParams("text", "hi")))
	assert.Equal(t, Message{}, resp)
	assert.Zero(t, calls, "notifications must not invoke tool handlers")
	require.Len(t, got, 1)
	assert.Equal(t, "echo", got[0].Method)
}

func TestDispatchRejectsAnswerMessages(t *testing.T) {
	s := NewServer()
	req := NewRequest("echo", nil)
	resp := s.Dispatch(context.Background(), NewResponse(req.ID, "stray"))
	require.Equal(t, KindError, resp.Kind)
	assert.Equal(t, InvalidRequest, resp.Error.Kind)
	assert.Equal(t, req.ID, resp.ID)
}

func TestDispatchHandlerErrorIsToolExecutionFailed(t *testing.T) {
	s := NewServer()
	s.Register(Tool{
		Name: "boom",
		Handler: HandlerFunc(func(ctx context.Context, params Params) (any, error) {
			return nil, errors.New("llm unavailable")
		}),
	})

	req := NewRequest("boom", nil)
	resp := s.Dispatch(context.Background(), req)

	require.Equal(t, KindError, resp.Kind)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, ToolExecutionFailed, resp.Error.Kind)
	assert.Contains(t, resp.Error.Detail, "llm unavailable")
}

func TestDispatchToolErrorKeepsKind(t *testing.T) {
	s := NewServer()
	s.Register(Tool{
		Name: "strict",
		Handler: HandlerFunc(func(ctx context.Context, params Params) (any, error) {
			return nil, MissingParam("description")
		}),
	})

	resp := s.Dispatch(context.Background(), NewRequest("strict", nil))
	require.Equal(t, KindError, resp.Kind)
	assert.Equal(t, ValidationFailed, resp.Error.Kind)
	assert.Contains(t, resp.Error.Detail, "description")
}

func TestDispatchToolErrorCannotClaimProtocolKind(t *testing.T) {
	tests := []struct {
		name string
		kind ErrorKind
	}{
		{"method not found", MethodNotFound},
		{"invalid request", InvalidRequest},
		{"empty kind", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer()
			calls := 0
			s.Register(Tool{
				Name: "sneaky",
				Handler: HandlerFunc(func(ctx context.Context, params Params) (any, error) {
					calls++
					return nil, NewToolError(tt.kind, "nope")
				}),
			})

			req := NewRequest("sneaky", nil)
			resp := s.Dispatch(context.Background(), req)
			require.Equal(t, KindError, resp.Kind)
			assert.Equal(t, req.ID, resp.ID)
			assert.Equal(t, ToolExecutionFailed, resp.Error.Kind)
			assert.Contains(t, resp.Error.Detail, "nope")
			assert.Equal(t, 1, calls)
		})
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	s := NewServer()
	s.Register(Tool{
		Name: "panics",
		Handler: HandlerFunc(func(ctx context.Context, params Params) (any, error) {
			panic("nil map")
		}),
	})

	resp := s.Dispatch(context.Background(), NewRequest("panics", nil))
	require.Equal(t, KindError, resp.Kind)
	assert.Equal(t, ToolExecutionFailed, resp.Error.Kind)
	assert.Contains(t, resp.Error.Detail, "nil map")
}

func TestReRegistrationLastWins(t *testing.T) {
	s := NewServer()
	first, second := 0, 0
	s.Register(echoTool("echo", &first))
	s.Register(echoTool("echo", &second))

	resp := s.Dispatch(context.Background(), NewRequest("echo", NewParams("text", "x")))

	require.Equal(t, KindResponse, resp.Kind)
	assert.Zero(t, first, "replaced handler must not run")
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, s.Registry().Len())
}

func TestRegistryToolsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "generate_tests"})
	r.Register(Tool{Name: "create_architecture"})
	r.Register(Tool{Name: "design_schema"})

	var names []string
	for _, tool := range r.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"create_architecture", "design_schema", "generate_tests"}, names)

	r.Unregister("design_schema")
	_, ok := r.Lookup("design_schema")
	assert.False(t, ok)
}

func TestNotifyDeliversToSubscribers(t *testing.T) {
	s := NewServer()
	var got []Message
	s.Subscribe(func(m Message) { got = append(got, m) })
	s.Subscribe(func(m Message) { got = append(got, m) })

	err := s.Notify(context.Background(), NewNotification("pipeline/stage_started", NewParams("stage", "architecture")))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].ID)
	assert.Equal(t, "architecture", got[0].Params.String("stage"))
}

func TestNotifyRejectsMessagesWithID(t *testing.T) {
	s := NewServer()
	called := false
	s.Subscribe(func(Message) { called = true })

	msg := NewNotification("x", nil)
	msg.ID = "abc"
	err := s.Notify(context.Background(), msg)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.False(t, called)

	err = s.Notify(context.Background(), NewRequest("x", nil))
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestConcurrentDispatch(t *testing.T) {
	s := NewServer()
	s.Register(Tool{
		Name: "echo",
		Handler: HandlerFunc(func(ctx context.Context, params Params) (any, error) {
			return params.String("text"), nil
		}),
	})

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := NewRequest("echo", NewParams("text", "x"))
			resp := s.Dispatch(context.Background(), req)
			if resp.ID == req.ID {
				ids <- resp.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "id reused: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}

func TestParamsJSONKeepsOrder(t *testing.T) {
	p := NewParams("description", "todo", "requirements", "", "architecture", "layers")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"description":"todo","requirements":"","architecture":"layers"}`, string(data))

	var back Params
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"description", "requirements", "architecture"}, back.Keys())
	assert.Equal(t, "layers", back.String("architecture"))
}

func TestParamsWithReplacesInPlace(t *testing.T) {
	p := NewParams("a", 1, "b", 2)
	q := p.With("a", 3)

	assert.Equal(t, []string{"a", "b"}, q.Keys())
	v, _ := q.Get("a")
	assert.Equal(t, 3, v)
	orig, _ := p.Get("a")
	assert.Equal(t, 1, orig, "With must not mutate the receiver")
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"request ok", NewRequest("m", nil), false},
		{"request without id", Message{Kind: KindRequest, Method: "m"}, true},
		{"notification ok", NewNotification("n", nil), false},
		{"notification with id", Message{Kind: KindNotification, ID: "1", Method: "n"}, true},
		{"response ok", NewResponse("1", "r"), false},
		{"response without id", Message{Kind: KindResponse}, true},
		{"error ok", NewError("1", MethodNotFound, "x"), false},
		{"error without body", Message{Kind: KindError, ID: "1"}, true},
		{"unknown kind", Message{Kind: "weird"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
