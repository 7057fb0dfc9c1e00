package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("engai/protocol")

// Subscriber receives notifications sent through the server.
type Subscriber func(Message)

// Server owns the tool registry and dispatches requests to handlers.
type Server struct {
	registry *Registry
	logger   *slog.Logger

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger used for dispatch logs.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry makes the server use an existing registry.
func WithRegistry(r *Registry) ServerOption {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

// NewServer creates a server with an empty registry.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Registry returns the server's tool registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Register adds a tool to the registry, replacing any previous binding.
func (s *Server) Register(tool Tool) {
	if replaced := s.registry.Register(tool); replaced {
		s.logger.Debug("tool re-registered", "tool", tool.Name, "owner", tool.Owner)
	}
}

// Subscribe adds a notification subscriber.
func (s *Server) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Notify delivers a notification to every subscriber. Notifications are
// never answered.
func (s *Server) Notify(ctx context.Context, msg Message) error {
	if msg.Kind != KindNotification {
		return fmt.Errorf("notify: %w: expected notification, got %s", ErrInvalidRequest, msg.Kind)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("notify: %w: %v", ErrInvalidRequest, err)
	}

	s.subMu.RLock()
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(msg)
	}
	s.logger.DebugContext(ctx, "notification", "method", msg.Method)
	return nil
}

// Dispatch answers a request with exactly one response or error message
// carrying the request's id. It returns only after the handler completes.
// A notification is handed to Notify and yields the zero Message.
func (s *Server) Dispatch(ctx context.Context, req Message) Message {
	if req.Kind == KindNotification {
		if err := s.Notify(ctx, req); err != nil {
			s.logger.WarnContext(ctx, "notification dropped", "method", req.Method, "error", err)
		}
		return Message{}
	}

	ctx, span := tracer.Start(ctx, "protocol.dispatch",
		trace.WithAttributes(
			attribute.String("protocol.method", req.Method),
			attribute.String("protocol.id", req.ID),
		),
	)
	defer span.End()

	start := time.Now()
	resp := s.dispatch(ctx, req)

	attrs := []any{
		"method", req.Method,
		"id", req.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Error.Detail)
		span.SetAttributes(attribute.String("protocol.error_kind", string(resp.Error.Kind)))
		s.logger.WarnContext(ctx, "dispatch failed", append(attrs, "kind", resp.Error.Kind, "detail", resp.Error.Detail)...)
	} else {
		s.logger.DebugContext(ctx, "dispatch", attrs...)
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req Message) Message {
	if req.Kind != KindRequest {
		return NewError(req.ID, InvalidRequest, fmt.Sprintf("expected request, got %s", req.Kind))
	}
	if err := req.Validate(); err != nil {
		return NewError(req.ID, InvalidRequest, err.Error())
	}

	tool, ok := s.registry.Lookup(req.Method)
	if !ok {
		return NewError(req.ID, MethodNotFound, fmt.Sprintf("no tool registered for method %q", req.Method))
	}

	result, err := invoke(ctx, tool.Handler, req.Params)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return NewError(req.ID, handlerKind(toolErr.Kind), toolErr.Error())
		}
		return NewError(req.ID, ToolExecutionFailed, err.Error())
	}
	return NewResponse(req.ID, result)
}

// handlerKind keeps protocol-level kinds reserved for the server itself.
func handlerKind(kind ErrorKind) ErrorKind {
	switch kind {
	case "", MethodNotFound, InvalidRequest:
		return ToolExecutionFailed
	}
	return kind
}

// invoke runs the handler, converting a panic into an error so a faulty
// tool cannot take down the caller's run.
func invoke(ctx context.Context, h Handler, params Params) (result any, err error) {
	if h == nil {
		return nil, fmt.Errorf("tool has no handler")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, params)
}
