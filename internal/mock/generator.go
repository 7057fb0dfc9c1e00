// Package mock provides test doubles for engai interfaces using function fields.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tuannvm/engai/internal/llm"
)

// Interface compliance checks.
var (
	_ llm.Generator = (*Generator)(nil)
)

// Generator is a test double for llm.Generator.
// Set GenerateFn before calling Generate. Every request is recorded.
type Generator struct {
	GenerateFn func(ctx context.Context, req llm.Request) (*llm.Response, error)

	mu       sync.Mutex
	requests []llm.Request
}

// Generate records the request and delegates to GenerateFn.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.GenerateFn(ctx, req)
}

// Requests returns the recorded requests in call order.
func (g *Generator) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]llm.Request, len(g.requests))
	copy(out, g.requests)
	return out
}

// Agents returns the agent name of each recorded request in call order.
func (g *Generator) Agents() []string {
	reqs := g.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Agent
	}
	return out
}

// EchoGenerator returns a Generator that answers every prompt with
// "<agent> output", counting tokens by words.
func EchoGenerator() *Generator {
	return &Generator{
		GenerateFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			text := req.Agent + " output"
			return &llm.Response{
				Text:         text,
				Model:        "mock",
				InputTokens:  llm.EstimateTokens(req.Prompt),
				OutputTokens: int64(len(strings.Fields(text))),
			}, nil
		},
	}
}
