// Package usage accumulates LLM call and token counts per agent.
package usage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Record holds the accumulated counters for one agent.
type Record struct {
	AgentName    string `json:"agent_name"`
	APICalls     int64  `json:"total_api_calls"`
	InputTokens  int64  `json:"total_input_tokens"`
	OutputTokens int64  `json:"total_output_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
}

// Snapshot is the aggregate usage plus the per-agent breakdown.
type Snapshot struct {
	TotalAPICalls     int64    `json:"total_api_calls"`
	TotalInputTokens  int64    `json:"total_input_tokens"`
	TotalOutputTokens int64    `json:"total_output_tokens"`
	TotalTokens       int64    `json:"total_tokens"`
	Agents            []Record `json:"agents"`
}

// Call is a single completed LLM call, as written to the call log.
type Call struct {
	AgentName    string
	InputTokens  int64
	OutputTokens int64
	At           time.Time
}

// Store persists usage across restarts.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, call Call, total Record) error
}

type counters struct {
	calls  int64
	input  int64
	output int64
}

// Tracker accumulates usage per agent. Records are never removed or
// decremented; each Record call is atomic with respect to the others.
type Tracker struct {
	mu     sync.Mutex
	agents map[string]*counters

	store  Store
	logger *slog.Logger

	callCounter   otelmetric.Int64Counter
	inputCounter  otelmetric.Int64Counter
	outputCounter otelmetric.Int64Counter
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore persists every recorded call through s.
func WithStore(s Store) Option {
	return func(t *Tracker) { t.store = s }
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		agents: make(map[string]*counters),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}

	meter := otel.GetMeterProvider().Meter("engai/usage")
	t.callCounter, _ = meter.Int64Counter("engai.llm.calls")
	t.inputCounter, _ = meter.Int64Counter("engai.llm.input_tokens")
	t.outputCounter, _ = meter.Int64Counter("engai.llm.output_tokens")
	return t
}

// Load seeds the tracker from its store. It is a no-op without a store.
func (t *Tracker) Load(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	records, err := t.store.Load(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range records {
		c := t.counter(r.AgentName)
		c.calls += r.APICalls
		c.input += r.InputTokens
		c.output += r.OutputTokens
	}
	return nil
}

// Record counts one completed LLM call for agent.
func (t *Tracker) Record(agent string, inputTokens, outputTokens int64) {
	t.RecordContext(context.Background(), agent, inputTokens, outputTokens)
}

// RecordContext is Record with a context for metrics and the store.
func (t *Tracker) RecordContext(ctx context.Context, agent string, inputTokens, outputTokens int64) {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	t.mu.Lock()
	c := t.counter(agent)
	c.calls++
	c.input += inputTokens
	c.output += outputTokens
	total := c.record(agent)

	// Writes are serialized with the counters so the stored totals never
	// go backwards.
	if t.store != nil {
		call := Call{AgentName: agent, InputTokens: inputTokens, OutputTokens: outputTokens, At: time.Now().UTC()}
		if err := t.store.Save(ctx, call, total); err != nil {
			t.logger.Warn("failed to persist usage", "agent", agent, "error", err)
		}
	}
	t.mu.Unlock()

	attrs := otelmetric.WithAttributes(attribute.String("agent", agent))
	if t.callCounter != nil {
		t.callCounter.Add(ctx, 1, attrs)
	}
	if t.inputCounter != nil {
		t.inputCounter.Add(ctx, inputTokens, attrs)
	}
	if t.outputCounter != nil {
		t.outputCounter.Add(ctx, outputTokens, attrs)
	}
}

// Agent returns the record for one agent.
func (t *Tracker) Agent(name string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.agents[name]
	if !ok {
		return Record{AgentName: name}, false
	}
	return c.record(name), true
}

// Snapshot computes the aggregate from the current per-agent records.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	agents := make([]Record, 0, len(t.agents))
	for name, c := range t.agents {
		agents = append(agents, c.record(name))
	}
	t.mu.Unlock()

	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentName < agents[j].AgentName })

	snap := Snapshot{Agents: agents}
	for _, r := range agents {
		snap.TotalAPICalls += r.APICalls
		snap.TotalInputTokens += r.InputTokens
		snap.TotalOutputTokens += r.OutputTokens
	}
	snap.TotalTokens = snap.TotalInputTokens + snap.TotalOutputTokens
	return snap
}

func (t *Tracker) counter(agent string) *counters {
	c, ok := t.agents[agent]
	if !ok {
		c = &counters{}
		t.agents[agent] = c
	}
	return c
}

func (c *counters) record(name string) Record {
	return Record{
		AgentName:    name,
		APICalls:     c.calls,
		InputTokens:  c.input,
		OutputTokens: c.output,
		TotalTokens:  c.input + c.output,
	}
}
