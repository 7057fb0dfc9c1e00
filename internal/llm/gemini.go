package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ Generator = (*GeminiClient)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// FallbackModels are tried in order after the configured model.
var FallbackModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-2.5-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

const defaultTemperature = 0.7

// modelsAPI is the subset of genai.Models used by the client.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiClient implements Generator for the Google Gemini API.
type GeminiClient struct {
	models     modelsAPI
	candidates []string
	timeout    time.Duration
	maxTokens  int
	logger     *slog.Logger

	resolveGroup singleflight.Group
	mu           sync.RWMutex
	resolved     string
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithModel sets the preferred model. Fallback models are still tried if it
// is unavailable.
func WithModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.candidates = candidateModels(model)
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) { c.timeout = d }
}

// WithMaxTokens sets the default output token limit.
func WithMaxTokens(n int) GeminiOption {
	return func(c *GeminiClient) { c.maxTokens = n }
}

// WithGeminiLogger sets the logger.
func WithGeminiLogger(logger *slog.Logger) GeminiOption {
	return func(c *GeminiClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewGemini creates a Gemini client with the given API key.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY is not set")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newGemini(gc.Models, opts...), nil
}

func newGemini(models modelsAPI, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		models:     models,
		candidates: candidateModels(DefaultModel),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// candidateModels returns preferred followed by the fallbacks, without
// duplicates.
func candidateModels(preferred string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range append([]string{preferred}, FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Model returns the resolved model, or "" before the first call.
func (c *GeminiClient) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolved
}

// resolveTimeout bounds a shared model resolution.
const resolveTimeout = 30 * time.Second

// resolveModel picks the first candidate the API knows about. Concurrent
// first callers share a single resolution that outlives any one caller's
// cancellation.
func (c *GeminiClient) resolveModel(ctx context.Context) (string, error) {
	if m := c.Model(); m != "" {
		return m, nil
	}

	ch := c.resolveGroup.DoChan("model", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		if m := c.Model(); m != "" {
			return m, nil
		}
		var lastErr error
		for _, m := range c.candidates {
			if _, err := c.models.Get(ctx, m, nil); err != nil {
				c.logger.Debug("gemini model unavailable", "model", m, "error", err)
				lastErr = err
				continue
			}
			c.mu.Lock()
			c.resolved = m
			c.mu.Unlock()
			if m != c.candidates[0] {
				c.logger.Warn("gemini model fallback", "requested", c.candidates[0], "using", m)
			}
			return m, nil
		}
		return "", fmt.Errorf("%w (tried %s): %v", ErrNoModel, strings.Join(c.candidates, ", "), lastErr)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Generate sends the prompt to Gemini and returns the text with token usage.
// Token counts come from the response metadata when present and are
// estimated from word counts otherwise.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	model, err := c.resolveModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(req.Prompt), c.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini: %s: %w", model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: %s: %w", model, ErrEmptyResponse)
	}

	out := &Response{
		Text:         text,
		Model:        model,
		InputTokens:  EstimateTokens(req.Prompt),
		OutputTokens: EstimateTokens(text),
	}
	if u := resp.UsageMetadata; u != nil {
		if u.PromptTokenCount > 0 {
			out.InputTokens = int64(u.PromptTokenCount)
		}
		if u.CandidatesTokenCount > 0 {
			out.OutputTokens = int64(u.CandidatesTokenCount)
		}
	}

	c.logger.Debug("gemini generate",
		"agent", req.Agent,
		"model", model,
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *GeminiClient) buildConfig(req Request) *genai.GenerateContentConfig {
	temp := float32(defaultTemperature)
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	return config
}
