// Package llm defines the text-generation capability used by the stage
// agents and its Gemini implementation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	// ErrEmptyPrompt indicates a request without prompt text.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrNoModel indicates none of the candidate models could be used.
	ErrNoModel = errors.New("no usable model")
)

// Request is a single text-generation call.
type Request struct {
	// Agent is the name of the calling agent, used for logs.
	Agent       string
	Prompt      string
	Temperature *float64
	MaxTokens   int
}

// Validate checks that the request can be sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", *r.Temperature)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	return nil
}

// Response is the generated text and its token usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// EstimateTokens approximates a token count by counting whitespace
// separated words. It is used when the provider reports no usage.
func EstimateTokens(text string) int64 {
	return int64(len(strings.Fields(text)))
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}
