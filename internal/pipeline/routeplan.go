package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tuannvm/engai/internal/markdown"
)

// Route is one planned API endpoint.
type Route struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	BodySchema     map[string]any `json:"body_schema,omitempty"`
	QueryParams    map[string]any `json:"query_params,omitempty"`
	PathParams     map[string]any `json:"path_params,omitempty"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}

// RoutePlan is the API surface planned by the route planner stage.
type RoutePlan struct {
	BaseURL string  `json:"base_url"`
	Routes  []Route `json:"routes"`
}

// ErrNoRoutes is returned when a route plan has no routes.
var ErrNoRoutes = errors.New("route plan has no routes")

// ParseRoutePlan extracts the route plan from model output. The JSON may be
// in a fenced block or bare, and may or may not be wrapped in an
// "api_route_plan" object.
func ParseRoutePlan(text string) (*RoutePlan, error) {
	raw := strings.TrimSpace(text)
	if b, ok := markdown.First(markdown.Blocks(text), "json"); ok {
		raw = b.Code
	} else if b, ok := markdown.First(markdown.Blocks(text)); ok {
		raw = b.Code
	}

	var wrapped struct {
		Plan *RoutePlan `json:"api_route_plan"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("parse route plan: %w", err)
	}
	plan := wrapped.Plan
	if plan == nil {
		plan = &RoutePlan{}
		if err := json.Unmarshal([]byte(raw), plan); err != nil {
			return nil, fmt.Errorf("parse route plan: %w", err)
		}
	}
	if len(plan.Routes) == 0 {
		return nil, ErrNoRoutes
	}
	for i := range plan.Routes {
		plan.Routes[i].Method = strings.ToUpper(plan.Routes[i].Method)
	}
	return plan, nil
}
