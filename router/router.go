// Package router selects one agent from a fixed candidate set by running an
// auxiliary classification call against the conversation. Classification
// failures of any kind fall back to a configured default agent: routing is
// best effort and never raises on an unrecognized intent.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomlab/loom/agent"
	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/logging"
	"github.com/loomlab/loom/model"
)

// Route maps a classified intent to a target agent.
type Route struct {
	// Intent is the bare label the classifier must emit, e.g. "coding".
	Intent string
	// Description tells the classifier what the intent covers.
	Description string
	// Target handles conversations classified under this intent.
	Target *agent.Agent
}

// RouteInfo is the read-only view returned by AvailableRoutes.
type RouteInfo struct {
	Intent      string `json:"intent"`
	Description string `json:"description"`
	TargetAgent string `json:"target_agent"`
}

// Options configures a Router.
type Options struct {
	// Model overrides the classifier's model identifier. Defaults to the
	// default agent's model.
	Model string
	// Credential and BaseURL configure the classifier's backend the same way
	// they do for agents.
	Credential string
	BaseURL    string
	// Backend injects the classifier backend directly (tests).
	Backend model.Backend
	// Logger receives routing events. Defaults to a no-op.
	Logger logging.Logger
}

// Router owns an ordered route set, a default agent and an internal
// classification agent. Immutable after construction; concurrent Route calls
// are safe because the classifier carries no cross-call state.
type Router struct {
	routes     []Route
	byIntent   map[string]*agent.Agent
	fallback   *agent.Agent
	classifier *agent.Agent
	logger     logging.Logger
}

// New constructs a Router. It requires a default agent and at least one
// route; intent labels must be unique ignoring case and every route needs a
// target.
func New(fallback *agent.Agent, routes []Route, optFns ...func(o *Options)) (*Router, error) {
	if fallback == nil {
		return nil, fmt.Errorf("router: default agent is required")
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("router: at least one route is required")
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = fallback.Model()
	}

	// Labels are matched case-insensitively, so uniqueness is enforced on
	// the normalized form and the map is keyed by it.
	byIntent := make(map[string]*agent.Agent, len(routes))
	for _, r := range routes {
		intent := normalizeLabel(r.Intent)
		if intent == "" {
			return nil, fmt.Errorf("router: route with empty intent label")
		}
		if r.Target == nil {
			return nil, fmt.Errorf("router: route %q has no target agent", r.Intent)
		}
		if _, exists := byIntent[intent]; exists {
			return nil, fmt.Errorf("router: duplicate intent label %q", intent)
		}
		byIntent[intent] = r.Target
	}

	classifier, err := agent.New("intent-classifier", func(o *agent.Options) {
		o.Model = opts.Model
		o.Credential = opts.Credential
		o.BaseURL = opts.BaseURL
		o.Backend = opts.Backend
		o.Logger = opts.Logger
		o.SystemPrompt = classifierPrompt(routes)
		// Deterministic, short, single-shot classification.
		o.Config = agent.Config{Temperature: 0, MaxTokens: 16, MaxCycles: 1}
	})
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	return &Router{
		routes:     routes,
		byIntent:   byIntent,
		fallback:   fallback,
		classifier: classifier,
		logger:     logging.OrNoOp(opts.Logger),
	}, nil
}

// classifierPrompt enumerates every route's label and description and demands
// a bare label as the only output.
func classifierPrompt(routes []Route) string {
	var b strings.Builder
	b.WriteString("You are an intent classifier. Classify the conversation into exactly one of these intents:\n")
	for _, r := range routes {
		fmt.Fprintf(&b, "- %s: %s\n", r.Intent, r.Description)
	}
	b.WriteString("\nRespond with the bare intent label and nothing else.")
	return b.String()
}

// Route classifies the conversation and returns the matching route's target.
// An unrecognized label or any classifier error selects the default agent;
// the condition surfaces only as a warning, never as an error.
func (r *Router) Route(ctx context.Context, history []core.Message) *agent.Agent {
	resp, err := r.classifier.Invoke(ctx, history)
	if err != nil {
		r.logger.Warn("router.classify.error", "error", err.Error())
		return r.fallback
	}

	label := normalizeLabel(strings.Trim(strings.TrimSpace(resp.Content), "\"'`."))
	if target, ok := r.byIntent[label]; ok {
		r.logger.Debug("router.route.selected", "intent", label, "agent", target.Name())
		return target
	}

	r.logger.Warn("router.classify.unrecognized", "label", label, "default", r.fallback.Name())
	return r.fallback
}

// normalizeLabel is the canonical form used for route uniqueness and lookup.
func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Invoke routes the conversation, then invokes the selected agent.
func (r *Router) Invoke(ctx context.Context, history []core.Message) (*core.Response, error) {
	return r.Route(ctx, history).Invoke(ctx, history)
}

// Stream routes the conversation, then streams from the selected agent.
func (r *Router) Stream(ctx context.Context, history []core.Message) (<-chan string, <-chan error) {
	return r.Route(ctx, history).Stream(ctx, history)
}

// Name returns the router's identity for workflow diagnostics.
func (r *Router) Name() string { return "router(" + r.fallback.Name() + ")" }

// AvailableRoutes returns a read-only view of the configured routes.
func (r *Router) AvailableRoutes() []RouteInfo {
	infos := make([]RouteInfo, len(r.routes))
	for i, route := range r.routes {
		infos[i] = RouteInfo{
			Intent:      route.Intent,
			Description: route.Description,
			TargetAgent: route.Target.Name(),
		}
	}
	return infos
}
