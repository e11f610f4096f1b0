package agent

import (
	"fmt"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/logging"
	"github.com/loomlab/loom/model"
	"github.com/loomlab/loom/model/anthropic"
	"github.com/loomlab/loom/model/ollama"
	"github.com/loomlab/loom/model/openai"
	"github.com/loomlab/loom/redact"
	"github.com/loomlab/loom/tool"
)

// Options configures an Agent. Use functional options with New.
type Options struct {
	// Description summarizes the agent's purpose; it feeds the synthesized
	// system prompt and the manager/router prompts.
	Description string
	// Model is the model identifier. Its shape selects the backend: a
	// namespaced identifier ("openai/gpt-4o-mini", "anthropic/claude-3-5-haiku-latest")
	// targets a cloud API, a bare one ("llama3.2") the local runtime.
	Model string
	// Config holds generation parameters and the observation cycle bound.
	Config Config
	// SystemPrompt overrides the synthesized "You are {name}. {description}".
	SystemPrompt string
	// Tools become the agent's registry; a non-empty registry enables the
	// think/act/observe loop.
	Tools []tool.Tool
	// Knowledge, when set, is queried with the latest user message and its
	// passages are prepended as context.
	Knowledge core.KnowledgeSource
	// Redactor scrubs the latest user message before it leaves the process.
	// Defaults to redact.Redact.
	Redactor core.Redactor
	// RedactionEnabled overrides the default policy (enabled for cloud
	// backends, disabled for local ones).
	RedactionEnabled *bool
	// Credential is the bearer credential for cloud backends. Resolution from
	// the environment belongs to the composition boundary (package config),
	// never in here.
	Credential string
	// BaseURL overrides the backend endpoint (OpenAI-compatible cloud
	// providers, or a non-default local runtime address).
	BaseURL string
	// Backend injects a concrete backend directly, bypassing identifier-based
	// selection. Used by tests and callers with bespoke transports.
	Backend model.Backend
	// Logger receives structured engine events. Defaults to a no-op.
	Logger logging.Logger
}

// Agent is the reasoning/acting core. It is immutable after construction and
// safe for concurrent invocation: the loop's working state lives on each
// call's stack, the registry and config are read-only.
type Agent struct {
	name         string
	description  string
	modelID      string
	cfg          Config
	systemPrompt string
	backend      model.Backend
	registry     *tool.Registry
	knowledge    core.KnowledgeSource
	redactor     core.Redactor
	redaction    bool
	logger       logging.Logger
}

func defaultOptions() Options {
	return Options{
		Model:  "llama3.2",
		Config: DefaultConfig(),
	}
}

// New constructs an Agent. The backend is selected once, from the model
// identifier's shape, and never re-evaluated per call. Cloud backends without
// a credential fail here, before any network attempt.
func New(name string, optFns ...func(o *Options)) (*Agent, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newFromOptions(name, opts)
}

func newFromOptions(name string, opts Options) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent: name is required")
	}
	if opts.Config.MaxCycles < 1 {
		return nil, fmt.Errorf("agent %q: max cycles must be >= 1, got %d", name, opts.Config.MaxCycles)
	}

	backend := opts.Backend
	if backend == nil {
		var err error
		backend, err = buildBackend(opts)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
	}

	redaction := backend.Info().Kind == model.KindCloud
	if opts.RedactionEnabled != nil {
		redaction = *opts.RedactionEnabled
	}
	redactor := opts.Redactor
	if redactor == nil {
		redactor = redact.Redact
	}

	registry, err := tool.NewRegistry(opts.Tools...)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = fmt.Sprintf("You are %s. %s", name, opts.Description)
	}

	return &Agent{
		name:         name,
		description:  opts.Description,
		modelID:      opts.Model,
		cfg:          opts.Config,
		systemPrompt: systemPrompt,
		backend:      backend,
		registry:     registry,
		knowledge:    opts.Knowledge,
		redactor:     redactor,
		redaction:    redaction,
		logger:       logging.OrNoOp(opts.Logger),
	}, nil
}

// buildBackend derives the concrete backend from the model identifier.
func buildBackend(opts Options) (model.Backend, error) {
	if model.KindFor(opts.Model) == model.KindLocal {
		return ollama.New(opts.Model, func(o *ollama.Options) {
			if opts.BaseURL != "" {
				o.BaseURL = opts.BaseURL
			}
			o.Logger = opts.Logger
		}), nil
	}

	provider, modelName := model.SplitIdentifier(opts.Model)
	switch provider {
	case "anthropic":
		return anthropic.New(modelName, func(o *anthropic.Options) {
			o.APIKey = opts.Credential
		})
	default:
		// Any other namespace is treated as OpenAI-compatible; the provider
		// is reachable through a custom base URL.
		return openai.New(modelName, func(o *openai.Options) {
			o.APIKey = opts.Credential
			o.BaseURL = opts.BaseURL
		})
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's capability summary.
func (a *Agent) Description() string { return a.description }

// Model returns the model identifier the agent was constructed with.
func (a *Agent) Model() string { return a.modelID }

// Backend exposes backend metadata for diagnostics.
func (a *Agent) Backend() model.Info { return a.backend.Info() }

// Tools returns the registered tool names in registration order.
func (a *Agent) Tools() []string { return a.registry.Names() }
