// Package anthropic implements the cloud model.Backend on the official
// Anthropic Go SDK (Messages API, streaming included).
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/model"
)

// The Messages API requires an explicit completion budget.
const defaultMaxTokens = 1024

// Options configures the Anthropic backend adapter.
type Options struct {
	// APIKey is the bearer credential. Required: construction fails fast
	// with model.ErrMissingCredential when absent, before any network call.
	APIKey string
}

// Backend wraps the Anthropic Messages API behind model.Backend.
type Backend struct {
	name   string
	client *anthropic.Client
}

var _ model.Backend = (*Backend)(nil)

// New creates a backend for the named model ("claude-3-5-haiku-latest"). The
// provider namespace is expected to already be stripped from the identifier.
func New(name string, optFns ...func(o *Options)) (*Backend, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic backend for %q: %w", name, model.ErrMissingCredential)
	}

	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))
	return &Backend{name: name, client: &client}, nil
}

// NewFromClient creates a backend from an existing client, bypassing
// credential resolution.
func NewFromClient(name string, client *anthropic.Client) *Backend {
	return &Backend{name: name, client: client}
}

// Info implements model.Backend.
func (b *Backend) Info() model.Info {
	return model.Info{Name: b.name, Provider: "anthropic", Kind: model.KindCloud}
}

func (b *Backend) buildParams(req model.Request) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(b.name),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}

// Complete implements model.Backend.
func (b *Backend) Complete(ctx context.Context, req model.Request) (*model.Completion, error) {
	resp, err := b.client.Messages.New(ctx, b.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.AsText().Text
		}
	}

	usage := core.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return &model.Completion{Content: content, Usage: usage}, nil
}

// CompleteStream implements model.Backend.
func (b *Backend) CompleteStream(ctx context.Context, req model.Request) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := b.client.Messages.NewStreaming(ctx, b.buildParams(req))
		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					select {
					case out <- deltaVariant.Text:
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
		}
	}()

	return out, errCh
}
