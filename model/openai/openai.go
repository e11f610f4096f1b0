// Package openai implements the cloud model.Backend on the official OpenAI
// Go SDK (Chat Completions, streaming included). A custom base URL makes the
// adapter usable against any OpenAI-compatible provider.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/model"
)

// Options configures the OpenAI backend adapter.
type Options struct {
	// APIKey is the bearer credential. Required: construction fails fast
	// with model.ErrMissingCredential when absent, before any network call.
	APIKey string
	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string
}

// Backend wraps the OpenAI Chat Completions API behind model.Backend.
type Backend struct {
	name   string
	client *openai.Client
}

var _ model.Backend = (*Backend)(nil)

// New creates a backend for the named model ("gpt-4o-mini"). The provider
// namespace is expected to already be stripped from the identifier.
func New(name string, optFns ...func(o *Options)) (*Backend, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai backend for %q: %w", name, model.ErrMissingCredential)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &Backend{name: name, client: &client}, nil
}

// NewFromClient creates a backend from an existing client, bypassing
// credential resolution. Intended for tests and callers with bespoke client
// configuration.
func NewFromClient(name string, client *openai.Client) *Backend {
	return &Backend{name: name, client: client}
}

// Info implements model.Backend.
func (b *Backend) Info() model.Info {
	return model.Info{Name: b.name, Provider: "openai", Kind: model.KindCloud}
}

func (b *Backend) buildParams(req model.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			// Tool results travel as user turns; the call protocol is
			// text-level, not provider-native function calling.
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       b.name,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

// Complete implements model.Backend.
func (b *Backend) Complete(ctx context.Context, req model.Request) (*model.Completion, error) {
	resp, err := b.client.Chat.Completions.New(ctx, b.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api error: no choices returned")
	}

	return &model.Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: core.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// CompleteStream implements model.Backend.
func (b *Backend) CompleteStream(ctx context.Context, req model.Request) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := b.client.Chat.Completions.NewStreaming(ctx, b.buildParams(req))
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case out <- choice.Delta.Content:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()

	return out, errCh
}
