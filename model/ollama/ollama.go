// Package ollama implements the local model.Backend against the native
// Ollama HTTP API: /api/chat for completions (NDJSON when streaming) and
// /api/pull for model provisioning with progress reporting.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/logging"
	"github.com/loomlab/loom/model"
)

// Local model loads can dominate first-request latency, hence the long
// response timeout next to a short connect window.
const (
	defaultBaseURL     = "http://localhost:11434"
	defaultRespTimeout = 300 * time.Second

	maxErrorBody = 1 << 20
)

// Options configures the Ollama backend.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Backend drives a local Ollama runtime. It implements model.Backend and
// model.Provisioner. Safe for concurrent use.
type Backend struct {
	name    string
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

var (
	_ model.Backend     = (*Backend)(nil)
	_ model.Provisioner = (*Backend)(nil)
)

// New creates a backend for the named local model. The name is the bare model
// identifier as known to Ollama ("llama3.2", "qwen2.5:7b").
func New(name string, optFns ...func(o *Options)) *Backend {
	opts := Options{
		BaseURL: defaultBaseURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRespTimeout}
	}

	return &Backend{
		name:    name,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Info implements model.Backend.
func (b *Backend) Info() model.Info {
	return model.Info{Name: b.name, Provider: "ollama", Kind: model.KindLocal}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

func (b *Backend) buildChatRequest(req model.Request, stream bool) chatRequest {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := string(m.Role)
		if m.Role == core.RoleTool {
			// Ollama's chat endpoint has no tool role; surface tool results
			// as user turns so the model still sees them.
			role = string(core.RoleUser)
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}

	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}

	return chatRequest{Model: b.name, Messages: msgs, Stream: stream, Options: opts}
}

// Complete implements model.Backend.
func (b *Backend) Complete(ctx context.Context, req model.Request) (*model.Completion, error) {
	body, err := json.Marshal(b.buildChatRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpResp, err := b.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10*maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, b.apiError(httpResp.StatusCode, raw)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal chat response: %w", err)
	}

	usage := core.TokenUsage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	return &model.Completion{Content: resp.Message.Content, Usage: usage}, nil
}

// CompleteStream implements model.Backend. Fragments arrive one NDJSON line
// per chunk; the channel closes when the runtime reports done.
func (b *Backend) CompleteStream(ctx context.Context, req model.Request) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	body, err := json.Marshal(b.buildChatRequest(req, true))
	if err != nil {
		errCh <- fmt.Errorf("marshal chat request: %w", err)
		close(out)
		close(errCh)
		return out, errCh
	}

	go func() {
		defer close(out)
		defer close(errCh)

		httpResp, err := b.post(ctx, "/api/chat", body)
		if err != nil {
			errCh <- err
			return
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
			errCh <- b.apiError(httpResp.StatusCode, raw)
			return
		}

		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				errCh <- fmt.Errorf("decode stream chunk: %w", err)
				return
			}
			if chunk.Error != "" {
				errCh <- fmt.Errorf("ollama stream error: %s", chunk.Error)
				return
			}
			if chunk.Message.Content != "" {
				select {
				case out <- chunk.Message.Content:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("read stream: %w", err)
		}
	}()

	return out, errCh
}

type pullChunk struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
	Error     string `json:"error"`
}

// Pull implements model.Provisioner. It downloads the backend's model into
// the local runtime, invoking progress for every status line the runtime
// emits. The name argument allows provisioning a model other than the one
// this backend was constructed for; pass b.Info().Name for the common case.
func (b *Backend) Pull(ctx context.Context, name string, progress func(model.PullProgress)) error {
	body, err := json.Marshal(map[string]any{"name": name, "stream": true})
	if err != nil {
		return fmt.Errorf("marshal pull request: %w", err)
	}

	httpResp, err := b.post(ctx, "/api/pull", body)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return b.apiError(httpResp.StatusCode, raw)
	}

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk pullChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decode pull chunk: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("pull %q: %s", name, chunk.Error)
		}
		if progress != nil {
			progress(model.PullProgress{Status: chunk.Status, Completed: chunk.Completed, Total: chunk.Total})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read pull stream: %w", err)
	}

	b.logger.Info("ollama.pull.complete", "model", name)
	return nil
}

// IsHealthy reports whether the Ollama server answers its listing endpoint.
func (b *Backend) IsHealthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return false
	}
	httpResp.Body.Close()
	return httpResp.StatusCode == http.StatusOK
}

func (b *Backend) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	return httpResp, nil
}

// apiError maps a non-200 response to a typed error. A 404 (or a body naming
// a missing model) becomes a ModelMissingError so callers can auto-provision.
func (b *Backend) apiError(status int, raw []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &payload)
	msg := payload.Error
	if msg == "" {
		msg = string(raw)
	}

	if status == http.StatusNotFound || strings.Contains(msg, "not found") {
		return &model.ModelMissingError{Model: b.name}
	}
	return fmt.Errorf("ollama API error %d: %s", status, msg)
}
