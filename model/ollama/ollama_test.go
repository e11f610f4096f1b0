package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/model"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("llama3.2", func(o *Options) {
		o.BaseURL = server.URL
	})
}

func chatReq() model.Request {
	return model.Request{
		Messages: []core.Message{
			core.SystemMessage("Be brief."),
			core.UserMessage("Say hi."),
		},
		Temperature: 0.7,
		MaxTokens:   64,
	}
}

func TestComplete(t *testing.T) {
	var received chatRequest
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(chatResponse{
			Message:         chatMessage{Role: "assistant", Content: "hi there"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       4,
		})
	})

	completion, err := backend.Complete(context.Background(), chatReq())
	require.NoError(t, err)
	assert.Equal(t, "hi there", completion.Content)
	assert.Equal(t, core.TokenUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16}, completion.Usage)

	assert.Equal(t, "llama3.2", received.Model)
	assert.False(t, received.Stream)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, 0.7, received.Options["temperature"])
	assert.Equal(t, float64(64), received.Options["num_predict"])
}

func TestCompleteDemotesToolRole(t *testing.T) {
	var received chatRequest
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "ok"}, Done: true})
	})

	_, err := backend.Complete(context.Background(), model.Request{
		Messages: []core.Message{core.ToolMessage("search", "result text")},
	})
	require.NoError(t, err)
	require.Len(t, received.Messages, 1)
	assert.Equal(t, "user", received.Messages[0].Role)
	assert.Equal(t, "result text", received.Messages[0].Content)
}

func TestCompleteModelMissing(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": `model "llama3.2" not found`})
	})

	_, err := backend.Complete(context.Background(), chatReq())
	require.Error(t, err)
	assert.True(t, model.IsModelMissing(err))

	var missing *model.ModelMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "llama3.2", missing.Model)
}

func TestCompleteServerError(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "out of memory"})
	})

	_, err := backend.Complete(context.Background(), chatReq())
	require.Error(t, err)
	assert.False(t, model.IsModelMissing(err))
	assert.ErrorContains(t, err, "out of memory")
}

func TestCompleteStream(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		enc := json.NewEncoder(w)
		enc.Encode(chatResponse{Message: chatMessage{Content: "Hel"}})
		enc.Encode(chatResponse{Message: chatMessage{Content: "lo"}})
		enc.Encode(chatResponse{Done: true, PromptEvalCount: 5, EvalCount: 2})
	})

	out, errCh := backend.CompleteStream(context.Background(), chatReq())
	var got string
	for fragment := range out {
		got += fragment
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello", got)
}

func TestCompleteStreamMidStreamError(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(chatResponse{Message: chatMessage{Content: "par"}})
		enc.Encode(chatResponse{Error: "runtime crashed"})
	})

	out, errCh := backend.CompleteStream(context.Background(), chatReq())
	var got string
	for fragment := range out {
		got += fragment
	}
	assert.Equal(t, "par", got)
	assert.ErrorContains(t, <-errCh, "runtime crashed")
}

func TestPullReportsProgress(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pull", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req["name"])

		enc := json.NewEncoder(w)
		enc.Encode(pullChunk{Status: "pulling manifest"})
		enc.Encode(pullChunk{Status: "downloading", Completed: 50, Total: 100})
		enc.Encode(pullChunk{Status: "success"})
	})

	var seen []model.PullProgress
	err := backend.Pull(context.Background(), "llama3.2", func(p model.PullProgress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, "pulling manifest", seen[0].Status)
	assert.Equal(t, int64(50), seen[1].Completed)
	assert.Equal(t, int64(100), seen[1].Total)
	assert.Equal(t, "success", seen[2].Status)
}

func TestPullError(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pullChunk{Error: "pull model manifest: file does not exist"})
	})

	err := backend.Pull(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, "file does not exist")
}

func TestIsHealthy(t *testing.T) {
	healthy := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[]}`)
	})
	assert.True(t, healthy.IsHealthy(context.Background()))

	down := New("llama3.2", func(o *Options) {
		o.BaseURL = "http://127.0.0.1:1"
	})
	assert.False(t, down.IsHealthy(context.Background()))
}

func TestInfo(t *testing.T) {
	b := New("qwen2.5:7b")
	assert.Equal(t, model.Info{Name: "qwen2.5:7b", Provider: "ollama", Kind: model.KindLocal}, b.Info())
}
