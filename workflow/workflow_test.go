package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomlab/loom/core"
)

// recordingStage answers with a fixed reply and remembers every conversation
// it was handed.
type recordingStage struct {
	mu       sync.Mutex
	name     string
	reply    string
	usage    core.TokenUsage
	err      error
	received [][]core.Message
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Invoke(ctx context.Context, history []core.Message) (*core.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, history)
	if s.err != nil {
		return nil, s.err
	}
	return &core.Response{Content: s.reply, Usage: s.usage}, nil
}

func (s *recordingStage) Stream(ctx context.Context, history []core.Message) (<-chan string, <-chan error) {
	s.mu.Lock()
	s.received = append(s.received, history)
	reply, err := s.reply, s.err
	s.mu.Unlock()

	out := make(chan string, 4)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		if err != nil {
			errCh <- err
			return
		}
		for _, r := range reply {
			out <- string(r)
		}
	}()
	return out, errCh
}

func newStage(name, reply string) *recordingStage {
	return &recordingStage{name: name, reply: reply, usage: core.TokenUsage{TotalTokens: 10}}
}

func TestInvokeThreadsConversation(t *testing.T) {
	outliner := newStage("outliner", "1. intro 2. body")
	writer := newStage("writer", "A fine essay.")
	editor := newStage("editor", "A polished essay.")

	w := New("essay")
	require.NoError(t, w.Add(outliner))
	require.NoError(t, w.Add(writer))
	require.NoError(t, w.Add(editor))
	w.Build()

	result, err := w.Invoke(context.Background(), []core.Message{
		core.UserMessage("Write about Go."),
	})
	require.NoError(t, err)
	assert.Equal(t, "A polished essay.", result.Content)
	assert.Equal(t, 30, result.Usage.TotalTokens)
	assert.Empty(t, result.StageResponses)

	// Each stage sees the original request plus every prior stage's reply.
	require.Len(t, outliner.received, 1)
	assert.Len(t, outliner.received[0], 1)

	require.Len(t, writer.received, 1)
	require.Len(t, writer.received[0], 2)
	assert.Equal(t, core.RoleAssistant, writer.received[0][1].Role)
	assert.Equal(t, "1. intro 2. body", writer.received[0][1].Content)

	require.Len(t, editor.received, 1)
	require.Len(t, editor.received[0], 3)
	assert.Equal(t, "A fine essay.", editor.received[0][2].Content)
}

func TestInvokeDoesNotMutateHistory(t *testing.T) {
	w := New("w")
	require.NoError(t, w.Add(newStage("only", "reply")))

	history := []core.Message{core.UserMessage("hi")}
	_, err := w.Invoke(context.Background(), history)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestInvokeCaptureStages(t *testing.T) {
	w := New("w")
	require.NoError(t, w.Add(newStage("a", "first")))
	require.NoError(t, w.Add(newStage("b", "second")))

	result, err := w.Invoke(context.Background(), []core.Message{core.UserMessage("hi")},
		func(o *RunOptions) { o.CaptureStages = true })
	require.NoError(t, err)
	require.Len(t, result.StageResponses, 2)
	assert.Equal(t, "first", result.StageResponses[0].Content)
	assert.Equal(t, "second", result.StageResponses[1].Content)
}

func TestInvokeStageErrorPosition(t *testing.T) {
	boom := fmt.Errorf("backend down")
	w := New("w")
	require.NoError(t, w.Add(newStage("a", "ok")))
	require.NoError(t, w.Add(&recordingStage{name: "b", err: boom}))
	require.NoError(t, w.Add(newStage("c", "never runs")))

	_, err := w.Invoke(context.Background(), []core.Message{core.UserMessage("hi")})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 2, stageErr.Index)
	assert.Equal(t, "b", stageErr.Stage)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage 2 (b)")
}

func TestInvokeEmptyWorkflow(t *testing.T) {
	_, err := New("empty").Invoke(context.Background(), []core.Message{core.UserMessage("hi")})
	assert.ErrorContains(t, err, "no stages")
}

func TestAddValidation(t *testing.T) {
	w := New("w")
	assert.ErrorContains(t, w.Add(nil), "nil stage")

	require.NoError(t, w.Add(newStage("a", "ok")))
	w.Build()
	assert.ErrorContains(t, w.Add(newStage("b", "ok")), "sealed")
}

func TestStreamSurfacesFinalStageOnly(t *testing.T) {
	first := newStage("first", "draft")
	last := newStage("last", "final")

	w := New("w")
	require.NoError(t, w.Add(first))
	require.NoError(t, w.Add(last))

	out, errCh := w.Stream(context.Background(), []core.Message{core.UserMessage("hi")})
	var got string
	for fragment := range out {
		got += fragment
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "final", got)

	// The silenced stage's full output still reached the next stage.
	require.Len(t, last.received, 1)
	assert.Equal(t, "draft", last.received[0][1].Content)
}

func TestStreamCaptureSurfacesAllStages(t *testing.T) {
	w := New("w")
	require.NoError(t, w.Add(newStage("first", "draft")))
	require.NoError(t, w.Add(newStage("last", "final")))

	out, errCh := w.Stream(context.Background(), []core.Message{core.UserMessage("hi")},
		func(o *RunOptions) { o.CaptureStages = true })
	var got string
	for fragment := range out {
		got += fragment
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "draftfinal", got)
}

func TestStreamStageError(t *testing.T) {
	w := New("w")
	require.NoError(t, w.Add(newStage("a", "ok")))
	require.NoError(t, w.Add(&recordingStage{name: "b", err: fmt.Errorf("mid failure")}))

	out, errCh := w.Stream(context.Background(), []core.Message{core.UserMessage("hi")})
	for range out {
	}
	err := <-errCh

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 2, stageErr.Index)
}
