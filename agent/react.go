package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/tool"
)

// runLoop drives the think/act/observe state machine:
//
//	THINK -> (ACT -> OBSERVE)? -> {THINK | DONE}
//
// Each cycle is one backend call; when the response contains a tool
// invocation the tool runs once and its (possibly failed) result is appended
// as an observation, otherwise the response is the final answer. The loop is
// bounded by MaxCycles: tool failures become observations and consume a
// cycle, which lets the model abandon a failing tool for a different one
// instead of retrying the same call without bound. Reaching the bound forces
// termination with the last produced content, even if incomplete.
func (a *Agent) runLoop(ctx context.Context, msgs []core.Message) (*core.Response, error) {
	conv := make([]core.Message, len(msgs))
	copy(conv, msgs)

	// The rendered tool catalog and call syntax ride on the system message.
	conv[0] = conv[0].WithContent(conv[0].Content + "\n\n" + a.registry.RenderInstructions())

	var usage core.TokenUsage
	var last string

	for cycle := 1; cycle <= a.cfg.MaxCycles; cycle++ {
		completion, err := a.complete(ctx, conv)
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		usage.Add(completion.Usage)
		last = completion.Content

		call := tool.ParseCall(completion.Content)
		if call == nil {
			a.logger.Debug("agent.loop.done", "agent", a.name, "cycles", cycle)
			return &core.Response{Content: completion.Content, Usage: usage}, nil
		}

		observation := a.executeCall(ctx, call)
		a.logger.Debug("agent.loop.observe",
			"agent", a.name, "cycle", cycle, "tool", call.Name)

		conv = append(conv,
			core.AssistantMessage(completion.Content),
			core.UserMessage(fmt.Sprintf("Tool Result for %s: %s", call.Name, observation)),
		)
	}

	a.logger.Warn("agent.loop.max_cycles",
		"agent", a.name, "max_cycles", a.cfg.MaxCycles)
	return &core.Response{Content: last, Usage: usage}, nil
}

// executeCall runs one parsed tool invocation and serializes its outcome to
// the JSON observation fed back to the model. Failures (unknown names,
// validation errors, execution errors) are observations, never Go errors:
// the model sees them and chooses the next action.
func (a *Agent) executeCall(ctx context.Context, call *tool.Call) string {
	t, ok := a.registry.Get(call.Name)
	if !ok {
		notFound := &tool.NotFoundError{Name: call.Name, Valid: a.registry.Names()}
		a.logger.Warn("agent.tool.not_found", "agent", a.name, "tool", call.Name)
		return marshalObservation(map[string]any{"error": notFound.Error()})
	}

	result, err := t.Call(ctx, call.Input)
	if err != nil {
		a.logger.Warn("agent.tool.error",
			"agent", a.name, "tool", call.Name, "error", err.Error())
		return marshalObservation(map[string]any{"error": err.Error()})
	}

	return marshalObservation(result)
}

// marshalObservation always yields a JSON string, falling back to a quoted
// render when the result itself does not serialize.
func marshalObservation(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		raw, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return string(raw)
}
