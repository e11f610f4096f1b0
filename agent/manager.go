package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/tool"
)

// NewManager builds a delegating agent: every sub-agent is exposed to the
// parent as a synthesized tool whose executor forwards the delegated task as
// a fresh single-message conversation. Sub-agent failures are captured in the
// tool result as data, never re-raised, so the parent can route around a
// broken specialist.
//
// The parent is an ordinary Agent built by composition: the synthesized
// tools are unioned with any directly supplied ones, the system prompt
// describes the team and the plan/delegate/synthesize protocol (with a
// caller-supplied SystemPrompt appended as additional instructions), and the
// cycle bound defaults to DefaultManagerMaxCycles since delegation chains
// need more cycles than flat tool use.
func NewManager(name string, subAgents []*Agent, optFns ...func(o *Options)) (*Agent, error) {
	if len(subAgents) == 0 {
		return nil, fmt.Errorf("manager %q: at least one sub-agent is required", name)
	}

	opts := defaultOptions()
	opts.Config.MaxCycles = DefaultManagerMaxCycles
	for _, fn := range optFns {
		fn(&opts)
	}

	delegates := make([]tool.Tool, 0, len(subAgents))
	for _, sub := range subAgents {
		d, err := newDelegateTool(sub)
		if err != nil {
			return nil, fmt.Errorf("manager %q: %w", name, err)
		}
		delegates = append(delegates, d)
	}
	opts.Tools = append(delegates, opts.Tools...)

	opts.SystemPrompt = managerPrompt(name, subAgents, opts.SystemPrompt)

	return newFromOptions(name, opts)
}

// newDelegateTool wraps a sub-agent as a tool on the parent.
func newDelegateTool(sub *Agent) (tool.Tool, error) {
	name := sanitizeToolName(sub.Name())
	description := fmt.Sprintf("Delegate a task to %s. %s", sub.Name(), sub.Description())

	parameters := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task": map[string]any{
				"type":        "string",
				"description": "The task to delegate, phrased as a complete instruction.",
			},
		},
		"required": []any{"task"},
	}

	return tool.NewFunctionTool(name, description, parameters, func(ctx context.Context, args map[string]any) (any, error) {
		task, _ := args["task"].(string)

		resp, err := sub.Invoke(ctx, []core.Message{core.UserMessage(task)})
		if err != nil {
			return map[string]any{"agent": sub.Name(), "error": err.Error()}, nil
		}
		return map[string]any{
			"agent":  sub.Name(),
			"output": resp.Content,
			"usage":  resp.Usage,
		}, nil
	})
}

// sanitizeToolName lowercases the agent name and replaces every
// non-alphanumeric run with a single underscore.
func sanitizeToolName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// managerPrompt synthesizes the team description and delegation protocol.
func managerPrompt(name string, subAgents []*Agent, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, the manager of a team of specialist agents.\n\nYour team:\n", name)
	for _, sub := range subAgents {
		fmt.Fprintf(&b, "- %s (%s): %s\n", sub.Name(), sanitizeToolName(sub.Name()), sub.Description())
	}
	b.WriteString("\nWork in three steps:\n")
	b.WriteString("1. Plan: break the request into tasks for your specialists.\n")
	b.WriteString("2. Delegate: call the matching agent tool with a complete, self-contained task.\n")
	b.WriteString("3. Synthesize: combine the results into one final answer.\n")
	b.WriteString("Delegate whenever a specialist covers the task better than you do.")
	if extra != "" {
		b.WriteString("\n\n")
		b.WriteString(extra)
	}
	return b.String()
}
