package agent

import (
	"context"
	"strings"

	"github.com/loomlab/loom/core"
)

// Passages retrieved per knowledge query.
const knowledgeLimit = 3

// prepareContext assembles the conversation sent to the backend:
//
//  1. The most recent user message is redacted when redaction is enabled.
//  2. When a knowledge source is attached it is queried with the (possibly
//     redacted) content; returned passages wrap the message as
//     "CONTEXT:\n...\n\nQUESTION:\n...".
//  3. The effective system prompt is inserted as a leading system message, or
//     prepended to an existing one; caller-supplied system content is never
//     discarded.
//
// The input history is not mutated; transformed messages are fresh values.
// Apart from the knowledge-source call, which may be non-deterministic, the
// result is a pure function of the inputs and the agent's immutable fields.
func (a *Agent) prepareContext(ctx context.Context, history []core.Message) []core.Message {
	out := make([]core.Message, len(history))
	copy(out, history)

	if idx := core.LastUserIndex(out); idx >= 0 {
		content := out[idx].Content

		if a.redaction && a.redactor != nil {
			content = a.redactor(content)
			out[idx] = out[idx].WithContent(content)
		}

		if a.knowledge != nil {
			passages, err := a.knowledge.Search(ctx, content, knowledgeLimit)
			if err != nil {
				a.logger.Warn("agent.knowledge.error", "agent", a.name, "error", err.Error())
			} else if len(passages) > 0 {
				wrapped := "CONTEXT:\n" + strings.Join(passages, "\n") + "\n\nQUESTION:\n" + content
				out[idx] = out[idx].WithContent(wrapped)
			}
		}
	}

	if len(out) == 0 || out[0].Role != core.RoleSystem {
		out = append([]core.Message{core.SystemMessage(a.systemPrompt)}, out...)
	} else {
		out[0] = out[0].WithContent(a.systemPrompt + "\n\n" + out[0].Content)
	}

	return out
}
