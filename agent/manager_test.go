package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomlab/loom/core"
)

func newSubAgent(t *testing.T, name, description string, backend *mockBackend) *Agent {
	t.Helper()
	a, err := New(name, func(o *Options) {
		o.Description = description
		o.Backend = backend
	})
	require.NoError(t, err)
	return a
}

func TestNewManagerRequiresSubAgents(t *testing.T) {
	_, err := NewManager("boss", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "at least one sub-agent")
}

func TestManagerDefaults(t *testing.T) {
	sub := newSubAgent(t, "worker", "Does the work.", (&mockBackend{}).script("ok"))

	m, err := NewManager("boss", []*Agent{sub}, func(o *Options) {
		o.Backend = (&mockBackend{}).script("ok")
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultManagerMaxCycles, m.cfg.MaxCycles)

	// The delegate tool is registered under the sanitized sub-agent name.
	_, ok := m.registry.Get("worker")
	assert.True(t, ok)
}

func TestManagerMaxCyclesOverride(t *testing.T) {
	sub := newSubAgent(t, "worker", "Does the work.", (&mockBackend{}).script("ok"))

	m, err := NewManager("boss", []*Agent{sub}, func(o *Options) {
		o.Backend = (&mockBackend{}).script("ok")
		o.Config.MaxCycles = 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.cfg.MaxCycles)
}

func TestManagerPromptDescribesTeam(t *testing.T) {
	research := newSubAgent(t, "Research Agent", "Finds facts.", (&mockBackend{}).script("ok"))
	editor := newSubAgent(t, "Editor", "Polishes prose.", (&mockBackend{}).script("ok"))
	parent := (&mockBackend{}).script("done")

	m, err := NewManager("newsroom", []*Agent{research, editor}, func(o *Options) {
		o.Backend = parent
		o.SystemPrompt = "Always answer in English."
	})
	require.NoError(t, err)

	_, err = m.Invoke(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	system := parent.request(0).Messages[0].Content
	assert.Contains(t, system, "Research Agent (research_agent): Finds facts.")
	assert.Contains(t, system, "Editor (editor): Polishes prose.")
	assert.Contains(t, system, "Delegate")
	assert.Contains(t, system, "Always answer in English.")
}

func TestManagerDelegation(t *testing.T) {
	subBackend := (&mockBackend{}).script("Paris is the capital of France.")
	sub := newSubAgent(t, "geographer", "Knows places.", subBackend)

	parent := (&mockBackend{}).script(
		`<tool>geographer</tool><input>{"task":"Name the capital of France."}</input>`,
		"The capital is Paris.",
	)
	m, err := NewManager("boss", []*Agent{sub}, func(o *Options) {
		o.Backend = parent
	})
	require.NoError(t, err)

	resp, err := m.Invoke(context.Background(), []core.Message{
		core.UserMessage("What is the capital of France?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "The capital is Paris.", resp.Content)

	// The sub-agent saw the delegated task as a fresh conversation.
	subMsgs := subBackend.request(0).Messages
	assert.Equal(t, "Name the capital of France.", subMsgs[len(subMsgs)-1].Content)

	// The observation fed back to the parent carries the structured result.
	observation := parent.request(1).Messages[len(parent.request(1).Messages)-1].Content
	assert.Contains(t, observation, `"agent":"geographer"`)
	assert.Contains(t, observation, "Paris is the capital of France.")
}

func TestManagerCapturesSubAgentError(t *testing.T) {
	subBackend := &mockBackend{errs: []error{assert.AnError}}
	sub := newSubAgent(t, "flaky", "Sometimes breaks.", subBackend)

	parent := (&mockBackend{}).script(
		`<tool>flaky</tool><input>{"task":"do something"}</input>`,
		"The specialist failed, answering directly instead.",
	)
	m, err := NewManager("boss", []*Agent{sub}, func(o *Options) {
		o.Backend = parent
	})
	require.NoError(t, err)

	resp, err := m.Invoke(context.Background(), []core.Message{core.UserMessage("go")})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "answering directly")

	observation := parent.request(1).Messages[len(parent.request(1).Messages)-1].Content
	assert.Contains(t, observation, `"agent":"flaky"`)
	assert.Contains(t, observation, `"error"`)
}

func TestSanitizeToolName(t *testing.T) {
	cases := map[string]string{
		"Research Agent":    "research_agent",
		"editor":            "editor",
		"  spaced  out  ":   "spaced_out",
		"C++ Expert!":       "c_expert",
		"Agent-47":          "agent_47",
		"___":               "",
		"Mixed CASE Name 2": "mixed_case_name_2",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeToolName(in), "input %q", in)
	}
}
