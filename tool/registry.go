package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry holds the tools available to one agent. Tools are registered
// explicitly (no reflection discovery) at agent construction and never
// mutated afterwards, which makes the registry safe for concurrent reads.
// Registration order is preserved for prompt rendering.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates a registry from the given tools. Duplicate names are
// rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. It fails on nil tools, empty or duplicate names.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register: nil tool")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("register: tool with empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("register: duplicate tool name %q", name)
	}
	r.order = append(r.order, name)
	r.tools[name] = t
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// RenderInstructions renders the tool descriptions plus the required call
// syntax for injection into the system context of a ReAct cycle.
func (r *Registry) RenderInstructions() string {
	var b strings.Builder
	b.WriteString("You have access to the following tools:\n\n")
	for _, name := range r.order {
		t := r.tools[name]
		b.WriteString(fmt.Sprintf("- %s: %s\n", t.Name(), t.Description()))
		if params := t.Parameters(); len(params) > 0 {
			if raw, err := json.Marshal(params); err == nil {
				b.WriteString(fmt.Sprintf("  Input schema: %s\n", raw))
			}
		}
	}
	b.WriteString("\nTo call a tool, respond with exactly one invocation in this format:\n")
	b.WriteString("<tool>tool_name</tool><input>{\"argument\": \"value\"}</input>\n")
	b.WriteString("\nAfter each tool result you may call another tool or give the final answer.\n")
	b.WriteString("When you can answer without tools, reply with the answer directly.")
	return b.String()
}
