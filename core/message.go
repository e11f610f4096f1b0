package core

import "github.com/google/uuid"

// Role identifies the author of a conversational message.
type Role string

// Conversational roles exchanged with inference backends.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn of a conversation. An ordered slice of Messages
// forms the conversation passed between agents, routers and backends.
//
// Messages are treated as immutable once constructed. Content changes (for
// example after redaction) produce a new Message via WithContent rather than
// mutating the original, so histories can be shared between invocations
// without copying them first.
type Message struct {
	Role     Role              `json:"role"`
	Content  string            `json:"content"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage creates a tool-role message attributed to the named tool.
func ToolMessage(name, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: name}
}

// WithContent returns a copy of the message carrying the given content.
// Metadata is shared, not copied; callers must not mutate it.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// LastUserIndex returns the index of the most recent user-role message in
// history, or -1 when none exists.
func LastUserIndex(history []Message) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// NewID generates a unique identifier used to correlate invocations and
// tool calls in logs.
func NewID() string { return uuid.NewString() }
