package core

// TokenUsage captures token accounting for one or more backend calls.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage record into u. Used by the ReAct loop and
// the workflow to aggregate usage across multiple backend round trips.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the final outcome of an agent (or workflow) invocation.
type Response struct {
	Content string     `json:"content"`
	Usage   TokenUsage `json:"usage"`
}
