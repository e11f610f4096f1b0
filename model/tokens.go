package model

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/loomlab/loom/core"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens approximates the token count of a conversation using the
// cl100k_base encoding. It is an estimate for budget warnings and logging,
// not an exact provider-side count; when the encoder cannot be initialized
// (the encoding data may require a download) it falls back to a bytes/4
// heuristic.
func EstimateTokens(messages []core.Message) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})

	total := 0
	for _, m := range messages {
		// Per-message framing overhead: role markers and separators.
		total += 4
		if enc != nil {
			total += len(enc.Encode(m.Content, nil, nil))
			continue
		}
		total += len(m.Content) / 4
	}
	return total
}
