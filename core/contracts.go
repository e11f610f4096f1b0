package core

import "context"

// KnowledgeSource retrieves passages relevant to a query. Implementations may
// be backed by vector similarity, keyword matching or any other heuristic;
// the engine only relies on the returned ordering being most-relevant-first.
//
// Search may be non-deterministic between calls; callers must tolerate that.
type KnowledgeSource interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Redactor transforms text to remove sensitive substrings before it leaves
// the local process. It must be pure and synchronous: same input, same
// output, no side effects. Redaction never drops a message, it only rewrites
// content.
type Redactor func(text string) string
