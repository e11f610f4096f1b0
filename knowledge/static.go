// Package knowledge provides a keyword-scored in-memory implementation of
// the core.KnowledgeSource contract, suitable for small curated corpora and
// for tests. Vector-backed stores plug in through the same contract.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Passage is one retrievable unit of the store.
type Passage struct {
	Title    string   `json:"title,omitempty"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords,omitempty"`
}

// StaticStore answers Search by keyword overlap between the query and each
// passage's content and keywords. Read-only after construction, safe for
// concurrent use.
type StaticStore struct {
	passages []Passage
}

// NewStaticStore creates a store over the given passages.
func NewStaticStore(passages ...Passage) *StaticStore {
	return &StaticStore{passages: passages}
}

// LoadStaticStore reads a JSON array of passages from path.
func LoadStaticStore(path string) (*StaticStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var passages []Passage
	if err := json.Unmarshal(raw, &passages); err != nil {
		return nil, fmt.Errorf("parse knowledge file: %w", err)
	}
	return NewStaticStore(passages...), nil
}

// Search implements core.KnowledgeSource. Results are ordered by descending
// keyword overlap; passages with no overlap are omitted.
func (s *StaticStore) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	terms := tokenize(query)
	type scored struct {
		score   int
		index   int
		content string
	}
	var hits []scored
	for i, p := range s.passages {
		score := overlap(terms, p)
		if score > 0 {
			hits = append(hits, scored{score: score, index: i, content: p.Content})
		}
	}

	// Stable by original order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.content
	}
	return out, nil
}

func tokenize(text string) map[string]struct{} {
	terms := map[string]struct{}{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if len(f) > 2 {
			terms[f] = struct{}{}
		}
	}
	return terms
}

func overlap(terms map[string]struct{}, p Passage) int {
	score := 0
	for _, kw := range p.Keywords {
		if _, ok := terms[strings.ToLower(kw)]; ok {
			score += 2
		}
	}
	for t := range tokenize(p.Content) {
		if _, ok := terms[t]; ok {
			score++
		}
	}
	return score
}
