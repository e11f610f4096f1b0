// Package redact provides pattern-based scrubbing of sensitive substrings.
// The engine consumes it through the core.Redactor contract: a pure,
// synchronous text transformation that never drops a message.
package redact

import "regexp"

// Pattern pairs a compiled expression with its replacement placeholder.
type Pattern struct {
	Name        string
	Expr        *regexp.Regexp
	Replacement string
}

// defaultPatterns covers the credential and PII shapes most likely to leak
// into prompts. Order matters: more specific shapes run first so a bearer
// token is not half-eaten by the generic key pattern.
var defaultPatterns = []Pattern{
	{
		Name:        "bearer_token",
		Expr:        regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-._~+/]+=*`),
		Replacement: "[REDACTED_TOKEN]",
	},
	{
		Name:        "api_key",
		Expr:        regexp.MustCompile(`\b(?:sk|pk|rk|api|key)[-_][A-Za-z0-9\-_]{16,}\b`),
		Replacement: "[REDACTED_KEY]",
	},
	{
		Name:        "email",
		Expr:        regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
		Replacement: "[REDACTED_EMAIL]",
	},
	{
		Name:        "card_number",
		Expr:        regexp.MustCompile(`\b\d(?:[ \-]?\d){12,15}\b`),
		Replacement: "[REDACTED_CARD]",
	},
	{
		Name:        "ipv4",
		Expr:        regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		Replacement: "[REDACTED_IP]",
	},
}

// Scrubber applies an ordered pattern set. The zero value is unusable; build
// one with NewScrubber.
type Scrubber struct {
	patterns []Pattern
}

// NewScrubber creates a Scrubber over the given patterns, or the default set
// when none are supplied.
func NewScrubber(patterns ...Pattern) *Scrubber {
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	return &Scrubber{patterns: patterns}
}

// Redact replaces every match of every pattern with its placeholder.
func (s *Scrubber) Redact(text string) string {
	for _, p := range s.patterns {
		text = p.Expr.ReplaceAllString(text, p.Replacement)
	}
	return text
}

var defaultScrubber = NewScrubber()

// Redact scrubs text with the default pattern set. It satisfies
// core.Redactor.
func Redact(text string) string {
	return defaultScrubber.Redact(text)
}
