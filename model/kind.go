package model

import "strings"

// Kind distinguishes the two backend families.
type Kind string

// Backend kinds derived from model identifier shape.
const (
	KindLocal Kind = "local"
	KindCloud Kind = "cloud"
)

// NamespaceSeparator splits a provider namespace from a model name in cloud
// identifiers, e.g. "anthropic/claude-3-5-haiku-latest".
const NamespaceSeparator = "/"

// KindFor derives the backend kind from a model identifier. Identifiers
// carrying a namespace separator target a cloud API; bare identifiers target
// the local runtime.
func KindFor(identifier string) Kind {
	if strings.Contains(identifier, NamespaceSeparator) {
		return KindCloud
	}
	return KindLocal
}

// SplitIdentifier splits a cloud identifier into provider namespace and model
// name. For local identifiers the provider is empty and the name is the
// identifier itself.
func SplitIdentifier(identifier string) (provider, name string) {
	before, after, found := strings.Cut(identifier, NamespaceSeparator)
	if !found {
		return "", identifier
	}
	return before, after
}
