// Package model defines the backend capability contract that agents drive:
// a single-shot completion call and a streaming variant, implemented once per
// inference provider. Subpackages supply the concrete adapters (openai,
// anthropic, ollama).
//
// Backend selection is static: the shape of a model identifier decides the
// kind at construction time (a provider namespace such as "openai/gpt-4o-mini"
// targets a cloud API, a bare "llama3.2" targets the local runtime) and is
// never re-evaluated per call.
package model
