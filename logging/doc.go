// Package logging provides a tiny abstraction over slog so the engine can
// depend on a minimal interface (Logger) while callers plug in any structured
// logger. A NoOpLogger keeps logging optional: every component substitutes it
// when constructed with nil.
package logging
