package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomlab/loom/core"
)

// Request captures the normalized input for one backend call.
type Request struct {
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
}

// Completion is the result of a non-streaming backend call.
type Completion struct {
	Content string          `json:"content"`
	Usage   core.TokenUsage `json:"usage"`
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "ollama"
	Kind     Kind   `json:"kind"`
}

// Backend is the minimal interface agents require to drive generation.
//
// Complete performs one blocking round trip. CompleteStream returns a channel
// of text fragments that is closed when the backend signals completion, plus
// an error channel carrying at most one terminal error. Implementations must
// close both channels and must respect context cancellation at every
// suspension point.
type Backend interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	CompleteStream(ctx context.Context, req Request) (<-chan string, <-chan error)
	Info() Info
}

// PullProgress reports one step of a model download.
type PullProgress struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
}

// Provisioner is implemented by backends able to fetch a missing model into
// the local runtime. The agent uses it for the one-shot recovery path: on a
// ModelMissingError it pulls the named model, then retries the original call
// exactly once.
type Provisioner interface {
	Pull(ctx context.Context, name string, progress func(PullProgress)) error
}

// ErrMissingCredential is returned when a cloud backend is constructed
// without an API credential. It fails fast, before any network attempt.
var ErrMissingCredential = errors.New("missing API credential")

// ModelMissingError indicates the local runtime does not have the requested
// model. It is the only backend failure with an automatic recovery path.
type ModelMissingError struct {
	Model string
}

func (e *ModelMissingError) Error() string {
	return fmt.Sprintf("model %q is not available in the local runtime", e.Model)
}

// IsModelMissing reports whether err carries a ModelMissingError.
func IsModelMissing(err error) bool {
	var mm *ModelMissingError
	return errors.As(err, &mm)
}
