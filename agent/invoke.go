package agent

import (
	"context"
	"fmt"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/model"
)

// Invoke runs one complete agent turn over the supplied conversation and
// returns the final content with aggregated token usage. With a non-empty
// tool registry the turn is a bounded think/act/observe loop; otherwise it is
// a single backend call.
func (a *Agent) Invoke(ctx context.Context, history []core.Message) (*core.Response, error) {
	msgs := a.prepareContext(ctx, history)

	if est := model.EstimateTokens(msgs); est > a.cfg.MaxTokens {
		a.logger.Warn("agent.context.over_budget",
			"agent", a.name, "estimated_tokens", est, "max_tokens", a.cfg.MaxTokens)
	}

	a.logger.Debug("agent.invoke.start",
		"agent", a.name, "model", a.modelID, "messages", len(msgs), "tools", a.registry.Len())

	if a.registry.Len() > 0 {
		return a.runLoop(ctx, msgs)
	}

	completion, err := a.complete(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &core.Response{Content: completion.Content, Usage: completion.Usage}, nil
}

// Stream runs the same context assembly as Invoke, then streams text
// fragments from the backend. The returned fragment channel closes when the
// backend signals completion; the error channel carries at most one terminal
// error. A stream is not restartable; a fresh call re-runs context assembly.
func (a *Agent) Stream(ctx context.Context, history []core.Message) (<-chan string, <-chan error) {
	msgs := a.prepareContext(ctx, history)
	req := a.request(msgs)

	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		fragments, backendErrs := a.backend.CompleteStream(ctx, req)
		relayed := relay(ctx, fragments, out)

		if err := <-backendErrs; err != nil {
			// The model-missing recovery only applies when nothing was
			// surfaced yet; a mid-stream failure propagates unmodified.
			if relayed == 0 && model.IsModelMissing(err) {
				if provErr := a.provision(ctx, err); provErr != nil {
					errCh <- provErr
					return
				}
				fragments, backendErrs = a.backend.CompleteStream(ctx, req)
				relay(ctx, fragments, out)
				if err := <-backendErrs; err != nil {
					errCh <- err
				}
				return
			}
			errCh <- err
		}
	}()

	return out, errCh
}

// relay forwards fragments until the source closes, returning the count.
func relay(ctx context.Context, in <-chan string, out chan<- string) int {
	n := 0
	for fragment := range in {
		select {
		case out <- fragment:
			n++
		case <-ctx.Done():
			return n
		}
	}
	return n
}

func (a *Agent) request(msgs []core.Message) model.Request {
	return model.Request{
		Messages:    msgs,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
}

// complete performs one backend round trip with the single-shot recovery
// path: a locally missing model is pulled once, then the original call is
// retried exactly once. Every other failure propagates unmodified.
func (a *Agent) complete(ctx context.Context, msgs []core.Message) (*model.Completion, error) {
	req := a.request(msgs)

	completion, err := a.backend.Complete(ctx, req)
	if err == nil || !model.IsModelMissing(err) {
		return completion, err
	}

	if provErr := a.provision(ctx, err); provErr != nil {
		return nil, provErr
	}
	return a.backend.Complete(ctx, req)
}

// provision pulls the missing model through the backend's Provisioner
// capability, surfacing fetch progress through the logger.
func (a *Agent) provision(ctx context.Context, cause error) error {
	provisioner, ok := a.backend.(model.Provisioner)
	if !ok {
		return cause
	}

	name := a.backend.Info().Name
	a.logger.Warn("agent.model.missing", "agent", a.name, "model", name)

	err := provisioner.Pull(ctx, name, func(p model.PullProgress) {
		a.logger.Info("agent.model.pull.progress",
			"model", name, "status", p.Status, "completed", p.Completed, "total", p.Total)
	})
	if err != nil {
		return fmt.Errorf("provision model %q: %w", name, err)
	}
	return nil
}
