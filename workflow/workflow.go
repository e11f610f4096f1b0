// Package workflow composes agents and routers into a sequential pipeline.
// Each stage receives the conversation accumulated so far; its response is
// appended as an assistant message before the next stage runs. Stage failures
// are wrapped with their 1-based position so callers see exactly where a
// pipeline broke.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomlab/loom/core"
	"github.com/loomlab/loom/logging"
)

// Stage is one pipeline step, satisfied by *agent.Agent and *router.Router.
type Stage interface {
	Name() string
	Invoke(ctx context.Context, history []core.Message) (*core.Response, error)
	Stream(ctx context.Context, history []core.Message) (<-chan string, <-chan error)
}

// StageError wraps a stage failure with its 1-based pipeline position.
type StageError struct {
	Index int
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("workflow stage %d (%s): %v", e.Index, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options configures a Workflow.
type Options struct {
	Logger logging.Logger
}

// Workflow is an ordered sequence of stages. Stages may be added until Build
// seals the pipeline; execution is always in insertion order.
type Workflow struct {
	name   string
	stages []Stage
	sealed bool
	logger logging.Logger
}

// New creates an empty workflow.
func New(name string, optFns ...func(o *Options)) *Workflow {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Workflow{name: name, logger: logging.OrNoOp(opts.Logger)}
}

// Add appends a stage. Nil stages are rejected, as is adding after Build.
func (w *Workflow) Add(stage Stage) error {
	if stage == nil {
		return fmt.Errorf("workflow %q: nil stage", w.name)
	}
	if w.sealed {
		return fmt.Errorf("workflow %q: sealed by Build, no further stages", w.name)
	}
	w.stages = append(w.stages, stage)
	return nil
}

// Build seals the workflow and returns it for chaining. A sealed workflow
// rejects further Add calls.
func (w *Workflow) Build() *Workflow {
	w.sealed = true
	return w
}

// Name returns the workflow's name.
func (w *Workflow) Name() string { return w.name }

// RunOptions configure one execution.
type RunOptions struct {
	// CaptureStages collects every stage's raw response in Result, and makes
	// Stream surface every stage's fragments instead of only the final one.
	CaptureStages bool
}

// Result is the outcome of a workflow invocation. Content is the final
// stage's content; StageResponses is populated only when capture was
// requested.
type Result struct {
	Content        string          `json:"content"`
	Usage          core.TokenUsage `json:"usage"`
	StageResponses []core.Response `json:"stage_responses,omitempty"`
}

// Invoke runs every stage in insertion order, threading the accumulated
// conversation through the pipeline. A stage failure is wrapped in a
// StageError and returned immediately.
func (w *Workflow) Invoke(ctx context.Context, history []core.Message, optFns ...func(o *RunOptions)) (*Result, error) {
	var opts RunOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if len(w.stages) == 0 {
		return nil, fmt.Errorf("workflow %q: no stages", w.name)
	}

	conv := make([]core.Message, len(history))
	copy(conv, history)

	result := &Result{}
	for i, stage := range w.stages {
		w.logger.Debug("workflow.stage.start", "workflow", w.name, "stage", i+1, "name", stage.Name())

		resp, err := stage.Invoke(ctx, conv)
		if err != nil {
			return nil, &StageError{Index: i + 1, Stage: stage.Name(), Err: err}
		}

		result.Usage.Add(resp.Usage)
		result.Content = resp.Content
		if opts.CaptureStages {
			result.StageResponses = append(result.StageResponses, *resp)
		}

		conv = append(conv, core.AssistantMessage(resp.Content))
	}

	return result, nil
}

// Stream executes the stages sequentially, streaming fragments. Only the
// final stage's fragments are surfaced unless capture is requested, but every
// stage's fully-consumed output is still appended to the conversation passed
// to the next stage.
func (w *Workflow) Stream(ctx context.Context, history []core.Message, optFns ...func(o *RunOptions)) (<-chan string, <-chan error) {
	var opts RunOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if len(w.stages) == 0 {
			errCh <- fmt.Errorf("workflow %q: no stages", w.name)
			return
		}

		conv := make([]core.Message, len(history))
		copy(conv, history)

		for i, stage := range w.stages {
			surface := opts.CaptureStages || i == len(w.stages)-1

			fragments, stageErrs := stage.Stream(ctx, conv)
			var full strings.Builder
			for fragment := range fragments {
				full.WriteString(fragment)
				if !surface {
					continue
				}
				select {
				case out <- fragment:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			if err := <-stageErrs; err != nil {
				errCh <- &StageError{Index: i + 1, Stage: stage.Name(), Err: err}
				return
			}

			conv = append(conv, core.AssistantMessage(full.String()))
		}
	}()

	return out, errCh
}
