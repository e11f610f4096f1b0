package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FunctionTool adapts a plain Go function into a Tool.
//
// The parameter schema is compiled once at construction; Call validates the
// supplied arguments against it before invoking the function. A FunctionTool
// has no mutable state after construction and is safe for concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	schema      *jsonschema.Schema
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool constructs a FunctionTool from an explicit schema and
// function. The schema follows JSON Schema conventions:
//
//	addTool, err := tool.NewFunctionTool(
//	  "add",
//	  "Add two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []any{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
//
// A nil or empty parameters map disables validation.
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) (*FunctionTool, error) {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}

	if len(parameters) > 0 {
		raw, err := json.Marshal(parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %q: %w", name, err)
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema resource for %q: %w", name, err)
		}
		compiled, err := compiler.Compile("schema.json")
		if err != nil {
			return nil, fmt.Errorf("compile schema for %q: %w", name, err)
		}
		t.schema = compiled
	}

	return t, nil
}

// MustFunctionTool is like NewFunctionTool but panics on schema errors.
// Intended for static tool definitions in example and test code.
func MustFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	t, err := NewFunctionTool(name, description, parameters, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON Schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema, then invokes the wrapped
// function. Failures are reported as *Error with a stable code:
//
//	validation failure -> CodeValidation
//	function error     -> CodeExecution (unless already an *Error)
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if t.schema != nil {
		if err := t.schema.Validate(normalize(args)); err != nil {
			return nil, &Error{
				Tool:    t.name,
				Message: fmt.Sprintf("parameter validation failed: %v", err),
				Code:    CodeValidation,
			}
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*Error); ok {
			return nil, toolErr
		}
		return nil, &Error{Tool: t.name, Message: err.Error(), Code: CodeExecution}
	}
	return result, nil
}

// normalize round-trips args through JSON so the validator sees the same
// value shapes (float64 numbers, []any arrays) it would for wire input.
func normalize(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
