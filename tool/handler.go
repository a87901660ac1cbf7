package tool

import (
	"context"
	"encoding/json"

	ai "github.com/spetersoncode/relay"
)

// Env is the context a tool runs in.
type Env struct {
	// CallID is the id of the tool call being answered, if any.
	CallID string
	// WorkDir resolves relative paths. Empty means the process directory.
	WorkDir string
}

// Invocation is a validated request to run a tool.
type Invocation struct {
	Env
	Name string
	// Params holds the decoded arguments.
	Params map[string]any
	// Arguments holds the same arguments as JSON, for typed decoding.
	Arguments json.RawMessage
}

// Decode unmarshals the invocation arguments into v.
func (inv Invocation) Decode(v any) error {
	if len(inv.Arguments) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(inv.Arguments, v)
}

// Handler executes a tool. A returned error becomes an internal error
// result; handlers report expected failures with ai.NewToolError instead.
type Handler func(ctx context.Context, inv Invocation) (ai.ToolResult, error)

// TypedHandler is a function that executes a tool call with typed arguments.
// The args parameter is automatically unmarshaled from the invocation arguments.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)

// Typed adapts a TypedHandler to a Handler.
func Typed[T any](fn TypedHandler[T]) Handler {
	return func(ctx context.Context, inv Invocation) (ai.ToolResult, error) {
		var args T
		if err := inv.Decode(&args); err != nil {
			return ai.ToolResult{}, err
		}
		content, err := fn(ctx, args)
		if err != nil {
			return ai.ToolResult{}, err
		}
		return ai.NewToolResult(content), nil
	}
}
