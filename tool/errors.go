package tool

import (
	"fmt"
	"strings"

	ai "github.com/spetersoncode/relay"
)

// Prefixes of error results produced by the registry.
const (
	UnknownToolPrefix       = "unknown tool: "
	InvalidParametersPrefix = "invalid parameters: "
	InternalErrorPrefix     = "internal error: "
)

func unknownTool(name string) ai.ToolResult {
	return ai.NewToolError(UnknownToolPrefix+name, map[string]any{"tool_name": name})
}

func invalidParameters(name string, problems []string) ai.ToolResult {
	return ai.NewToolError(InvalidParametersPrefix+strings.Join(problems, "; "), map[string]any{
		"tool_name":         name,
		"validation_errors": problems,
	})
}

func internalError(name string, err error) ai.ToolResult {
	return ai.NewToolError(InternalErrorPrefix+err.Error(), map[string]any{"tool_name": name})
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
