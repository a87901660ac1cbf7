package mcp

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/relay"
)

// exportTool describes a local tool to MCP clients with its schema as is.
func exportTool(t ai.Tool) mcp.Tool {
	return mcp.NewToolWithRawSchema(t.Name, t.Description, t.ParametersOrEmpty())
}

// importTool describes a remote tool locally. Servers may send either a
// raw schema or a structured one.
func importTool(t mcp.Tool) ai.Tool {
	out := ai.Tool{Name: t.Name, Description: t.Description, Parameters: t.RawInputSchema}
	if len(out.Parameters) == 0 {
		out.Parameters, _ = json.Marshal(t.InputSchema)
	}
	return out
}

func exportResult(r ai.ToolResult) *mcp.CallToolResult {
	if r.IsError() {
		return mcp.NewToolResultError(r.Content)
	}
	return mcp.NewToolResultText(r.Content)
}

// importResult flattens a remote result to text: text blocks verbatim,
// anything else as JSON, one block per line.
func importResult(r *mcp.CallToolResult) ai.ToolResult {
	if r == nil {
		return ai.NewToolError("empty result from MCP server", nil)
	}

	var b strings.Builder
	line := func(s string) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}
	asJSON := func(v any) {
		if data, err := json.Marshal(v); err == nil {
			line(string(data))
		}
	}

	for _, c := range r.Content {
		switch c := c.(type) {
		case mcp.TextContent:
			line(c.Text)
		case *mcp.TextContent:
			line(c.Text)
		default:
			asJSON(c)
		}
	}
	if r.StructuredContent != nil {
		asJSON(r.StructuredContent)
	}

	if r.IsError {
		return ai.NewToolError(b.String(), nil)
	}
	return ai.NewToolResult(b.String())
}
