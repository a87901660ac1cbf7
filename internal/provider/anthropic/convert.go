package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/relay"
)

// splitSystem separates system text, which the Messages API takes as a
// request field, from the turns. Tool results following one another are
// folded into a single user turn, the shape the API expects after a
// multi-call assistant message.
func splitSystem(messages []ai.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var (
		turns  []anthropic.MessageParam
		system []anthropic.TextBlockParam
	)
	prevTool := false
	for _, m := range messages {
		isTool := m.Role == ai.RoleTool
		switch m.Role {
		case ai.RoleSystem:
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case ai.RoleAssistant:
			if blocks := assistantBlocks(m); len(blocks) > 0 {
				turns = append(turns, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks})
			}
		case ai.RoleTool:
			result := anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError)
			if prevTool && len(turns) > 0 {
				last := &turns[len(turns)-1]
				last.Content = append(last.Content, result)
			} else {
				turns = append(turns, anthropic.NewUserMessage(result))
			}
		default:
			if m.Content != "" {
				turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
		prevTool = isTool
	}
	return turns, system
}

func assistantBlocks(m ai.Message) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	for _, call := range m.ToolCalls {
		input, err := call.Params()
		if err != nil || input == nil {
			input = map[string]any{}
		}
		blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
	}
	return blocks
}

// toolParams declares tools with their input schemas.
func toolParams(tools []ai.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema struct {
			Properties any      `json:"properties"`
			Required   []string `json:"required"`
		}
		_ = json.Unmarshal(t.ParametersOrEmpty(), &schema)

		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		}})
	}
	return out
}

// toolUses reads tool_use blocks from a complete message.
func toolUses(content []anthropic.ContentBlockUnion) []ai.ToolCall {
	var calls []ai.ToolCall
	for _, block := range content {
		if block.Type != "tool_use" {
			continue
		}
		args := string(block.Input)
		if args == "" {
			args = "{}"
		}
		calls = append(calls, ai.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
	}
	return calls
}
