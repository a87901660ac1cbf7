package openai

import (
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	ai "github.com/spetersoncode/relay"
)

// chatMessages maps the conversation onto chat completion messages.
// Empty system and assistant messages are dropped; the API rejects them.
func chatMessages(messages []ai.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Role == ai.RoleSystem && m.Content != "":
			out = append(out, openai.SystemMessage(m.Content))
		case m.Role == ai.RoleAssistant && len(m.ToolCalls) > 0:
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistantCalls(m)})
		case m.Role == ai.RoleAssistant && m.Content != "":
			out = append(out, openai.AssistantMessage(m.Content))
		case m.Role == ai.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case m.Role == ai.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func assistantCalls(m ai.Message) *openai.ChatCompletionAssistantMessageParam {
	p := &openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		p.Content.OfString = openai.String(m.Content)
	}
	for _, call := range m.ToolCalls {
		p.ToolCalls = append(p.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return p
}

// functionTools declares tools as functions. A schema that fails to
// decode is sent without parameters.
func functionTools(tools []ai.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn := shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
		}
		if err := json.Unmarshal(t.ParametersOrEmpty(), &fn.Parameters); err != nil {
			fn.Parameters = nil
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}

// callsOf reads the tool calls of a non-streamed reply.
func callsOf(msg openai.ChatCompletionMessage) []ai.ToolCall {
	var calls []ai.ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, ai.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return calls
}
