package google

import (
	"encoding/json"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/relay"
	"google.golang.org/genai"
)

// contentsOf maps the conversation onto Gemini contents and returns the
// system instruction separately. Tool results following one another share
// one user turn of function responses.
func contentsOf(messages []ai.Message) (contents []*genai.Content, system *genai.Content) {
	push := func(role genai.Role, parts ...*genai.Part) {
		contents = append(contents, &genai.Content{Role: string(role), Parts: parts})
	}

	prevTool := false
	for _, m := range messages {
		switch m.Role {
		case ai.RoleSystem:
			if m.Content == "" {
				break
			}
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
		case ai.RoleAssistant:
			if parts := modelParts(m); len(parts) > 0 {
				push(genai.RoleModel, parts...)
			}
		case ai.RoleTool:
			part := &genai.Part{FunctionResponse: functionResponse(m)}
			if prevTool && len(contents) > 0 {
				last := contents[len(contents)-1]
				last.Parts = append(last.Parts, part)
			} else {
				push(genai.RoleUser, part)
			}
		default:
			if m.Content != "" {
				push(genai.RoleUser, genai.NewPartFromText(m.Content))
			}
		}
		prevTool = m.Role == ai.RoleTool
	}
	return contents, system
}

func modelParts(m ai.Message) []*genai.Part {
	var parts []*genai.Part
	if m.Content != "" {
		parts = append(parts, genai.NewPartFromText(m.Content))
	}
	for _, call := range m.ToolCalls {
		args, _ := call.Params()
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
		})
	}
	return parts
}

// functionResponse wraps a tool message. A JSON object result is passed
// as is; any other text goes under "output", or "error" for failures.
func functionResponse(m ai.Message) *genai.FunctionResponse {
	var response map[string]any
	if json.Unmarshal([]byte(m.Content), &response) != nil || response == nil {
		key := "output"
		if m.IsError {
			key = "error"
		}
		response = map[string]any{key: m.Content}
	}
	return &genai.FunctionResponse{ID: m.ToolCallID, Name: m.Name, Response: response}
}

// declarations lists all tools as function declarations of one genai.Tool.
func declarations(tools []ai.Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  geminiSchema(t.ParametersOrEmpty()),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toolCallOf converts a function call, assigning an id when Gemini omits one.
func toolCallOf(fc *genai.FunctionCall) ai.ToolCall {
	call := ai.ToolCall{ID: fc.ID, Name: fc.Name, Arguments: "{}"}
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()
	}
	if len(fc.Args) > 0 {
		if data, err := json.Marshal(fc.Args); err == nil {
			call.Arguments = string(data)
		}
	}
	return call
}
