package relay

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
//
// An empty Content means the message carries no text. Assistant messages
// must have Content, ToolCalls, or both. Tool messages answer exactly one
// earlier tool call, identified by ToolCallID.
type Message struct {
	// ID is an optional unique identifier for the message.
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolCalls contains tool invocation requests from an assistant message.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// ToolCallID is the id of the call a tool message answers.
	ToolCallID string `json:"toolCallId,omitempty"`
	// Name is the name of the tool that produced a tool message.
	Name string `json:"name,omitempty"`
	// IsError marks a tool message whose result is an error.
	IsError bool `json:"isError,omitempty"`
}

// GenerateMessageID creates a unique message identifier.
func GenerateMessageID() string {
	return "msg-" + uuid.New().String()
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates a tool message carrying the result of one call.
func NewToolMessage(call ToolCall, result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: call.ID,
		Name:       call.Name,
		IsError:    result.IsError(),
	}
}

// HasToolCalls reports whether the message requests tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolCall represents a request from the model to invoke a tool.
type ToolCall struct {
	// ID is a unique identifier for this tool call (used to match results).
	ID string `json:"id"`
	// Name is the name of the tool to invoke.
	Name string `json:"name"`
	// Arguments is the JSON object text exactly as produced by the model.
	Arguments string `json:"arguments"`
}

// Params decodes the call arguments into a map.
// Empty or whitespace-only arguments decode to an empty map.
func (c ToolCall) Params() (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(c.Arguments) == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(c.Arguments), &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// ResultStatus reports whether a tool invocation succeeded.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// ToolResult represents the outcome of executing a tool.
type ToolResult struct {
	Status   ResultStatus   `json:"status"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewToolResult creates a successful result.
func NewToolResult(content string) ToolResult {
	return ToolResult{Status: StatusOK, Content: content}
}

// NewToolError creates an error result. Metadata may be nil.
func NewToolError(content string, metadata map[string]any) ToolResult {
	return ToolResult{Status: StatusError, Content: content, Metadata: metadata}
}

// IsError reports whether the result represents a failure.
func (r ToolResult) IsError() bool {
	return r.Status == StatusError
}

// Usage contains token usage information for a request.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add returns the sum of two usage records.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}
