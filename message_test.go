package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, Role("system"), RoleSystem)
	assert.Equal(t, Role("user"), RoleUser)
	assert.Equal(t, Role("assistant"), RoleAssistant)
	assert.Equal(t, Role("tool"), RoleTool)
}

func TestGenerateMessageID(t *testing.T) {
	a := GenerateMessageID()
	b := GenerateMessageID()

	assert.True(t, strings.HasPrefix(a, "msg-"))
	assert.NotEqual(t, a, b)
}

func TestNewToolMessage(t *testing.T) {
	call := ToolCall{ID: "call_1", Name: "echo", Arguments: `{"x":"y"}`}

	t.Run("copies call identity", func(t *testing.T) {
		msg := NewToolMessage(call, NewToolResult("y"))
		assert.Equal(t, RoleTool, msg.Role)
		assert.Equal(t, "call_1", msg.ToolCallID)
		assert.Equal(t, "echo", msg.Name)
		assert.Equal(t, "y", msg.Content)
		assert.False(t, msg.IsError)
	})

	t.Run("marks error results", func(t *testing.T) {
		msg := NewToolMessage(call, NewToolError("internal error: boom", nil))
		assert.True(t, msg.IsError)
		assert.Equal(t, "internal error: boom", msg.Content)
	})
}

func TestNewAssistantMessage(t *testing.T) {
	plain := NewAssistantMessage("hello")
	assert.False(t, plain.HasToolCalls())

	withCalls := NewAssistantMessage("", ToolCall{ID: "c1", Name: "echo"})
	assert.True(t, withCalls.HasToolCalls())
	assert.Empty(t, withCalls.Content)
}

func TestToolCallParams(t *testing.T) {
	tests := []struct {
		name      string
		arguments string
		expected  map[string]any
		wantErr   bool
	}{
		{name: "empty arguments", arguments: "", expected: map[string]any{}},
		{name: "whitespace arguments", arguments: "  \n", expected: map[string]any{}},
		{name: "null arguments", arguments: "null", expected: map[string]any{}},
		{name: "object", arguments: `{"x":"y","n":2}`, expected: map[string]any{"x": "y", "n": float64(2)}},
		{name: "truncated json", arguments: `{"x":`, wantErr: true},
		{name: "not an object", arguments: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ToolCall{Arguments: tt.arguments}.Params()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, params)
		})
	}
}

func TestToolResultConstructors(t *testing.T) {
	ok := NewToolResult("done")
	assert.Equal(t, StatusOK, ok.Status)
	assert.False(t, ok.IsError())

	failed := NewToolError("unknown tool: nope", map[string]any{"tool_name": "nope"})
	assert.Equal(t, StatusError, failed.Status)
	assert.True(t, failed.IsError())
	assert.Equal(t, "nope", failed.Metadata["tool_name"])
}

func TestUsageAdd(t *testing.T) {
	total := Usage{InputTokens: 10, OutputTokens: 2}.Add(Usage{InputTokens: 5, OutputTokens: 3})
	assert.Equal(t, Usage{InputTokens: 15, OutputTokens: 5}, total)
}
