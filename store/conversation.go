// Package store keeps the message history of one conversation and renders
// it to fit a model's context window.
//
// A [Conversation] enforces the structure backends expect: every tool call
// an assistant issues is answered by exactly one tool message, and nothing
// else is appended while answers are outstanding. [Conversation.Render]
// drops the oldest messages to fit a token budget without ever separating
// a tool call from its results.
package store

import (
	"fmt"
	"slices"
	"sync"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/token"
)

// Conversation is an append-only message history behind a fixed system
// preamble. Reads are safe from any goroutine; appends are expected from
// one writer at a time.
type Conversation struct {
	mu       sync.RWMutex
	system   ai.Message
	messages []ai.Message
	pending  []ai.ToolCall // issued by the last assistant message, unanswered
	counter  token.Counter
}

// NewConversation creates a conversation with the given system preamble.
// A nil counter uses the character estimate.
func NewConversation(systemPrompt string, counter token.Counter) *Conversation {
	if counter == nil {
		counter = token.Estimator{}
	}
	return &Conversation{
		system:  ai.NewSystemMessage(systemPrompt),
		counter: counter,
	}
}

// System returns the system preamble.
func (c *Conversation) System() string {
	return c.system.Content
}

// AddUserMessage appends a user message.
func (c *Conversation) AddUserMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text == "" {
		return &InvalidMessageError{Role: ai.RoleUser, Reason: "empty content"}
	}
	if err := c.checkNoPending(ai.RoleUser); err != nil {
		return err
	}

	c.append(ai.NewUserMessage(text))
	return nil
}

// AddAssistantMessage appends an assistant message. It must carry text,
// tool calls, or both. Each tool call then awaits a result.
func (c *Conversation) AddAssistantMessage(content string, calls []ai.ToolCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if content == "" && len(calls) == 0 {
		return &InvalidMessageError{Role: ai.RoleAssistant, Reason: "neither content nor tool calls"}
	}
	if err := c.checkNoPending(ai.RoleAssistant); err != nil {
		return err
	}

	seen := make(map[string]bool, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			return &InvalidMessageError{Role: ai.RoleAssistant, Reason: "tool call without id"}
		}
		if seen[call.ID] {
			return &InvalidMessageError{Role: ai.RoleAssistant, Reason: fmt.Sprintf("duplicate tool call id %q", call.ID)}
		}
		seen[call.ID] = true
	}

	// The stored message and the pending list must not share an array:
	// answering a call removes it from pending only.
	c.append(ai.NewAssistantMessage(content, slices.Clone(calls)...))
	c.pending = slices.Clone(calls)
	return nil
}

// AddToolResult appends the result of an outstanding tool call.
func (c *Conversation) AddToolResult(toolCallID string, result ai.ToolResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.pending, func(call ai.ToolCall) bool {
		return call.ID == toolCallID
	})
	if i < 0 {
		return &InvalidMessageError{Role: ai.RoleTool, Reason: fmt.Sprintf("no outstanding tool call %q", toolCallID)}
	}

	c.append(ai.NewToolMessage(c.pending[i], result))
	c.pending = slices.Delete(c.pending, i, i+1)
	return nil
}

func (c *Conversation) append(m ai.Message) {
	m.ID = ai.GenerateMessageID()
	c.messages = append(c.messages, m)
}

func (c *Conversation) checkNoPending(role ai.Role) error {
	if len(c.pending) == 0 {
		return nil
	}
	return &InvalidMessageError{
		Role:   role,
		Reason: fmt.Sprintf("%d tool call(s) awaiting results", len(c.pending)),
	}
}

// Pending returns the tool calls still awaiting results.
func (c *Conversation) Pending() []ai.ToolCall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.pending)
}

// Messages returns the full history, system preamble first.
func (c *Conversation) Messages() []ai.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.withSystem(c.messages)
}

// Len returns the number of messages after the system preamble.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear removes every message except the system preamble.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.pending = nil
}

func (c *Conversation) withSystem(msgs []ai.Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs)+1)
	if c.system.Content != "" {
		out = append(out, c.system)
	}
	for _, m := range msgs {
		m.ToolCalls = slices.Clone(m.ToolCalls)
		out = append(out, m)
	}
	return out
}
