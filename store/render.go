package store

import (
	ai "github.com/spetersoncode/relay"
)

const (
	// messageOverhead approximates the framing tokens of one message.
	messageOverhead = 4
	// toolCallOverhead approximates the framing tokens of one tool call.
	toolCallOverhead = 3
)

// unit is a run of messages dropped or kept together: a single message,
// or an assistant tool-call message with all of its results.
type unit struct {
	start, end int // [start, end) into the history
	tokens     int
}

// Render returns the history that fits in maxTokens for model, system
// preamble first and in original order.
//
// When the whole history does not fit, units are dropped oldest first.
// The preamble and the unit holding the newest user message are never
// dropped; if those alone exceed the budget, Render returns a
// *ContextOverflowError.
func (c *Conversation) Render(model string, maxTokens int) ([]ai.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	systemTokens := 0
	if c.system.Content != "" {
		systemTokens = c.messageTokens(c.system, model)
	}

	units := c.units(model)
	total := systemTokens
	protected := -1
	for i, u := range units {
		total += u.tokens
		if c.messages[u.start].Role == ai.RoleUser {
			protected = i
		}
	}
	if total <= maxTokens {
		return c.withSystem(c.messages), nil
	}

	required := systemTokens
	if protected >= 0 {
		required += units[protected].tokens
	}
	if required > maxTokens {
		return nil, &ContextOverflowError{Required: required, Budget: maxTokens}
	}

	kept := make([]ai.Message, 0, len(c.messages))
	for i, u := range units {
		if total > maxTokens && i != protected {
			total -= u.tokens
			continue
		}
		kept = append(kept, c.messages[u.start:u.end]...)
	}
	return c.withSystem(kept), nil
}

// units partitions the history into droppable units.
func (c *Conversation) units(model string) []unit {
	var units []unit
	for i := 0; i < len(c.messages); {
		end := i + 1
		if msg := c.messages[i]; msg.HasToolCalls() {
			ids := make(map[string]bool, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				ids[call.ID] = true
			}
			for end < len(c.messages) && c.messages[end].Role == ai.RoleTool && ids[c.messages[end].ToolCallID] {
				end++
			}
		}

		u := unit{start: i, end: end}
		for _, m := range c.messages[i:end] {
			u.tokens += c.messageTokens(m, model)
		}
		units = append(units, u)
		i = end
	}
	return units
}

func (c *Conversation) messageTokens(m ai.Message, model string) int {
	n := messageOverhead + c.counter.Count(m.Content, model)
	for _, call := range m.ToolCalls {
		n += toolCallOverhead + c.counter.Count(call.Name, model) + c.counter.Count(call.Arguments, model)
	}
	if m.ToolCallID != "" {
		n += c.counter.Count(m.ToolCallID, model)
	}
	return n
}
