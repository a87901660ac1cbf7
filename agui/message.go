package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/relay"
)

// AG-UI role names. They coincide with relay's.
const (
	RoleUser      = string(ai.RoleUser)
	RoleAssistant = string(ai.RoleAssistant)
	RoleSystem    = string(ai.RoleSystem)
	RoleTool      = string(ai.RoleTool)
)

// FromMessages converts a conversation for a MESSAGES_SNAPSHOT.
func FromMessages(msgs []ai.Message) []events.Message {
	out := make([]events.Message, len(msgs))
	for i, m := range msgs {
		out[i] = FromMessage(m)
	}
	return out
}

// FromMessage converts one message. AG-UI requires ids, so one is
// generated when m has none. Empty content is left nil.
func FromMessage(m ai.Message) events.Message {
	out := events.Message{ID: m.ID, Role: RoleUser}
	if out.ID == "" {
		out.ID = events.GenerateMessageID()
	}
	switch m.Role {
	case ai.RoleAssistant, ai.RoleSystem, ai.RoleTool:
		out.Role = string(m.Role)
	}
	if m.Content != "" {
		out.Content = &m.Content
	}
	if m.Role == ai.RoleTool {
		out.ToolCallID = &m.ToolCallID
	}
	for _, call := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, events.ToolCall{
			ID:       call.ID,
			Type:     "function",
			Function: events.Function{Name: call.Name, Arguments: call.Arguments},
		})
	}
	return out
}

// Snapshot returns a MESSAGES_SNAPSHOT event for the given history.
func Snapshot(msgs []ai.Message) events.Event {
	return events.NewMessagesSnapshotEvent(FromMessages(msgs))
}
