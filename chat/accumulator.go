package chat

import (
	"strings"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/event"
)

type pendingCall struct {
	name string
	args strings.Builder
}

// Accumulator assembles stream events into text and tool calls.
// The zero value is ready to use.
type Accumulator struct {
	text   strings.Builder
	order  []string
	calls  map[string]*pendingCall
	finish string
	usage  ai.Usage
	done   bool
}

// Add folds one event into the accumulator. An Error event returns its
// error; events that break the stream contract return a *ProtocolError.
func (a *Accumulator) Add(e event.Event) error {
	if a.done {
		return &ProtocolError{Reason: "event after end of stream"}
	}

	switch e.Type {
	case event.TextDelta:
		a.text.WriteString(e.Delta)

	case event.ToolCallDelta:
		if e.ToolCall == nil || e.ToolCall.ID == "" {
			return &ProtocolError{Reason: "tool call fragment without id"}
		}
		if a.calls == nil {
			a.calls = make(map[string]*pendingCall)
		}
		call, ok := a.calls[e.ToolCall.ID]
		if !ok {
			call = &pendingCall{}
			a.calls[e.ToolCall.ID] = call
			a.order = append(a.order, e.ToolCall.ID)
		}
		if call.name == "" {
			call.name = e.ToolCall.Name
		}
		call.args.WriteString(e.ToolCall.Arguments)

	case event.Completion:
		a.done = true
		a.finish = e.FinishReason
		if e.Usage != nil {
			a.usage = *e.Usage
		}

	case event.Error:
		a.done = true
		if e.Err == nil {
			return &ProtocolError{Reason: "error event without error"}
		}
		return e.Err

	default:
		return &ProtocolError{Reason: "unknown event type " + string(e.Type)}
	}
	return nil
}

// Done reports whether a terminal event has been seen.
func (a *Accumulator) Done() bool { return a.done }

// Text returns the concatenated text fragments.
func (a *Accumulator) Text() string { return a.text.String() }

// ToolCalls returns the assembled tool calls in first-seen order.
// Calls whose arguments never arrived get an empty JSON object.
func (a *Accumulator) ToolCalls() []ai.ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	calls := make([]ai.ToolCall, 0, len(a.order))
	for _, id := range a.order {
		p := a.calls[id]
		args := p.args.String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		calls = append(calls, ai.ToolCall{ID: id, Name: p.name, Arguments: args})
	}
	return calls
}

// Response returns the accumulated state as a Response.
func (a *Accumulator) Response() *Response {
	return &Response{
		Content:      a.Text(),
		ToolCalls:    a.ToolCalls(),
		FinishReason: a.finish,
		Usage:        a.usage,
	}
}
