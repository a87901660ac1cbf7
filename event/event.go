// Package event defines the normalized stream a model backend produces
// for one submission.
//
// A stream is zero or more [TextDelta] and [ToolCallDelta] events in any
// interleaving, terminated by exactly one [Completion] or [Error]. Tool
// call arguments arrive as fragments keyed by a stable call id; consumers
// concatenate fragments per id in arrival order.
package event

import (
	"context"
	"time"

	ai "github.com/spetersoncode/relay"
)

// Type identifies the kind of event.
type Type string

const (
	// TextDelta carries a fragment of assistant text.
	TextDelta Type = "text_delta"

	// ToolCallDelta carries a fragment of a tool call request.
	ToolCallDelta Type = "tool_call_delta"

	// Completion ends a successful stream.
	Completion Type = "completion"

	// Error ends a failed stream.
	Error Type = "error"
)

// ToolCallFragment is one piece of a tool call. Name is usually present
// only on the first fragment of a call.
type ToolCallFragment struct {
	ID        string
	Name      string
	Arguments string
}

// Event is a single element of a backend stream.
type Event struct {
	Type Type

	// Delta is the text fragment for TextDelta events.
	Delta string

	// ToolCall is the fragment for ToolCallDelta events.
	ToolCall *ToolCallFragment

	// FinishReason is the backend's stop reason for Completion events.
	FinishReason string

	// Usage is the token usage for Completion events, when reported.
	Usage *ai.Usage

	// Err is the failure for Error events.
	Err error

	Timestamp time.Time
}

// IsTerminal reports whether e ends a stream.
func (e Event) IsTerminal() bool {
	return e.Type == Completion || e.Type == Error
}

// NewTextDelta creates a TextDelta event.
func NewTextDelta(text string) Event {
	return Event{Type: TextDelta, Delta: text}
}

// NewToolCallDelta creates a ToolCallDelta event.
func NewToolCallDelta(id, name, arguments string) Event {
	return Event{Type: ToolCallDelta, ToolCall: &ToolCallFragment{ID: id, Name: name, Arguments: arguments}}
}

// NewCompletion creates a Completion event. usage may be nil.
func NewCompletion(finishReason string, usage *ai.Usage) Event {
	return Event{Type: Completion, FinishReason: finishReason, Usage: usage}
}

// NewError creates an Error event.
func NewError(err error) Event {
	return Event{Type: Error, Err: err}
}

// Emit sends e on ch, blocking until the receiver is ready or ctx is
// done. A free buffer slot is always used, even after ctx is done, so
// terminal events still reach a consumer that is draining.
// It reports whether the event was delivered.
func Emit[E any](ctx context.Context, ch chan<- E, e E) bool {
	select {
	case ch <- e:
		return true
	default:
	}
	select {
	case ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// Send stamps e and emits it on a backend stream.
func Send(ctx context.Context, ch chan<- Event, e Event) bool {
	e.Timestamp = time.Now()
	return Emit(ctx, ch, e)
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}
