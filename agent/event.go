package agent

import (
	"time"

	ai "github.com/spetersoncode/relay"
)

// EventType identifies the kind of event occurring during a turn.
type EventType string

const (
	// EventAgentStart opens every turn and carries the user input.
	EventAgentStart EventType = "agent_start"

	// EventTextDelta carries a text fragment as soon as the model produces it.
	EventTextDelta EventType = "text_delta"

	// EventTextComplete carries the full final text of a turn.
	EventTextComplete EventType = "text_complete"

	// EventToolCallStart fires before a requested tool runs.
	EventToolCallStart EventType = "tool_call_start"

	// EventToolCallEnd fires after a tool ran and its result was recorded.
	EventToolCallEnd EventType = "tool_call_end"

	// EventAgentError reports the failure that ended a turn.
	EventAgentError EventType = "agent_error"

	// EventAgentEnd closes every turn.
	EventAgentEnd EventType = "agent_end"
)

// Event represents an observable occurrence during a turn.
type Event struct {
	Type EventType

	// Input is the user text for EventAgentStart.
	Input string

	// Content is the fragment for EventTextDelta and the full text for
	// EventTextComplete and EventAgentEnd. An empty Content on
	// EventAgentEnd means the turn produced no final text.
	Content string

	// ToolCall is the request for tool call events.
	ToolCall *ai.ToolCall

	// ToolResult is the outcome for EventToolCallEnd.
	ToolResult *ai.ToolResult

	// Error and Details describe the failure for EventAgentError.
	Error   error
	Details string

	// Usage is the token usage of the whole turn, set on EventAgentEnd.
	Usage *ai.Usage

	// Iteration is the model round-trip the event belongs to (1-indexed).
	Iteration int

	Timestamp time.Time
}

// IsTerminal reports whether e is the last event of a turn.
func (e Event) IsTerminal() bool {
	return e.Type == EventAgentEnd
}

// TerminationReason indicates why a turn stopped.
type TerminationReason string

const (
	// TerminationComplete indicates the model answered with final text.
	TerminationComplete TerminationReason = "complete"

	// TerminationMaxIterations indicates the iteration cap was reached.
	TerminationMaxIterations TerminationReason = "max_iterations"

	// TerminationCancelled indicates context cancellation or deadline.
	TerminationCancelled TerminationReason = "cancelled"

	// TerminationError indicates any other failure.
	TerminationError TerminationReason = "error"
)

// ToolExecution pairs a tool call with the result recorded for it.
type ToolExecution struct {
	Call   ai.ToolCall
	Result ai.ToolResult
}

// Result represents the outcome of one turn.
type Result struct {
	// Text is the final assistant text. Empty when the turn failed.
	Text string

	// Iterations is the number of model round-trips made.
	Iterations int

	// Tools lists the tool executions of the turn in order.
	Tools []ToolExecution

	// Termination indicates why the turn stopped.
	Termination TerminationReason

	// Usage aggregates token usage across all round-trips.
	Usage ai.Usage

	// Error contains the failure that ended the turn, if any.
	Error error
}
