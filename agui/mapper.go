package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/relay/agent"
)

// Mapper converts agent events to AG-UI events for one run.
//
// AG-UI frames text in Start-Content-End sequences, so the Mapper tracks
// the open text message. Create a new Mapper for each run; it is not safe
// for concurrent use.
type Mapper struct {
	threadID  string
	runID     string
	messageID string // open text message, if any
	failed    bool
}

// NewMapper creates a Mapper for a single run. Empty ids are generated.
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// Map converts one agent event into zero or more AG-UI events.
//
//   - agent_start opens the run.
//   - text_delta opens a text message on first use and adds content.
//   - text_complete closes the text message.
//   - tool_call_start closes any text message and sends the whole call as
//     start, args and end.
//   - tool_call_end sends the tool result.
//   - agent_error closes any text message and fails the run.
//   - agent_end finishes the run unless it already failed.
func (m *Mapper) Map(e agent.Event) []events.Event {
	switch e.Type {
	case agent.EventAgentStart:
		return []events.Event{m.RunStarted()}

	case agent.EventTextDelta:
		var out []events.Event
		if m.messageID == "" {
			m.messageID = events.GenerateMessageID()
			out = append(out, events.NewTextMessageStartEvent(m.messageID, events.WithRole(RoleAssistant)))
		}
		return append(out, events.NewTextMessageContentEvent(m.messageID, e.Content))

	case agent.EventTextComplete:
		return m.closeMessage(nil)

	case agent.EventToolCallStart:
		out := m.closeMessage(nil)
		if e.ToolCall == nil {
			return out
		}
		return append(out,
			events.NewToolCallStartEvent(e.ToolCall.ID, e.ToolCall.Name),
			events.NewToolCallArgsEvent(e.ToolCall.ID, e.ToolCall.Arguments),
			events.NewToolCallEndEvent(e.ToolCall.ID),
		)

	case agent.EventToolCallEnd:
		if e.ToolCall == nil || e.ToolResult == nil {
			return nil
		}
		return []events.Event{
			events.NewToolCallResultEvent(events.GenerateMessageID(), e.ToolCall.ID, e.ToolResult.Content),
		}

	case agent.EventAgentError:
		m.failed = true
		return m.closeMessage([]events.Event{m.RunError(e.Error)})

	case agent.EventAgentEnd:
		out := m.closeMessage(nil)
		if m.failed {
			return out
		}
		return append(out, m.RunFinished())

	default:
		return nil
	}
}

// closeMessage ends the open text message, if any, before tail.
func (m *Mapper) closeMessage(tail []events.Event) []events.Event {
	if m.messageID == "" {
		return tail
	}
	end := events.NewTextMessageEndEvent(m.messageID)
	m.messageID = ""
	return append([]events.Event{end}, tail...)
}

// MapStream converts a stream of agent events. The returned channel is
// closed after the input channel closes.
func (m *Mapper) MapStream(in <-chan agent.Event) <-chan events.Event {
	out := make(chan events.Event, 100)
	go func() {
		defer close(out)
		for e := range in {
			for _, mapped := range m.Map(e) {
				out <- mapped
			}
		}
	}()
	return out
}
