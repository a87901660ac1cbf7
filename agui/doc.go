// Package agui connects agents to AG-UI frontends.
//
// AG-UI (Agent-User Interface) is an event-based protocol for streaming an
// agent's work to a user-facing application. This package converts agent
// events to AG-UI events and keeps one agent per AG-UI thread.
//
// # Usage
//
//	threads := agui.NewThreads(func(threadID string) (*agent.Agent, error) {
//	    return agent.New(chat.NopClose(backend), registry), nil
//	}, logger)
//	defer threads.Close()
//
//	a, err := threads.Get(input.ThreadID)
//	mapper := agui.NewMapper(input.ThreadID, input.RunID)
//	for ev := range mapper.MapStream(a.RunStream(ctx, input.Input)) {
//	    writeSSE(w, ev)
//	}
//
// # Event Mapping
//
//   - agent_start → RUN_STARTED
//   - text_delta → TEXT_MESSAGE_START (first delta), TEXT_MESSAGE_CONTENT
//   - text_complete → TEXT_MESSAGE_END
//   - tool_call_start → TOOL_CALL_START, TOOL_CALL_ARGS, TOOL_CALL_END
//   - tool_call_end → TOOL_CALL_RESULT
//   - agent_error → RUN_ERROR
//   - agent_end → RUN_FINISHED, unless the run failed
//
// A Mapper is not safe for concurrent use; create one per run.
package agui
