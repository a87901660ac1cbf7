package agui

import (
	"errors"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

// RunAgentInput is the request body for running one turn.
//
// Clients either send the new user text in Message, or the AG-UI message
// list, in which case the last user message is the input. Earlier messages
// are ignored: the server keeps each thread's history itself.
type RunAgentInput struct {
	ThreadID string           `json:"threadId"`
	RunID    string           `json:"runId"`
	Message  string           `json:"message,omitempty"`
	Messages []events.Message `json:"messages,omitempty"`
}

// PreparedInput is a validated RunAgentInput.
type PreparedInput struct {
	ThreadID string
	RunID    string
	Input    string
}

// ErrNoInput is returned when the request carries no user text.
var ErrNoInput = errors.New("agui: no user message provided")

// Prepare validates the input, generating missing ids.
func (r *RunAgentInput) Prepare() (*PreparedInput, error) {
	text := strings.TrimSpace(r.Message)
	if text == "" {
		text = lastUserText(r.Messages)
	}
	if text == "" {
		return nil, ErrNoInput
	}

	p := &PreparedInput{ThreadID: r.ThreadID, RunID: r.RunID, Input: text}
	if p.ThreadID == "" {
		p.ThreadID = events.GenerateThreadID()
	}
	if p.RunID == "" {
		p.RunID = events.GenerateRunID()
	}
	return p, nil
}

func lastUserText(msgs []events.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser && msgs[i].Content != nil {
			if text := strings.TrimSpace(*msgs[i].Content); text != "" {
				return text
			}
		}
	}
	return ""
}
