package agent

import (
	"errors"

	"github.com/spetersoncode/relay/chat"
)

// Sentinel errors reported by a failed turn.
var (
	// ErrMaxIterations indicates the model kept requesting tools past the
	// iteration cap.
	ErrMaxIterations = errors.New("agent: maximum iterations exceeded")

	// ErrEmptyResponse indicates the model answered with neither text nor
	// tool calls.
	ErrEmptyResponse = errors.New("agent: model returned an empty response")

	// ErrTurnInProgress is returned when a turn is started while another
	// turn on the same agent is still running.
	ErrTurnInProgress = errors.New("agent: turn already in progress")

	// ErrClosed is returned for turns started after Close.
	ErrClosed = errors.New("agent: closed")

	// ErrStreamTruncated indicates the backend stream closed before its
	// terminal event.
	ErrStreamTruncated = chat.ErrStreamTruncated
)

// ProtocolError reports a backend stream that broke the event contract.
type ProtocolError = chat.ProtocolError
