package chat

import (
	"errors"
	"fmt"
)

// ErrStreamTruncated is returned when a stream closes before its
// Completion or Error event.
var ErrStreamTruncated = errors.New("chat: stream ended without completion")

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("chat: backend closed")

// ProtocolError reports a stream that broke the event contract.
type ProtocolError struct {
	Reason string
}

// Error returns a formatted error message including the violation.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("chat: protocol violation: %s", e.Reason)
}
