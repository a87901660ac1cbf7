package client

import (
	"time"

	ai "github.com/spetersoncode/relay"
)

// EventType names a step in the life of a submission.
type EventType string

const (
	EventRequestStart    EventType = "request_start"
	EventRequestComplete EventType = "request_complete" // stream established
	EventRequestError    EventType = "request_error"    // gave up
	EventRetry           EventType = "retry"            // about to wait and try again
)

// Event reports client activity to Config.Events.
type Event struct {
	Type      EventType
	Provider  ai.Provider
	Model     string
	Timestamp time.Time

	// Duration is set on EventRequestComplete and EventRequestError.
	Duration time.Duration
	// Attempt and Delay are set on EventRetry: the attempt that failed,
	// counting from 1, and the wait before the next one.
	Attempt int
	Delay   time.Duration
	Error   error
}

// emit stamps e and offers it to ch. Slow observers miss events rather
// than stall a request.
func emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
