// Package chat defines the backend interface the agent loop consumes and
// the helpers for reading a backend's event stream.
//
// Provider implementations live in internal/provider and are constructed
// through [github.com/spetersoncode/relay/client.New].
package chat

import (
	"context"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/event"
)

// Backend submits a conversation to a model and streams the answer.
//
// Submit returns a channel that yields zero or more text and tool call
// fragments followed by exactly one Completion or Error event, after which
// it is closed. Failures to start the request are returned directly.
// Implementations stop sending when ctx is done.
type Backend interface {
	Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error)

	// Close releases connections held by the backend.
	Close() error
}

// Func adapts a function to the Backend interface. Close is a no-op.
type Func func(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error)

// Submit calls f.
func (f Func) Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error) {
	return f(ctx, messages, tools, opts...)
}

// Close implements Backend.
func (f Func) Close() error { return nil }

// NopClose returns b with a no-op Close, for a backend shared by several
// owners that each close what they hold.
func NopClose(b Backend) Backend {
	return nopCloser{b}
}

type nopCloser struct {
	Backend
}

func (nopCloser) Close() error { return nil }

// Response is a fully collected backend answer.
type Response struct {
	Content      string
	ToolCalls    []ai.ToolCall
	FinishReason string
	Usage        ai.Usage
}

// Collect reads a stream to its end and returns the assembled response.
// A stream that ends in an Error event returns that error.
//
// When Collect returns before the stream is closed, the rest is drained in
// the background so the producer is never left blocked on a send. Callers
// that own the submission context should still cancel it.
func Collect(ctx context.Context, stream <-chan event.Event) (resp *Response, err error) {
	defer func() {
		if err != nil {
			go drain(stream)
		}
	}()

	var acc Accumulator
	for !acc.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e, ok := <-stream:
			if !ok {
				return nil, ErrStreamTruncated
			}
			if err := acc.Add(e); err != nil {
				return nil, err
			}
		}
	}
	return acc.Response(), nil
}

func drain(stream <-chan event.Event) {
	for range stream {
	}
}

// Replay turns a complete response into an event stream: the text as one
// fragment, each tool call as one fragment, then a Completion.
func Replay(ctx context.Context, resp *Response) <-chan event.Event {
	ch := event.NewChannel()
	go func() {
		defer close(ch)
		if resp.Content != "" && !event.Send(ctx, ch, event.NewTextDelta(resp.Content)) {
			return
		}
		for _, call := range resp.ToolCalls {
			if !event.Send(ctx, ch, event.NewToolCallDelta(call.ID, call.Name, call.Arguments)) {
				return
			}
		}
		usage := resp.Usage
		event.Send(ctx, ch, event.NewCompletion(resp.FinishReason, &usage))
	}()
	return ch
}
