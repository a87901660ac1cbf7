// Package chattest provides a scripted chat.Backend for tests and demos.
package chattest

import (
	"context"
	"errors"
	"sync"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/event"
)

// ErrScriptExhausted is returned when more submissions arrive than rounds
// were scripted.
var ErrScriptExhausted = errors.New("chattest: no scripted round left")

// Round is the event sequence answered to one submission.
type Round []event.Event

// Text scripts a round that streams parts as text and completes.
func Text(parts ...string) Round {
	round := make(Round, 0, len(parts)+1)
	for _, p := range parts {
		round = append(round, event.NewTextDelta(p))
	}
	return append(round, event.NewCompletion("stop", nil))
}

// ToolCalls scripts a round that requests calls, each sent as a single
// fragment, and completes.
func ToolCalls(calls ...ai.ToolCall) Round {
	round := make(Round, 0, len(calls)+1)
	for _, c := range calls {
		round = append(round, event.NewToolCallDelta(c.ID, c.Name, c.Arguments))
	}
	return append(round, event.NewCompletion("tool_calls", nil))
}

// Failure scripts a round that ends with err after the given events.
func Failure(err error, before ...event.Event) Round {
	return append(Round(before), event.NewError(err))
}

// Submission records one call to Submit.
type Submission struct {
	Messages []ai.Message
	Tools    []ai.Tool
	Options  ai.Options
}

// Backend replays scripted rounds in order.
type Backend struct {
	mu          sync.Mutex
	rounds      []Round
	next        int
	repeat      bool
	submissions []Submission
	closeCount  int
	// Gate, when set, is received from before each event is sent.
	Gate chan struct{}
}

// New creates a Backend answering with rounds in order.
func New(rounds ...Round) *Backend {
	return &Backend{rounds: rounds}
}

// RepeatLast makes the final round answer every further submission.
func (b *Backend) RepeatLast() *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.repeat = true
	return b
}

// Submit implements chat.Backend.
func (b *Backend) Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error) {
	b.mu.Lock()
	if b.closeCount > 0 {
		b.mu.Unlock()
		return nil, chat.ErrClosed
	}
	b.submissions = append(b.submissions, Submission{
		Messages: append([]ai.Message(nil), messages...),
		Tools:    append([]ai.Tool(nil), tools...),
		Options:  *ai.ApplyOptions(opts...),
	})

	var round Round
	switch {
	case b.next < len(b.rounds):
		round = b.rounds[b.next]
		b.next++
	case b.repeat && len(b.rounds) > 0:
		round = b.rounds[len(b.rounds)-1]
	default:
		b.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	gate := b.Gate
	b.mu.Unlock()

	ch := make(chan event.Event)
	go func() {
		defer close(ch)
		for _, e := range round {
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return
				}
			}
			if !event.Send(ctx, ch, e) {
				return
			}
		}
	}()
	return ch, nil
}

// Close implements chat.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCount++
	return nil
}

// Submissions returns a copy of the recorded submissions.
func (b *Backend) Submissions() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Submission(nil), b.submissions...)
}

// CloseCount reports how many times Close was called.
func (b *Backend) CloseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCount
}

var _ chat.Backend = (*Backend)(nil)
