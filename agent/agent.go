package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/event"
	"github.com/spetersoncode/relay/store"
	"github.com/spetersoncode/relay/tool"
)

// cancelledResult is recorded for tool calls a cancelled turn did not finish.
const cancelledResult = "cancelled"

// Agent orchestrates tool-calling conversations over one backend.
//
// An Agent owns its backend, registry and conversation. Turns on one
// agent run one at a time; a turn started while another is running fails
// with ErrTurnInProgress.
type Agent struct {
	backend  chat.Backend
	registry *tool.Registry
	conv     *store.Conversation
	options  *Options
	logger   *slog.Logger

	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates an Agent with the given backend and tool registry.
// A nil registry means the model is offered no tools.
func New(backend chat.Backend, registry *tool.Registry, opts ...Option) *Agent {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	options := ApplyOptions(opts...)
	return &Agent{
		backend:  backend,
		registry: registry,
		conv:     store.NewConversation(options.SystemPrompt, options.Counter),
		options:  options,
		logger:   options.Logger,
	}
}

// Conversation returns the agent's message history.
func (a *Agent) Conversation() *store.Conversation {
	return a.conv
}

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tool.Registry {
	return a.registry
}

// Reset clears the conversation, keeping the system prompt.
func (a *Agent) Reset() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	defer a.running.Store(false)
	a.conv.Clear()
	return nil
}

// Close releases the backend. It is safe to call more than once; only the
// first call reaches the backend and later calls return its error.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		a.closeErr = a.backend.Close()
		a.logger.Debug("agent closed", "error", a.closeErr)
	})
	return a.closeErr
}

// Run executes one turn and returns its result.
// This is a blocking call that runs until the turn completes.
func (a *Agent) Run(ctx context.Context, input string) (*Result, error) {
	result := &Result{Termination: TerminationComplete}
	var pending *ai.ToolCall

	for ev := range a.RunStream(ctx, input) {
		if ev.Iteration > result.Iterations {
			result.Iterations = ev.Iteration
		}

		switch ev.Type {
		case EventToolCallStart:
			pending = ev.ToolCall

		case EventToolCallEnd:
			if pending != nil && ev.ToolResult != nil {
				result.Tools = append(result.Tools, ToolExecution{Call: *pending, Result: *ev.ToolResult})
			}
			pending = nil

		case EventAgentError:
			result.Error = ev.Error
			result.Termination = terminationFor(ev.Error)

		case EventAgentEnd:
			result.Text = ev.Content
			if ev.Usage != nil {
				result.Usage = *ev.Usage
			}
		}
	}

	return result, result.Error
}

// RunStream executes one turn and returns a channel of events.
//
// The channel yields EventAgentStart first and EventAgentEnd last, then
// closes. Callers should drain the channel to ensure proper cleanup.
func (a *Agent) RunStream(ctx context.Context, input string) <-chan Event {
	eventCh := make(chan Event, 100)

	if err := a.acquire(); err != nil {
		go func() {
			defer close(eventCh)
			a.emit(ctx, eventCh, Event{Type: EventAgentError, Error: err, Details: "turn rejected"})
			a.emit(ctx, eventCh, Event{Type: EventAgentEnd})
		}()
		return eventCh
	}

	go a.runTurn(ctx, input, eventCh)

	return eventCh
}

func (a *Agent) acquire() error {
	if a.closed.Load() {
		return ErrClosed
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	return nil
}

// turn holds the state of one running turn.
type turn struct {
	ctx       context.Context
	ch        chan<- Event
	iteration int
	usage     ai.Usage
}

func (a *Agent) runTurn(ctx context.Context, input string, eventCh chan<- Event) {
	defer close(eventCh)
	defer a.running.Store(false)

	t := &turn{ctx: ctx, ch: eventCh}
	start := time.Now()
	a.emit(ctx, eventCh, Event{Type: EventAgentStart, Input: input})

	text, err := a.loop(t, input)
	if err != nil {
		a.logger.Warn("turn failed", "iteration", t.iteration, "error", err)
		a.emit(ctx, eventCh, Event{
			Type:      EventAgentError,
			Error:     err,
			Details:   detailsFor(err),
			Iteration: t.iteration,
		})
		text = ""
	} else {
		a.logger.Debug("turn complete", "iterations", t.iteration, "duration", time.Since(start))
	}

	usage := t.usage
	a.emit(ctx, eventCh, Event{Type: EventAgentEnd, Content: text, Usage: &usage, Iteration: t.iteration})
}

// loop runs model round-trips until the model answers with text.
func (a *Agent) loop(t *turn, input string) (string, error) {
	if err := a.conv.AddUserMessage(input); err != nil {
		return "", err
	}

	for {
		if t.iteration >= a.options.MaxIterations {
			return "", fmt.Errorf("%w (%d)", ErrMaxIterations, a.options.MaxIterations)
		}
		if err := t.ctx.Err(); err != nil {
			return "", err
		}
		t.iteration++

		resp, err := a.step(t)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				return "", ErrEmptyResponse
			}
			if err := a.conv.AddAssistantMessage(resp.Content, nil); err != nil {
				return "", err
			}
			a.emit(t.ctx, t.ch, Event{Type: EventTextComplete, Content: resp.Content, Iteration: t.iteration})
			return resp.Content, nil
		}

		if err := a.conv.AddAssistantMessage(resp.Content, resp.ToolCalls); err != nil {
			return "", err
		}
		if err := a.executeToolCalls(t, resp.ToolCalls); err != nil {
			return "", err
		}
	}
}

// step submits the rendered conversation and consumes one stream,
// forwarding text fragments as they arrive.
func (a *Agent) step(t *turn) (*chat.Response, error) {
	messages, err := a.conv.Render(a.options.Model, a.options.ContextBudget)
	if err != nil {
		return nil, err
	}

	// Leaving early for any reason stops the producer.
	ctx, cancel := context.WithCancel(t.ctx)
	defer cancel()

	a.logger.Debug("submitting conversation", "iteration", t.iteration, "messages", len(messages))
	stream, err := a.backend.Submit(ctx, messages, a.registry.Schemas(), a.options.submitOptions()...)
	if err != nil {
		return nil, err
	}

	var acc chat.Accumulator
	for !acc.Done() {
		if err := t.ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-t.ctx.Done():
			return nil, t.ctx.Err()
		case ev, ok := <-stream:
			if !ok {
				return nil, ErrStreamTruncated
			}
			if err := acc.Add(ev); err != nil {
				return nil, err
			}
			if ev.Type == event.TextDelta && ev.Delta != "" {
				a.emit(t.ctx, t.ch, Event{Type: EventTextDelta, Content: ev.Delta, Iteration: t.iteration})
			}
		}
	}

	resp := acc.Response()
	t.usage = t.usage.Add(resp.Usage)
	return resp, nil
}

// executeToolCalls runs calls one at a time in the order received,
// recording each result before the next call starts. Once the turn is
// cancelled, every call without a recorded result is closed with a
// cancelled error result.
func (a *Agent) executeToolCalls(t *turn, calls []ai.ToolCall) error {
	for i := range calls {
		call := calls[i]
		if err := t.ctx.Err(); err != nil {
			a.cancelRemaining(calls[i:])
			return err
		}

		a.emit(t.ctx, t.ch, Event{Type: EventToolCallStart, ToolCall: &call, Iteration: t.iteration})
		result := a.executeToolCall(t.ctx, call)

		if err := t.ctx.Err(); err != nil {
			result = ai.NewToolError(cancelledResult, map[string]any{"tool_name": call.Name})
			a.emit(t.ctx, t.ch, Event{Type: EventToolCallEnd, ToolCall: &call, ToolResult: &result, Iteration: t.iteration})
			a.cancelRemaining(calls[i:])
			return err
		}

		if err := a.conv.AddToolResult(call.ID, result); err != nil {
			return err
		}
		a.emit(t.ctx, t.ch, Event{Type: EventToolCallEnd, ToolCall: &call, ToolResult: &result, Iteration: t.iteration})
	}
	return nil
}

func (a *Agent) executeToolCall(ctx context.Context, call ai.ToolCall) ai.ToolResult {
	execCtx := ctx
	if a.options.ToolTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, a.options.ToolTimeout)
		defer cancel()
	}

	a.logger.Debug("executing tool", "tool", call.Name, "call_id", call.ID)
	result := a.registry.Execute(execCtx, call, tool.Env{CallID: call.ID, WorkDir: a.options.WorkDir})

	if ctx.Err() == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		a.logger.Warn("tool timed out", "tool", call.Name, "timeout", a.options.ToolTimeout)
		return ai.NewToolError(
			fmt.Sprintf("tool %q timed out after %s", call.Name, a.options.ToolTimeout),
			map[string]any{"tool_name": call.Name},
		)
	}
	return result
}

func (a *Agent) cancelRemaining(calls []ai.ToolCall) {
	for _, call := range calls {
		err := a.conv.AddToolResult(call.ID, ai.NewToolError(cancelledResult, map[string]any{"tool_name": call.Name}))
		if err != nil {
			a.logger.Error("recording cancelled tool call", "tool", call.Name, "error", err)
		}
	}
}

func (a *Agent) emit(ctx context.Context, ch chan<- Event, e Event) {
	e.Timestamp = time.Now()
	event.Emit(ctx, ch, e)
}

func terminationFor(err error) TerminationReason {
	switch {
	case err == nil:
		return TerminationComplete
	case errors.Is(err, ErrMaxIterations):
		return TerminationMaxIterations
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return TerminationCancelled
	default:
		return TerminationError
	}
}

// detailsFor names the error class of a failed turn.
func detailsFor(err error) string {
	var (
		overflow *store.ContextOverflowError
		invalid  *store.InvalidMessageError
		protocol *ProtocolError
	)
	switch {
	case errors.Is(err, ErrMaxIterations):
		return "iteration limit reached"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "turn cancelled"
	case errors.As(err, &overflow):
		return "context overflow"
	case errors.As(err, &invalid):
		return "invalid message"
	case errors.As(err, &protocol), errors.Is(err, ErrStreamTruncated), errors.Is(err, ErrEmptyResponse):
		return "backend protocol error"
	default:
		return "backend error"
	}
}
