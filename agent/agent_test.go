package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/chat/chattest"
	"github.com/spetersoncode/relay/event"
	"github.com/spetersoncode/relay/store"
	"github.com/spetersoncode/relay/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	X string `json:"x" desc:"Text to echo" required:"true"`
}

type byteCounter struct{}

func (byteCounter) Count(text, _ string) int { return len(text) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietRegistry(regs ...tool.Registration) *tool.Registry {
	return tool.NewRegistry(tool.WithLogger(quietLogger())).Add(regs...)
}

func echoTool() tool.Registration {
	return tool.Func("echo", "Echo x back", func(_ context.Context, args echoArgs) (string, error) {
		return args.X, nil
	})
}

func newAgent(backend chat.Backend, registry *tool.Registry, opts ...Option) *Agent {
	return New(backend, registry, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func typesOf(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func echoCall(id string) ai.ToolCall {
	return ai.ToolCall{ID: id, Name: "echo", Arguments: `{"x":"y"}`}
}

func TestRunStream_TextOnlyTurn(t *testing.T) {
	backend := chattest.New(chattest.Text("Hi", " there"))
	a := newAgent(backend, nil)

	events := collect(a.RunStream(context.Background(), "hello"))

	require.Equal(t, []EventType{
		EventAgentStart,
		EventTextDelta,
		EventTextDelta,
		EventTextComplete,
		EventAgentEnd,
	}, typesOf(events))
	assert.Equal(t, "hello", events[0].Input)
	assert.Equal(t, "Hi", events[1].Content)
	assert.Equal(t, " there", events[2].Content)
	assert.Equal(t, "Hi there", events[3].Content)
	assert.Equal(t, "Hi there", events[4].Content)
	assert.Equal(t, 1, events[1].Iteration)
	for _, e := range events {
		assert.False(t, e.Timestamp.IsZero())
	}

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, DefaultSystemPrompt, msgs[0].Content)
	assert.Equal(t, ai.RoleUser, msgs[1].Role)
	assert.Equal(t, "Hi there", msgs[2].Content)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	backend := chattest.New(
		chattest.ToolCalls(echoCall("c1")),
		chattest.Text("done"),
	)
	a := newAgent(backend, quietRegistry(echoTool()))

	var events []Event
	for e := range a.RunStream(context.Background(), "echo y please") {
		events = append(events, e)
	}

	require.Equal(t, []EventType{
		EventAgentStart,
		EventToolCallStart,
		EventToolCallEnd,
		EventTextDelta,
		EventTextComplete,
		EventAgentEnd,
	}, typesOf(events))
	assert.Equal(t, "echo", events[1].ToolCall.Name)
	assert.Equal(t, `{"x":"y"}`, events[1].ToolCall.Arguments)
	require.NotNil(t, events[2].ToolResult)
	assert.Equal(t, "y", events[2].ToolResult.Content)
	assert.False(t, events[2].ToolResult.IsError())
	assert.Equal(t, "done", events[4].Content)
	assert.Equal(t, 2, events[4].Iteration)

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, []ai.ToolCall{echoCall("c1")}, msgs[2].ToolCalls)
	assert.Equal(t, ai.RoleTool, msgs[3].Role)
	assert.Equal(t, "c1", msgs[3].ToolCallID)
	assert.Equal(t, "y", msgs[3].Content)
	assert.Equal(t, "done", msgs[4].Content)

	subs := backend.Submissions()
	require.Len(t, subs, 2)
	require.Len(t, subs[0].Tools, 1)
	assert.Equal(t, "echo", subs[0].Tools[0].Name)
	require.Len(t, subs[1].Messages, 4)
	assert.Equal(t, "y", subs[1].Messages[3].Content)
}

func TestRun_Result(t *testing.T) {
	backend := chattest.New(
		chattest.Round{
			event.NewToolCallDelta("c1", "echo", `{"x":"y"}`),
			event.NewCompletion("tool_calls", &ai.Usage{InputTokens: 10, OutputTokens: 5}),
		},
		chattest.Round{
			event.NewTextDelta("done"),
			event.NewCompletion("stop", &ai.Usage{InputTokens: 20, OutputTokens: 3}),
		},
	)
	a := newAgent(backend, quietRegistry(echoTool()))

	result, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", result.Text)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, TerminationComplete, result.Termination)
	assert.Equal(t, ai.Usage{InputTokens: 30, OutputTokens: 8}, result.Usage)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "c1", result.Tools[0].Call.ID)
	assert.Equal(t, "y", result.Tools[0].Result.Content)
}

func TestRun_FragmentedToolCall(t *testing.T) {
	backend := chattest.New(
		chattest.Round{
			event.NewToolCallDelta("c1", "echo", `{"x":`),
			event.NewTextDelta("thinking"),
			event.NewToolCallDelta("c1", "", `"y"}`),
			event.NewCompletion("tool_calls", nil),
		},
		chattest.Text("done"),
	)
	a := newAgent(backend, quietRegistry(echoTool()))

	events := collect(a.RunStream(context.Background(), "go"))
	assert.Equal(t, []EventType{
		EventAgentStart,
		EventTextDelta,
		EventToolCallStart,
		EventToolCallEnd,
		EventTextDelta,
		EventTextComplete,
		EventAgentEnd,
	}, typesOf(events))

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "thinking", msgs[2].Content)
	assert.Equal(t, `{"x":"y"}`, msgs[2].ToolCalls[0].Arguments)
	assert.Equal(t, "y", msgs[3].Content)
}

func TestRun_SequentialToolCalls(t *testing.T) {
	var order []string
	record := func(name string) tool.Registration {
		return tool.Func(name, "records its name", func(_ context.Context, _ struct{}) (string, error) {
			order = append(order, name)
			return name, nil
		})
	}
	backend := chattest.New(
		chattest.ToolCalls(
			ai.ToolCall{ID: "c1", Name: "first", Arguments: "{}"},
			ai.ToolCall{ID: "c2", Name: "second", Arguments: "{}"},
		),
		chattest.Text("done"),
	)
	a := newAgent(backend, quietRegistry(record("first"), record("second")))

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)

	msgs := a.Conversation().Messages()
	assert.Equal(t, "c1", msgs[3].ToolCallID)
	assert.Equal(t, "c2", msgs[4].ToolCallID)
}

func TestRun_ToolErrorsAreNotFatal(t *testing.T) {
	tests := []struct {
		name   string
		call   ai.ToolCall
		prefix string
	}{
		{
			name:   "unknown tool",
			call:   ai.ToolCall{ID: "c1", Name: "does_not_exist", Arguments: "{}"},
			prefix: tool.UnknownToolPrefix,
		},
		{
			name:   "malformed arguments",
			call:   ai.ToolCall{ID: "c1", Name: "echo", Arguments: `{"x":`},
			prefix: tool.InvalidParametersPrefix,
		},
		{
			name:   "missing required argument",
			call:   ai.ToolCall{ID: "c1", Name: "echo", Arguments: `{}`},
			prefix: tool.InvalidParametersPrefix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := chattest.New(chattest.ToolCalls(tt.call), chattest.Text("sorry"))
			a := newAgent(backend, quietRegistry(echoTool()))

			result, err := a.Run(context.Background(), "go")
			require.NoError(t, err)
			assert.Equal(t, "sorry", result.Text)

			require.Len(t, result.Tools, 1)
			assert.True(t, result.Tools[0].Result.IsError())
			assert.True(t, strings.HasPrefix(result.Tools[0].Result.Content, tt.prefix), result.Tools[0].Result.Content)

			msgs := a.Conversation().Messages()
			assert.True(t, msgs[3].IsError)
		})
	}
}

func TestRun_MaxIterations(t *testing.T) {
	backend := chattest.New(chattest.ToolCalls(echoCall("c1"))).RepeatLast()
	a := newAgent(backend, quietRegistry(echoTool()), WithMaxIterations(3))

	events := collect(a.RunStream(context.Background(), "loop forever"))

	require.GreaterOrEqual(t, len(events), 2)
	errEvent := events[len(events)-2]
	assert.Equal(t, EventAgentError, errEvent.Type)
	assert.ErrorIs(t, errEvent.Error, ErrMaxIterations)
	assert.Equal(t, "iteration limit reached", errEvent.Details)

	end := events[len(events)-1]
	assert.Equal(t, EventAgentEnd, end.Type)
	assert.Empty(t, end.Content)

	toolEnds := 0
	for _, e := range events {
		if e.Type == EventToolCallEnd {
			toolEnds++
		}
	}
	assert.Equal(t, 3, toolEnds)
	assert.Len(t, backend.Submissions(), 3)
	assert.Empty(t, a.Conversation().Pending())

	result, err := a.Run(context.Background(), "again")
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.Equal(t, TerminationMaxIterations, result.Termination)
}

func TestRun_StreamFailures(t *testing.T) {
	boom := errors.New("boom")
	truncated := chat.Func(func(ctx context.Context, _ []ai.Message, _ []ai.Tool, _ ...ai.Option) (<-chan event.Event, error) {
		ch := make(chan event.Event, 1)
		ch <- event.NewTextDelta("part")
		close(ch)
		return ch, nil
	})
	unavailable := chat.Func(func(context.Context, []ai.Message, []ai.Tool, ...ai.Option) (<-chan event.Event, error) {
		return nil, boom
	})

	tests := []struct {
		name    string
		backend chat.Backend
		check   func(t *testing.T, err error)
		details string
	}{
		{
			name:    "mid-stream error",
			backend: chattest.New(chattest.Failure(boom, event.NewTextDelta("par"))),
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, boom) },
			details: "backend error",
		},
		{
			name:    "submit error",
			backend: unavailable,
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, boom) },
			details: "backend error",
		},
		{
			name:    "truncated stream",
			backend: truncated,
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrStreamTruncated) },
			details: "backend protocol error",
		},
		{
			name:    "empty response",
			backend: chattest.New(chattest.Round{event.NewCompletion("stop", nil)}),
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyResponse) },
			details: "backend protocol error",
		},
		{
			name:    "protocol violation",
			backend: chattest.New(chattest.Round{event.NewToolCallDelta("", "echo", "{}"), event.NewCompletion("stop", nil)}),
			check: func(t *testing.T, err error) {
				var protocol *ProtocolError
				assert.ErrorAs(t, err, &protocol)
			},
			details: "backend protocol error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(tt.backend, quietRegistry(echoTool()))

			events := collect(a.RunStream(context.Background(), "hello"))
			require.GreaterOrEqual(t, len(events), 3)
			assert.Equal(t, EventAgentStart, events[0].Type)

			errEvent := events[len(events)-2]
			require.Equal(t, EventAgentError, errEvent.Type)
			tt.check(t, errEvent.Error)
			assert.Equal(t, tt.details, errEvent.Details)

			end := events[len(events)-1]
			assert.Equal(t, EventAgentEnd, end.Type)
			assert.Empty(t, end.Content)

			// Partial text is never committed.
			assert.Equal(t, 1, a.Conversation().Len())
		})
	}
}

func TestRun_ContextOverflow(t *testing.T) {
	backend := chattest.New(chattest.Text("unused"))
	a := newAgent(backend, nil,
		WithSystemPrompt("sys"),
		WithCounter(byteCounter{}),
		WithContextBudget(10),
	)

	result, err := a.Run(context.Background(), strings.Repeat("x", 100))
	var overflow *store.ContextOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 10, overflow.Budget)
	assert.Equal(t, TerminationError, result.Termination)
	assert.Empty(t, backend.Submissions())

	// The user message is kept, not silently dropped.
	assert.Equal(t, 1, a.Conversation().Len())
}

func TestRun_CancelBetweenToolCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secondRan := false
	registry := quietRegistry(
		tool.Func("stop", "cancels the turn", func(context.Context, struct{}) (string, error) {
			cancel()
			return "stopped", nil
		}),
		tool.Func("after", "must not run", func(context.Context, struct{}) (string, error) {
			secondRan = true
			return "ran", nil
		}),
	)
	backend := chattest.New(
		chattest.ToolCalls(
			ai.ToolCall{ID: "c1", Name: "stop", Arguments: "{}"},
			ai.ToolCall{ID: "c2", Name: "after", Arguments: "{}"},
		),
		chattest.Text("unused"),
	)
	a := newAgent(backend, registry)

	events := collect(a.RunStream(ctx, "go"))
	require.Equal(t, []EventType{
		EventAgentStart,
		EventToolCallStart,
		EventToolCallEnd,
		EventAgentError,
		EventAgentEnd,
	}, typesOf(events))
	assert.Equal(t, cancelledResult, events[2].ToolResult.Content)
	assert.ErrorIs(t, events[3].Error, context.Canceled)
	assert.False(t, secondRan)
	assert.Len(t, backend.Submissions(), 1)

	// Every call is answered, so the next turn can proceed.
	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 5)
	for _, m := range msgs[3:] {
		assert.Equal(t, ai.RoleTool, m.Role)
		assert.Equal(t, cancelledResult, m.Content)
		assert.True(t, m.IsError)
	}
	assert.Empty(t, a.Conversation().Pending())
}

func TestRun_CancelWhileStreaming(t *testing.T) {
	backend := chattest.New(chattest.Text("never", "delivered"))
	backend.Gate = make(chan struct{})
	a := newAgent(backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stream := a.RunStream(ctx, "hello")
	first := <-stream
	assert.Equal(t, EventAgentStart, first.Type)
	cancel()

	events := collect(stream)
	require.Equal(t, []EventType{EventAgentError, EventAgentEnd}, typesOf(events))
	assert.ErrorIs(t, events[0].Error, context.Canceled)
	assert.Equal(t, 1, a.Conversation().Len())
}

func TestRun_ProtocolErrorReleasesProducer(t *testing.T) {
	done := make(chan struct{})
	backend := chat.Func(func(ctx context.Context, _ []ai.Message, _ []ai.Tool, _ ...ai.Option) (<-chan event.Event, error) {
		ch := make(chan event.Event)
		go func() {
			defer close(done)
			defer close(ch)
			for _, e := range []event.Event{
				event.NewTextDelta("a"),
				event.NewToolCallDelta("", "echo", "{}"),
				event.NewTextDelta("b"),
				event.NewCompletion("stop", nil),
			} {
				if !event.Send(ctx, ch, e) {
					return
				}
			}
		}()
		return ch, nil
	})
	a := newAgent(backend, quietRegistry(echoTool()))

	events := collect(a.RunStream(context.Background(), "go"))
	require.Equal(t, EventAgentEnd, events[len(events)-1].Type)
	assert.Equal(t, EventAgentError, events[len(events)-2].Type)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("backend goroutine still blocked after the turn ended")
	}
}

func TestRun_CancelDropsBufferedDeltas(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := chat.Func(func(context.Context, []ai.Message, []ai.Tool, ...ai.Option) (<-chan event.Event, error) {
		ch := make(chan event.Event, 4)
		ch <- event.NewTextDelta("a")
		ch <- event.NewTextDelta("b")
		ch <- event.NewTextDelta("c")
		ch <- event.NewCompletion("stop", nil)
		close(ch)
		cancel()
		return ch, nil
	})
	a := newAgent(backend, nil)

	events := collect(a.RunStream(ctx, "hello"))
	for _, e := range events {
		assert.NotEqual(t, EventTextDelta, e.Type, "delta %q delivered after cancellation", e.Content)
	}
	require.Equal(t, []EventType{EventAgentStart, EventAgentError, EventAgentEnd}, typesOf(events))
	assert.ErrorIs(t, events[1].Error, context.Canceled)
}

func TestRun_ToolTimeout(t *testing.T) {
	slow := tool.Func("slow", "waits for cancellation", func(ctx context.Context, _ struct{}) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	backend := chattest.New(
		chattest.ToolCalls(ai.ToolCall{ID: "c1", Name: "slow", Arguments: "{}"}),
		chattest.Text("ok"),
	)
	a := newAgent(backend, quietRegistry(slow), WithToolTimeout(10*time.Millisecond))

	result, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	require.Len(t, result.Tools, 1)
	assert.True(t, result.Tools[0].Result.IsError())
	assert.Contains(t, result.Tools[0].Result.Content, "timed out")
}

func TestRun_WorkDirReachesTools(t *testing.T) {
	var got tool.Env
	envTool := tool.WithHandler("env", "reports its env", nil, func(_ context.Context, inv tool.Invocation) (ai.ToolResult, error) {
		got = inv.Env
		return ai.NewToolResult("ok"), nil
	})
	backend := chattest.New(
		chattest.ToolCalls(ai.ToolCall{ID: "c7", Name: "env", Arguments: "{}"}),
		chattest.Text("done"),
	)
	a := newAgent(backend, quietRegistry(envTool), WithWorkDir("/tmp/work"))

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, tool.Env{CallID: "c7", WorkDir: "/tmp/work"}, got)
}

func TestRun_SubmitOptions(t *testing.T) {
	backend := chattest.New(chattest.Text("ok"))
	a := newAgent(backend, nil,
		WithModel("test-model"),
		WithStream(false),
		WithChatOptions(ai.WithMaxTokens(64)),
	)

	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)

	subs := backend.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "test-model", subs[0].Options.Model)
	assert.False(t, subs[0].Options.Stream)
	assert.Equal(t, 64, subs[0].Options.MaxTokens)
	assert.Empty(t, subs[0].Tools)
}

func TestRun_HistoryAcrossTurns(t *testing.T) {
	backend := chattest.New(chattest.Text("first"), chattest.Text("second"))
	a := newAgent(backend, nil, WithSystemPrompt("Be brief."))

	_, err := a.Run(context.Background(), "one")
	require.NoError(t, err)
	_, err = a.Run(context.Background(), "two")
	require.NoError(t, err)

	subs := backend.Submissions()
	require.Len(t, subs, 2)
	msgs := subs[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "Be brief.", msgs[0].Content)
	assert.Equal(t, "one", msgs[1].Content)
	assert.Equal(t, "first", msgs[2].Content)
	assert.Equal(t, "two", msgs[3].Content)

	require.NoError(t, a.Reset())
	assert.Equal(t, 0, a.Conversation().Len())
}

func TestRun_EmptyInput(t *testing.T) {
	backend := chattest.New(chattest.Text("unused"))
	a := newAgent(backend, nil)

	result, err := a.Run(context.Background(), "")
	var invalid *store.InvalidMessageError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, result.Text)
	assert.Empty(t, backend.Submissions())
}

func TestRun_TurnInProgress(t *testing.T) {
	backend := chattest.New(chattest.Text("one"), chattest.Text("two"))
	gate := make(chan struct{})
	backend.Gate = gate
	a := newAgent(backend, nil)

	first := a.RunStream(context.Background(), "first")

	_, err := a.Run(context.Background(), "second")
	assert.ErrorIs(t, err, ErrTurnInProgress)
	assert.ErrorIs(t, a.Reset(), ErrTurnInProgress)

	close(gate)
	events := collect(first)
	assert.Equal(t, "one", events[len(events)-1].Content)

	result, err := a.Run(context.Background(), "third")
	require.NoError(t, err)
	assert.Equal(t, "two", result.Text)
}

func TestClose(t *testing.T) {
	backend := chattest.New(chattest.Text("unused"))
	a := newAgent(backend, nil)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, backend.CloseCount())

	events := collect(a.RunStream(context.Background(), "hello"))
	require.Equal(t, []EventType{EventAgentError, EventAgentEnd}, typesOf(events))
	assert.ErrorIs(t, events[0].Error, ErrClosed)

	result, err := a.Run(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, TerminationError, result.Termination)
}
