// Package agent runs conversational turns in which the model may call tools.
//
// An [Agent] owns a backend, a tool registry and a conversation. Each turn
// appends the user input, then repeatedly submits the rendered
// conversation and the tool schemas to the backend. Tool calls the model
// requests run one at a time in the order received, and their results are
// recorded before the model is consulted again. The turn ends when the
// model answers with text and no tool calls.
//
// # Basic Usage
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("get_weather", "Get current weather",
//	        func(ctx context.Context, args WeatherArgs) (string, error) {
//	            return fmt.Sprintf(`{"temp": 72, "location": %q}`, args.Location), nil
//	        }),
//	)
//
//	a := agent.New(backend, registry, agent.WithMaxIterations(5))
//	defer a.Close()
//
//	result, err := a.Run(ctx, "What's the weather in Paris?")
//
// # Streaming Events
//
// RunStream yields events as the turn executes:
//
//	for e := range a.RunStream(ctx, input) {
//	    switch e.Type {
//	    case agent.EventTextDelta:
//	        fmt.Print(e.Content)
//	    case agent.EventToolCallStart:
//	        fmt.Printf("\n[calling %s]\n", e.ToolCall.Name)
//	    case agent.EventAgentError:
//	        fmt.Fprintln(os.Stderr, e.Error)
//	    }
//	}
//
// Every turn starts with [EventAgentStart] and ends with [EventAgentEnd].
// Text fragments are forwarded as soon as the backend produces them.
//
// # Failures
//
// Tool failures never end a turn: unknown tools, invalid arguments,
// handler errors and timeouts become error results the model can read.
// Backend errors, protocol violations, context overflow, cancellation and
// reaching the iteration limit end the turn with [EventAgentError]. Text
// streamed before such a failure is not recorded in the conversation.
package agent
