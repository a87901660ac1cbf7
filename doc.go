// Package relay holds the data model shared by the relay agent runtime:
// messages, tool calls and results, tool descriptors, request options,
// providers and categorized errors.
//
// The runtime itself lives in subpackages:
//
//   - [github.com/spetersoncode/relay/chat]: the model backend contract and
//     stream accumulation
//   - [github.com/spetersoncode/relay/client]: provider backends with
//     retries (OpenRouter, OpenAI, Anthropic, Google)
//   - [github.com/spetersoncode/relay/store]: conversation history and
//     budgeted rendering
//   - [github.com/spetersoncode/relay/token]: token counting and truncation
//   - [github.com/spetersoncode/relay/tool]: the tool registry and the
//     workspace file tools
//   - [github.com/spetersoncode/relay/agent]: the turn orchestrator
//   - [github.com/spetersoncode/relay/mcp] and
//     [github.com/spetersoncode/relay/agui]: MCP and AG-UI bridges
//
// # Basic Usage
//
//	backend, err := client.New(ctx, client.Config{
//	    Provider: relay.ProviderOpenRouter,
//	    APIKey:   os.Getenv("OPEN_ROUTER_API_KEY"),
//	    Model:    "openai/gpt-4o-mini",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	a := agent.New(backend, tool.DefaultRegistry(nil, tool.WithBasePath(".")))
//	defer a.Close()
//
//	for e := range a.RunStream(ctx, "Which files mention TODO?") {
//	    if e.Type == agent.EventTextDelta {
//	        fmt.Print(e.Content)
//	    }
//	}
//
// # Tool Parameters
//
// Tool parameter schemas are generated from structs with [SchemaFor]:
//
//	type SearchArgs struct {
//	    Query string `json:"query" desc:"Text to find" required:"true"`
//	    Mode  string `json:"mode" enum:"exact,regex"`
//	}
//
// # Errors
//
// Provider failures are reported as [*Error] values carrying an
// [ErrorCategory]; use [IsTransient], [IsPermanent] and [IsUserInput] to
// classify them.
package relay
