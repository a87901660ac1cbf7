// Package mcp connects tool registries to the Model Context Protocol.
//
// The integration works both ways:
//
//   - [NewServer] exposes a [tool.Registry] to MCP clients. Calls go through
//     the registry, so arguments are validated and failures come back as
//     error results.
//   - [Connect] opens a session with an MCP server, and [Remote.Import]
//     registers its tools in a local registry where agents can call them.
//
// # Exposing Tools
//
//	registry := tool.DefaultRegistry(logger)
//	if err := mcp.ServeStdio(registry, mcp.WithName("relay-tools")); err != nil {
//	    log.Fatal(err)
//	}
//
// # Importing Remote Tools
//
//	remote, err := mcp.ConnectStdio(ctx, "./weather-server", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer remote.Close()
//
//	registry := tool.NewRegistry()
//	remote.Import(registry, mcp.WithPrefix("weather_"))
package mcp
