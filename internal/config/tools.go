package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spetersoncode/relay/mcp"
	"github.com/spetersoncode/relay/token"
	"github.com/spetersoncode/relay/tool"
)

// Tools holds the tool registry and the MCP sessions feeding it.
type Tools struct {
	Registry *tool.Registry
	remotes  []*mcp.Remote
}

// Close ends every MCP session.
func (t *Tools) Close() error {
	var errs []error
	for _, r := range t.remotes {
		errs = append(errs, r.Close())
	}
	t.remotes = nil
	return errors.Join(errs...)
}

// BuildTools registers the file tools and imports the tools of every
// configured MCP server. Sessions opened before a failure are closed.
func (c *Config) BuildTools(ctx context.Context, counter token.Counter, logger *slog.Logger) (*Tools, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tools{Registry: tool.DefaultRegistry(logger, c.FileOptions(counter)...)}

	for i, s := range c.MCPServers {
		var (
			remote *mcp.Remote
			err    error
		)
		if s.URL != "" {
			remote, err = mcp.ConnectSSE(ctx, s.URL)
		} else {
			remote, err = mcp.ConnectStdio(ctx, s.Command, s.Env, s.Args...)
		}
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("mcp server %d: %w", i, err)
		}
		t.remotes = append(t.remotes, remote)

		var opts []mcp.ImportOption
		if s.Prefix != "" {
			opts = append(opts, mcp.WithPrefix(s.Prefix))
		}
		names := remote.Import(t.Registry, opts...)
		logger.Info("imported MCP tools", "server", i, "count", len(names), "names", names)
	}
	return t, nil
}
