// Command mcp serves the relay file tools to MCP clients over stdio.
//
// Usage:
//
//	mcp --workdir /path/to/project [--allow-write]
//
// Configuration for an MCP client such as Claude Desktop:
//
//	{
//	    "mcpServers": {
//	        "relay-tools": {
//	            "command": "mcp",
//	            "args": ["--workdir", "/path/to/project"]
//	        }
//	    }
//	}
//
// Logs go to stderr; stdout carries the protocol.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/spetersoncode/relay/internal/config"
	"github.com/spetersoncode/relay/mcp"
	"github.com/spetersoncode/relay/tool"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		workDir    string
		allowWrite bool
		logLevel   string
	)
	fs := pflag.NewFlagSet("mcp", pflag.ContinueOnError)
	fs.StringVarP(&workDir, "workdir", "w", ".", "directory the file tools are confined to")
	fs.BoolVar(&allowWrite, "allow-write", false, "enable the write_file tool")
	fs.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level, err := config.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []tool.FileOption{tool.WithBasePath(workDir)}
	if allowWrite {
		opts = append(opts, tool.WithWrite())
	}
	registry := tool.DefaultRegistry(logger, opts...)

	logger.Info("serving tools", "workdir", workDir, "tools", registry.Names())
	return mcp.ServeStdio(registry,
		mcp.WithName("relay-tools"),
		mcp.WithWorkDir(workDir),
	)
}
