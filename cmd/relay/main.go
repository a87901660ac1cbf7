// Command relay is an interactive chat agent with workspace file tools.
//
// Each line typed at the prompt runs one turn: the model may call tools
// any number of times before answering, and its answer streams to stdout.
// Arguments given after the flags are run as a single turn instead.
//
// Configuration comes from, in increasing precedence, a YAML file
// (--config or RELAY_CONFIG), RELAY_* environment variables and flags.
// A .env file in the working directory is loaded first. The default
// provider is OpenRouter, configured through
// OPEN_ROUTER_API_KEY, OPEN_ROUTER_BASE_URL and OPEN_ROUTER_LLM_MODEL.
//
// Usage:
//
//	relay [flags] [question...]
//	relay --provider anthropic --model claude-sonnet-4-5 --log-level debug
//	relay --mcp-command "npx -y @modelcontextprotocol/server-memory"
//
// At the prompt, /reset clears the conversation and /exit quits.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spetersoncode/relay/agent"
	"github.com/spetersoncode/relay/client"
	"github.com/spetersoncode/relay/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if config.IsHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	flags := config.NewFlags("relay")
	flags.FlagSet().SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, err := flags.Load(os.LookupEnv)
	if err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter := cfg.Counter()
	tools, err := cfg.BuildTools(ctx, counter, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tools.Close(); err != nil {
			logger.Warn("closing MCP sessions", "error", err)
		}
	}()

	backend, err := client.New(ctx, cfg.ClientConfig(logger))
	if err != nil {
		return err
	}
	a := agent.New(backend, tools.Registry, cfg.AgentOptions(counter, logger)...)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing agent", "error", err)
		}
	}()

	logger.Debug("agent ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"tools", tools.Registry.Names(),
	)

	r := &repl{agent: a, in: stdin, out: stdout, errOut: stderr, logger: logger}
	if rest := flags.FlagSet().Args(); len(rest) > 0 {
		r.turn(ctx, strings.Join(rest, " "))
		return nil
	}
	return r.run(ctx)
}
