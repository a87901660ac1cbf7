package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spetersoncode/relay/agent"
)

const prompt = "> "

// repl reads one line of input per turn and renders the turn's events.
type repl struct {
	agent  *agent.Agent
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// run serves turns until input ends, the user exits or ctx is cancelled.
func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.out)
			return err
		case line = <-lines:
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := r.agent.Reset(); err != nil {
				fmt.Fprintf(r.errOut, "error: %v\n", err)
			} else {
				fmt.Fprintln(r.out, "conversation cleared")
			}
			continue
		}

		r.turn(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// turn runs one turn and writes its text to out as it streams.
func (r *repl) turn(ctx context.Context, input string) {
	streamed := false
	for e := range r.agent.RunStream(ctx, input) {
		switch e.Type {
		case agent.EventTextDelta:
			streamed = true
			fmt.Fprint(r.out, e.Content)

		case agent.EventTextComplete:
			// Non-streaming backends deliver the text only here.
			if !streamed && e.Content != "" {
				fmt.Fprint(r.out, e.Content)
				streamed = true
			}

		case agent.EventToolCallStart:
			if streamed {
				fmt.Fprintln(r.out)
				streamed = false
			}
			r.logger.Debug("tool call",
				"tool", e.ToolCall.Name,
				"id", e.ToolCall.ID,
				"arguments", e.ToolCall.Arguments,
				"iteration", e.Iteration,
			)

		case agent.EventToolCallEnd:
			r.logger.Debug("tool result",
				"tool", e.ToolCall.Name,
				"id", e.ToolCall.ID,
				"status", e.ToolResult.Status,
				"bytes", len(e.ToolResult.Content),
			)

		case agent.EventAgentError:
			if streamed {
				fmt.Fprintln(r.out)
				streamed = false
			}
			fmt.Fprintf(r.errOut, "error: %s: %v\n", e.Details, e.Error)

		case agent.EventAgentEnd:
			if streamed {
				fmt.Fprintln(r.out)
			}
			if e.Usage != nil {
				r.logger.Debug("turn finished",
					"input_tokens", e.Usage.InputTokens,
					"output_tokens", e.Usage.OutputTokens,
					"iterations", e.Iteration,
				)
			}
		}
	}
}
