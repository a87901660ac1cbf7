// Command aguiserver exposes relay agents to AG-UI frontends such as
// CopilotKit over Server-Sent Events.
//
// Each AG-UI thread gets its own agent, and with it its own conversation.
// Threads idle for longer than --idle are closed.
//
// Endpoints:
//
//	POST /api/agent                        run a turn, stream AG-UI events
//	GET  /api/threads/{threadID}/messages  MESSAGES_SNAPSHOT of a thread
//	GET  /health                           liveness
//
// Configuration is shared with the relay command: a YAML file, RELAY_*
// environment variables and flags, with .env loaded first.
//
// Usage:
//
//	aguiserver --listen :8080 --provider anthropic
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/spetersoncode/relay/agent"
	"github.com/spetersoncode/relay/agui"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/client"
	"github.com/spetersoncode/relay/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if config.IsHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "aguiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	flags := config.NewFlags("aguiserver")
	var (
		idle        time.Duration
		turnTimeout time.Duration
	)
	flags.FlagSet().DurationVar(&idle, "idle", 30*time.Minute, "close threads idle for this long")
	flags.FlagSet().DurationVar(&turnTimeout, "turn-timeout", 5*time.Minute, "bound on one turn (0 disables)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, err := flags.Load(os.LookupEnv)
	if err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter := cfg.Counter()
	tools, err := cfg.BuildTools(ctx, counter, logger)
	if err != nil {
		return err
	}
	defer tools.Close()

	backend, err := client.New(ctx, cfg.ClientConfig(logger))
	if err != nil {
		return err
	}
	defer backend.Close()

	// Thread agents share the client, which is closed once on exit.
	shared := chat.NopClose(backend)
	threads := agui.NewThreads(func(threadID string) (*agent.Agent, error) {
		return agent.New(shared, tools.Registry, cfg.AgentOptions(counter, logger.With("thread_id", threadID))...), nil
	}, logger)
	defer func() {
		if err := threads.Close(); err != nil {
			logger.Warn("closing threads", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/api/agent", corsMiddleware(NewAgentHandler(threads, logger, turnTimeout)))
	mux.Handle("GET /api/threads/{threadID}/messages", corsMiddleware(MessagesHandler(threads)))
	mux.HandleFunc("/health", healthHandler)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	go evictIdle(ctx, threads, idle, logger)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("AG-UI server starting",
		"addr", cfg.Listen,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"tools", tools.Registry.Names(),
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// evictIdle closes idle threads until ctx is done.
func evictIdle(ctx context.Context, threads *agui.Threads, idle time.Duration, logger *slog.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := threads.Evict(idle); n > 0 {
				logger.Info("evicted idle threads", "count", n, "remaining", threads.Len())
			}
		}
	}
}
