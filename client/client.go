package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/chat"
	"github.com/spetersoncode/relay/event"
	"github.com/spetersoncode/relay/internal/provider/anthropic"
	"github.com/spetersoncode/relay/internal/provider/google"
	"github.com/spetersoncode/relay/internal/provider/openai"
	"github.com/spetersoncode/relay/internal/retry"
)

// OpenRouterBaseURL is the OpenAI-compatible OpenRouter endpoint.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Config holds configuration for creating a client.
type Config struct {
	// Provider selects the backend implementation.
	Provider ai.Provider

	// APIKey authenticates with the provider.
	APIKey string

	// BaseURL overrides the provider endpoint. Optional.
	BaseURL string

	// Model is the default model for requests that do not name one.
	Model string

	// Retry configures retries of transient failures. Nil uses
	// DefaultRetryPolicy.
	Retry *RetryPolicy

	// Logger receives retry warnings. Nil uses slog.Default.
	Logger *slog.Logger

	// Events is an optional channel for receiving client operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event

	// DefaultOptions are applied before per-request options.
	DefaultOptions []ai.Option
}

// ErrMissingAPIKey is returned when no API key is configured for the provider.
type ErrMissingAPIKey struct {
	Provider ai.Provider
}

func (e *ErrMissingAPIKey) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrUnsupportedProvider is returned for an unknown provider name.
type ErrUnsupportedProvider struct {
	Provider ai.Provider
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Provider)
}

// RetryPolicy is the backoff schedule for establishing streams.
type RetryPolicy = retry.Policy

// DefaultRetryPolicy makes up to 10 attempts with exponential backoff
// from one second to one minute.
func DefaultRetryPolicy() RetryPolicy { return retry.DefaultPolicy() }

// Client is a chat.Backend that adds default options, retries and
// operation events on top of a provider backend.
type Client struct {
	backend     chat.Backend
	provider    ai.Provider
	model       string
	retry       retry.Policy
	logger      *slog.Logger
	events      chan<- Event
	defaultOpts []ai.Option
}

// New creates a client for the configured provider.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &ErrMissingAPIKey{Provider: cfg.Provider}
	}

	var backend chat.Backend
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		backend = openai.New(cfg.APIKey, openaiOptions(cfg, "")...)
	case ai.ProviderOpenRouter:
		backend = openai.New(cfg.APIKey, openaiOptions(cfg, OpenRouterBaseURL)...)
	case ai.ProviderAnthropic:
		var opts []anthropic.ClientOption
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		backend = anthropic.New(cfg.APIKey, opts...)
	case ai.ProviderGoogle:
		var opts []google.ClientOption
		if cfg.Model != "" {
			opts = append(opts, google.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.BaseURL))
		}
		g, err := google.New(ctx, cfg.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google client: %w", err)
		}
		backend = g
	default:
		return nil, &ErrUnsupportedProvider{Provider: cfg.Provider}
	}

	return Wrap(backend, cfg), nil
}

func openaiOptions(cfg Config, defaultBaseURL string) []openai.ClientOption {
	var opts []openai.ClientOption
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return opts
}

// Wrap adds retries, defaults and events to an existing backend.
// Provider, APIKey and BaseURL in cfg are informational only.
func Wrap(backend chat.Backend, cfg Config) *Client {
	policy := retry.DefaultPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend:     backend,
		provider:    cfg.Provider,
		model:       cfg.Model,
		retry:       policy,
		logger:      logger,
		events:      cfg.Events,
		defaultOpts: cfg.DefaultOptions,
	}
}

// Provider returns the configured provider.
func (c *Client) Provider() ai.Provider { return c.provider }

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Submit sends a conversation and returns a stream of events.
// Establishing the stream is retried on transient errors according to the
// client's retry configuration; failures after the first event are not.
func (c *Client) Submit(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan event.Event, error) {
	// Prepend defaults so per-request options override them.
	opts = append(append([]ai.Option{}, c.defaultOpts...), opts...)
	model := ai.ApplyOptions(opts...).Model
	if model == "" && c.model != "" {
		model = c.model
		opts = append([]ai.Option{ai.WithModel(model)}, opts...)
	}

	start := time.Now()
	emit(c.events, Event{Type: EventRequestStart, Provider: c.provider, Model: model})

	notify := func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("retrying model request",
			"provider", c.provider,
			"model", model,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		emit(c.events, Event{
			Type:     EventRetry,
			Provider: c.provider,
			Model:    model,
			Attempt:  attempt,
			Delay:    delay,
			Error:    err,
		})
	}

	ch, err := retry.Do(ctx, c.retry, notify, func() (<-chan event.Event, error) {
		return c.backend.Submit(ctx, messages, tools, opts...)
	})
	if err != nil {
		emit(c.events, Event{
			Type:     EventRequestError,
			Provider: c.provider,
			Model:    model,
			Duration: time.Since(start),
			Error:    err,
		})
		return nil, err
	}

	emit(c.events, Event{
		Type:     EventRequestComplete,
		Provider: c.provider,
		Model:    model,
		Duration: time.Since(start),
	})
	return ch, nil
}

// Close closes the underlying backend.
func (c *Client) Close() error {
	return c.backend.Close()
}

var _ chat.Backend = (*Client)(nil)
