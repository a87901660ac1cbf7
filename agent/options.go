package agent

import (
	"log/slog"
	"time"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/token"
)

const (
	// DefaultSystemPrompt is used when no system prompt is configured.
	DefaultSystemPrompt = "You are a helpful assistant."

	// DefaultMaxIterations bounds the model round-trips of one turn.
	DefaultMaxIterations = 10

	// DefaultContextBudget is the token budget for a rendered conversation.
	DefaultContextBudget = 32000
)

// Options contains configuration for an agent.
type Options struct {
	// SystemPrompt opens every rendered conversation.
	SystemPrompt string

	// Model is sent with each submission and used for token counting.
	// Empty leaves the choice to the backend.
	Model string

	// ContextBudget is the token budget for the rendered conversation.
	ContextBudget int

	// MaxIterations limits model round-trips per turn. Default is 10.
	MaxIterations int

	// ToolTimeout bounds each tool invocation. Zero means no timeout.
	// A timed out tool produces an error result, not a failed turn.
	ToolTimeout time.Duration

	// WorkDir is handed to tools for resolving relative paths.
	WorkDir string

	// Counter measures messages against ContextBudget.
	// Defaults to the character estimator.
	Counter token.Counter

	Logger *slog.Logger

	// ChatOptions are passed through to every submission.
	ChatOptions []ai.Option

	// Stream requests incremental delivery from the backend. Default is true.
	Stream bool
}

// Option is a functional option for configuring an agent.
type Option func(*Options)

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithModel sets the model for submissions and token counting.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithContextBudget sets the token budget for the rendered conversation.
func WithContextBudget(tokens int) Option {
	return func(o *Options) {
		o.ContextBudget = tokens
	}
}

// WithMaxIterations sets the maximum model round-trips per turn.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// WithToolTimeout sets the timeout for each tool invocation.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ToolTimeout = d
	}
}

// WithWorkDir sets the directory tools resolve relative paths against.
func WithWorkDir(dir string) Option {
	return func(o *Options) {
		o.WorkDir = dir
	}
}

// WithCounter sets the token counter used to fit the context budget.
func WithCounter(c token.Counter) Option {
	return func(o *Options) {
		o.Counter = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithChatOptions passes options through to the backend.
// These options are applied to every submission the agent makes.
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithStream enables or disables incremental delivery.
func WithStream(enabled bool) Option {
	return func(o *Options) {
		o.Stream = enabled
	}
}

// ApplyOptions applies functional options to an Options struct with defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		SystemPrompt:  DefaultSystemPrompt,
		ContextBudget: DefaultContextBudget,
		MaxIterations: DefaultMaxIterations,
		Stream:        true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Counter == nil {
		o.Counter = token.Estimator{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// submitOptions returns the options sent with every submission.
func (o *Options) submitOptions() []ai.Option {
	opts := make([]ai.Option, 0, len(o.ChatOptions)+2)
	if o.Model != "" {
		opts = append(opts, ai.WithModel(o.Model))
	}
	opts = append(opts, ai.WithStream(o.Stream))
	return append(opts, o.ChatOptions...)
}
