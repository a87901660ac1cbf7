// Package config loads settings shared by the relay commands.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// RELAY_* environment variables, then command-line flags. Later layers
// only override what they set. Provider credentials from the environment
// fill in whatever is still empty at the end.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/agent"
	"github.com/spetersoncode/relay/client"
	"github.com/spetersoncode/relay/token"
	"github.com/spetersoncode/relay/tool"
)

// Environment variables.
const (
	EnvConfig        = "RELAY_CONFIG"
	EnvProvider      = "RELAY_PROVIDER"
	EnvModel         = "RELAY_MODEL"
	EnvLogLevel      = "RELAY_LOG_LEVEL"
	EnvWorkDir       = "RELAY_WORK_DIR"
	EnvMaxIterations = "RELAY_MAX_ITERATIONS"
	EnvContextBudget = "RELAY_CONTEXT_BUDGET"
	EnvToolTimeout   = "RELAY_TOOL_TIMEOUT"
	EnvListen        = "RELAY_LISTEN"

	EnvOpenRouterKey   = "OPEN_ROUTER_API_KEY"
	EnvOpenRouterURL   = "OPEN_ROUTER_BASE_URL"
	EnvOpenRouterModel = "OPEN_ROUTER_LLM_MODEL"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvGoogleKey       = "GOOGLE_API_KEY"
)

// Config holds command settings.
type Config struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`

	SystemPrompt  string        `yaml:"system_prompt"`
	ContextBudget int           `yaml:"context_budget"`
	MaxIterations int           `yaml:"max_iterations"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`

	// WorkDir confines the file tools.
	WorkDir    string `yaml:"work_dir"`
	AllowWrite bool   `yaml:"allow_write"`

	// Tokenizer selects exact BPE counting instead of the estimate.
	Tokenizer bool `yaml:"tokenizer"`

	LogLevel string `yaml:"log_level"`

	// Listen is the HTTP address of the AG-UI server.
	Listen string `yaml:"listen"`

	Retry      Retry       `yaml:"retry"`
	MCPServers []MCPServer `yaml:"mcp_servers"`
}

// Retry overrides the client retry policy. Zero fields keep the defaults.
type Retry struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// MCPServer describes a remote MCP server whose tools are imported.
// Exactly one of Command and URL is set.
type MCPServer struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	URL     string   `yaml:"url"`

	// Prefix is prepended to imported tool names.
	Prefix string `yaml:"prefix"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Provider:      string(ai.ProviderOpenRouter),
		SystemPrompt:  agent.DefaultSystemPrompt,
		ContextBudget: agent.DefaultContextBudget,
		MaxIterations: agent.DefaultMaxIterations,
		ToolTimeout:   2 * time.Minute,
		WorkDir:       ".",
		LogLevel:      "info",
		Listen:        ":8080",
	}
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the RELAY_* environment variables onto c. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvProvider); ok {
		c.Provider = v
	}
	if v, ok := get(EnvModel); ok {
		c.Model = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(EnvWorkDir); ok {
		c.WorkDir = v
	}
	if v, ok := get(EnvListen); ok {
		c.Listen = v
	}

	var errs []error
	if v, ok := get(EnvMaxIterations); ok {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMaxIterations, err))
		} else {
			c.MaxIterations = n
		}
	}
	if v, ok := get(EnvContextBudget); ok {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvContextBudget, err))
		} else {
			c.ContextBudget = n
		}
	}
	if v, ok := get(EnvToolTimeout); ok {
		if d, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvToolTimeout, err))
		} else {
			c.ToolTimeout = d
		}
	}
	return errors.Join(errs...)
}

// ApplyProviderEnv fills the API key, and for OpenRouter the endpoint and
// model, from the provider's environment variables. Fields already set by
// the file or flags are kept. It runs once the provider is final.
func (c *Config) ApplyProviderEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	provider := ai.Provider(c.Provider)
	if c.APIKey == "" {
		if key := keyVariable(provider); key != "" {
			c.APIKey = get(key)
		}
	}
	if provider != ai.ProviderOpenRouter {
		return
	}
	if c.BaseURL == "" {
		c.BaseURL = get(EnvOpenRouterURL)
	}
	if c.Model == "" {
		c.Model = get(EnvOpenRouterModel)
	}
}

func keyVariable(p ai.Provider) string {
	switch p {
	case ai.ProviderOpenRouter:
		return EnvOpenRouterKey
	case ai.ProviderAnthropic:
		return EnvAnthropicKey
	case ai.ProviderOpenAI:
		return EnvOpenAIKey
	case ai.ProviderGoogle:
		return EnvGoogleKey
	}
	return ""
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	provider := ai.Provider(c.Provider)
	if !provider.Valid() {
		errs = append(errs, fmt.Errorf("unknown provider %q (want one of %v)", c.Provider, ai.Providers))
	} else if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("no API key for %s (set %s)", provider, keyVariable(provider)))
	}
	if c.ContextBudget <= 0 {
		errs = append(errs, fmt.Errorf("context budget must be positive, got %d", c.ContextBudget))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations))
	}
	if c.ToolTimeout < 0 {
		errs = append(errs, fmt.Errorf("tool timeout must not be negative, got %s", c.ToolTimeout))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i, s := range c.MCPServers {
		if (s.Command == "") == (s.URL == "") {
			errs = append(errs, fmt.Errorf("mcp server %d: exactly one of command and url is required", i))
		}
	}
	return errors.Join(errs...)
}

// ParseLevel parses a slog level name such as "debug" or "warn".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Counter returns the token counter selected by Tokenizer.
func (c *Config) Counter() token.Counter {
	if c.Tokenizer {
		return token.NewTokenizer()
	}
	return token.Estimator{}
}

// ClientConfig returns the model client settings.
func (c *Config) ClientConfig(logger *slog.Logger) client.Config {
	cfg := client.Config{
		Provider: ai.Provider(c.Provider),
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		Logger:   logger,
	}
	if c.Retry != (Retry{}) {
		policy := client.DefaultRetryPolicy()
		if c.Retry.MaxAttempts > 0 {
			policy.Attempts = c.Retry.MaxAttempts
		}
		if c.Retry.InitialDelay > 0 {
			policy.Base = c.Retry.InitialDelay
		}
		if c.Retry.MaxDelay > 0 {
			policy.Cap = c.Retry.MaxDelay
		}
		cfg.Retry = &policy
	}
	return cfg
}

// AgentOptions returns the agent settings. counter is shared with the
// file tools so both measure text the same way.
func (c *Config) AgentOptions(counter token.Counter, logger *slog.Logger) []agent.Option {
	return []agent.Option{
		agent.WithSystemPrompt(c.SystemPrompt),
		agent.WithModel(c.Model),
		agent.WithContextBudget(c.ContextBudget),
		agent.WithMaxIterations(c.MaxIterations),
		agent.WithToolTimeout(c.ToolTimeout),
		agent.WithWorkDir(c.WorkDir),
		agent.WithCounter(counter),
		agent.WithLogger(logger),
	}
}

// FileOptions returns the file tool settings.
func (c *Config) FileOptions(counter token.Counter) []tool.FileOption {
	opts := []tool.FileOption{
		tool.WithBasePath(c.WorkDir),
		tool.WithTokenCounter(counter, c.Model),
	}
	if c.AllowWrite {
		opts = append(opts, tool.WithWrite())
	}
	return opts
}
