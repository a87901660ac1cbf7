package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Flags holds the command-line layer. Flag values are kept apart from the
// loaded Config so that only flags given on the command line override the
// file and environment.
type Flags struct {
	fs     *pflag.FlagSet
	path   string
	values Config
	mcp    []string
}

// NewFlags registers the shared flags on a new flag set.
func NewFlags(name string) *Flags {
	f := &Flags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	fs := f.fs
	v := &f.values

	fs.StringVarP(&f.path, "config", "c", "", "YAML config file (also "+EnvConfig+")")
	fs.StringVarP(&v.Provider, "provider", "p", "", "model provider: openrouter, openai, anthropic or google")
	fs.StringVarP(&v.Model, "model", "m", "", "model name")
	fs.StringVar(&v.BaseURL, "base-url", "", "override the provider endpoint")
	fs.StringVar(&v.SystemPrompt, "system", "", "system prompt")
	fs.IntVar(&v.ContextBudget, "context-budget", 0, "token budget for the rendered conversation")
	fs.IntVar(&v.MaxIterations, "max-iterations", 0, "model round-trips per turn")
	fs.DurationVar(&v.ToolTimeout, "tool-timeout", 0, "timeout per tool call (0 disables)")
	fs.StringVarP(&v.WorkDir, "workdir", "w", "", "directory the file tools are confined to")
	fs.BoolVar(&v.AllowWrite, "allow-write", false, "enable the write_file tool")
	fs.BoolVar(&v.Tokenizer, "tokenizer", false, "count tokens with tiktoken instead of estimating")
	fs.StringVar(&v.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&v.Listen, "listen", "", "HTTP listen address of the AG-UI server")
	fs.StringArrayVar(&f.mcp, "mcp-command", nil, "MCP server command whose tools are imported (repeatable)")
	return f
}

// FlagSet exposes the flag set so commands can add their own flags.
func (f *Flags) FlagSet() *pflag.FlagSet { return f.fs }

// Parse parses args. pflag.ErrHelp is returned as is.
func (f *Flags) Parse(args []string) error {
	return f.fs.Parse(args)
}

// Load builds the final Config from defaults, the config file, the
// environment and the parsed flags, then validates it.
func (f *Flags) Load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	path := f.path
	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	f.apply(cfg)
	cfg.ApplyProviderEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *Config) {
	v := f.values
	f.fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "provider":
			cfg.Provider = v.Provider
		case "model":
			cfg.Model = v.Model
		case "base-url":
			cfg.BaseURL = v.BaseURL
		case "system":
			cfg.SystemPrompt = v.SystemPrompt
		case "context-budget":
			cfg.ContextBudget = v.ContextBudget
		case "max-iterations":
			cfg.MaxIterations = v.MaxIterations
		case "tool-timeout":
			cfg.ToolTimeout = v.ToolTimeout
		case "workdir":
			cfg.WorkDir = v.WorkDir
		case "allow-write":
			cfg.AllowWrite = v.AllowWrite
		case "tokenizer":
			cfg.Tokenizer = v.Tokenizer
		case "log-level":
			cfg.LogLevel = v.LogLevel
		case "listen":
			cfg.Listen = v.Listen
		case "mcp-command":
			for _, cmd := range f.mcp {
				fields := strings.Fields(cmd)
				if len(fields) == 0 {
					continue
				}
				cfg.MCPServers = append(cfg.MCPServers, MCPServer{Command: fields[0], Args: fields[1:]})
			}
		}
	})
}

// IsHelp reports whether err came from a help flag.
func IsHelp(err error) bool {
	return errors.Is(err, pflag.ErrHelp)
}
