package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/client"
	"github.com/spetersoncode/relay/token"
	"github.com/spetersoncode/relay/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, args []string, vars map[string]string) (*Config, error) {
	t.Helper()
	f := NewFlags("relay")
	require.NoError(t, f.Parse(args))
	return f.Load(env(vars))
}

func TestDefault(t *testing.T) {
	cfg, err := load(t, nil, map[string]string{EnvOpenRouterKey: "or-key"})
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, "or-key", cfg.APIKey)
	assert.Equal(t, 32000, cfg.ContextBudget)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, "You are a helpful assistant.", cfg.SystemPrompt)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MCPServers)
}

func TestOpenRouterEnvironment(t *testing.T) {
	cfg, err := load(t, nil, map[string]string{
		EnvOpenRouterKey:   "or-key",
		EnvOpenRouterURL:   "https://proxy.example/v1",
		EnvOpenRouterModel: "meta-llama/llama-3-70b",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.example/v1", cfg.BaseURL)
	assert.Equal(t, "meta-llama/llama-3-70b", cfg.Model)

	t.Run("ignored for other providers", func(t *testing.T) {
		cfg, err := load(t, []string{"--provider", "anthropic"}, map[string]string{
			EnvOpenRouterKey:   "or-key",
			EnvOpenRouterModel: "meta-llama/llama-3-70b",
			EnvAnthropicKey:    "ant-key",
		})
		require.NoError(t, err)
		assert.Equal(t, "ant-key", cfg.APIKey)
		assert.Empty(t, cfg.Model)
	})
}

func TestLayering(t *testing.T) {
	path := writeConfig(t, `
provider: openai
model: file-model
max_iterations: 4
tool_timeout: 45s
allow_write: true
retry:
  max_attempts: 3
mcp_servers:
  - command: weather-server
    args: [--units, metric]
    prefix: weather_
`)

	t.Run("file", func(t *testing.T) {
		cfg, err := load(t, []string{"--config", path}, map[string]string{EnvOpenAIKey: "oa-key"})
		require.NoError(t, err)

		assert.Equal(t, "openai", cfg.Provider)
		assert.Equal(t, "oa-key", cfg.APIKey)
		assert.Equal(t, "file-model", cfg.Model)
		assert.Equal(t, 4, cfg.MaxIterations)
		assert.Equal(t, 45*time.Second, cfg.ToolTimeout)
		assert.True(t, cfg.AllowWrite)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		require.Len(t, cfg.MCPServers, 1)
		assert.Equal(t, MCPServer{Command: "weather-server", Args: []string{"--units", "metric"}, Prefix: "weather_"}, cfg.MCPServers[0])
	})

	t.Run("environment overrides file", func(t *testing.T) {
		cfg, err := load(t, nil, map[string]string{
			EnvConfig:        path,
			EnvOpenAIKey:     "oa-key",
			EnvModel:         "env-model",
			EnvMaxIterations: "6",
		})
		require.NoError(t, err)
		assert.Equal(t, "env-model", cfg.Model)
		assert.Equal(t, 6, cfg.MaxIterations)
	})

	t.Run("flags override environment", func(t *testing.T) {
		cfg, err := load(t, []string{"-c", path, "-m", "flag-model", "--max-iterations", "8", "--mcp-command", "files-server --root /tmp"},
			map[string]string{EnvOpenAIKey: "oa-key", EnvModel: "env-model"})
		require.NoError(t, err)
		assert.Equal(t, "flag-model", cfg.Model)
		assert.Equal(t, 8, cfg.MaxIterations)
		require.Len(t, cfg.MCPServers, 2)
		assert.Equal(t, MCPServer{Command: "files-server", Args: []string{"--root", "/tmp"}}, cfg.MCPServers[1])
	})

	t.Run("unset flags keep lower layers", func(t *testing.T) {
		cfg, err := load(t, []string{"-c", path, "--log-level", "debug"}, map[string]string{EnvOpenAIKey: "oa-key"})
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.MaxIterations)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("file key wins over environment", func(t *testing.T) {
		keyed := writeConfig(t, "provider: google\napi_key: file-key\n")
		cfg, err := load(t, []string{"-c", keyed}, map[string]string{EnvGoogleKey: "env-key"})
		require.NoError(t, err)
		assert.Equal(t, "file-key", cfg.APIKey)
	})
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "missing key",
			wantErr: "no API key for openrouter (set OPEN_ROUTER_API_KEY)",
		},
		{
			name:    "unknown provider",
			args:    []string{"--provider", "acme"},
			wantErr: `unknown provider "acme"`,
		},
		{
			name:    "bad iteration limit",
			args:    []string{"--max-iterations", "0"},
			vars:    map[string]string{EnvOpenRouterKey: "k"},
			wantErr: "max iterations must be positive",
		},
		{
			name:    "bad log level",
			vars:    map[string]string{EnvOpenRouterKey: "k", EnvLogLevel: "loud"},
			wantErr: `invalid log level "loud"`,
		},
		{
			name:    "malformed environment number",
			vars:    map[string]string{EnvOpenRouterKey: "k", EnvContextBudget: "lots"},
			wantErr: EnvContextBudget,
		},
		{
			name:    "missing config file",
			args:    []string{"--config", "/nonexistent/relay.yaml"},
			wantErr: "reading config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.args, tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMCPServers(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "k"
	cfg.MCPServers = []MCPServer{{Command: "a", URL: "http://b"}, {}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp server 0")
	assert.Contains(t, err.Error(), "mcp server 1")
}

func TestHelp(t *testing.T) {
	f := NewFlags("relay")
	f.FlagSet().SetOutput(io.Discard)
	assert.True(t, IsHelp(f.Parse([]string{"--help"})))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "k"
	cfg.Model = "m"

	cc := cfg.ClientConfig(nil)
	assert.Equal(t, ai.ProviderOpenRouter, cc.Provider)
	assert.Equal(t, "m", cc.Model)
	assert.Nil(t, cc.Retry)

	cfg.Retry.MaxAttempts = 2
	cc = cfg.ClientConfig(nil)
	require.NotNil(t, cc.Retry)
	assert.Equal(t, 2, cc.Retry.Attempts)
	assert.Equal(t, client.DefaultRetryPolicy().Base, cc.Retry.Base)
}

func TestCounter(t *testing.T) {
	cfg := Default()
	assert.IsType(t, token.Estimator{}, cfg.Counter())
	cfg.Tokenizer = true
	assert.IsType(t, &token.Tokenizer{}, cfg.Counter())
}

func TestBuildTools(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("remember the milk\n"), 0o644))

	cfg := Default()
	cfg.WorkDir = dir
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tools, err := cfg.BuildTools(context.Background(), token.Estimator{}, logger)
	require.NoError(t, err)
	defer tools.Close()

	assert.ElementsMatch(t, []string{"read_file", "list_directory", "search_files"}, tools.Registry.Names())

	result := tools.Registry.Execute(context.Background(),
		ai.ToolCall{ID: "c1", Name: "read_file", Arguments: `{"path":"notes.txt"}`}, tool.Env{})
	require.False(t, result.IsError(), result.Content)
	assert.Contains(t, result.Content, "remember the milk")

	t.Run("write access", func(t *testing.T) {
		cfg.AllowWrite = true
		tools, err := cfg.BuildTools(context.Background(), token.Estimator{}, logger)
		require.NoError(t, err)
		assert.Contains(t, tools.Registry.Names(), "write_file")
	})

	t.Run("unreachable MCP server", func(t *testing.T) {
		cfg.MCPServers = []MCPServer{{Command: filepath.Join(dir, "no-such-server")}}
		_, err := cfg.BuildTools(context.Background(), token.Estimator{}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mcp server 0")
	})
}
