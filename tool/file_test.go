package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"notes.txt": "one\ntwo\nthree\nfour",
		"code.go":   "package main",
	})
	r := quietRegistry().Add(NewReadFileTool())
	ctx := context.Background()
	env := Env{WorkDir: dir}

	t.Run("whole file relative to work dir", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "notes.txt"}, env)
		require.False(t, result.IsError(), result.Content)
		assert.Equal(t, "one\ntwo\nthree\nfour", result.Content)
		assert.Equal(t, false, result.Metadata["truncated"])
	})

	t.Run("line range", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "notes.txt", "start_line": 2, "end_line": 3}, env)
		require.False(t, result.IsError(), result.Content)
		assert.Equal(t, "two\nthree", result.Content)
	})

	t.Run("start beyond end of file", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "notes.txt", "start_line": 10}, env)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Content, "beyond file length")
	})

	t.Run("base64", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "code.go", "encoding": "base64"}, env)
		assert.Equal(t, "cGFja2FnZSBtYWlu", result.Content)
	})

	t.Run("missing file", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "nope.txt"}, env)
		assert.True(t, result.IsError())
		assert.False(t, strings.HasPrefix(result.Content, InternalErrorPrefix))
	})

	t.Run("directory", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "."}, env)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Content, "is a directory")
	})

	t.Run("bad encoding rejected by schema", func(t *testing.T) {
		result := r.Invoke(ctx, "read_file", map[string]any{"path": "code.go", "encoding": "latin1"}, env)
		assert.True(t, strings.HasPrefix(result.Content, InvalidParametersPrefix), result.Content)
	})
}

func TestReadFileTool_TruncatesOutput(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = strings.Repeat("x", 39)
	}
	writeFiles(t, dir, map[string]string{"big.txt": strings.Join(lines, "\n")})

	r := quietRegistry().Add(NewReadFileTool(WithMaxOutputTokens(50), WithTokenCounter(token.Estimator{}, "")))
	result := r.Invoke(context.Background(), "read_file", map[string]any{"path": "big.txt"}, Env{WorkDir: dir})

	require.False(t, result.IsError(), result.Content)
	assert.Equal(t, true, result.Metadata["truncated"])
	assert.True(t, strings.HasSuffix(result.Content, token.DefaultSuffix))
	assert.LessOrEqual(t, token.Estimate(result.Content), 50)
}

func TestFileTools_BasePath(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"inside.txt": "ok"})
	r := quietRegistry().Add(NewReadFileTool(WithBasePath(dir)))

	result := r.Invoke(context.Background(), "read_file", map[string]any{"path": "inside.txt"}, Env{WorkDir: "/elsewhere"})
	assert.Equal(t, "ok", result.Content)

	result = r.Invoke(context.Background(), "read_file", map[string]any{"path": "../outside.txt"}, Env{})
	assert.True(t, result.IsError())
	assert.Contains(t, result.Content, "outside base path")
}

func TestFileTools_AllowedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.md": "doc", "b.sh": "rm"})
	r := quietRegistry().Add(NewReadFileTool(WithAllowedExtensions("md")))

	assert.Equal(t, "doc", r.Invoke(context.Background(), "read_file", map[string]any{"path": "a.md"}, Env{WorkDir: dir}).Content)
	assert.True(t, r.Invoke(context.Background(), "read_file", map[string]any{"path": "b.sh"}, Env{WorkDir: dir}).IsError())
}

func TestWriteFileTool(t *testing.T) {
	dir := t.TempDir()
	r := quietRegistry().Add(NewWriteFileTool())
	ctx := context.Background()
	env := Env{WorkDir: dir}

	result := r.Invoke(ctx, "write_file", map[string]any{"path": "out/new.txt", "content": "hello"}, env)
	require.False(t, result.IsError(), result.Content)
	assert.JSONEq(t, `{"path":"out/new.txt","bytes_written":5,"mode":"overwrite"}`, result.Content)

	result = r.Invoke(ctx, "write_file", map[string]any{"path": "out/new.txt", "content": " world", "mode": "append"}, env)
	require.False(t, result.IsError(), result.Content)

	data, err := os.ReadFile(filepath.Join(dir, "out", "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestListDirTool(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "a", "sub/b.txt": "bb"})
	r := quietRegistry().Add(NewListDirTool())

	decode := func(result ai.ToolResult) []dirEntry {
		t.Helper()
		require.False(t, result.IsError(), result.Content)
		var out struct {
			Entries []dirEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal([]byte(result.Content), &out))
		return out.Entries
	}

	flat := decode(r.Invoke(context.Background(), "list_directory", nil, Env{WorkDir: dir}))
	assert.Equal(t, []dirEntry{{Name: "a.txt", Size: 1}, {Name: "sub", IsDir: true}}, flat)

	deep := decode(r.Invoke(context.Background(), "list_directory", map[string]any{"recursive": true}, Env{WorkDir: dir}))
	assert.Equal(t, []dirEntry{{Name: "a.txt", Size: 1}, {Name: "sub", IsDir: true}, {Name: "sub/b.txt", Size: 2}}, deep)
}

func TestSearchTool(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.go":   "package main\n\nfunc main() {}\n",
		"util.go":   "package main\n\nfunc helper() {}\n",
		"README.md": "func is a keyword\n",
	})
	ctx := context.Background()

	decode := func(result ai.ToolResult) []searchMatch {
		t.Helper()
		require.False(t, result.IsError(), result.Content)
		var out struct {
			Matches []searchMatch `json:"matches"`
		}
		require.NoError(t, json.Unmarshal([]byte(result.Content), &out))
		return out.Matches
	}

	r := quietRegistry().Add(NewSearchTool())
	matches := decode(r.Invoke(ctx, "search_files", map[string]any{"pattern": `^func \w+\(`, "file_pattern": "*.go"}, Env{WorkDir: dir}))
	assert.Equal(t, []searchMatch{
		{File: "main.go", Line: 3, Content: "func main() {}"},
		{File: "util.go", Line: 3, Content: "func helper() {}"},
	}, matches)

	limited := quietRegistry().Add(NewSearchTool(WithMaxResults(1), WithExcludePatterns("*.md")))
	assert.Len(t, decode(limited.Invoke(ctx, "search_files", map[string]any{"pattern": "func"}, Env{WorkDir: dir})), 1)

	result := r.Invoke(ctx, "search_files", map[string]any{"pattern": "("}, Env{WorkDir: dir})
	assert.True(t, result.IsError())
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(nil)
	assert.Equal(t, []string{"read_file", "list_directory", "search_files"}, r.Names())

	w := DefaultRegistry(nil, WithWrite())
	assert.Contains(t, w.Names(), "write_file")
}
