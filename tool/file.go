package tool

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ai "github.com/spetersoncode/relay"
	"github.com/spetersoncode/relay/token"
)

// DefaultMaxOutputTokens bounds the content a file tool hands back to the model.
const DefaultMaxOutputTokens = 4000

// FileOption configures the file tools.
type FileOption func(*fileConfig)

type fileConfig struct {
	basePath          string
	allowedExtensions []string
	maxFileSize       int64
	maxOutputTokens   int
	counter           token.Counter
	model             string
	writable          bool
	maxResults        int
	includePatterns   []string
	excludePatterns   []string
}

// WithBasePath restricts file operations to a directory. Paths resolve
// relative to it and may not escape it.
func WithBasePath(path string) FileOption {
	return func(c *fileConfig) {
		c.basePath = path
	}
}

// WithAllowedExtensions restricts file operations to specific file extensions.
func WithAllowedExtensions(exts ...string) FileOption {
	return func(c *fileConfig) {
		c.allowedExtensions = exts
	}
}

// WithMaxFileSize sets the maximum file size for read/write operations.
// Default is 10MB.
func WithMaxFileSize(bytes int64) FileOption {
	return func(c *fileConfig) {
		c.maxFileSize = bytes
	}
}

// WithMaxOutputTokens caps the tokens of content returned by read_file.
// Longer content is truncated with a marker.
func WithMaxOutputTokens(n int) FileOption {
	return func(c *fileConfig) {
		c.maxOutputTokens = n
	}
}

// WithTokenCounter sets the counter and model used to measure output.
func WithTokenCounter(counter token.Counter, model string) FileOption {
	return func(c *fileConfig) {
		c.counter = counter
		c.model = model
	}
}

// WithWrite enables the write_file tool in FileTools.
func WithWrite() FileOption {
	return func(c *fileConfig) {
		c.writable = true
	}
}

// WithMaxResults limits the number of search results. Default is 100.
func WithMaxResults(n int) FileOption {
	return func(c *fileConfig) {
		c.maxResults = n
	}
}

// WithIncludePatterns sets glob patterns for files to search.
func WithIncludePatterns(patterns ...string) FileOption {
	return func(c *fileConfig) {
		c.includePatterns = patterns
	}
}

// WithExcludePatterns sets glob patterns for files to skip when searching.
func WithExcludePatterns(patterns ...string) FileOption {
	return func(c *fileConfig) {
		c.excludePatterns = patterns
	}
}

func applyFileOpts(opts []FileOption) *fileConfig {
	cfg := &fileConfig{
		maxFileSize:     10 * 1024 * 1024,
		maxOutputTokens: DefaultMaxOutputTokens,
		counter:         token.Estimator{},
		maxResults:      100,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// root returns the directory relative paths resolve against.
func (c *fileConfig) root(env Env) string {
	if c.basePath != "" {
		return filepath.Clean(c.basePath)
	}
	return env.WorkDir
}

func (c *fileConfig) resolvePath(path string, env Env) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	path = filepath.Clean(path)

	root := c.root(env)
	if root == "" {
		return path, nil
	}

	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(root, path)
	}
	if c.basePath != "" {
		rel, err := filepath.Rel(root, full)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("path %q is outside base path %q", path, root)
		}
	}
	return full, nil
}

func (c *fileConfig) checkExtension(path string) error {
	if len(c.allowedExtensions) == 0 {
		return nil
	}

	ext := filepath.Ext(path)
	for _, allowed := range c.allowedExtensions {
		if ext == allowed || ext == "."+allowed {
			return nil
		}
	}
	return fmt.Errorf("extension %q not allowed", ext)
}

// limit truncates content to the configured output budget.
func (c *fileConfig) limit(content string) (string, bool) {
	if c.maxOutputTokens <= 0 {
		return content, false
	}
	out := token.Truncate(c.counter, content, c.maxOutputTokens, c.model)
	return out, out != content
}

// failure reports an expected tool failure back to the model.
func failure(err error, metadata map[string]any) (ai.ToolResult, error) {
	return ai.NewToolError(err.Error(), metadata), nil
}

func jsonResult(v any) (ai.ToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return ai.ToolResult{}, err
	}
	return ai.NewToolResult(string(out)), nil
}

// readLineRange reads lines start through end from r, 1-based and
// inclusive. A nil bound means the start or end of the file.
func readLineRange(r io.Reader, startLine, endLine *int, maxSize int64) (string, error) {
	start := 1
	if startLine != nil {
		start = *startLine
	}
	if start < 1 {
		return "", fmt.Errorf("start_line must be >= 1, got %d", start)
	}

	end := -1
	if endLine != nil {
		end = *endLine
		if end < start {
			return "", fmt.Errorf("end_line (%d) must be >= start_line (%d)", end, start)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), int(maxSize))

	var b strings.Builder
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum < start {
			continue
		}
		if end > 0 && lineNum > end {
			break
		}
		if int64(b.Len()+len(scanner.Bytes())+1) > maxSize {
			return "", fmt.Errorf("line range exceeds maximum size %d", maxSize)
		}
		if lineNum > start {
			b.WriteByte('\n')
		}
		b.Write(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lineNum < start {
		return "", fmt.Errorf("start_line %d is beyond file length (%d lines)", start, lineNum)
	}
	return b.String(), nil
}

type readFileArgs struct {
	Path      string `json:"path" desc:"Path to the file to read" required:"true"`
	Encoding  string `json:"encoding,omitempty" desc:"Output encoding" enum:"utf-8,base64"`
	StartLine *int   `json:"start_line,omitempty" desc:"1-based line number to start reading from"`
	EndLine   *int   `json:"end_line,omitempty" desc:"1-based line number to stop reading at (inclusive)"`
}

// NewReadFileTool creates a tool for reading file contents. Content over
// the output budget is truncated and the result metadata says so.
func NewReadFileTool(opts ...FileOption) Registration {
	cfg := applyFileOpts(opts)

	handler := func(ctx context.Context, inv Invocation) (ai.ToolResult, error) {
		var args readFileArgs
		if err := inv.Decode(&args); err != nil {
			return ai.ToolResult{}, err
		}

		path, err := cfg.resolvePath(args.Path, inv.Env)
		if err != nil {
			return failure(err, nil)
		}
		if err := cfg.checkExtension(path); err != nil {
			return failure(err, nil)
		}

		info, err := os.Stat(path)
		if err != nil {
			return failure(err, map[string]any{"path": args.Path})
		}
		if info.IsDir() {
			return failure(fmt.Errorf("%s is a directory", args.Path), map[string]any{"path": args.Path})
		}

		f, err := os.Open(path)
		if err != nil {
			return failure(err, map[string]any{"path": args.Path})
		}
		defer f.Close()

		var content string
		if args.StartLine != nil || args.EndLine != nil {
			content, err = readLineRange(f, args.StartLine, args.EndLine, cfg.maxFileSize)
			if err != nil {
				return failure(err, map[string]any{"path": args.Path})
			}
		} else {
			if info.Size() > cfg.maxFileSize {
				return failure(fmt.Errorf("file size %d exceeds maximum %d", info.Size(), cfg.maxFileSize), map[string]any{"path": args.Path})
			}
			data, err := io.ReadAll(f)
			if err != nil {
				return ai.ToolResult{}, err
			}
			content = string(data)
		}

		if args.Encoding == "base64" {
			content = base64.StdEncoding.EncodeToString([]byte(content))
		}

		content, truncated := cfg.limit(content)
		result := ai.NewToolResult(content)
		result.Metadata = map[string]any{"path": args.Path, "truncated": truncated}
		return result, nil
	}

	return Registration{
		Tool: ai.Tool{
			Name:        "read_file",
			Description: "Read the contents of a file, optionally a range of lines",
			Parameters:  ai.MustSchemaFor[readFileArgs](),
		},
		Handler: handler,
	}
}

type writeFileArgs struct {
	Path    string `json:"path" desc:"Path to the file to write" required:"true"`
	Content string `json:"content" desc:"Content to write" required:"true"`
	Mode    string `json:"mode,omitempty" desc:"Write mode" enum:"overwrite,append"`
}

// NewWriteFileTool creates a tool for writing file contents.
func NewWriteFileTool(opts ...FileOption) Registration {
	cfg := applyFileOpts(opts)

	handler := func(ctx context.Context, inv Invocation) (ai.ToolResult, error) {
		var args writeFileArgs
		if err := inv.Decode(&args); err != nil {
			return ai.ToolResult{}, err
		}

		path, err := cfg.resolvePath(args.Path, inv.Env)
		if err != nil {
			return failure(err, nil)
		}
		if err := cfg.checkExtension(path); err != nil {
			return failure(err, nil)
		}
		if int64(len(args.Content)) > cfg.maxFileSize {
			return failure(fmt.Errorf("content size %d exceeds maximum %d", len(args.Content), cfg.maxFileSize), nil)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return failure(err, nil)
		}

		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if args.Mode == "append" {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return failure(err, nil)
		}
		n, err := f.WriteString(args.Content)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return failure(err, nil)
		}

		mode := args.Mode
		if mode == "" {
			mode = "overwrite"
		}
		return jsonResult(struct {
			Path         string `json:"path"`
			BytesWritten int    `json:"bytes_written"`
			Mode         string `json:"mode"`
		}{args.Path, n, mode})
	}

	return Registration{
		Tool: ai.Tool{
			Name:        "write_file",
			Description: "Write content to a file, creating it if needed",
			Parameters:  ai.MustSchemaFor[writeFileArgs](),
		},
		Handler: handler,
	}
}

type listDirArgs struct {
	Path      string `json:"path,omitempty" desc:"Directory to list (defaults to the working directory)"`
	Recursive bool   `json:"recursive,omitempty" desc:"List subdirectories recursively"`
}

type dirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// NewListDirTool creates a tool for listing directory contents.
func NewListDirTool(opts ...FileOption) Registration {
	cfg := applyFileOpts(opts)

	handler := func(ctx context.Context, inv Invocation) (ai.ToolResult, error) {
		var args listDirArgs
		if err := inv.Decode(&args); err != nil {
			return ai.ToolResult{}, err
		}
		if args.Path == "" {
			args.Path = "."
		}

		dir, err := cfg.resolvePath(args.Path, inv.Env)
		if err != nil {
			return failure(err, nil)
		}

		var entries []dirEntry
		add := func(rel string, d fs.DirEntry) {
			e := dirEntry{Name: filepath.ToSlash(rel), IsDir: d.IsDir()}
			if info, err := d.Info(); err == nil && !d.IsDir() {
				e.Size = info.Size()
			}
			entries = append(entries, e)
		}

		if args.Recursive {
			err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					if p == dir {
						return err
					}
					return nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if p == dir {
					return nil
				}
				rel, _ := filepath.Rel(dir, p)
				add(rel, d)
				return nil
			})
		} else {
			var des []fs.DirEntry
			des, err = os.ReadDir(dir)
			for _, d := range des {
				add(d.Name(), d)
			}
		}
		if err != nil {
			return failure(err, map[string]any{"path": args.Path})
		}

		return jsonResult(struct {
			Path    string     `json:"path"`
			Count   int        `json:"count"`
			Entries []dirEntry `json:"entries"`
		}{args.Path, len(entries), entries})
	}

	return Registration{
		Tool: ai.Tool{
			Name:        "list_directory",
			Description: "List the contents of a directory",
			Parameters:  ai.MustSchemaFor[listDirArgs](),
		},
		Handler: handler,
	}
}
