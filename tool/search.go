package tool

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/relay"
)

// maxMatchLine is the longest matching line reported verbatim.
const maxMatchLine = 200

func (c *fileConfig) shouldSearch(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range c.excludePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	if len(c.includePatterns) == 0 {
		return true
	}
	for _, pattern := range c.includePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

type searchArgs struct {
	Pattern     string `json:"pattern" desc:"Regex pattern to search for" required:"true"`
	Path        string `json:"path,omitempty" desc:"Directory to search in (defaults to the working directory)"`
	FilePattern string `json:"file_pattern,omitempty" desc:"Glob pattern for file names (e.g., *.go)"`
}

type searchMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// NewSearchTool creates a tool for searching file contents with a regex.
func NewSearchTool(opts ...FileOption) Registration {
	cfg := applyFileOpts(opts)

	handler := func(ctx context.Context, inv Invocation) (ai.ToolResult, error) {
		var args searchArgs
		if err := inv.Decode(&args); err != nil {
			return ai.ToolResult{}, err
		}

		re, err := regexp.Compile(args.Pattern)
		if err != nil {
			return failure(err, map[string]any{"pattern": args.Pattern})
		}

		if args.Path == "" {
			args.Path = "."
		}
		root, err := cfg.resolvePath(args.Path, inv.Env)
		if err != nil {
			return failure(err, nil)
		}

		var matches []searchMatch
		truncated := false

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}
			if args.FilePattern != "" {
				if matched, _ := filepath.Match(args.FilePattern, d.Name()); !matched {
					return nil
				}
			}
			if !cfg.shouldSearch(path) {
				return nil
			}
			if info, err := d.Info(); err != nil || info.Size() > cfg.maxFileSize {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return nil
			}
			defer f.Close()

			rel, _ := filepath.Rel(root, path)
			scanner := bufio.NewScanner(f)
			lineNum := 0
			for scanner.Scan() {
				lineNum++
				line := scanner.Text()
				if !re.MatchString(line) {
					continue
				}
				if len(line) > maxMatchLine {
					line = line[:maxMatchLine] + "..."
				}
				matches = append(matches, searchMatch{
					File:    filepath.ToSlash(rel),
					Line:    lineNum,
					Content: strings.TrimSpace(line),
				})
				if len(matches) >= cfg.maxResults {
					truncated = true
					return filepath.SkipAll
				}
			}
			return nil
		})
		if err != nil {
			return failure(err, nil)
		}

		return jsonResult(struct {
			Pattern   string        `json:"pattern"`
			Path      string        `json:"path"`
			Count     int           `json:"count"`
			Truncated bool          `json:"truncated,omitempty"`
			Matches   []searchMatch `json:"matches"`
		}{args.Pattern, args.Path, len(matches), truncated, matches})
	}

	return Registration{
		Tool: ai.Tool{
			Name:        "search_files",
			Description: "Search file contents for a regular expression",
			Parameters:  ai.MustSchemaFor[searchArgs](),
		},
		Handler: handler,
	}
}
