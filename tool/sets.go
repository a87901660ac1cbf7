package tool

import "log/slog"

// FileTools returns the workspace tools: read_file, list_directory and
// search_files, plus write_file when WithWrite is given.
func FileTools(opts ...FileOption) []Registration {
	regs := []Registration{
		NewReadFileTool(opts...),
		NewListDirTool(opts...),
		NewSearchTool(opts...),
	}
	if applyFileOpts(opts).writable {
		regs = append(regs, NewWriteFileTool(opts...))
	}
	return regs
}

// DefaultRegistry returns a registry holding the file tools.
// A nil logger uses slog.Default.
func DefaultRegistry(logger *slog.Logger, opts ...FileOption) *Registry {
	return NewRegistry(WithLogger(logger)).Add(FileTools(opts...)...)
}
