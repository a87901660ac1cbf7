package token

import (
	"sort"
	"strings"
)

// DefaultSuffix marks truncated text.
const DefaultSuffix = "\n... [truncated]"

type truncateOptions struct {
	suffix        string
	preserveLines bool
}

// TruncateOption configures Truncate.
type TruncateOption func(*truncateOptions)

// WithSuffix sets the marker appended to truncated text.
func WithSuffix(suffix string) TruncateOption {
	return func(o *truncateOptions) {
		o.suffix = suffix
	}
}

// WithPreserveLines controls whether truncation keeps whole lines.
// Character-level truncation is still used when no whole line fits.
func WithPreserveLines(preserve bool) TruncateOption {
	return func(o *truncateOptions) {
		o.preserveLines = preserve
	}
}

// Truncate shortens text so that it fits in maxTokens for model.
//
// Text that already fits is returned unchanged. Otherwise the longest
// prefix is kept such that prefix plus suffix fits the budget. When the
// budget cannot even hold the suffix, the trimmed suffix alone is returned.
// Truncate is idempotent.
func Truncate(c Counter, text string, maxTokens int, model string, opts ...TruncateOption) string {
	o := truncateOptions{suffix: DefaultSuffix, preserveLines: true}
	for _, opt := range opts {
		opt(&o)
	}

	if c.Count(text, model) <= maxTokens {
		return text
	}
	if maxTokens-c.Count(o.suffix, model) <= 0 {
		return strings.TrimSpace(o.suffix)
	}

	fits := func(s string) bool {
		return c.Count(s+o.suffix, model) <= maxTokens
	}

	if o.preserveLines {
		if kept, ok := truncateLines(text, fits); ok {
			return kept + o.suffix
		}
	}
	return truncateChars(text, fits) + o.suffix
}

// truncateLines keeps the longest run of leading whole lines that fits.
// It reports false when not even the first line fits.
func truncateLines(text string, fits func(string) bool) (string, bool) {
	lines := strings.Split(text, "\n")
	n := longestFitting(len(lines), func(k int) bool {
		return fits(strings.Join(lines[:k], "\n"))
	})
	if n == 0 {
		return "", false
	}
	return strings.Join(lines[:n], "\n"), true
}

// truncateChars keeps the longest rune prefix that fits.
func truncateChars(text string, fits func(string) bool) string {
	runes := []rune(text)
	n := longestFitting(len(runes), func(k int) bool {
		return fits(string(runes[:k]))
	})
	return string(runes[:n])
}

// longestFitting binary searches for the largest k in [0, max] with ok(k),
// taking ok(0) as given. Tokenizers are not strictly monotone over
// prefixes, so the candidate is re-checked and walked down until it holds.
func longestFitting(max int, ok func(k int) bool) int {
	n := sort.Search(max, func(i int) bool {
		return !ok(i + 1)
	})
	for n > 0 && !ok(n) {
		n--
	}
	return n
}
