// Package match implements client-side filtering of listing entries:
// the incremental search query used by the browser and the glob
// include/exclude sets used by the ls command.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob metacharacters that can be escaped with backslash in patterns.
const globEscapable = `*?[]{}\`

// ErrNoIncludes is returned when a Globs set is built without includes.
var ErrNoIncludes = errors.New("at least one include pattern is required")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Globs matches full object keys against include and exclude patterns.
// A key matches when it matches at least one include and no exclude.
// Safe for concurrent use after creation.
type Globs struct {
	includes      []string
	excludes      []string
	includeHidden bool
}

// GlobConfig configures a Globs set.
type GlobConfig struct {
	Includes      []string
	Excludes      []string
	IncludeHidden bool
}

// NewGlobs compiles the include and exclude patterns.
func NewGlobs(cfg GlobConfig) (*Globs, error) {
	if len(cfg.Includes) == 0 {
		return nil, ErrNoIncludes
	}
	compile := func(raw []string) ([]string, error) {
		out := make([]string, 0, len(raw))
		for _, p := range raw {
			n := NormalizePattern(p)
			if !doublestar.ValidatePattern(n) {
				return nil, &PatternError{Pattern: p, Err: ErrInvalidGlob}
			}
			out = append(out, n)
		}
		return out, nil
	}
	inc, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	exc, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}
	return &Globs{includes: inc, excludes: exc, includeHidden: cfg.IncludeHidden}, nil
}

// Match reports whether key passes the set. Directory keys ("a/b/") are
// matched without their trailing slash.
func (g *Globs) Match(key string) bool {
	if !g.includeHidden && IsHidden(key) {
		return false
	}
	key = strings.TrimSuffix(key, "/")
	matched := false
	for _, p := range g.includes {
		if ok, _ := doublestar.Match(p, key); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, p := range g.excludes {
		if ok, _ := doublestar.Match(p, key); ok {
			return false
		}
	}
	return true
}

// ListPrefix returns the longest literal prefix shared by every include,
// cut back to a path segment boundary. Listing from it avoids walking
// keys no include can match.
func (g *Globs) ListPrefix() string {
	var common string
	for i, p := range g.includes {
		prefix := DerivePrefix(p)
		if i == 0 {
			common = prefix
			continue
		}
		common = sharedDirPrefix(common, prefix)
	}
	return common
}

func sharedDirPrefix(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	shared := a[:n]
	if n == len(a) && n == len(b) {
		return shared
	}
	if i := strings.LastIndex(shared, "/"); i >= 0 {
		return shared[:i+1]
	}
	return ""
}

// NormalizePattern converts a user glob to canonical form: unescaped
// backslashes become forward slashes, escaped metacharacters stay escaped.
//
//	"data\2024\**"    → "data/2024/**"
//	"data/file\*.txt" → "data/file\*.txt"
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(pattern))

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) && strings.ContainsRune(globEscapable, runes[i+1]) {
			b.WriteRune('\\')
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		if r == '\\' {
			b.WriteRune('/')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsGlobPattern returns true if the pattern contains unescaped glob
// metacharacters.
func IsGlobPattern(pattern string) bool {
	return findFirstUnescapedMeta(pattern) != -1
}

// DerivePrefix extracts the longest static prefix from a glob pattern,
// truncated to the last complete path segment.
//
//	"data/2024/**/*.parquet" → "data/2024/"
//	"*.json"                 → ""
//	"exact/path/file.txt"    → "exact/path/file.txt"
func DerivePrefix(pattern string) string {
	if pattern == "" {
		return ""
	}
	pattern = NormalizePattern(pattern)

	metaIdx := findFirstUnescapedMeta(pattern)
	switch metaIdx {
	case -1:
		return unescapeLiteral(pattern)
	case 0:
		return ""
	}

	prefix := pattern[:metaIdx]
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		return unescapeLiteral(prefix[:i+1])
	}
	return ""
}

// IsHidden returns true if any path segment starts with a dot.
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func findFirstUnescapedMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' && i+1 < len(pattern) {
			switch pattern[i+1] {
			case '*', '?', '[', '{', '\\':
				i++
			}
			continue
		}
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return i
		}
	}
	return -1
}

// unescapeLiteral removes escape backslashes so "file\*.txt" becomes the
// literal key text "file*.txt".
func unescapeLiteral(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && strings.IndexByte(globEscapable, s[i+1]) >= 0 {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
