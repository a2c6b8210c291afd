package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// Query is a parsed search expression. Every term must match (AND).
//
// Syntax, whitespace separated:
//
//	report            name contains "report" (case-insensitive)
//	*.csv             name matches the glob
//	size>10MiB        size bounds: >, >=, <, <=
//	after:2024-01-01  modified on or after
//	before:2024-06-01 modified before
//	re:^logs/.*gz$    full key matches the regex
//	type:dir          only directories (or type:file)
//
// An empty query matches everything.
type Query struct {
	text    string
	filters []Filter
}

// Parse builds a Query from user text. Structured terms that fail to
// parse return an error wrapping the relevant Err* sentinel.
func Parse(text string) (*Query, error) {
	q := &Query{text: text}
	for _, term := range strings.Fields(text) {
		f, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		q.filters = append(q.filters, f)
	}
	return q, nil
}

// Lenient parses text and falls back to a plain substring match on the
// whole text when it does not parse. Incremental search uses this so a
// half-typed term like "size>" still narrows the listing.
func Lenient(text string) *Query {
	q, err := Parse(text)
	if err == nil {
		return q
	}
	return &Query{
		text:    text,
		filters: []Filter{NewNameFilter(strings.TrimSpace(text))},
	}
}

func parseTerm(term string) (Filter, error) {
	lower := strings.ToLower(term)
	switch {
	case strings.HasPrefix(lower, "size"):
		if f, ok, err := parseSizeTerm(term[len("size"):]); ok {
			return f, err
		}
	case strings.HasPrefix(lower, "after:"):
		t, err := ParseDate(term[len("after:"):])
		if err != nil {
			return nil, err
		}
		return NewDateFilter(t, time.Time{})
	case strings.HasPrefix(lower, "before:"):
		t, err := ParseDate(term[len("before:"):])
		if err != nil {
			return nil, err
		}
		return NewDateFilter(time.Time{}, t)
	case strings.HasPrefix(lower, "re:"):
		return NewRegexFilter(term[len("re:"):])
	case strings.HasPrefix(lower, "type:"):
		return NewTypeFilter(term[len("type:"):])
	}
	if IsGlobPattern(term) {
		return NewGlobFilter(term)
	}
	return NewNameFilter(unescapeLiteral(term)), nil
}

// parseSizeTerm handles the part after "size". ok is false when the term
// is not a size comparison at all (e.g. a file called "sizes.txt").
func parseSizeTerm(rest string) (Filter, bool, error) {
	var op string
	for _, candidate := range []string{">=", "<=", ">", "<", "="} {
		if strings.HasPrefix(rest, candidate) {
			op = candidate
			break
		}
	}
	if op == "" {
		return nil, false, nil
	}
	n, err := ParseSize(rest[len(op):])
	if err != nil {
		return nil, true, err
	}
	var f *SizeFilter
	switch op {
	case ">=":
		f, err = NewSizeFilter(n, -1)
	case ">":
		f, err = NewSizeFilter(n+1, -1)
	case "<=":
		f, err = NewSizeFilter(-1, n)
	case "<":
		if n == 0 {
			return nil, true, fmt.Errorf("%w: nothing is smaller than 0", ErrInvalidSize)
		}
		f, err = NewSizeFilter(-1, n-1)
	default:
		f, err = NewSizeFilter(n, n)
	}
	return f, true, err
}

// Text returns the text the query was built from.
func (q *Query) Text() string {
	if q == nil {
		return ""
	}
	return q.text
}

// Empty reports whether the query has no terms.
func (q *Query) Empty() bool {
	return q == nil || len(q.filters) == 0
}

// Match returns true if obj passes every term.
func (q *Query) Match(obj provider.Object) bool {
	if q == nil {
		return true
	}
	for _, f := range q.filters {
		if !f.Match(obj) {
			return false
		}
	}
	return true
}

// Apply returns the matching subset of items in their original order.
// items is never modified.
func (q *Query) Apply(items []provider.Object) []provider.Object {
	out := make([]provider.Object, 0, len(items))
	for _, it := range items {
		if q.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

func (q *Query) String() string {
	if q.Empty() {
		return "all entries"
	}
	parts := make([]string, len(q.filters))
	for i, f := range q.filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, " AND ")
}
