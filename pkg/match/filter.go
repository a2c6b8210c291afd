package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// Filter evaluates whether an entry passes one criterion.
//
// Filters only look at data carried by listing entries (name, key, size,
// modification time, directory flag), so they never trigger backend calls.
type Filter interface {
	// Match returns true if the entry passes the filter.
	Match(obj provider.Object) bool

	// String returns a human-readable description of the filter.
	String() string
}

// Filter errors.
var (
	ErrInvalidSize  = errors.New("invalid size value")
	ErrInvalidDate  = errors.New("invalid date value")
	ErrInvalidRegex = errors.New("invalid regex pattern")
	ErrInvalidGlob  = errors.New("invalid glob pattern")
	ErrInvalidType  = errors.New("invalid entry type")
)

// NameFilter matches a case-insensitive substring of the entry name.
type NameFilter struct {
	needle string
}

// NewNameFilter creates a substring filter.
func NewNameFilter(text string) *NameFilter {
	return &NameFilter{needle: strings.ToLower(text)}
}

// Match returns true if the entry name contains the needle.
func (f *NameFilter) Match(obj provider.Object) bool {
	return strings.Contains(strings.ToLower(obj.Name()), f.needle)
}

func (f *NameFilter) String() string {
	return fmt.Sprintf("name contains %q", f.needle)
}

// GlobFilter matches the entry name against a doublestar pattern,
// case-insensitively.
type GlobFilter struct {
	pattern string
}

// NewGlobFilter validates and compiles a glob.
func NewGlobFilter(pattern string) (*GlobFilter, error) {
	normalized := strings.ToLower(NormalizePattern(pattern))
	if !doublestar.ValidatePattern(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGlob, pattern)
	}
	return &GlobFilter{pattern: normalized}, nil
}

// Match returns true if the entry name matches the pattern.
func (f *GlobFilter) Match(obj provider.Object) bool {
	ok, err := doublestar.Match(f.pattern, strings.ToLower(obj.Name()))
	return err == nil && ok
}

func (f *GlobFilter) String() string {
	return fmt.Sprintf("name matches %s", f.pattern)
}

// SizeFilter filters entries by size range. Directories never match a
// size constraint.
type SizeFilter struct {
	min int64 // -1 means no minimum
	max int64 // -1 means no maximum
}

// NewSizeFilter creates a size filter with inclusive bounds; -1 disables a bound.
func NewSizeFilter(min, max int64) (*SizeFilter, error) {
	if min >= 0 && max >= 0 && min > max {
		return nil, fmt.Errorf("%w: min (%d) > max (%d)", ErrInvalidSize, min, max)
	}
	return &SizeFilter{min: min, max: max}, nil
}

// Match returns true if entry size is within the configured range.
func (f *SizeFilter) Match(obj provider.Object) bool {
	if obj.IsDirectory {
		return false
	}
	if f.min >= 0 && obj.Size < f.min {
		return false
	}
	if f.max >= 0 && obj.Size > f.max {
		return false
	}
	return true
}

func (f *SizeFilter) String() string {
	switch {
	case f.min >= 0 && f.max >= 0:
		return fmt.Sprintf("size: %s - %s", humanize.IBytes(uint64(f.min)), humanize.IBytes(uint64(f.max)))
	case f.min >= 0:
		return fmt.Sprintf("size: >= %s", humanize.IBytes(uint64(f.min)))
	case f.max >= 0:
		return fmt.Sprintf("size: <= %s", humanize.IBytes(uint64(f.max)))
	default:
		return "size: any"
	}
}

// DateFilter filters entries by modification time. Entries without a
// modification time never match.
type DateFilter struct {
	after  time.Time // zero means no after constraint
	before time.Time // zero means no before constraint
}

// NewDateFilter creates a date filter. after is inclusive, before exclusive.
func NewDateFilter(after, before time.Time) (*DateFilter, error) {
	if !after.IsZero() && !before.IsZero() && !after.Before(before) {
		return nil, fmt.Errorf("%w: after (%s) >= before (%s)", ErrInvalidDate, after, before)
	}
	return &DateFilter{after: after, before: before}, nil
}

// Match returns true if entry modification time is within range.
func (f *DateFilter) Match(obj provider.Object) bool {
	if obj.LastModified == nil {
		return false
	}
	lm := *obj.LastModified
	if !f.after.IsZero() && lm.Before(f.after) {
		return false
	}
	if !f.before.IsZero() && !lm.Before(f.before) {
		return false
	}
	return true
}

func (f *DateFilter) String() string {
	switch {
	case !f.after.IsZero() && !f.before.IsZero():
		return fmt.Sprintf("modified: %s to %s", f.after.Format("2006-01-02"), f.before.Format("2006-01-02"))
	case !f.after.IsZero():
		return fmt.Sprintf("modified: on/after %s", f.after.Format("2006-01-02"))
	case !f.before.IsZero():
		return fmt.Sprintf("modified: before %s", f.before.Format("2006-01-02"))
	default:
		return "modified: any"
	}
}

// RegexFilter filters entries by full key.
type RegexFilter struct {
	pattern *regexp.Regexp
	raw     string
}

// NewRegexFilter creates a regex filter.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	return &RegexFilter{pattern: re, raw: pattern}, nil
}

// Match returns true if the entry key matches the regex.
func (f *RegexFilter) Match(obj provider.Object) bool {
	return f.pattern.MatchString(obj.Key)
}

func (f *RegexFilter) String() string {
	return fmt.Sprintf("key_regex: %s", f.raw)
}

// TypeFilter keeps only directories or only files.
type TypeFilter struct {
	dirs bool
}

// NewTypeFilter accepts "dir"/"d" or "file"/"f".
func NewTypeFilter(kind string) (*TypeFilter, error) {
	switch strings.ToLower(kind) {
	case "dir", "d", "directory":
		return &TypeFilter{dirs: true}, nil
	case "file", "f":
		return &TypeFilter{dirs: false}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, kind)
	}
}

// Match returns true if the entry kind matches.
func (f *TypeFilter) Match(obj provider.Object) bool {
	return obj.IsDirectory == f.dirs
}

func (f *TypeFilter) String() string {
	if f.dirs {
		return "type: dir"
	}
	return "type: file"
}

// Size unit multipliers.
const (
	Byte int64 = 1

	// Base-10 (SI) units
	KB int64 = 1000
	MB int64 = 1000 * KB
	GB int64 = 1000 * MB
	TB int64 = 1000 * GB

	// Base-2 (IEC) units
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// ParseSize parses a human-readable size string.
//
// Supported formats:
//   - Raw bytes: "1024", "104857600"
//   - Base-10 (SI): "1KB", "100MB", "1GB" (1KB = 1000 bytes)
//   - Base-2 (IEC): "1KiB", "100MiB", "1GiB" (1KiB = 1024 bytes)
//   - Case insensitive: "1kb", "1KB", "1Kb" all work
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidSize
	}

	numEnd := 0
	for i, c := range s {
		if c >= '0' && c <= '9' || c == '.' {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	numStr := s[:numEnd]
	unitStr := strings.TrimSpace(s[numEnd:])

	var multiplier int64
	switch strings.ToUpper(unitStr) {
	case "", "B":
		multiplier = Byte
	case "K", "KB":
		multiplier = KB
	case "M", "MB":
		multiplier = MB
	case "G", "GB":
		multiplier = GB
	case "T", "TB":
		multiplier = TB
	case "KI", "KIB":
		multiplier = KiB
	case "MI", "MIB":
		multiplier = MiB
	case "GI", "GIB":
		multiplier = GiB
	case "TI", "TIB":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, unitStr)
	}

	if strings.Contains(numStr, ".") {
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) || num < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
		}
		bytes := num * float64(multiplier)
		if bytes > float64(math.MaxInt64) {
			return 0, fmt.Errorf("%w: size overflows int64", ErrInvalidSize)
		}
		return int64(bytes), nil
	}

	n, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	mult := uint64(multiplier)
	if n > uint64(math.MaxInt64)/mult {
		return 0, fmt.Errorf("%w: size overflows int64", ErrInvalidSize)
	}
	return int64(n * mult), nil
}

// ParseDate parses an ISO 8601 date or datetime string.
//
// Date-only values are the start of that day in UTC. All times are
// normalized to UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
