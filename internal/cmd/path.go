package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/3leaps/nimbrowse/pkg/match"
)

// Path parsing errors
var (
	// ErrInvalidPath indicates the argument could not be parsed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrMissingBucket indicates the path is missing a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

// schemes accepted (and ignored) in front of a path, so that copied
// s3://bucket/key URIs work as arguments. The account decides the backend.
var schemes = []string{"s3://", "minio://", "fs://", "file://"}

// ObjectPath is a parsed command argument.
//
// Example paths:
//   - bucket
//   - bucket/prefix/
//   - bucket/path/to/object.txt
//   - prod:bucket/data/**/*.parquet
//   - s3://bucket/key
type ObjectPath struct {
	// Account overrides --account when set ("prod:bucket/...").
	Account string

	// Bucket is the bucket name. Empty means "list buckets".
	Bucket string

	// Key is the object key or prefix. With a pattern it is the listing
	// prefix before the first glob character.
	Key string

	// Pattern is set if the key contains glob characters.
	Pattern string
}

// String returns the path in canonical form.
func (p *ObjectPath) String() string {
	var b strings.Builder
	if p.Account != "" {
		b.WriteString(p.Account + ":")
	}
	b.WriteString(p.Bucket)
	switch {
	case p.Pattern != "":
		b.WriteString("/" + p.Pattern)
	case p.Key != "":
		b.WriteString("/" + p.Key)
	}
	return b.String()
}

// IsPattern reports whether the key contains glob characters.
func (p *ObjectPath) IsPattern() bool {
	return p.Pattern != ""
}

// IsPrefix reports whether the path names a prefix rather than one object.
func (p *ObjectPath) IsPrefix() bool {
	return p.Key == "" || strings.HasSuffix(p.Key, "/")
}

// ParsePath parses "[account:]bucket[/key]". An empty argument is valid
// and names the bucket list.
func ParsePath(arg string) (*ObjectPath, error) {
	arg = strings.TrimSpace(arg)
	result := &ObjectPath{}

	hadScheme := false
	for _, s := range schemes {
		if len(arg) >= len(s) && strings.EqualFold(arg[:len(s)], s) {
			arg = arg[len(s):]
			hadScheme = true
			if arg == "" {
				return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, s)
			}
			break
		}
	}
	if !hadScheme && strings.Contains(arg, "://") {
		return nil, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidPath, arg)
	}

	if i := strings.Index(arg, ":"); i >= 0 && !strings.Contains(arg[:i], "/") {
		result.Account = strings.ToLower(arg[:i])
		arg = arg[i+1:]
		if result.Account == "" {
			return nil, fmt.Errorf("%w: empty account name", ErrInvalidPath)
		}
	}
	arg = strings.TrimPrefix(arg, "/")
	if arg == "" {
		return result, nil
	}

	bucket, key, _ := strings.Cut(arg, "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: in %q", ErrMissingBucket, arg)
	}
	if strings.ContainsAny(bucket, "*?[{") {
		return nil, fmt.Errorf("%w: glob in bucket name %q", ErrInvalidPath, bucket)
	}
	result.Bucket = bucket

	// Escaped metacharacters (\*) are literal key characters.
	if match.IsGlobPattern(key) {
		result.Pattern = key
	}
	result.Key = match.DerivePrefix(key)
	return result, nil
}
