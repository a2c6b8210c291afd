// Package provider defines abstractions for browsing and mutating object storage.
//
// Providers implement a uniform CRUD and listing surface over heterogeneous
// backends (local filesystem, S3, MinIO). Backend quirks such as pagination
// cursors, bucket region resolution and error vocabularies stay inside the
// backend; callers only see the types and sentinel errors in this package.
// Authentication uses SDK default credential chains unless explicit keys are
// configured - providers should not implement custom auth logic.
package provider

import (
	"context"
	"strings"
	"time"
)

// Provider abstracts object storage operations across buckets.
//
// Implementations should:
//   - Support pagination via opaque cursors (never inspected by callers)
//   - Return the error taxonomy in errors.go, wrapped in *ProviderError
//   - Be safe for concurrent use
type Provider interface {
	// ListBuckets returns every bucket visible to the credentials.
	// Either the full enumeration or an error is returned, never a truncated list.
	ListBuckets(ctx context.Context) ([]Bucket, error)

	// ListObjects returns one page of objects under opts.Prefix.
	// Returns ErrBucketNotFound if the bucket does not exist.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) (*Page, error)

	// GetObject returns object content, bounded by opts when a range is set.
	// Returns ErrNotFound if the object does not exist.
	GetObject(ctx context.Context, bucket, key string, opts GetOptions) ([]byte, error)

	// PutObject creates or overwrites an object.
	PutObject(ctx context.Context, bucket, key string, data []byte) (*Object, error)

	// DeleteObject removes an object. Deleting an absent key is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// CopyObject copies srcKey to dstKey within bucket, preserving metadata.
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) (*Object, error)

	// StatObject returns metadata for a single object without fetching content.
	// Returns ErrNotFound if the object does not exist.
	StatObject(ctx context.Context, bucket, key string) (*Object, error)

	// Kind reports the backend kind (e.g. "s3", "filesystem").
	Kind() Kind

	// Close releases any resources held by the provider.
	Close() error
}

// DefaultDelimiter groups keys into directory-like levels.
const DefaultDelimiter = "/"

// DefaultPageSize is the page size used when ListOptions.PageSize is zero.
const DefaultPageSize = 100

// ListOptions configures a ListObjects operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	// Empty string lists from the bucket root.
	Prefix string

	// Delimiter groups keys below Prefix into directory entries.
	// Empty string enumerates recursively.
	Delimiter string

	// Cursor resumes listing from a previous Page.
	// Empty string starts from the beginning.
	Cursor string

	// PageSize limits the number of entries returned per page.
	// Zero uses DefaultPageSize.
	PageSize int
}

// GetOptions bounds a GetObject call.
type GetOptions struct {
	// Offset is the first byte to return.
	Offset int64

	// Length caps the number of bytes returned. Zero or negative means to the end.
	Length int64
}

// Ranged reports whether the options restrict the byte range.
func (o GetOptions) Ranged() bool {
	return o.Offset > 0 || o.Length > 0
}

// Bucket is a top-level namespace within a backend.
type Bucket struct {
	// Name identifies the bucket within its backend.
	Name string

	// CreationTime is when the bucket was created, if the backend reports it.
	CreationTime *time.Time

	// Region is populated lazily on first access and cached afterwards.
	Region string
}

// Object describes a stored object or a synthetic directory entry.
type Object struct {
	// Key is the full backend-relative key. Directory keys end with "/".
	Key string

	// Size is the object size in bytes. Undefined (zero) for directories.
	Size int64

	// LastModified is when the object was last modified, if known.
	LastModified *time.Time

	// IsDirectory marks synthetic directory entries (common prefixes).
	IsDirectory bool

	// ETag is the entity tag or checksum, if the backend provides one.
	ETag string

	// ContentType is the MIME type, if known.
	ContentType string
}

// Name returns the last path segment of the key.
func (o Object) Name() string {
	k := strings.TrimSuffix(o.Key, "/")
	if i := strings.LastIndex(k, "/"); i >= 0 {
		return k[i+1:]
	}
	return k
}

// Page is one slice of a listing.
//
// Items are never mutated after the page is returned; a page is exhausted
// when NextCursor is empty.
type Page struct {
	Items      []Object
	NextCursor string
}

// Exhausted reports whether no further pages follow.
func (p *Page) Exhausted() bool {
	return p == nil || p.NextCursor == ""
}

// Kind identifies a storage backend.
type Kind string

const (
	// KindFilesystem represents the local filesystem backend.
	KindFilesystem Kind = "filesystem"

	// KindS3 represents AWS S3 or S3-compatible storage via the AWS SDK.
	KindS3 Kind = "s3"

	// KindMinIO represents MinIO or S3-compatible storage via minio-go.
	KindMinIO Kind = "minio"
)

// String returns the string representation of the backend kind.
func (k Kind) String() string {
	return string(k)
}

// ParentPrefix returns the prefix one level above prefix ("a/b/" -> "a/").
// The root prefix is its own parent.
func ParentPrefix(prefix string) string {
	p := strings.TrimSuffix(prefix, "/")
	if p == "" {
		return ""
	}
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i+1]
}

// PrefixOf returns the directory prefix that contains key ("a/b/c.txt" -> "a/b/").
func PrefixOf(key string) string {
	k := strings.TrimSuffix(key, "/")
	i := strings.LastIndex(k, "/")
	if i < 0 {
		return ""
	}
	return k[:i+1]
}
