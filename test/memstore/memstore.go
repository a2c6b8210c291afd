// Package memstore is an in-memory provider for unit tests.
//
// It implements provider.Provider over any number of buckets, records call
// counts per operation, and lets tests inject failures or block calls
// through a hook.
//
// Usage:
//
//	s := memstore.New("photos")
//	s.Put("photos", "a.txt", []byte("0123456789"))
//	s.SetHook(func(ctx context.Context, op, bucket, key string) error { ... })
package memstore

import (
	"context"
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// Hook runs before every operation. A non-nil error fails the call.
type Hook func(ctx context.Context, op, bucket, key string) error

type entry struct {
	data     []byte
	modified time.Time
}

// Store is an in-memory provider. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	buckets map[string]map[string]entry
	calls   map[string]int
	fail    map[string]error
	hook    Hook
	clock   time.Time
	closed  bool
}

var _ provider.Provider = (*Store)(nil)

// New creates a store holding the named empty buckets.
func New(buckets ...string) *Store {
	s := &Store{
		buckets: make(map[string]map[string]entry),
		calls:   make(map[string]int),
		fail:    make(map[string]error),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, b := range buckets {
		s.buckets[b] = make(map[string]entry)
	}
	return s
}

// Put seeds an object, creating the bucket if needed. Keys ending in "/"
// are directory placeholders.
func (s *Store) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(bucket, key, data)
}

func (s *Store) putLocked(bucket, key string, data []byte) entry {
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]entry)
		s.buckets[bucket] = b
	}
	s.clock = s.clock.Add(time.Second)
	e := entry{data: append([]byte(nil), data...), modified: s.clock}
	b[key] = e
	return e
}

// Keys returns every key in bucket in sorted order.
func (s *Store) Keys(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.buckets[bucket]))
	for k := range s.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Data returns a copy of an object's content and whether it exists.
func (s *Store) Data(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.data...), true
}

// Fail makes every call of op return err until cleared with a nil err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// SetHook installs a hook run before each operation.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) begin(ctx context.Context, op, bucket, key string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hook
	injected := s.fail[op]
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op, bucket, key); err != nil {
			return s.wrap(op, bucket, key, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if injected != nil {
		return s.wrap(op, bucket, key, injected)
	}
	return nil
}

func (s *Store) wrap(op, bucket, key string, err error) error {
	return &provider.ProviderError{Op: op, Provider: s.Kind(), Bucket: bucket, Key: key, Err: err}
}

func (s *Store) bucketLocked(op, bucket string) (map[string]entry, error) {
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, s.wrap(op, bucket, "", provider.ErrBucketNotFound)
	}
	return b, nil
}

func (s *Store) object(key string, e entry) provider.Object {
	mod := e.modified
	obj := provider.Object{
		Key:          key,
		Size:         int64(len(e.data)),
		LastModified: &mod,
		ETag:         fmt.Sprintf("%x-%d", len(e.data), mod.Unix()),
	}
	if strings.HasSuffix(key, "/") {
		obj.IsDirectory = true
		obj.Size = 0
		obj.ETag = ""
		return obj
	}
	obj.ContentType = mime.TypeByExtension(path.Ext(key))
	return obj
}

// Kind reports "memory".
func (s *Store) Kind() provider.Kind { return provider.Kind("memory") }

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ListBuckets returns bucket names in order.
func (s *Store) ListBuckets(ctx context.Context) ([]provider.Bucket, error) {
	if err := s.begin(ctx, "ListBuckets", "", ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Bucket, 0, len(s.buckets))
	for name := range s.buckets {
		out = append(out, provider.Bucket{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListObjects pages through keys in lexicographic order.
func (s *Store) ListObjects(ctx context.Context, bucket string, opts provider.ListOptions) (*provider.Page, error) {
	if err := s.begin(ctx, "ListObjects", bucket, opts.Prefix); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucketLocked("ListObjects", bucket)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entries []provider.Object
	for key, e := range b {
		if !strings.HasPrefix(key, opts.Prefix) || key == opts.Prefix {
			continue
		}
		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				dir := opts.Prefix + rest[:i+len(opts.Delimiter)]
				if !seen[dir] {
					seen[dir] = true
					entries = append(entries, provider.Object{Key: dir, IsDirectory: true})
				}
				continue
			}
		}
		entries = append(entries, s.object(key, e))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = provider.DefaultPageSize
	}
	start := 0
	if opts.Cursor != "" {
		start = sort.Search(len(entries), func(i int) bool { return entries[i].Key > opts.Cursor })
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	page := &provider.Page{Items: append([]provider.Object{}, entries[start:end]...)}
	if end < len(entries) {
		page.NextCursor = entries[end-1].Key
	}
	return page, nil
}

// GetObject returns object content, honoring the byte range.
func (s *Store) GetObject(ctx context.Context, bucket, key string, opts provider.GetOptions) ([]byte, error) {
	if err := s.begin(ctx, "GetObject", bucket, key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucketLocked("GetObject", bucket)
	if err != nil {
		return nil, err
	}
	e, ok := b[key]
	if !ok || strings.HasSuffix(key, "/") {
		return nil, s.wrap("GetObject", bucket, key, provider.ErrNotFound)
	}
	data := e.data
	if opts.Offset >= int64(len(data)) {
		return []byte{}, nil
	}
	data = data[opts.Offset:]
	if opts.Length > 0 && opts.Length < int64(len(data)) {
		data = data[:opts.Length]
	}
	return append([]byte(nil), data...), nil
}

// PutObject stores data under key.
func (s *Store) PutObject(ctx context.Context, bucket, key string, data []byte) (*provider.Object, error) {
	if err := s.begin(ctx, "PutObject", bucket, key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.bucketLocked("PutObject", bucket); err != nil {
		return nil, err
	}
	obj := s.object(key, s.putLocked(bucket, key, data))
	return &obj, nil
}

// DeleteObject removes key. Absent keys are not an error.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.begin(ctx, "DeleteObject", bucket, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucketLocked("DeleteObject", bucket)
	if err != nil {
		return err
	}
	delete(b, key)
	return nil
}

// CopyObject duplicates srcKey to dstKey within bucket.
func (s *Store) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) (*provider.Object, error) {
	if err := s.begin(ctx, "CopyObject", bucket, srcKey); err != nil {
		return nil, err
	}
	return s.copyLocked("CopyObject", bucket, srcKey, bucket, dstKey)
}

func (s *Store) copyLocked(op, srcBucket, srcKey, dstBucket, dstKey string) (*provider.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.HasSuffix(srcKey, "/") {
		return nil, s.wrap(op, srcBucket, srcKey, provider.ErrUnsupported)
	}
	src, err := s.bucketLocked(op, srcBucket)
	if err != nil {
		return nil, err
	}
	dst, err := s.bucketLocked(op, dstBucket)
	if err != nil {
		return nil, err
	}
	e, ok := src[srcKey]
	if !ok {
		return nil, s.wrap(op, srcBucket, srcKey, provider.ErrNotFound)
	}
	cp := entry{data: append([]byte(nil), e.data...), modified: e.modified}
	dst[dstKey] = cp
	obj := s.object(dstKey, cp)
	return &obj, nil
}

// StatObject returns metadata for key, or a directory entry when key is
// a prefix of stored keys.
func (s *Store) StatObject(ctx context.Context, bucket, key string) (*provider.Object, error) {
	if err := s.begin(ctx, "StatObject", bucket, key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucketLocked("StatObject", bucket)
	if err != nil {
		return nil, err
	}
	if e, ok := b[key]; ok {
		obj := s.object(key, e)
		return &obj, nil
	}
	dir := strings.TrimSuffix(key, "/") + "/"
	for k := range b {
		if strings.HasPrefix(k, dir) {
			return &provider.Object{Key: dir, IsDirectory: true}, nil
		}
	}
	return nil, s.wrap("StatObject", bucket, key, provider.ErrNotFound)
}

// Copier wraps a Store with server-side cross-bucket copy.
type Copier struct {
	*Store
}

var _ provider.BucketCopier = Copier{}

// CopyObjectAcross copies between buckets of the same store.
func (c Copier) CopyObjectAcross(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (*provider.Object, error) {
	if err := c.begin(ctx, "CopyObjectAcross", srcBucket, srcKey); err != nil {
		return nil, err
	}
	return c.copyLocked("CopyObjectAcross", srcBucket, srcKey, dstBucket, dstKey)
}
