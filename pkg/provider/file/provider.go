// Package file implements the provider interface on top of a local directory.
//
// The directory is exposed as a single simulated bucket. Keys are slash
// separated paths relative to the directory; sub-directories surface as
// directory entries when listing with a delimiter.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func init() {
	provider.Register(provider.KindFilesystem, func(ctx context.Context, params provider.ConnectionParams) (provider.Provider, error) {
		return New(Config{BaseDir: params.Root, Bucket: params.Bucket})
	})
}

// Provider implements provider.Provider for a local directory.
type Provider struct {
	baseDir string
	bucket  string
}

// Ensure Provider implements the interface.
var _ provider.Provider = (*Provider)(nil)

// Config configures a filesystem provider.
type Config struct {
	// BaseDir is the directory exposed as the bucket (required, must exist).
	BaseDir string

	// Bucket names the simulated bucket. Defaults to the base name of BaseDir.
	Bucket string
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("%w: filesystem root is required", provider.ErrConfiguration)
	}
	return nil
}

// New creates a filesystem provider rooted at cfg.BaseDir.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.KindFilesystem, Err: err}
	}
	base, err := filepath.Abs(filepath.Clean(cfg.BaseDir))
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.KindFilesystem, Err: fmt.Errorf("%w: %v", provider.ErrConfiguration, err)}
	}
	st, err := os.Stat(base)
	if err != nil || !st.IsDir() {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.KindFilesystem,
			Err:      fmt.Errorf("%w: root %q is not a directory", provider.ErrConfiguration, base),
		}
	}

	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = filepath.Base(base)
	}
	return &Provider{baseDir: base, bucket: bucket}, nil
}

// Kind reports the backend kind.
func (p *Provider) Kind() provider.Kind { return provider.KindFilesystem }

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// Root returns the absolute base directory.
func (p *Provider) Root() string { return p.baseDir }

// ListBuckets returns the single simulated bucket.
func (p *Provider) ListBuckets(ctx context.Context) ([]provider.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := os.Stat(p.baseDir)
	if err != nil {
		return nil, &provider.ProviderError{Op: "ListBuckets", Provider: provider.KindFilesystem, Err: fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)}
	}
	created := st.ModTime()
	return []provider.Bucket{{Name: p.bucket, CreationTime: &created}}, nil
}

// ListObjects returns one page of entries under opts.Prefix in key order.
func (p *Provider) ListObjects(ctx context.Context, bucket string, opts provider.ListOptions) (*provider.Page, error) {
	if err := p.checkBucket("ListObjects", bucket); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = provider.DefaultPageSize
	}

	prefix := strings.TrimPrefix(opts.Prefix, "/")
	var (
		entries []provider.Object
		err     error
	)
	if opts.Delimiter == "" {
		entries, err = p.collectRecursive(prefix)
	} else {
		entries, err = p.collectLevel(prefix)
	}
	if err != nil {
		return nil, p.wrapError("ListObjects", opts.Prefix, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	start := 0
	if opts.Cursor != "" {
		// Start strictly after the last returned key.
		start = sort.Search(len(entries), func(i int) bool { return entries[i].Key > opts.Cursor })
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}

	items := make([]provider.Object, end-start)
	copy(items, entries[start:end])

	page := &provider.Page{Items: items}
	if end < len(entries) {
		page.NextCursor = entries[end-1].Key
	}
	return page, nil
}

// GetObject reads object content, optionally bounded by opts.
func (p *Provider) GetObject(ctx context.Context, bucket, key string, opts provider.GetOptions) ([]byte, error) {
	if err := p.checkBucket("GetObject", bucket); err != nil {
		return nil, err
	}
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("GetObject", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, p.wrapError("GetObject", key, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, p.wrapError("GetObject", key, err)
	}
	if st.IsDir() {
		return nil, p.wrapError("GetObject", key, fs.ErrNotExist)
	}
	if opts.Offset < 0 {
		return nil, p.wrapError("GetObject", key, errors.New("offset must be >= 0"))
	}
	if opts.Offset >= st.Size() {
		return []byte{}, nil
	}

	length := st.Size() - opts.Offset
	if opts.Length > 0 && opts.Length < length {
		length = opts.Length
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(io.NewSectionReader(f, opts.Offset, length), buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, p.wrapError("GetObject", key, err)
	}
	return buf[:n], nil
}

// PutObject writes data atomically. A key ending in "/" creates a directory.
func (p *Provider) PutObject(ctx context.Context, bucket, key string, data []byte) (*provider.Object, error) {
	if err := p.checkBucket("PutObject", bucket); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("PutObject", key, err)
	}

	if strings.HasSuffix(key, "/") {
		if err := os.MkdirAll(full, 0o755); err != nil {
			return nil, p.wrapError("PutObject", key, err)
		}
		return p.StatObject(ctx, bucket, key)
	}

	if err := writeAtomic(full, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return nil, p.wrapError("PutObject", key, err)
	}
	return p.StatObject(ctx, bucket, key)
}

// DeleteObject removes a file, or a directory key ("d/") once no listed
// file remains below it. Absent keys are not an error.
func (p *Provider) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := p.checkBucket("DeleteObject", bucket); err != nil {
		return err
	}
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	if full == p.baseDir {
		return p.wrapError("DeleteObject", key, errors.New("refusing to delete bucket root"))
	}
	if strings.HasSuffix(key, "/") {
		if err := removeEmptied(full); err != nil {
			return p.wrapError("DeleteObject", key, err)
		}
		return nil
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return p.wrapError("DeleteObject", key, err)
	}
	return nil
}

// CopyObject copies a file, preserving its mode and modification time.
// Directory sources are not supported; copy trees with the transfer package.
func (p *Provider) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) (*provider.Object, error) {
	if err := p.checkBucket("CopyObject", bucket); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := p.fullPath(srcKey)
	if err != nil {
		return nil, p.wrapError("CopyObject", srcKey, err)
	}
	dst, err := p.fullPath(dstKey)
	if err != nil {
		return nil, p.wrapError("CopyObject", dstKey, err)
	}

	st, err := os.Stat(src)
	if err != nil {
		return nil, p.wrapError("CopyObject", srcKey, err)
	}
	if st.IsDir() {
		return nil, p.wrapError("CopyObject", srcKey, provider.ErrUnsupported)
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, p.wrapError("CopyObject", srcKey, err)
	}
	defer func() { _ = in.Close() }()

	if err := writeAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return nil, p.wrapError("CopyObject", dstKey, err)
	}
	if err := os.Chmod(dst, st.Mode().Perm()); err != nil {
		return nil, p.wrapError("CopyObject", dstKey, err)
	}
	if err := os.Chtimes(dst, time.Now(), st.ModTime()); err != nil {
		return nil, p.wrapError("CopyObject", dstKey, err)
	}
	return p.StatObject(ctx, bucket, dstKey)
}

// StatObject returns metadata for a file or directory.
func (p *Provider) StatObject(ctx context.Context, bucket, key string) (*provider.Object, error) {
	if err := p.checkBucket("StatObject", bucket); err != nil {
		return nil, err
	}
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("StatObject", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.wrapError("StatObject", key, err)
	}
	k := strings.TrimPrefix(key, "/")
	if st.IsDir() && !strings.HasSuffix(k, "/") {
		k += "/"
	}
	obj := objectFor(k, st)
	return &obj, nil
}

func (p *Provider) checkBucket(op, bucket string) error {
	if bucket != p.bucket {
		return &provider.ProviderError{Op: op, Provider: provider.KindFilesystem, Bucket: bucket, Err: provider.ErrBucketNotFound}
	}
	return nil
}

// collectLevel lists the immediate children matching prefix.
//
// A prefix without a trailing slash also matches partial names in its
// parent directory, mirroring object-store prefix semantics.
func (p *Provider) collectLevel(prefix string) ([]provider.Object, error) {
	dirPart := PrefixDir(prefix)
	namePart := strings.TrimPrefix(prefix, dirPart)

	dir, err := p.fullPath(dirPart)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []provider.Object{}, nil
		}
		return nil, err
	}

	out := make([]provider.Object, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, namePart) {
			continue
		}
		st, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		key := dirPart + name
		if st.IsDir() {
			key += "/"
		}
		out = append(out, objectFor(key, st))
	}
	return out, nil
}

// removeEmptied removes dir when it holds no file a listing would report.
// Empty subdirectories and hidden entries go with it.
func removeEmptied(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Base(dir))
	}
	remaining := 0
	err = filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if fp == dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			remaining++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if remaining > 0 {
		return fmt.Errorf("directory not empty: %d file(s) remain", remaining)
	}
	return os.RemoveAll(dir)
}

// collectRecursive lists every file whose key starts with prefix.
func (p *Provider) collectRecursive(prefix string) ([]provider.Object, error) {
	root, err := p.fullPath(PrefixDir(prefix))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []provider.Object{}, nil
		}
		return nil, err
	}

	var out []provider.Object
	_ = filepath.WalkDir(root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && fp != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, fp)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, objectFor(key, st))
		return nil
	})
	return out, nil
}

// PrefixDir returns the directory portion of a listing prefix ("a/b" -> "a/").
func PrefixDir(prefix string) string {
	i := strings.LastIndex(prefix, "/")
	if i < 0 {
		return ""
	}
	return prefix[:i+1]
}

func objectFor(key string, st fs.FileInfo) provider.Object {
	mod := st.ModTime()
	if st.IsDir() {
		return provider.Object{Key: key, IsDirectory: true, LastModified: &mod}
	}
	return provider.Object{
		Key:          key,
		Size:         st.Size(),
		LastModified: &mod,
		ContentType:  mime.TypeByExtension(path.Ext(key)),
	}
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

func writeAtomic(full string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".nimbrowse-put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, full)
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.KindFilesystem, Bucket: p.bucket, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to provider sentinels.
	switch {
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
