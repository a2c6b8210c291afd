package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func newTestProvider(t *testing.T) (*Provider, string) {
	t.Helper()
	dir := t.TempDir()
	p, err := New(Config{BaseDir: dir, Bucket: "root"})
	require.NoError(t, err)
	return p, dir
}

func writeFile(t *testing.T, base, rel string, size int) {
	t.Helper()
	full := filepath.Join(base, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	data := make([]byte, size)
	for i := range data {
		data[i] = 'x'
	}
	require.NoError(t, os.WriteFile(full, data, 0o644))
}

func keysOf(items []provider.Object) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, provider.IsConfiguration(err))

	_, err = New(Config{BaseDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, provider.IsConfiguration(err))

	dir := t.TempDir()
	p, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	buckets, err := p.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, filepath.Base(dir), buckets[0].Name)
}

func TestRegistryConstructsFilesystem(t *testing.T) {
	dir := t.TempDir()
	p, err := provider.New(context.Background(), provider.ConnectionParams{Kind: provider.KindFilesystem, Root: dir, Bucket: "local"})
	require.NoError(t, err)
	assert.Equal(t, provider.KindFilesystem, p.Kind())
}

func TestListObjects_ConcreteScenario(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	writeFile(t, dir, "a.txt", 10)
	writeFile(t, dir, "b.txt", 20)

	page, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a.txt", page.Items[0].Key)
	assert.Equal(t, int64(10), page.Items[0].Size)
	assert.Equal(t, "b.txt", page.Items[1].Key)
	assert.Equal(t, int64(20), page.Items[1].Size)
	assert.True(t, page.Exhausted())

	require.NoError(t, p.DeleteObject(ctx, "root", "a.txt"))
	page, err = p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, keysOf(page.Items))
}

func TestListObjects_DirectoriesAndHidden(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	writeFile(t, dir, "docs/readme.md", 3)
	writeFile(t, dir, "docs/sub/deep.txt", 3)
	writeFile(t, dir, ".hidden", 1)
	writeFile(t, dir, "z.bin", 1)

	page, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/", "z.bin"}, keysOf(page.Items))
	assert.True(t, page.Items[0].IsDirectory)

	page, err = p.ListObjects(ctx, "root", provider.ListOptions{Prefix: "docs/", Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/readme.md", "docs/sub/"}, keysOf(page.Items))

	page, err = p.ListObjects(ctx, "root", provider.ListOptions{Prefix: "docs/re", Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/readme.md"}, keysOf(page.Items))

	page, err = p.ListObjects(ctx, "root", provider.ListOptions{Prefix: "docs/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/readme.md", "docs/sub/deep.txt"}, keysOf(page.Items))

	page, err = p.ListObjects(ctx, "root", provider.ListOptions{Prefix: "nope/", Delimiter: "/"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListObjects_PaginationCompleteness(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	var want []string
	for i := 0; i < 23; i++ {
		k := fmt.Sprintf("f%02d.txt", i)
		writeFile(t, dir, k, i)
		want = append(want, k)
	}
	writeFile(t, dir, "sub/x", 1)
	want = append(want, "sub/")
	sort.Strings(want)

	full, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/", PageSize: 1000})
	require.NoError(t, err)
	require.Equal(t, want, keysOf(full.Items))

	for _, size := range []int{1, 4, 7, 24, 50} {
		t.Run(fmt.Sprintf("page_%d", size), func(t *testing.T) {
			var got []string
			seen := map[string]bool{}
			cursor := ""
			for {
				page, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/", Cursor: cursor, PageSize: size})
				require.NoError(t, err)
				for _, it := range page.Items {
					require.False(t, seen[it.Key], "duplicate %s", it.Key)
					seen[it.Key] = true
					got = append(got, it.Key)
				}
				if page.Exhausted() {
					break
				}
				cursor = page.NextCursor
			}
			assert.Equal(t, want, got)
		})
	}

	// Same cursor yields the same page.
	first, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/", PageSize: 5})
	require.NoError(t, err)
	a, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/", PageSize: 5, Cursor: first.NextCursor})
	require.NoError(t, err)
	b, err := p.ListObjects(ctx, "root", provider.ListOptions{Delimiter: "/", PageSize: 5, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, keysOf(a.Items), keysOf(b.Items))
}

func TestBucketNotFound(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	_, err := p.ListObjects(ctx, "other", provider.ListOptions{})
	require.Error(t, err)
	assert.True(t, provider.IsBucketNotFound(err))

	_, err = p.PutObject(ctx, "other", "k", []byte("x"))
	assert.True(t, provider.IsBucketNotFound(err))
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	data := []byte("hello, round trip")
	obj, err := p.PutObject(ctx, "root", "nested/dir/file.txt", data)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.Equal(t, "nested/dir/file.txt", obj.Key)

	got, err := p.GetObject(ctx, "root", "nested/dir/file.txt", provider.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got, err = p.GetObject(ctx, "root", "nested/dir/file.txt", provider.GetOptions{Offset: 7, Length: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte("round"), got)

	got, err = p.GetObject(ctx, "root", "nested/dir/file.txt", provider.GetOptions{Offset: 1000})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = p.GetObject(ctx, "root", "missing.txt", provider.GetOptions{})
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestPutDirectoryPlaceholder(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)

	obj, err := p.PutObject(ctx, "root", "newdir/", nil)
	require.NoError(t, err)
	assert.True(t, obj.IsDirectory)
	st, err := os.Stat(filepath.Join(dir, "newdir"))
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestCopyIndependence(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	writeFile(t, dir, "src.txt", 12)
	past := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src.txt"), past, past))

	before, err := p.GetObject(ctx, "root", "src.txt", provider.GetOptions{})
	require.NoError(t, err)

	obj, err := p.CopyObject(ctx, "root", "src.txt", "copies/dst.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(12), obj.Size)
	require.NotNil(t, obj.LastModified)
	assert.True(t, obj.LastModified.Equal(past))

	require.NoError(t, p.DeleteObject(ctx, "root", "src.txt"))
	after, err := p.GetObject(ctx, "root", "copies/dst.txt", provider.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = p.CopyObject(ctx, "root", "missing", "x")
	assert.True(t, provider.IsNotFound(err))

	_, err = p.CopyObject(ctx, "root", "copies/", "elsewhere/")
	assert.True(t, provider.IsUnsupported(err))
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	writeFile(t, dir, "gone.txt", 1)

	require.NoError(t, p.DeleteObject(ctx, "root", "gone.txt"))
	require.NoError(t, p.DeleteObject(ctx, "root", "gone.txt"))
	require.NoError(t, p.DeleteObject(ctx, "root", "never/existed"))
	assert.Error(t, p.DeleteObject(ctx, "root", ""))
}

func TestDeleteObject_DirectoryKey(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	writeFile(t, dir, "d/keep.txt", 1)
	writeFile(t, dir, "d/.hidden", 1)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "d", "empty", "deeper"), 0o755))

	err := p.DeleteObject(ctx, "root", "d/")
	require.Error(t, err, "listed files must be deleted first")
	assert.FileExists(t, filepath.Join(dir, "d", "keep.txt"))

	require.NoError(t, p.DeleteObject(ctx, "root", "d/keep.txt"))
	require.NoError(t, p.DeleteObject(ctx, "root", "d/"))
	assert.NoDirExists(t, filepath.Join(dir, "d"))

	require.NoError(t, p.DeleteObject(ctx, "root", "d/"), "absent directory is not an error")
}

func TestStatObject(t *testing.T) {
	ctx := context.Background()
	p, dir := newTestProvider(t)
	writeFile(t, dir, "d/f.json", 4)

	obj, err := p.StatObject(ctx, "root", "d/f.json")
	require.NoError(t, err)
	assert.Equal(t, int64(4), obj.Size)
	assert.False(t, obj.IsDirectory)
	assert.Equal(t, "application/json", obj.ContentType)

	obj, err = p.StatObject(ctx, "root", "d")
	require.NoError(t, err)
	assert.True(t, obj.IsDirectory)
	assert.Equal(t, "d/", obj.Key)

	_, err = p.StatObject(ctx, "root", "nope")
	assert.True(t, provider.IsNotFound(err))
}

func TestFullPath_TraversalStaysInsideRoot(t *testing.T) {
	p, _ := newTestProvider(t)
	_, err := p.fullPath("../../etc/passwd")
	require.NoError(t, err, "traversal collapses inside root")

	full, _ := p.fullPath("../outside")
	assert.Equal(t, filepath.Join(p.baseDir, "outside"), full)
}
