package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbrowse/pkg/cache"
	"github.com/3leaps/nimbrowse/pkg/provider"
	"github.com/3leaps/nimbrowse/pkg/provider/file"
	"github.com/3leaps/nimbrowse/test/memstore"
)

// drain runs cmd and every follow-up command synchronously, in order.
func drain(t *testing.T, e *Engine, cmd Cmd) {
	t.Helper()
	queue := []Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		queue = append(queue, e.Update(msg))
	}
}

func keysOf(objs []provider.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Key
	}
	return out
}

func newStore() *memstore.Store {
	s := memstore.New("alpha", "beta")
	s.Put("alpha", "a/one.txt", []byte("1"))
	s.Put("alpha", "a/two.txt", []byte("22"))
	s.Put("alpha", "b/three.txt", []byte("333"))
	s.Put("alpha", "abc.log", []byte("log"))
	s.Put("alpha", "readme.md", []byte("# readme\nline two\n"))
	s.Put("beta", "other.txt", []byte("beta"))
	return s
}

// open returns an engine browsing the root of bucket alpha.
func open(t *testing.T, s *memstore.Store, opts Options) *Engine {
	t.Helper()
	e := New("test", s, nil, nil, opts)
	t.Cleanup(func() { _ = e.Close() })
	drain(t, e, e.Init())
	drain(t, e, e.SelectBucket("alpha"))
	require.Equal(t, ModeObjects, e.Snapshot().Mode)
	return e
}

func cursorTo(t *testing.T, e *Engine, key string) {
	t.Helper()
	for i, obj := range e.Snapshot().Objects {
		if obj.Key == key {
			e.CursorTop()
			e.MoveCursor(i)
			return
		}
	}
	t.Fatalf("%s not in listing", key)
}

func TestFilesystemScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(strings.Repeat("a", 10)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte(strings.Repeat("b", 20)), 0o644))

	p, err := file.New(file.Config{BaseDir: dir, Bucket: "root"})
	require.NoError(t, err)

	e := New("local", p, nil, nil, Options{})
	t.Cleanup(func() { _ = e.Close() })

	drain(t, e, e.Init())
	snap := e.Snapshot()
	require.Len(t, snap.Buckets, 1)
	assert.Equal(t, "root", snap.Buckets[0].Name)

	drain(t, e, e.Activate())
	snap = e.Snapshot()
	require.Len(t, snap.Objects, 2)
	assert.Equal(t, "a.txt", snap.Objects[0].Key)
	assert.Equal(t, int64(10), snap.Objects[0].Size)
	assert.Equal(t, "b.txt", snap.Objects[1].Key)
	assert.Equal(t, int64(20), snap.Objects[1].Size)

	cursorTo(t, e, "a.txt")
	e.RequestDelete()
	require.Equal(t, ModeConfirming, e.Snapshot().Mode)
	drain(t, e, e.Confirm())

	snap = e.Snapshot()
	assert.Equal(t, ModeObjects, snap.Mode)
	assert.Equal(t, []string{"b.txt"}, keysOf(snap.Objects))
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelInfo, snap.Notice.Level)
}

func TestEnterDir_LastRequestWins(t *testing.T) {
	t.Run("LateResultDropped", func(t *testing.T) {
		e := open(t, newStore(), Options{})

		first := e.EnterDir("a/")
		second := e.EnterDir("b/")
		require.NotNil(t, first)
		require.NotNil(t, second)

		assert.Nil(t, e.Update(second()))
		assert.Nil(t, e.Update(first()))

		snap := e.Snapshot()
		assert.Equal(t, "b/", snap.Prefix)
		assert.Equal(t, []string{"b/three.txt"}, keysOf(snap.Objects))
		assert.False(t, snap.Loading.Objects)
	})

	t.Run("CompletedButUnappliedResultDropped", func(t *testing.T) {
		e := open(t, newStore(), Options{})

		first := e.EnterDir("a/")
		firstMsg := first()
		second := e.EnterDir("b/")
		secondMsg := second()

		e.Update(secondMsg)
		e.Update(firstMsg)

		snap := e.Snapshot()
		assert.Equal(t, "b/", snap.Prefix)
		assert.Equal(t, []string{"b/"}, snap.PathStack)
	})

	t.Run("SupersededCallIsCanceled", func(t *testing.T) {
		s := newStore()
		e := open(t, s, Options{})

		started := make(chan struct{})
		s.SetHook(func(ctx context.Context, op, bucket, key string) error {
			if op == "ListObjects" && key == "a/" {
				close(started)
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		})

		first := e.EnterDir("a/")
		done := make(chan Msg, 1)
		go func() { done <- first() }()
		<-started

		drain(t, e, e.EnterDir("b/"))
		msg := <-done
		assert.ErrorIs(t, msg.(objectsLoaded).err, context.Canceled)
		e.Update(msg)

		snap := e.Snapshot()
		assert.Equal(t, "b/", snap.Prefix)
		assert.Nil(t, snap.Notice)
	})
}

func TestNavigationSymmetry(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})
	before := e.Snapshot().Objects
	lists := s.Calls("ListObjects")

	cursorTo(t, e, "a/")
	drain(t, e, e.Activate())
	snap := e.Snapshot()
	assert.Equal(t, "a/", snap.Prefix)
	assert.Equal(t, []string{"a/"}, snap.PathStack)
	assert.Equal(t, []string{"a/one.txt", "a/two.txt"}, keysOf(snap.Objects))

	drain(t, e, e.Back())
	snap = e.Snapshot()
	assert.Equal(t, "", snap.Prefix)
	assert.Empty(t, snap.PathStack)
	assert.Equal(t, before, snap.Objects)

	// The root listing came from the cache.
	assert.Equal(t, lists+1, s.Calls("ListObjects"))
}

func TestBack_NeverUnderflows(t *testing.T) {
	e := open(t, newStore(), Options{})

	drain(t, e, e.EnterDir("a/"))
	drain(t, e, e.Back())
	assert.Equal(t, ModeObjects, e.Snapshot().Mode)

	drain(t, e, e.Back())
	snap := e.Snapshot()
	assert.Equal(t, ModeBuckets, snap.Mode)
	assert.Equal(t, PaneBuckets, snap.Focus)

	for i := 0; i < 3; i++ {
		assert.Nil(t, e.Back())
	}
	snap = e.Snapshot()
	assert.Equal(t, ModeBuckets, snap.Mode)
	assert.Empty(t, snap.PathStack)
	assert.Equal(t, "alpha", snap.Bucket)

	// Tab returns to the retained listing.
	e.SwitchPane()
	assert.Equal(t, ModeObjects, e.Snapshot().Mode)
}

func TestBack_AtRootSupersedesPendingLoad(t *testing.T) {
	e := open(t, newStore(), Options{})

	pending := e.EnterDir("a/")
	drain(t, e, e.Back())
	e.Update(pending())

	snap := e.Snapshot()
	assert.Equal(t, ModeBuckets, snap.Mode)
	assert.Equal(t, "", snap.Prefix)
}

func TestSearch_FilterIsNonDestructive(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})
	before := e.Snapshot().Objects
	lists := s.Calls("ListObjects")

	e.StartSearch()
	require.Equal(t, ModeSearching, e.Snapshot().Mode)

	e.SetFilter("a")
	assert.Equal(t, []string{"a/", "abc.log", "readme.md"}, keysOf(e.Snapshot().Objects))
	e.SetFilter("ab")
	e.SetFilter("abc")
	snap := e.Snapshot()
	assert.Equal(t, []string{"abc.log"}, keysOf(snap.Objects))
	assert.Equal(t, "abc", snap.Filter)
	assert.Equal(t, len(before), snap.TotalObjects)

	e.CancelSearch()
	snap = e.Snapshot()
	assert.Equal(t, ModeObjects, snap.Mode)
	assert.Empty(t, snap.Filter)
	assert.Equal(t, before, snap.Objects)
	assert.Equal(t, lists, s.Calls("ListObjects"), "filtering must not re-list")
}

func TestSearch_SubmitKeepsFilter(t *testing.T) {
	e := open(t, newStore(), Options{})

	e.StartSearch()
	e.SetFilter("*.md")
	e.SubmitSearch()

	snap := e.Snapshot()
	assert.Equal(t, ModeObjects, snap.Mode)
	assert.Equal(t, []string{"readme.md"}, keysOf(snap.Objects))

	// Moving to another prefix drops the filter.
	drain(t, e, e.EnterDir("a/"))
	snap = e.Snapshot()
	assert.Empty(t, snap.Filter)
	assert.Len(t, snap.Objects, 2)
}

func TestSearch_BucketPane(t *testing.T) {
	e := open(t, newStore(), Options{})
	e.SwitchPane()
	require.Equal(t, PaneBuckets, e.Snapshot().Focus)

	e.StartSearch()
	e.SetFilter("bet")
	snap := e.Snapshot()
	require.Len(t, snap.Buckets, 1)
	assert.Equal(t, "beta", snap.Buckets[0].Name)
	assert.Len(t, snap.Objects, 4, "object pane is not filtered")

	e.SubmitSearch()
	drain(t, e, e.Activate())
	assert.Equal(t, "beta", e.Snapshot().Bucket)
}

func TestTimeoutSurfacesAsNotice(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{OpTimeout: 20 * time.Millisecond})
	before := e.Snapshot()

	s.SetHook(func(ctx context.Context, op, bucket, key string) error {
		if op == "ListObjects" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	drain(t, e, e.EnterDir("a/"))

	snap := e.Snapshot()
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelError, snap.Notice.Level)
	assert.Equal(t, provider.KindTimeout, snap.Notice.Kind)
	assert.Contains(t, snap.Notice.Text, "timed out")
	assert.Equal(t, before.Prefix, snap.Prefix)
	assert.Equal(t, before.Objects, snap.Objects)
	assert.False(t, snap.Loading.Objects)
}

func TestFailedListKeepsPreviousPage(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})
	before := e.Snapshot().Objects

	s.Fail("ListObjects", provider.ErrProviderUnavailable)
	drain(t, e, e.Refresh())

	snap := e.Snapshot()
	assert.Equal(t, before, snap.Objects)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, provider.KindUnavailable, snap.Notice.Kind)

	s.Fail("ListObjects", nil)
	e.DismissNotice()
	drain(t, e, e.Refresh())
	assert.Nil(t, e.Snapshot().Notice)
}

func TestRefreshBypassesCache(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	s.Put("alpha", "new.txt", []byte("n"))
	drain(t, e, e.EnterDir("a/"))
	drain(t, e, e.Back())
	assert.NotContains(t, keysOf(e.Snapshot().Objects), "new.txt", "served from cache")

	drain(t, e, e.Refresh())
	assert.Contains(t, keysOf(e.Snapshot().Objects), "new.txt")
	assert.Equal(t, ModeObjects, e.Snapshot().Mode)
}

func TestRefreshDoesNotStealBucketFocus(t *testing.T) {
	e := open(t, newStore(), Options{})
	e.SwitchPane()
	drain(t, e, e.Refresh())
	snap := e.Snapshot()
	assert.Equal(t, ModeBuckets, snap.Mode)
	assert.Equal(t, PaneBuckets, snap.Focus)
}

func TestLoadMore(t *testing.T) {
	s := memstore.New("bulk")
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5"} {
		s.Put("bulk", k, []byte(k))
	}
	e := New("test", s, nil, nil, Options{PageSize: 2})
	t.Cleanup(func() { _ = e.Close() })
	drain(t, e, e.Init())
	drain(t, e, e.SelectBucket("bulk"))

	snap := e.Snapshot()
	assert.Equal(t, []string{"k1", "k2"}, keysOf(snap.Objects))
	assert.True(t, snap.HasMore)

	drain(t, e, e.LoadMore())
	drain(t, e, e.LoadMore())
	snap = e.Snapshot()
	assert.Equal(t, []string{"k1", "k2", "k3", "k4", "k5"}, keysOf(snap.Objects))
	assert.False(t, snap.HasMore)
	assert.Nil(t, e.LoadMore())

	// Appending never touched the cached first page.
	first, ok := e.Cache().Page(cache.Key{Bucket: "bulk"})
	require.True(t, ok)
	assert.Equal(t, []string{"k1", "k2"}, keysOf(first.Items))
}

func TestDelete_InvalidatesAndRelists(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	drain(t, e, e.EnterDir("a/"))
	drain(t, e, e.Back())

	cursorTo(t, e, "a/")
	e.RequestDelete()
	snap := e.Snapshot()
	require.NotNil(t, snap.Confirm)
	assert.Contains(t, snap.Confirm.Prompt(), "directory")
	drain(t, e, e.Confirm())

	assert.NotContains(t, keysOf(e.Snapshot().Objects), "a/")
	for _, k := range s.Keys("alpha") {
		assert.False(t, strings.HasPrefix(k, "a/"), k)
	}

	// The cached a/ listing was evicted with its parent.
	_, ok := e.Cache().Page(cache.Key{Bucket: "alpha", Prefix: "a/"})
	assert.False(t, ok)
}

func TestDelete_FailureLeavesStateAndCache(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})
	before := e.Snapshot()
	pages := e.Cache().Stats().Pages
	lists := s.Calls("ListObjects")

	s.Fail("DeleteObject", provider.ErrAccessDenied)
	cursorTo(t, e, "readme.md")
	e.RequestDelete()
	drain(t, e, e.Confirm())

	snap := e.Snapshot()
	require.NotNil(t, snap.Notice)
	assert.Equal(t, provider.KindPermission, snap.Notice.Kind)
	assert.Equal(t, before.Objects, snap.Objects)
	assert.Equal(t, ModeObjects, snap.Mode)
	assert.Equal(t, Action(0), snap.Busy)
	assert.Equal(t, pages, e.Cache().Stats().Pages)
	assert.Equal(t, lists, s.Calls("ListObjects"))
	assert.Contains(t, s.Keys("alpha"), "readme.md")
}

func TestConfirm_CancelHasNoSideEffects(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	cursorTo(t, e, "readme.md")
	e.RequestDelete()
	require.Equal(t, ModeConfirming, e.Snapshot().Mode)

	e.Cancel()
	assert.Equal(t, ModeObjects, e.Snapshot().Mode)
	assert.Nil(t, e.Snapshot().Confirm)
	assert.Nil(t, e.Confirm())
	assert.Zero(t, s.Calls("DeleteObject"))
}

func TestSelection_DeleteActsOnSelected(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	cursorTo(t, e, "abc.log")
	e.ToggleSelect()
	cursorTo(t, e, "readme.md")
	e.ToggleSelect()
	assert.Equal(t, []string{"abc.log", "readme.md"}, e.Snapshot().Selection)

	e.RequestDelete()
	require.Len(t, e.Snapshot().Confirm.Targets, 2)
	drain(t, e, e.Confirm())

	snap := e.Snapshot()
	assert.Equal(t, []string{"a/", "b/"}, keysOf(snap.Objects))
	assert.Empty(t, snap.Selection)
}

func TestYankPaste_Copies(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	cursorTo(t, e, "readme.md")
	e.Yank()
	require.NotNil(t, e.Snapshot().Yanked)

	// Pasting onto itself is refused.
	e.Paste()
	assert.Equal(t, ModeObjects, e.Snapshot().Mode)

	drain(t, e, e.EnterDir("b/"))
	e.Paste()
	snap := e.Snapshot()
	require.NotNil(t, snap.Confirm)
	assert.Equal(t, "b/readme.md", snap.Confirm.DestKey)
	drain(t, e, e.Confirm())

	assert.Contains(t, keysOf(e.Snapshot().Objects), "b/readme.md")
	data, ok := s.Data("alpha", "b/readme.md")
	require.True(t, ok)
	orig, _ := s.Data("alpha", "readme.md")
	assert.Equal(t, orig, data)
}

func TestUploadAndDownload(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	local := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0o644))

	drain(t, e, e.EnterDir("b/"))
	e.RequestUpload(local)
	drain(t, e, e.Confirm())
	assert.Contains(t, keysOf(e.Snapshot().Objects), "b/notes.txt")

	dest := t.TempDir()
	cursorTo(t, e, "b/notes.txt")
	e.RequestDownload(dest)
	assert.Equal(t, dest, e.Snapshot().Confirm.Local)
	drain(t, e, e.Confirm())

	got, err := os.ReadFile(filepath.Join(dest, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestMutationProgressThroughSink(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	var progress []Msg
	e.SetSink(func(m Msg) { progress = append(progress, m) })

	cursorTo(t, e, "a/")
	e.RequestDelete()
	cmd := e.Confirm()
	assert.Equal(t, ActionDelete, e.Snapshot().Busy)

	// A second request while busy is refused.
	cursorTo(t, e, "readme.md")
	e.RequestDelete()
	assert.Equal(t, ModeObjects, e.Snapshot().Mode)

	msg := cmd()
	require.NotEmpty(t, progress)
	e.Update(progress[len(progress)-1])
	p := e.Snapshot().Progress
	require.NotNil(t, p)
	assert.True(t, p.Done())

	drain(t, e, e.Update(msg))
	assert.Nil(t, e.Snapshot().Progress)
	assert.Equal(t, Action(0), e.Snapshot().Busy)
}

func TestPreview(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{PreviewHeight: 1})

	cursorTo(t, e, "readme.md")
	drain(t, e, e.Activate())

	snap := e.Snapshot()
	require.Equal(t, ModePreviewing, snap.Mode)
	require.NotNil(t, snap.Preview)
	assert.Equal(t, []string{"# readme"}, snap.Preview.View.Visible())

	e.ScrollPreview(1)
	assert.Equal(t, []string{"line two"}, e.Snapshot().Preview.View.Visible())
	e.PreviewTop()
	assert.Equal(t, 0, e.Snapshot().Preview.View.Offset())

	// Navigation keys do nothing while previewing.
	assert.Nil(t, e.Activate())

	e.ClosePreview()
	snap = e.Snapshot()
	assert.Equal(t, ModeObjects, snap.Mode)
	assert.Nil(t, snap.Preview)
}

func TestPreview_LatestWins(t *testing.T) {
	e := open(t, newStore(), Options{})

	first := e.Preview("abc.log")
	second := e.Preview("readme.md")
	e.Update(second())
	e.Update(first())

	snap := e.Snapshot()
	require.NotNil(t, snap.Preview)
	assert.Equal(t, "readme.md", snap.Preview.Result.Object.Key)
}

func TestPreview_FailureStaysBrowsing(t *testing.T) {
	s := newStore()
	e := open(t, s, Options{})

	s.Fail("StatObject", provider.ErrNotFound)
	drain(t, e, e.Preview("readme.md"))

	snap := e.Snapshot()
	assert.Equal(t, ModeObjects, snap.Mode)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, provider.KindObjectNotFound, snap.Notice.Kind)
}

func TestSnapshotIsImmutable(t *testing.T) {
	e := open(t, newStore(), Options{})
	snap := e.Snapshot()
	snap.Objects[0].Key = "mutated"
	snap.PathStack = append(snap.PathStack, "x/")

	again := e.Snapshot()
	assert.NotEqual(t, "mutated", again.Objects[0].Key)
	assert.Empty(t, again.PathStack)
}

func TestAccountSwitch(t *testing.T) {
	one := newStore()
	two := memstore.New("gamma")
	stores := map[string]*memstore.Store{"one": one, "two": two}
	opener := func(ctx context.Context, name string) (provider.Provider, error) {
		s, ok := stores[name]
		if !ok {
			return nil, errors.New("unknown account")
		}
		return s, nil
	}

	e := New("one", one, []string{"one", "two"}, opener, Options{})
	t.Cleanup(func() { _ = e.Close() })
	drain(t, e, e.Init())
	drain(t, e, e.SelectBucket("alpha"))
	drain(t, e, e.EnterDir("a/"))
	oldCache := e.Cache()

	drain(t, e, e.SwitchAccount())

	snap := e.Snapshot()
	assert.Equal(t, "two", snap.Account)
	assert.Equal(t, ModeBuckets, snap.Mode)
	assert.Equal(t, "", snap.Bucket)
	assert.Empty(t, snap.PathStack)
	assert.Empty(t, snap.Objects)
	require.Len(t, snap.Buckets, 1)
	assert.Equal(t, "gamma", snap.Buckets[0].Name)
	assert.True(t, one.Closed())
	assert.NotSame(t, oldCache, e.Cache())
	assert.Zero(t, e.Cache().Stats().Pages)

	// Cycling wraps around.
	stores["one"] = memstore.New("alpha")
	drain(t, e, e.SwitchAccount())
	assert.Equal(t, "one", e.Snapshot().Account)
}

func TestAccountSwitch_FailureIsAtomic(t *testing.T) {
	s := newStore()
	opener := func(ctx context.Context, name string) (provider.Provider, error) {
		return nil, &provider.ProviderError{Op: "New", Err: provider.ErrInvalidCredentials}
	}
	e := New("one", s, []string{"one", "two"}, opener, Options{})
	t.Cleanup(func() { _ = e.Close() })
	drain(t, e, e.Init())
	drain(t, e, e.SelectBucket("alpha"))
	before := e.Snapshot()

	drain(t, e, e.SwitchAccount())

	snap := e.Snapshot()
	assert.Equal(t, "one", snap.Account)
	assert.Equal(t, before.Objects, snap.Objects)
	assert.Equal(t, before.Bucket, snap.Bucket)
	assert.False(t, s.Closed())
	require.NotNil(t, snap.Notice)
	assert.Equal(t, provider.KindPermission, snap.Notice.Kind)
}

func TestAccountSwitch_SingleAccount(t *testing.T) {
	e := New("one", newStore(), []string{"one"}, nil, Options{})
	t.Cleanup(func() { _ = e.Close() })
	assert.Nil(t, e.SwitchAccount())
	require.NotNil(t, e.Snapshot().Notice)
	assert.Equal(t, LevelWarn, e.Snapshot().Notice.Level)
}

func TestAccountSwitch_SupersededBackendClosed(t *testing.T) {
	one, two, three := newStore(), memstore.New("x"), memstore.New("y")
	opener := func(ctx context.Context, name string) (provider.Provider, error) {
		if name == "two" {
			return two, nil
		}
		return three, nil
	}
	e := New("one", one, []string{"one", "two", "three"}, opener, Options{})
	t.Cleanup(func() { _ = e.Close() })

	first := e.SwitchTo("two")
	second := e.SwitchTo("three")
	drain(t, e, e.Update(second()))
	e.Update(first())

	assert.Equal(t, "three", e.Snapshot().Account)
	assert.True(t, two.Closed())
	assert.False(t, three.Closed())
}

func TestMutationAfterSwitchIgnored(t *testing.T) {
	one := newStore()
	two := memstore.New("alpha")
	opener := func(ctx context.Context, name string) (provider.Provider, error) { return two, nil }

	e := New("one", one, []string{"one", "two"}, opener, Options{})
	t.Cleanup(func() { _ = e.Close() })
	drain(t, e, e.Init())
	drain(t, e, e.SelectBucket("alpha"))

	cursorTo(t, e, "readme.md")
	e.RequestDelete()
	pending := e.Confirm()

	drain(t, e, e.SwitchAccount())
	drain(t, e, e.SelectBucket("alpha"))
	lists := two.Calls("ListObjects")

	assert.Nil(t, e.Update(pending()))
	assert.Equal(t, lists, two.Calls("ListObjects"))
	assert.Equal(t, Action(0), e.Snapshot().Busy)
}

func TestPathStack(t *testing.T) {
	assert.Equal(t, []string{}, pathStack(""))
	assert.Equal(t, []string{"a/"}, pathStack("a/"))
	assert.Equal(t, []string{"a/", "b/", "c/"}, pathStack("a/b/c/"))
	assert.Equal(t, "a/b/c/", strings.Join(pathStack("a/b/c/"), ""))
}

func TestBatch(t *testing.T) {
	assert.Nil(t, Batch(nil, nil))

	one := Cmd(func() Msg { return 1 })
	assert.Equal(t, 1, Batch(nil, one)())

	msg := Batch(one, one)()
	batch, ok := msg.(BatchMsg)
	require.True(t, ok)
	assert.Len(t, batch, 2)
}
