package session

import (
	"strings"
	"time"

	"github.com/3leaps/nimbrowse/pkg/match"
	"github.com/3leaps/nimbrowse/pkg/preview"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

func (e *Engine) browsing() bool {
	return e.mode == ModeBuckets || e.mode == ModeObjects
}

// MoveCursor moves the cursor of the focused pane.
func (e *Engine) MoveCursor(delta int) {
	switch e.focus {
	case PaneBuckets:
		e.bucketCursor = clamp(e.bucketCursor+delta, len(e.visibleBuckets()))
	case PaneObjects:
		e.objectCursor = clamp(e.objectCursor+delta, len(e.visibleObjects()))
	}
}

// CursorTop moves to the first entry of the focused pane.
func (e *Engine) CursorTop() {
	e.MoveCursor(-1 << 30)
}

// CursorBottom moves to the last entry of the focused pane.
func (e *Engine) CursorBottom() {
	e.MoveCursor(1 << 30)
}

// CurrentBucket returns the bucket under the cursor.
func (e *Engine) CurrentBucket() (provider.Bucket, bool) {
	visible := e.visibleBuckets()
	if len(visible) == 0 {
		return provider.Bucket{}, false
	}
	return visible[clamp(e.bucketCursor, len(visible))], true
}

// CurrentObject returns the object under the cursor.
func (e *Engine) CurrentObject() (provider.Object, bool) {
	visible := e.visibleObjects()
	if len(visible) == 0 {
		return provider.Object{}, false
	}
	return visible[clamp(e.objectCursor, len(visible))], true
}

// Activate opens the entry under the cursor: a bucket, a directory, or a
// preview of a file.
func (e *Engine) Activate() Cmd {
	if !e.browsing() {
		return nil
	}
	if e.focus == PaneBuckets {
		b, ok := e.CurrentBucket()
		if !ok {
			return nil
		}
		return e.SelectBucket(b.Name)
	}
	obj, ok := e.CurrentObject()
	if !ok {
		return nil
	}
	if obj.IsDirectory {
		return e.EnterDir(obj.Key)
	}
	return e.Preview(obj.Key)
}

// SelectBucket lists the root of bucket and focuses the object pane once
// the listing arrives.
func (e *Engine) SelectBucket(name string) Cmd {
	if !e.browsing() || name == "" {
		return nil
	}
	return e.loadObjects(listReq{bucket: name, focus: true})
}

// EnterDir lists a directory key of the current bucket.
func (e *Engine) EnterDir(key string) Cmd {
	if !e.browsing() || e.bucket == "" {
		return nil
	}
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return e.loadObjects(listReq{bucket: e.bucket, prefix: key, focus: true})
}

// Jump lists an arbitrary bucket and prefix.
func (e *Engine) Jump(bucket, prefix string) Cmd {
	if !e.browsing() || bucket == "" {
		return nil
	}
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return e.loadObjects(listReq{bucket: bucket, prefix: prefix, focus: true})
}

// Back leaves the current directory. At the bucket root it returns to the
// bucket pane; it never goes further.
func (e *Engine) Back() Cmd {
	switch e.mode {
	case ModePreviewing:
		e.ClosePreview()
		return nil
	case ModeConfirming:
		e.Cancel()
		return nil
	case ModeSearching:
		e.CancelSearch()
		return nil
	case ModeBuckets:
		return nil
	}

	if e.focus == PaneBuckets {
		return nil
	}
	if e.prefix != "" {
		return e.loadObjects(listReq{bucket: e.bucket, prefix: provider.ParentPrefix(e.prefix), focus: true})
	}
	e.supersede(chanObjects)
	e.loading.Objects = false
	e.loading.Target = ""
	e.mode = ModeBuckets
	e.focus = PaneBuckets
	return nil
}

// LoadMore fetches the page after the last one shown.
func (e *Engine) LoadMore() Cmd {
	if e.bucket == "" || e.next == "" {
		return nil
	}
	return e.loadObjects(listReq{bucket: e.bucket, prefix: e.prefix, cursor: e.next, more: true})
}

// Refresh reloads the bucket list and the current listing from the
// backend, bypassing and repopulating the cache.
func (e *Engine) Refresh() Cmd {
	cmds := []Cmd{e.loadBuckets(true)}
	if e.bucket != "" {
		e.cache.InvalidatePrefix(e.bucket, e.prefix)
		cmds = append(cmds, e.loadObjects(listReq{bucket: e.bucket, prefix: e.prefix, refresh: true}))
	}
	return Batch(cmds...)
}

// SwitchPane toggles focus between buckets and objects.
func (e *Engine) SwitchPane() {
	if !e.browsing() {
		return
	}
	if e.focus == PaneBuckets {
		if e.bucket == "" {
			return
		}
		e.focus = PaneObjects
		e.mode = ModeObjects
		return
	}
	e.focus = PaneBuckets
	e.mode = ModeBuckets
}

// StartSearch enters incremental search on the focused pane.
func (e *Engine) StartSearch() {
	if !e.browsing() {
		return
	}
	e.searchReturn = e.mode
	e.filterOn = e.focus
	e.filter = nil
	e.mode = ModeSearching
}

// SetFilter narrows the focused pane to entries matching text. The
// listing itself is untouched; no backend call is made.
func (e *Engine) SetFilter(text string) {
	if e.mode != ModeSearching {
		return
	}
	if strings.TrimSpace(text) == "" {
		e.filter = nil
	} else {
		e.filter = match.Lenient(text)
	}
	e.bucketCursor = clamp(e.bucketCursor, len(e.visibleBuckets()))
	e.objectCursor = clamp(e.objectCursor, len(e.visibleObjects()))
}

// SubmitSearch leaves search mode keeping the filter applied.
func (e *Engine) SubmitSearch() {
	if e.mode != ModeSearching {
		return
	}
	e.mode = e.searchReturn
}

// CancelSearch leaves search mode and discards the filter.
func (e *Engine) CancelSearch() {
	if e.mode != ModeSearching {
		return
	}
	e.mode = e.searchReturn
	e.ClearFilter()
}

// ClearFilter drops any applied filter.
func (e *Engine) ClearFilter() {
	e.filter = nil
	e.bucketCursor = clamp(e.bucketCursor, len(e.visibleBuckets()))
	e.objectCursor = clamp(e.objectCursor, len(e.visibleObjects()))
}

// ToggleSelect adds or removes the object under the cursor from the
// selection.
func (e *Engine) ToggleSelect() {
	if e.mode != ModeObjects {
		return
	}
	obj, ok := e.CurrentObject()
	if !ok {
		return
	}
	if _, on := e.selection[obj.Key]; on {
		delete(e.selection, obj.Key)
	} else {
		e.selection[obj.Key] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() {
	e.selection = map[string]struct{}{}
}

// Preview fetches a bounded view of key in the current bucket.
func (e *Engine) Preview(key string) Cmd {
	if e.bucket == "" || strings.HasSuffix(key, "/") {
		return nil
	}
	gen, ctx := e.begin(chanPreview)
	e.loading.Preview = true
	backend := e.backend
	bucket := e.bucket
	maxBytes := e.opts.PreviewMaxBytes
	return func() Msg {
		start := time.Now()
		res, err := preview.Fetch(ctx, backend, bucket, key, maxBytes)
		return previewLoaded{gen: gen, bucket: bucket, key: key, result: res, err: err, elapsed: time.Since(start)}
	}
}

func (e *Engine) applyPreview(m previewLoaded) Cmd {
	if !e.current(chanPreview, m.gen) {
		return nil
	}
	e.loading.Preview = false
	if m.err != nil {
		e.fail("preview "+m.bucket+"/"+m.key, m.err)
		return nil
	}
	height := e.opts.PreviewHeight
	if e.preview != nil {
		height = e.preview.View.Height()
	} else {
		e.previewReturn = e.mode
	}
	e.preview = &PreviewState{
		Bucket: m.bucket,
		Result: m.result,
		View:   preview.NewView(m.result.Lines(), height),
	}
	e.mode = ModePreviewing
	return nil
}

// ClosePreview returns to the state the preview was opened from.
func (e *Engine) ClosePreview() {
	e.supersede(chanPreview)
	e.loading.Preview = false
	if e.mode != ModePreviewing {
		return
	}
	e.preview = nil
	e.mode = e.previewReturn
}

// ScrollPreview moves the preview by n lines.
func (e *Engine) ScrollPreview(n int) {
	if e.preview != nil {
		e.preview.View = e.preview.View.ScrollBy(n)
	}
}

// PagePreview moves the preview by whole pages.
func (e *Engine) PagePreview(pages int) {
	if e.preview == nil {
		return
	}
	for ; pages > 0; pages-- {
		e.preview.View = e.preview.View.PageDown()
	}
	for ; pages < 0; pages++ {
		e.preview.View = e.preview.View.PageUp()
	}
}

// PreviewTop scrolls to the first line.
func (e *Engine) PreviewTop() {
	if e.preview != nil {
		e.preview.View = e.preview.View.Top()
	}
}

// PreviewBottom scrolls to the last page.
func (e *Engine) PreviewBottom() {
	if e.preview != nil {
		e.preview.View = e.preview.View.Bottom()
	}
}

// ResizePreview sets the viewport height for current and later previews.
func (e *Engine) ResizePreview(height int) {
	if height <= 0 {
		return
	}
	e.opts.PreviewHeight = height
	if e.preview != nil {
		e.preview.View = e.preview.View.Resize(height)
	}
}
