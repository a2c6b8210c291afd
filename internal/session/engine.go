// Package session implements the navigation engine behind the browser.
//
// The Engine is a state machine over buckets, object listings, search,
// preview and confirmation. It never blocks: every provider call is
// returned to the caller as a Cmd, run elsewhere, and its Msg fed back
// through Update. Each load channel (buckets, objects, preview, account)
// carries a generation counter; Update drops any result whose generation
// is no longer current, so the latest request always wins.
//
// All Engine methods must be called from a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/pkg/cache"
	"github.com/3leaps/nimbrowse/pkg/match"
	"github.com/3leaps/nimbrowse/pkg/preview"
	"github.com/3leaps/nimbrowse/pkg/provider"
	"github.com/3leaps/nimbrowse/pkg/transfer"
)

// Options tunes the engine.
type Options struct {
	// PageSize is the listing page size. Zero uses provider.DefaultPageSize.
	PageSize int

	// OpTimeout bounds each provider call. Zero disables the bound.
	OpTimeout time.Duration

	// CacheTTL expires cached pages. Zero keeps them until invalidated.
	CacheTTL time.Duration

	// PreviewMaxBytes truncates previews. Zero uses preview.DefaultMaxBytes.
	PreviewMaxBytes int64

	// PreviewHeight is the initial preview viewport height in lines.
	PreviewHeight int

	// DownloadDir is the default download destination.
	DownloadDir string

	// Transfer configures multi-object mutations.
	Transfer transfer.Config

	// Clock overrides time.Now (tests).
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = provider.DefaultPageSize
	}
	if o.PreviewMaxBytes <= 0 {
		o.PreviewMaxBytes = preview.DefaultMaxBytes
	}
	if o.PreviewHeight <= 0 {
		o.PreviewHeight = 20
	}
	if o.DownloadDir == "" {
		o.DownloadDir = "."
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Opener constructs the backend for a named account.
type Opener func(ctx context.Context, account string) (provider.Provider, error)

// Engine owns the session state. See the package documentation.
type Engine struct {
	id   string
	opts Options
	log  *zap.Logger

	open     Opener
	accounts []string
	account  string
	backend  provider.Provider
	cache    *cache.Cache

	ctx    context.Context
	cancel context.CancelFunc

	// sink delivers messages produced outside a Cmd (progress).
	sink func(Msg)

	gens    [numChannels]uint64
	cancels [numChannels]context.CancelFunc

	// epoch changes on every account switch; mutations started under an
	// older epoch do not touch the new session's cache.
	epoch uint64

	mode  Mode
	focus Pane

	buckets      []provider.Bucket
	bucketCursor int

	bucket       string
	prefix       string
	items        []provider.Object
	next         string
	objectCursor int

	filter       *match.Query
	filterOn     Pane
	searchReturn Mode

	selection map[string]struct{}
	yanked    *ObjectRef

	preview       *PreviewState
	previewReturn Mode

	confirm       *Confirmation
	confirmReturn Mode

	loading  Loading
	busy     Action
	progress *transfer.Progress
	notice   *Notice
}

// New builds an engine over an already constructed backend. accounts is
// the switch order; account must be one of them (or accounts may be empty
// when switching is not needed).
func New(account string, backend provider.Provider, accounts []string, open Opener, opts Options) *Engine {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	e := &Engine{
		id:        id,
		opts:      opts,
		log:       observability.CLILogger.With(zap.String("session", id)),
		open:      open,
		accounts:  append([]string(nil), accounts...),
		account:   account,
		backend:   backend,
		cache:     cache.New(opts.CacheTTL, cache.WithClock(opts.Clock)),
		ctx:       ctx,
		cancel:    cancel,
		selection: map[string]struct{}{},
	}
	return e
}

// ID returns the session ID used for log correlation.
func (e *Engine) ID() string { return e.id }

// SetSink installs the receiver for messages produced outside a Cmd.
func (e *Engine) SetSink(sink func(Msg)) { e.sink = sink }

// Cache exposes the active pagination cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Backend returns the active backend.
func (e *Engine) Backend() provider.Provider { return e.backend }

// Init starts the bucket listing.
func (e *Engine) Init() Cmd {
	return e.loadBuckets(false)
}

// Close cancels outstanding work and closes the backend.
func (e *Engine) Close() error {
	e.cancel()
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// Update applies a message and returns follow-up work.
func (e *Engine) Update(msg Msg) Cmd {
	switch m := msg.(type) {
	case bucketsLoaded:
		return e.applyBuckets(m)
	case objectsLoaded:
		return e.applyObjects(m)
	case previewLoaded:
		return e.applyPreview(m)
	case accountOpened:
		return e.applyAccount(m)
	case mutationDone:
		return e.applyMutation(m)
	case ProgressMsg:
		if m.epoch == e.epoch && e.busy != 0 {
			p := m.Progress
			e.progress = &p
		}
	}
	return nil
}

// begin supersedes any outstanding load on ch and returns its generation
// and a context bounded by the operation timeout.
func (e *Engine) begin(ch channel) (uint64, context.Context) {
	if c := e.cancels[ch]; c != nil {
		c()
	}
	e.gens[ch]++
	ctx, cancel := e.opContext()
	e.cancels[ch] = cancel
	return e.gens[ch], ctx
}

// supersede invalidates any outstanding load on ch without starting one.
func (e *Engine) supersede(ch channel) {
	if c := e.cancels[ch]; c != nil {
		c()
		e.cancels[ch] = nil
	}
	e.gens[ch]++
}

// current reports whether gen is the latest on ch, logging drops.
func (e *Engine) current(ch channel, gen uint64) bool {
	if gen == e.gens[ch] {
		if c := e.cancels[ch]; c != nil {
			c()
			e.cancels[ch] = nil
		}
		return true
	}
	e.log.Debug("Dropping superseded result",
		zap.Stringer("channel", ch),
		zap.Uint64("generation", gen),
		zap.Uint64("current", e.gens[ch]))
	return false
}

func (e *Engine) opContext() (context.Context, context.CancelFunc) {
	if e.opts.OpTimeout > 0 {
		return context.WithTimeout(e.ctx, e.opts.OpTimeout)
	}
	return context.WithCancel(e.ctx)
}

func (e *Engine) loadBuckets(refresh bool) Cmd {
	if !refresh {
		if buckets, ok := e.cache.Buckets(); ok {
			e.supersede(chanBuckets)
			e.loading.Buckets = false
			e.setBuckets(buckets)
			return nil
		}
	}
	gen, ctx := e.begin(chanBuckets)
	e.loading.Buckets = true
	backend := e.backend
	return func() Msg {
		start := time.Now()
		buckets, err := backend.ListBuckets(ctx)
		return bucketsLoaded{gen: gen, buckets: buckets, err: err, elapsed: time.Since(start)}
	}
}

func (e *Engine) applyBuckets(m bucketsLoaded) Cmd {
	if !e.current(chanBuckets, m.gen) {
		return nil
	}
	e.loading.Buckets = false
	if m.err != nil {
		e.fail("list buckets", m.err, zap.Duration("elapsed", m.elapsed))
		return nil
	}
	e.log.Debug("Listed buckets",
		zap.Int("count", len(m.buckets)),
		zap.Duration("elapsed", m.elapsed),
		zap.Uint64("generation", m.gen))
	e.cache.PutBuckets(m.buckets)
	e.setBuckets(m.buckets)
	return nil
}

func (e *Engine) setBuckets(buckets []provider.Bucket) {
	e.buckets = buckets
	e.bucketCursor = clamp(e.bucketCursor, len(e.visibleBuckets()))
}

// listReq describes one object listing load.
type listReq struct {
	bucket string
	prefix string
	cursor string

	// more appends the page to the current listing.
	more bool
	// refresh bypasses the cache.
	refresh bool
	// focus moves focus to the object pane when the listing applies.
	focus bool
}

// loadObjects lists one page. A cache hit applies at once.
func (e *Engine) loadObjects(req listReq) Cmd {
	key := cache.Key{Bucket: req.bucket, Prefix: req.prefix, Cursor: req.cursor}
	if !req.refresh {
		if page, ok := e.cache.Page(key); ok {
			e.supersede(chanObjects)
			e.loading.Objects = false
			e.loading.Target = ""
			e.setObjects(req, page)
			return nil
		}
	}

	gen, ctx := e.begin(chanObjects)
	e.loading.Objects = true
	e.loading.Target = req.bucket + "/" + req.prefix
	backend := e.backend
	opts := provider.ListOptions{
		Prefix:    req.prefix,
		Delimiter: provider.DefaultDelimiter,
		Cursor:    req.cursor,
		PageSize:  e.opts.PageSize,
	}
	return func() Msg {
		start := time.Now()
		page, err := backend.ListObjects(ctx, req.bucket, opts)
		return objectsLoaded{gen: gen, req: req, page: page, err: err, elapsed: time.Since(start)}
	}
}

func (e *Engine) applyObjects(m objectsLoaded) Cmd {
	if !e.current(chanObjects, m.gen) {
		return nil
	}
	e.loading.Objects = false
	e.loading.Target = ""
	fields := []zap.Field{
		zap.String("bucket", m.req.bucket),
		zap.String("prefix", m.req.prefix),
		zap.Duration("elapsed", m.elapsed),
		zap.Uint64("generation", m.gen),
	}
	if m.err != nil {
		e.fail(fmt.Sprintf("list %s/%s", m.req.bucket, m.req.prefix), m.err, fields...)
		return nil
	}
	if m.page == nil {
		m.page = &provider.Page{}
	}
	e.log.Debug("Listed objects", append(fields, zap.Int("count", len(m.page.Items)))...)
	e.cache.PutPage(cache.Key{Bucket: m.req.bucket, Prefix: m.req.prefix, Cursor: m.req.cursor}, m.page)
	e.setObjects(m.req, m.page)
	return nil
}

// setObjects installs a listing. Cached pages are never modified: appending
// builds a new slice.
func (e *Engine) setObjects(req listReq, page *provider.Page) {
	if req.more && req.bucket == e.bucket && req.prefix == e.prefix {
		items := make([]provider.Object, 0, len(e.items)+len(page.Items))
		items = append(items, e.items...)
		items = append(items, page.Items...)
		e.items = items
		e.next = page.NextCursor
		return
	}

	moved := req.bucket != e.bucket || req.prefix != e.prefix
	e.bucket = req.bucket
	e.prefix = req.prefix
	e.items = page.Items
	e.next = page.NextCursor
	if moved {
		e.objectCursor = 0
		e.selection = map[string]struct{}{}
		if e.filterOn == PaneObjects {
			e.filter = nil
			if e.mode == ModeSearching {
				e.mode = e.searchReturn
			}
		}
	}
	if req.focus && (e.mode == ModeBuckets || e.mode == ModeObjects) {
		e.mode = ModeObjects
		e.focus = PaneObjects
	}
	e.objectCursor = clamp(e.objectCursor, len(e.visibleObjects()))
}

// fail converts an error into a notice. State is left as it was.
func (e *Engine) fail(what string, err error, fields ...zap.Field) {
	kind := provider.Classify(err)
	e.log.Warn("Operation failed",
		append(fields, zap.String("op", what), zap.String("kind", string(kind)), zap.Error(err))...)
	e.notice = &Notice{
		Level: LevelError,
		Text:  describe(what, kind, err),
		Kind:  kind,
		At:    e.opts.Clock(),
	}
}

func (e *Engine) info(level Level, format string, args ...any) {
	e.notice = &Notice{Level: level, Text: fmt.Sprintf(format, args...), At: e.opts.Clock()}
}

func describe(what string, kind provider.ErrorKind, err error) string {
	switch kind {
	case provider.KindTimeout:
		return fmt.Sprintf("%s: timed out", what)
	case provider.KindBucketNotFound:
		return fmt.Sprintf("%s: bucket not found", what)
	case provider.KindObjectNotFound:
		return fmt.Sprintf("%s: not found", what)
	case provider.KindPermission:
		return fmt.Sprintf("%s: permission denied", what)
	case provider.KindUnavailable:
		return fmt.Sprintf("%s: backend unavailable", what)
	case provider.KindUnsupported:
		return fmt.Sprintf("%s: not supported by this backend", what)
	}
	var be *transfer.BatchError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s: %d of %d failed", what, len(be.Failures), be.Total)
	}
	return fmt.Sprintf("%s: %v", what, err)
}

// DismissNotice clears the current notice.
func (e *Engine) DismissNotice() { e.notice = nil }

func (e *Engine) visibleBuckets() []provider.Bucket {
	if e.filter.Empty() || e.filterOn != PaneBuckets {
		return e.buckets
	}
	var out []provider.Bucket
	for _, b := range e.buckets {
		if e.filter.Match(provider.Object{Key: b.Name + "/", IsDirectory: true}) {
			out = append(out, b)
		}
	}
	return out
}

func (e *Engine) visibleObjects() []provider.Object {
	if e.filter.Empty() || e.filterOn != PaneObjects {
		return e.items
	}
	return e.filter.Apply(e.items)
}

// Snapshot returns an immutable copy of the state for rendering.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:    e.id,
		Account:      e.account,
		Accounts:     append([]string(nil), e.accounts...),
		Mode:         e.mode,
		Focus:        e.focus,
		Buckets:      append([]provider.Bucket(nil), e.visibleBuckets()...),
		BucketCursor: e.bucketCursor,
		Bucket:       e.bucket,
		Prefix:       e.prefix,
		PathStack:    pathStack(e.prefix),
		Objects:      append([]provider.Object(nil), e.visibleObjects()...),
		ObjectCursor: e.objectCursor,
		TotalObjects: len(e.items),
		HasMore:      e.next != "",
		Selection:    e.Selection(),
		FilterOn:     e.filterOn,
		Loading:      e.loading,
		Busy:         e.busy,
	}
	if e.backend != nil {
		s.Provider = e.backend.Kind()
	}
	if e.filter != nil {
		s.Filter = e.filter.Text()
	}
	if e.preview != nil {
		p := *e.preview
		s.Preview = &p
	}
	if e.confirm != nil {
		c := *e.confirm
		c.Targets = append([]provider.Object(nil), c.Targets...)
		s.Confirm = &c
	}
	if e.yanked != nil {
		y := *e.yanked
		s.Yanked = &y
	}
	if e.progress != nil {
		p := *e.progress
		s.Progress = &p
	}
	if e.notice != nil {
		n := *e.notice
		s.Notice = &n
	}
	return s
}

// Selection returns the selected keys in order.
func (e *Engine) Selection() []string {
	keys := make([]string, 0, len(e.selection))
	for k := range e.selection {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pathStack splits a prefix into its directory segments; joining the
// stack yields the prefix again.
func pathStack(prefix string) []string {
	if prefix == "" {
		return []string{}
	}
	parts := strings.SplitAfter(prefix, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
