package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/pkg/provider"
	"github.com/3leaps/nimbrowse/pkg/transfer"
)

// request enters Confirming for c unless another mutation is running.
func (e *Engine) request(c *Confirmation) {
	if e.busy != 0 {
		e.info(LevelWarn, "%s already in progress", e.busy)
		return
	}
	e.confirmReturn = e.mode
	e.confirm = c
	e.mode = ModeConfirming
}

// targets returns the selection, or the object under the cursor when
// nothing is selected.
func (e *Engine) targets() []provider.Object {
	if len(e.selection) > 0 {
		var out []provider.Object
		for _, obj := range e.items {
			if _, ok := e.selection[obj.Key]; ok {
				out = append(out, obj)
			}
		}
		return out
	}
	if obj, ok := e.CurrentObject(); ok {
		return []provider.Object{obj}
	}
	return nil
}

// RequestDelete asks to delete the selection or the current object.
func (e *Engine) RequestDelete() {
	if e.mode != ModeObjects {
		return
	}
	targets := e.targets()
	if len(targets) == 0 {
		return
	}
	e.request(&Confirmation{Action: ActionDelete, Bucket: e.bucket, Targets: targets})
}

// RequestDownload asks to download the selection or the current object
// into dest (the configured download directory when empty).
func (e *Engine) RequestDownload(dest string) {
	if e.mode != ModeObjects {
		return
	}
	targets := e.targets()
	if len(targets) == 0 {
		return
	}
	if dest == "" {
		dest = e.opts.DownloadDir
	}
	e.request(&Confirmation{Action: ActionDownload, Bucket: e.bucket, Targets: targets, Local: dest})
}

// RequestUpload asks to upload a local file or directory into the
// current prefix.
func (e *Engine) RequestUpload(local string) {
	if e.mode != ModeObjects || e.bucket == "" || local == "" {
		return
	}
	e.request(&Confirmation{Action: ActionUpload, Bucket: e.bucket, Prefix: e.prefix, Local: local})
}

// Yank remembers the current object as a copy source.
func (e *Engine) Yank() {
	if e.mode != ModeObjects {
		return
	}
	obj, ok := e.CurrentObject()
	if !ok {
		return
	}
	if obj.IsDirectory {
		e.info(LevelWarn, "cannot copy directory %s", obj.Key)
		return
	}
	e.yanked = &ObjectRef{Bucket: e.bucket, Object: obj}
	e.info(LevelInfo, "yanked %s/%s", e.bucket, obj.Key)
}

// Paste asks to copy the yanked object into the current prefix.
func (e *Engine) Paste() {
	if e.mode != ModeObjects || e.yanked == nil {
		return
	}
	dst := e.prefix + e.yanked.Object.Name()
	if e.yanked.Bucket == e.bucket && e.yanked.Object.Key == dst {
		e.info(LevelWarn, "source and destination are the same")
		return
	}
	src := *e.yanked
	e.request(&Confirmation{Action: ActionCopy, Bucket: e.bucket, Source: &src, DestKey: dst})
}

// Cancel leaves Confirming without side effects.
func (e *Engine) Cancel() {
	if e.mode != ModeConfirming {
		return
	}
	e.confirm = nil
	e.mode = e.confirmReturn
}

// Confirm runs the pending mutation and returns to the state the request
// was made from. On completion the affected listings are evicted from the
// cache and the current listing is reloaded.
func (e *Engine) Confirm() Cmd {
	if e.mode != ModeConfirming || e.confirm == nil {
		return nil
	}
	c := *e.confirm
	e.confirm = nil
	e.mode = e.confirmReturn
	e.busy = c.Action
	e.progress = nil

	epoch := e.epoch
	backend := e.backend
	cfg := e.opts.Transfer
	if sink := e.sink; sink != nil {
		cfg.Progress = func(p transfer.Progress) { sink(ProgressMsg{epoch: epoch, Progress: p}) }
	}

	// Single-object calls share the per-call timeout; tree walks are
	// bounded only by the session.
	ctx, cancel := e.ctx, context.CancelFunc(func() {})
	if c.Action == ActionCopy || (len(c.Targets) == 1 && !c.Targets[0].IsDirectory) {
		ctx, cancel = e.opContext()
	}

	return func() Msg {
		defer cancel()
		done := mutationDone{epoch: epoch, action: c.Action, label: label(c)}
		switch c.Action {
		case ActionDelete:
			done.summary, done.err = runEach(c.Targets, func(obj provider.Object) (*transfer.Summary, error) {
				return transfer.Delete(ctx, backend, c.Bucket, obj, cfg)
			})
			for _, t := range c.Targets {
				done.affected = append(done.affected, objectRef{bucket: c.Bucket, key: t.Key})
			}
			done.relist = true
		case ActionDownload:
			done.summary, done.err = runEach(c.Targets, func(obj provider.Object) (*transfer.Summary, error) {
				return transfer.Download(ctx, backend, c.Bucket, obj, c.Local, cfg)
			})
		case ActionUpload:
			done.summary, done.err = transfer.Upload(ctx, backend, c.Bucket, c.Prefix, c.Local, cfg)
			key := c.Prefix + filepath.Base(filepath.Clean(c.Local))
			done.affected = []objectRef{{bucket: c.Bucket, key: key}, {bucket: c.Bucket, key: key + "/"}}
			done.relist = true
		case ActionCopy:
			obj, err := transfer.CopyObject(ctx, backend, c.Source.Bucket, c.Source.Object.Key, c.Bucket, c.DestKey, c.Source.Object.Size)
			done.err = err
			if err == nil {
				done.summary = &transfer.Summary{Objects: 1, Bytes: obj.Size}
			}
			done.affected = []objectRef{{bucket: c.Bucket, key: c.DestKey}}
			done.relist = true
		}
		return done
	}
}

// runEach runs fn over targets, merging summaries and errors.
func runEach(targets []provider.Object, fn func(provider.Object) (*transfer.Summary, error)) (*transfer.Summary, error) {
	total := &transfer.Summary{}
	var errs []error
	for _, t := range targets {
		sum, err := fn(t)
		if sum != nil {
			total.Objects += sum.Objects
			total.Bytes += sum.Bytes
			total.Skipped += sum.Skipped
			total.Errors += sum.Errors
			total.Duration += sum.Duration
		}
		if err != nil {
			errs = append(errs, err)
			if errors.Is(err, context.Canceled) {
				break
			}
		}
	}
	return total, errors.Join(errs...)
}

func label(c Confirmation) string {
	switch {
	case c.Action == ActionCopy && c.Source != nil:
		return fmt.Sprintf("copy %s/%s", c.Source.Bucket, c.Source.Object.Key)
	case c.Action == ActionUpload:
		return "upload " + c.Local
	case len(c.Targets) == 1:
		return fmt.Sprintf("%s %s/%s", c.Action, c.Bucket, c.Targets[0].Key)
	default:
		return fmt.Sprintf("%s %d items", c.Action, len(c.Targets))
	}
}

func (e *Engine) applyMutation(m mutationDone) Cmd {
	if m.epoch != e.epoch {
		e.log.Debug("Mutation finished after account switch",
			zap.String("op", m.label), zap.Error(m.err))
		return nil
	}
	e.busy = 0
	e.progress = nil

	changed := m.summary != nil && m.summary.Objects > 0
	// A failed mutation that changed nothing leaves the cache alone.
	if changed || m.err == nil {
		for _, ref := range m.affected {
			e.cache.InvalidateObject(ref.bucket, ref.key)
		}
	}

	if m.err != nil {
		e.fail(m.label, m.err)
	} else {
		text := m.label + ": done"
		if m.summary != nil && m.summary.Objects > 0 {
			text = fmt.Sprintf("%s: %d object(s), %s", m.label, m.summary.Objects, humanize.IBytes(uint64(m.summary.Bytes)))
		}
		e.log.Info("Mutation completed", zap.String("op", m.label))
		e.info(LevelInfo, "%s", text)
	}

	if !m.relist || !(changed || m.err == nil) || e.bucket == "" {
		return nil
	}
	for _, t := range e.targetsGone(m) {
		delete(e.selection, t)
	}
	return e.loadObjects(listReq{bucket: e.bucket, prefix: e.prefix, refresh: true})
}

// targetsGone lists selected keys a delete removed.
func (e *Engine) targetsGone(m mutationDone) []string {
	if m.action != ActionDelete {
		return nil
	}
	var out []string
	for _, ref := range m.affected {
		if ref.bucket == e.bucket {
			out = append(out, ref.key)
		}
	}
	return out
}
