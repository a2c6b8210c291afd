// Package transfer implements multi-object operations on top of a
// provider: copy with get+put fallback, recursive directory delete, and
// upload/download of files and directory trees with progress reporting.
package transfer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/3leaps/nimbrowse/pkg/output"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

// OnExists policies for targets that already exist.
const (
	OnExistsOverwrite = "overwrite"
	OnExistsSkip      = "skip"
	OnExistsFail      = "fail"
)

// Config tunes a multi-object operation.
type Config struct {
	// Concurrency is the number of parallel workers.
	Concurrency int

	// OnExists decides what happens when the target exists:
	// overwrite | skip | fail. Deletes ignore it.
	OnExists string

	// Writer receives one record per completed item and per failure.
	// Nil discards records.
	Writer output.Writer

	// Progress is called after every item. Calls are serialized.
	Progress func(Progress)
}

// DefaultConfig returns the defaults used by the browser.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		OnExists:    OnExistsOverwrite,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.OnExists == "" {
		c.OnExists = d.OnExists
	}
	if c.Writer == nil {
		c.Writer = output.Discard
	}
	return c
}

// Progress is a snapshot of a running operation.
type Progress struct {
	TotalFiles       int
	CompletedFiles   int
	CurrentFile      string
	TotalBytes       int64
	TransferredBytes int64
}

// Done reports whether every file has been processed.
func (p Progress) Done() bool {
	return p.CompletedFiles >= p.TotalFiles
}

// Summary aggregates the outcome of an operation.
type Summary struct {
	Objects  int64
	Bytes    int64
	Skipped  int64
	Errors   int64
	Duration time.Duration
}

// item is one unit of work. source and target are display names for
// records; size feeds progress totals.
type item struct {
	source string
	target string
	size   int64
}

// itemFunc performs one item. It returns the bytes moved, or skipped=true
// when the OnExists policy left the target alone.
type itemFunc func(ctx context.Context, it item) (n int64, skipped bool, err error)

// run executes items on a worker pool, reporting progress and records.
// Individual failures do not stop the run; they are collected into a
// *BatchError.
func run(ctx context.Context, cfg Config, op string, bucket string, items []item, fn itemFunc) (*Summary, error) {
	start := time.Now()

	var (
		objects, bytes, skipped, errCount atomic.Int64

		mu       sync.Mutex
		prog     = Progress{TotalFiles: len(items)}
		failures []Failure
	)
	for _, it := range items {
		prog.TotalBytes += it.size
	}
	report := func(it item, n int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		prog.CompletedFiles++
		prog.CurrentFile = it.source
		prog.TransferredBytes += n
		if err != nil {
			failures = append(failures, Failure{Key: it.source, Err: err})
		}
		if cfg.Progress != nil {
			cfg.Progress(prog)
		}
	}

	work := make(chan item)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range work {
				n, skip, err := fn(ctx, it)
				switch {
				case err != nil:
					errCount.Add(1)
					_ = cfg.Writer.WriteError(ctx, output.NewErrorRecord(err, bucket, it.source))
				case skip:
					skipped.Add(1)
				default:
					objects.Add(1)
					bytes.Add(n)
					_ = cfg.Writer.WriteTransfer(ctx, &output.TransferRecord{Op: op, Source: it.source, Target: it.target, Bytes: n})
				}
				report(it, n, err)
			}
		}()
	}

feed:
	for _, it := range items {
		select {
		case work <- it:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	sum := &Summary{
		Objects:  objects.Load(),
		Bytes:    bytes.Load(),
		Skipped:  skipped.Load(),
		Errors:   errCount.Load(),
		Duration: time.Since(start),
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if len(failures) > 0 {
		return sum, &BatchError{Op: op, Total: len(items), Failures: failures}
	}
	return sum, nil
}

// targetExists applies the OnExists policy for a remote target.
// It returns skip=true when the item should be left alone.
func targetExists(ctx context.Context, p provider.Provider, bucket, key, policy string) (skip bool, err error) {
	if policy == OnExistsOverwrite {
		return false, nil
	}
	_, err = p.StatObject(ctx, bucket, key)
	switch {
	case provider.IsNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	case policy == OnExistsFail:
		return false, &ExistsError{Target: bucket + "/" + key}
	default:
		return true, nil
	}
}
