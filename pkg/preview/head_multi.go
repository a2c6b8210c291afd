package preview

import (
	"context"
	"sync"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// HeadResult is the outcome of one HeadBytesMulti read.
type HeadResult struct {
	Key  string
	Meta *provider.Object
	Data []byte
	Err  error
}

// HeadBytesMulti reads the first n bytes from many objects in parallel.
//
// Results are sent on the returned channel as they complete.
func HeadBytesMulti(ctx context.Context, p provider.Provider, bucket string, keys []string, n int64, parallel int) <-chan HeadResult {
	if parallel <= 0 {
		parallel = 4
	}

	out := make(chan HeadResult, parallel)
	work := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				data, meta, err := HeadBytes(ctx, p, bucket, key, n)
				select {
				case out <- HeadResult{Key: key, Meta: meta, Data: data, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, k := range keys {
			select {
			case work <- k:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
