package transfer

import (
	"context"
	"strings"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// CopyObject copies one object, possibly across buckets.
//
// Same-bucket copies use the provider's CopyObject. Cross-bucket copies
// try the optional BucketCopier capability and fall back to get+put when
// it is missing or returns ErrUnsupported.
//
// expectedSize is optional; when > 0 it is compared against the fetched
// content on the get+put path to detect stale listing metadata.
func CopyObject(ctx context.Context, p provider.Provider, srcBucket, srcKey, dstBucket, dstKey string, expectedSize int64) (*provider.Object, error) {
	if strings.HasSuffix(srcKey, "/") {
		return nil, &provider.ProviderError{
			Op: "CopyObject", Provider: p.Kind(), Bucket: srcBucket, Key: srcKey,
			Err: provider.ErrUnsupported,
		}
	}
	if srcBucket == dstBucket {
		return p.CopyObject(ctx, srcBucket, srcKey, dstKey)
	}
	if c, ok := p.(provider.BucketCopier); ok {
		obj, err := c.CopyObjectAcross(ctx, srcBucket, srcKey, dstBucket, dstKey)
		if !provider.IsUnsupported(err) {
			return obj, err
		}
	}
	return getPut(ctx, p, srcBucket, srcKey, dstBucket, dstKey, expectedSize)
}

func getPut(ctx context.Context, p provider.Provider, srcBucket, srcKey, dstBucket, dstKey string, expectedSize int64) (*provider.Object, error) {
	data, err := p.GetObject(ctx, srcBucket, srcKey, provider.GetOptions{})
	if err != nil {
		return nil, err
	}
	if expectedSize > 0 && int64(len(data)) != expectedSize {
		return nil, &SizeMismatchError{Key: srcKey, Expected: expectedSize, Got: int64(len(data))}
	}
	return p.PutObject(ctx, dstBucket, dstKey, data)
}

// ListAll enumerates every key under prefix recursively, following
// cursors until the listing is exhausted. Directory placeholders are
// included as directory entries.
func ListAll(ctx context.Context, p provider.Provider, bucket, prefix string) ([]provider.Object, error) {
	var (
		all    []provider.Object
		cursor string
	)
	for {
		page, err := p.ListObjects(ctx, bucket, provider.ListOptions{
			Prefix: prefix,
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.Exhausted() {
			return all, nil
		}
		cursor = page.NextCursor
	}
}
