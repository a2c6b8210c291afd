package provider

import "context"

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small; callers degrade gracefully
// when a capability is missing or returns ErrUnsupported.

// BucketCopier can copy objects between buckets server-side.
//
// Implementations return ErrUnsupported when the particular pair of buckets
// cannot be served (e.g. different regions), so callers can fall back to
// get+put.
type BucketCopier interface {
	CopyObjectAcross(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (*Object, error)
}

// RegionLocator exposes the lazily resolved region of a bucket.
type RegionLocator interface {
	BucketRegion(ctx context.Context, bucket string) (string, error)
}

// RegionForgetter drops cached region resolutions, forcing a fresh probe.
// An empty bucket name forgets every entry.
type RegionForgetter interface {
	ForgetRegion(bucket string)
}
