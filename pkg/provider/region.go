package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultProbeTimeout bounds a region probe once it is detached from its
// callers.
const DefaultProbeTimeout = 30 * time.Second

// RegionProbe asks the backend where a bucket lives.
// It must return an error wrapping ErrBucketNotFound for absent buckets.
type RegionProbe func(ctx context.Context, bucket string) (string, error)

// RegionResolver caches bucket region resolutions for one backend instance.
//
// Lookups for different buckets proceed independently. Concurrent lookups for
// the same unresolved bucket share a single probe. Failed probes are never
// cached, so a bucket created later resolves without a restart.
//
// A probe shared by several callers runs detached from their contexts: a
// caller that gives up returns ctx.Err() without failing the others.
type RegionResolver struct {
	probe        RegionProbe
	probeTimeout time.Duration

	// fallback answers probes the credentials may not make.
	fallback    string
	hasFallback bool

	mu      sync.RWMutex
	regions map[string]string

	group singleflight.Group
}

// NewRegionResolver creates a resolver backed by probe.
func NewRegionResolver(probe RegionProbe) *RegionResolver {
	return &RegionResolver{
		probe:        probe,
		probeTimeout: DefaultProbeTimeout,
		regions:      make(map[string]string),
	}
}

// FallBackTo makes Resolve answer region when the probe is denied
// (ErrAccessDenied) or not implemented (ErrUnsupported). The guess is not
// cached; a wrong one surfaces as ErrRegionMismatch from the real call.
func (r *RegionResolver) FallBackTo(region string) *RegionResolver {
	r.fallback = region
	r.hasFallback = true
	return r
}

// Resolve returns the cached region for bucket, probing on first use.
func (r *RegionResolver) Resolve(ctx context.Context, bucket string) (string, error) {
	if region, ok := r.Cached(bucket); ok {
		return region, nil
	}

	ch := r.group.DoChan(bucket, func() (any, error) {
		if region, ok := r.Cached(bucket); ok {
			return region, nil
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.probeTimeout)
		defer cancel()
		region, err := r.probe(pctx, bucket)
		if err != nil {
			return "", err
		}
		r.Remember(bucket, region)
		return region, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if r.hasFallback && (IsAccessDenied(res.Err) || IsUnsupported(res.Err)) {
				return r.fallback, nil
			}
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Cached returns the cached region without probing.
func (r *RegionResolver) Cached(bucket string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	region, ok := r.regions[bucket]
	return region, ok
}

// Remember records a region learned elsewhere (e.g. from a bucket listing).
func (r *RegionResolver) Remember(bucket, region string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions[bucket] = region
}

// Forget evicts a cached resolution. An empty bucket evicts everything.
func (r *RegionResolver) Forget(bucket string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bucket == "" {
		r.regions = make(map[string]string)
		return
	}
	delete(r.regions, bucket)
}

// WithRegion resolves the bucket region and runs fn against it.
//
// If fn reports ErrRegionMismatch the cached entry is evicted, the region is
// resolved again and fn is retried exactly once; the second outcome is
// returned as-is.
func WithRegion[T any](ctx context.Context, r *RegionResolver, bucket string, fn func(region string) (T, error)) (T, error) {
	var zero T

	region, err := r.Resolve(ctx, bucket)
	if err != nil {
		return zero, err
	}

	out, err := fn(region)
	if err == nil || !IsRegionMismatch(err) {
		return out, err
	}

	r.Forget(bucket)
	region, rerr := r.Resolve(ctx, bucket)
	if rerr != nil {
		return zero, rerr
	}
	return fn(region)
}
