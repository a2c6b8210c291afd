// Package minio implements the provider interface on minio-go.
//
// It serves MinIO and any other S3-compatible endpoint addressed as
// host:port. Listing uses marker-style pagination (StartAfter) so cursors are
// plain keys and stay valid across client instances.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func init() {
	provider.Register(provider.KindMinIO, func(ctx context.Context, params provider.ConnectionParams) (provider.Provider, error) {
		return New(Config{
			Endpoint:  params.Endpoint,
			AccessKey: params.AccessKeyID,
			SecretKey: params.SecretAccessKey,
			UseSSL:    params.UseSSL,
			Region:    params.Region,
			Bucket:    params.Bucket,
			RateLimit: params.RateLimit,
		})
	})
}

// DefaultPageSize is the default number of entries per listing page.
const DefaultPageSize = 100

// Config configures a MinIO provider.
type Config struct {
	// Endpoint is host:port. A URL with an http/https scheme is accepted and
	// overrides UseSSL.
	Endpoint string

	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region is the home region used for account-level calls.
	Region string

	// Bucket pins the account to a single bucket.
	Bucket string

	// PageSize is the default listing page size. Zero uses DefaultPageSize.
	PageSize int

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: minio endpoint is required", provider.ErrConfiguration)
	}
	if (c.AccessKey != "") != (c.SecretKey != "") {
		return fmt.Errorf("%w: access key and secret key must be provided together", provider.ErrConfiguration)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", provider.ErrConfiguration)
	}
	return nil
}

// Provider implements provider.Provider on minio-go.
// It is safe for concurrent use by multiple goroutines.
type Provider struct {
	cfg       Config
	host      string
	secure    bool
	transport http.RoundTripper
	pageSize  int
	limiter   *rate.Limiter
	regions   *provider.RegionResolver

	mu      sync.Mutex
	clients map[string]*miniogo.Client
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.BucketCopier    = (*Provider)(nil)
	_ provider.RegionLocator   = (*Provider)(nil)
	_ provider.RegionForgetter = (*Provider)(nil)
)

// New creates a provider. No network calls are made.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.KindMinIO, Err: err}
	}

	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.KindMinIO, Err: err}
	}

	tr, err := miniogo.DefaultTransport(secure)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.KindMinIO, Err: err}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	p := &Provider{
		cfg:       cfg,
		host:      host,
		secure:    secure,
		transport: tr,
		pageSize:  pageSize,
		clients:   make(map[string]*miniogo.Client),
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	home := cfg.Region
	if home == "" {
		home = "us-east-1"
	}
	p.regions = provider.NewRegionResolver(p.probeRegion).FallBackTo(home)

	// Fail fast on malformed endpoints.
	if _, err := p.clientFor(cfg.Region); err != nil {
		return nil, err
	}
	return p, nil
}

// splitEndpoint accepts host:port or a URL and returns host:port and TLS mode.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("%w: invalid endpoint %q: %v", provider.ErrConfiguration, endpoint, err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("%w: unsupported endpoint scheme %q", provider.ErrConfiguration, u.Scheme)
	}
}

func (p *Provider) newClient(region string) (*miniogo.Client, error) {
	c, err := miniogo.New(p.host, &miniogo.Options{
		Creds:     credentials.NewStaticV4(p.cfg.AccessKey, p.cfg.SecretKey, ""),
		Secure:    p.secure,
		Region:    region,
		Transport: p.transport,
	})
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.KindMinIO,
			Err:      fmt.Errorf("%w: %v", provider.ErrConfiguration, err),
		}
	}
	return c, nil
}

// clientFor returns the client pinned to region, creating it on first use.
func (p *Provider) clientFor(region string) (*miniogo.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[region]; ok {
		return c, nil
	}
	c, err := p.newClient(region)
	if err != nil {
		return nil, err
	}
	p.clients[region] = c
	return c, nil
}

// Kind returns provider.KindMinIO.
func (p *Provider) Kind() provider.Kind { return provider.KindMinIO }

// Close is a no-op; the SDK client holds no persistent resources.
func (p *Provider) Close() error { return nil }

// BucketRegion returns the resolved region for bucket, probing on first use.
func (p *Provider) BucketRegion(ctx context.Context, bucket string) (string, error) {
	return p.regions.Resolve(ctx, bucket)
}

// ForgetRegion evicts a cached region. An empty bucket evicts all entries.
func (p *Provider) ForgetRegion(bucket string) {
	p.regions.Forget(bucket)
}

// probeRegion asks the server where bucket lives.
//
// minio-go keeps its own location cache per client and short-circuits the
// lookup when a region is configured, so each probe uses a fresh unpinned
// client sharing the provider's transport.
func (p *Provider) probeRegion(ctx context.Context, bucket string) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	c, err := p.newClient("")
	if err != nil {
		return "", err
	}
	region, err := c.GetBucketLocation(ctx, bucket)
	if err != nil {
		return "", mapError("GetBucketLocation", bucket, "", err)
	}
	if region == "" {
		region = p.cfg.Region
	}
	if region == "" {
		region = "us-east-1"
	}
	return region, nil
}

// ListBuckets returns all buckets accessible with the configured credentials.
func (p *Provider) ListBuckets(ctx context.Context) ([]provider.Bucket, error) {
	if p.cfg.Bucket != "" {
		region, err := p.regions.Resolve(ctx, p.cfg.Bucket)
		if err != nil {
			if provider.IsBucketNotFound(err) {
				return []provider.Bucket{}, nil
			}
			return nil, err
		}
		return []provider.Bucket{{Name: p.cfg.Bucket, Region: region}}, nil
	}

	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	c, err := p.clientFor(p.cfg.Region)
	if err != nil {
		return nil, err
	}
	raw, err := c.ListBuckets(ctx)
	if err != nil {
		return nil, mapError("ListBuckets", "", "", err)
	}

	buckets := make([]provider.Bucket, len(raw))
	for i, b := range raw {
		created := b.CreationDate
		buckets[i] = provider.Bucket{Name: b.Name, CreationTime: &created}
		if region, ok := p.regions.Cached(b.Name); ok {
			buckets[i].Region = region
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// ListObjects returns one page of entries under opts.Prefix.
//
// Each page is exactly one server response, so contents and common prefixes
// are complete up to the last key returned. The cursor is that key.
func (p *Provider) ListObjects(ctx context.Context, bucket string, opts provider.ListOptions) (*provider.Page, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = p.pageSize
	}

	return provider.WithRegion(ctx, p.regions, bucket, func(region string) (*provider.Page, error) {
		c, err := p.clientFor(region)
		if err != nil {
			return nil, err
		}

		page := &provider.Page{Items: []provider.Object{}}
		token := ""
		for {
			res, err := p.listOnce(ctx, c, bucket, opts.Prefix, opts.Cursor, token, opts.Delimiter, pageSize)
			if err != nil {
				return nil, mapError("ListObjects", bucket, opts.Prefix, err)
			}

			for _, obj := range res.Contents {
				if skipListed(obj.Key, opts.Prefix, opts.Cursor) {
					continue
				}
				page.Items = append(page.Items, toObject(obj))
			}
			for _, cp := range res.CommonPrefixes {
				if skipListed(cp.Prefix, opts.Prefix, opts.Cursor) {
					continue
				}
				page.Items = append(page.Items, provider.Object{Key: cp.Prefix, IsDirectory: true})
			}
			sort.SliceStable(page.Items, func(i, j int) bool { return page.Items[i].Key < page.Items[j].Key })

			if !res.IsTruncated {
				return page, nil
			}
			if len(page.Items) > 0 {
				page.NextCursor = page.Items[len(page.Items)-1].Key
				return page, nil
			}
			// Everything in this response was already covered by the cursor.
			token = res.NextContinuationToken
		}
	})
}

// listOnce issues a single ListObjectsV2 request. The Core call has no
// context parameter, so cancellation abandons the request instead of waiting.
func (p *Provider) listOnce(ctx context.Context, c *miniogo.Client, bucket, prefix, startAfter, token, delimiter string, maxKeys int) (miniogo.ListBucketV2Result, error) {
	if err := p.wait(ctx); err != nil {
		return miniogo.ListBucketV2Result{}, err
	}

	type result struct {
		res miniogo.ListBucketV2Result
		err error
	}
	done := make(chan result, 1)
	go func() {
		core := miniogo.Core{Client: c}
		res, err := core.ListObjectsV2(bucket, prefix, startAfter, token, delimiter, maxKeys)
		done <- result{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return miniogo.ListBucketV2Result{}, ctx.Err()
	case r := <-done:
		return r.res, r.err
	}
}

// skipListed drops the listed directory's own placeholder and keys the
// cursor already covered. A directory cursor also covers its descendants,
// which the server would otherwise regroup into the same common prefix.
func skipListed(key, prefix, cursor string) bool {
	if key == prefix && strings.HasSuffix(key, "/") {
		return true
	}
	if cursor == "" {
		return false
	}
	if key <= cursor {
		return true
	}
	return strings.HasSuffix(cursor, "/") && strings.HasPrefix(key, cursor)
}

func toObject(obj miniogo.ObjectInfo) provider.Object {
	o := provider.Object{
		Key:         obj.Key,
		Size:        obj.Size,
		ETag:        obj.ETag,
		ContentType: obj.ContentType,
		IsDirectory: strings.HasSuffix(obj.Key, "/") && obj.Size == 0,
	}
	if !obj.LastModified.IsZero() {
		lm := obj.LastModified
		o.LastModified = &lm
	}
	return o
}

// GetObject returns object content, optionally restricted to a byte range.
func (p *Provider) GetObject(ctx context.Context, bucket, key string, opts provider.GetOptions) ([]byte, error) {
	return provider.WithRegion(ctx, p.regions, bucket, func(region string) ([]byte, error) {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		c, err := p.clientFor(region)
		if err != nil {
			return nil, err
		}

		getOpts := miniogo.GetObjectOptions{}
		if opts.Ranged() {
			end := int64(0)
			if opts.Length > 0 {
				end = opts.Offset + opts.Length - 1
			}
			if err := getOpts.SetRange(opts.Offset, end); err != nil {
				return nil, mapError("GetObject", bucket, key, err)
			}
		}

		obj, err := c.GetObject(ctx, bucket, key, getOpts)
		if err != nil {
			return nil, mapError("GetObject", bucket, key, err)
		}
		defer obj.Close()

		data, err := io.ReadAll(obj)
		if err != nil {
			if isInvalidRange(err) {
				return []byte{}, nil
			}
			return nil, mapError("GetObject", bucket, key, err)
		}
		return data, nil
	})
}

// PutObject creates or overwrites an object. A key ending in "/" creates a
// directory placeholder.
func (p *Provider) PutObject(ctx context.Context, bucket, key string, data []byte) (*provider.Object, error) {
	return provider.WithRegion(ctx, p.regions, bucket, func(region string) (*provider.Object, error) {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		c, err := p.clientFor(region)
		if err != nil {
			return nil, err
		}

		contentType := mime.TypeByExtension(path.Ext(key))
		info, err := c.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, mapError("PutObject", bucket, key, err)
		}

		lm := info.LastModified
		if lm.IsZero() {
			lm = time.Now().UTC()
		}
		return &provider.Object{
			Key:          key,
			Size:         int64(len(data)),
			LastModified: &lm,
			IsDirectory:  strings.HasSuffix(key, "/") && len(data) == 0,
			ETag:         info.ETag,
			ContentType:  contentType,
		}, nil
	})
}

// DeleteObject removes an object. Removing an absent key succeeds.
func (p *Provider) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := provider.WithRegion(ctx, p.regions, bucket, func(region string) (struct{}, error) {
		if err := p.wait(ctx); err != nil {
			return struct{}{}, err
		}
		c, err := p.clientFor(region)
		if err != nil {
			return struct{}{}, err
		}
		err = c.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{})
		if err != nil {
			merr := mapError("DeleteObject", bucket, key, err)
			if provider.IsNotFound(merr) && !provider.IsBucketNotFound(merr) {
				return struct{}{}, nil
			}
			return struct{}{}, merr
		}
		return struct{}{}, nil
	})
	return err
}

// CopyObject copies srcKey to dstKey within bucket, preserving metadata.
func (p *Provider) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) (*provider.Object, error) {
	return p.CopyObjectAcross(ctx, bucket, srcKey, bucket, dstKey)
}

// CopyObjectAcross copies an object between buckets with a server-side copy.
func (p *Provider) CopyObjectAcross(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (*provider.Object, error) {
	if strings.HasSuffix(srcKey, "/") {
		return nil, &provider.ProviderError{Op: "CopyObject", Provider: provider.KindMinIO, Bucket: srcBucket, Key: srcKey, Err: provider.ErrUnsupported}
	}
	if _, err := p.regions.Resolve(ctx, srcBucket); err != nil {
		return nil, err
	}

	return provider.WithRegion(ctx, p.regions, dstBucket, func(region string) (*provider.Object, error) {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		c, err := p.clientFor(region)
		if err != nil {
			return nil, err
		}
		_, err = c.CopyObject(ctx,
			miniogo.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
			miniogo.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
		)
		if err != nil {
			return nil, mapError("CopyObject", srcBucket, srcKey, err)
		}
		return p.stat(ctx, c, dstBucket, dstKey)
	})
}

// StatObject returns metadata without downloading content.
// A key with no object but with children is reported as a directory.
func (p *Provider) StatObject(ctx context.Context, bucket, key string) (*provider.Object, error) {
	return provider.WithRegion(ctx, p.regions, bucket, func(region string) (*provider.Object, error) {
		c, err := p.clientFor(region)
		if err != nil {
			return nil, err
		}
		obj, err := p.stat(ctx, c, bucket, key)
		if err == nil || !provider.IsNotFound(err) || provider.IsBucketNotFound(err) {
			return obj, err
		}

		dir := strings.TrimSuffix(key, "/") + "/"
		listCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		for child := range c.ListObjects(listCtx, bucket, miniogo.ListObjectsOptions{Prefix: dir, Recursive: true, MaxKeys: 1}) {
			if child.Err != nil {
				return nil, mapError("StatObject", bucket, key, child.Err)
			}
			return &provider.Object{Key: dir, IsDirectory: true}, nil
		}
		return nil, err
	})
}

func (p *Provider) stat(ctx context.Context, c *miniogo.Client, bucket, key string) (*provider.Object, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	info, err := c.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError("StatObject", bucket, key, err)
	}
	obj := toObject(info)
	obj.Key = key
	return &obj, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
