package s3

import (
	"bytes"
	"context"
	"errors"
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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func init() {
	provider.Register(provider.KindS3, func(ctx context.Context, params provider.ConnectionParams) (provider.Provider, error) {
		return New(ctx, Config{
			Bucket:          params.Bucket,
			Region:          params.Region,
			Endpoint:        params.Endpoint,
			Profile:         params.Profile,
			AccessKeyID:     params.AccessKeyID,
			SecretAccessKey: params.SecretAccessKey,
			ForcePathStyle:  params.ForcePathStyle,
			RateLimit:       params.RateLimit,
		})
	})
}

// Provider implements provider.Provider for AWS S3 and S3-compatible storage.
//
// Every bucket-scoped call runs against a client bound to that bucket's
// region. Regions are resolved lazily through provider.RegionResolver.
type Provider struct {
	cfg      Config
	awsCfg   aws.Config
	home     *s3.Client
	pageSize int
	limiter  *rate.Limiter
	regions  *provider.RegionResolver

	mu      sync.Mutex
	clients map[string]*s3.Client
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.BucketCopier    = (*Provider)(nil)
	_ provider.RegionLocator   = (*Provider)(nil)
	_ provider.RegionForgetter = (*Provider)(nil)
)

// New creates a new S3 provider with the given configuration.
//
// The provider uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config. No network calls are made.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.KindS3, Err: err}
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.KindS3,
			Err:      fmt.Errorf("%w: %v", provider.ErrConfiguration, err),
		}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	p := &Provider{
		cfg:      cfg,
		awsCfg:   awsCfg,
		pageSize: pageSize,
		clients:  make(map[string]*s3.Client),
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	p.home = p.clientFor(awsCfg.Region)
	p.regions = provider.NewRegionResolver(p.probeRegion).FallBackTo(awsCfg.Region)
	return p, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)
	return awsCfg, nil
}

// clientFor returns the client bound to region, creating it on first use.
func (p *Provider) clientFor(region string) *s3.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[region]; ok {
		return c
	}
	c := s3.NewFromConfig(p.awsCfg, func(o *s3.Options) {
		if region != "" {
			o.Region = region
		}
		if p.cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
		if p.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.Endpoint)
		}
	})
	p.clients[region] = c
	return c
}

// Kind returns provider.KindS3.
func (p *Provider) Kind() provider.Kind { return provider.KindS3 }

// Close releases any resources held by the provider.
// The S3 client doesn't require explicit cleanup.
func (p *Provider) Close() error { return nil }

// BucketRegion returns the resolved region for bucket, probing on first use.
func (p *Provider) BucketRegion(ctx context.Context, bucket string) (string, error) {
	return p.regions.Resolve(ctx, bucket)
}

// ForgetRegion evicts a cached region. An empty bucket evicts all entries.
func (p *Provider) ForgetRegion(bucket string) {
	p.regions.Forget(bucket)
}

// probeRegion asks the home endpoint where bucket lives.
//
// Credentials without s3:GetBucketLocation fall back to HeadBucket, whose
// response names the region even when it is a redirect or a denial.
func (p *Provider) probeRegion(ctx context.Context, bucket string) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	out, err := p.home.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err == nil {
		return normalizeLocation(string(out.LocationConstraint), p.awsCfg.Region, p.cfg.Endpoint), nil
	}
	lerr := p.wrapError("GetBucketLocation", bucket, "", err)
	if !provider.IsAccessDenied(lerr) && !provider.IsUnsupported(lerr) {
		return "", lerr
	}

	region, herr := p.headRegion(ctx, bucket)
	switch {
	case herr == nil:
		return region, nil
	case provider.IsBucketNotFound(herr):
		return "", herr
	}
	return "", lerr
}

// headRegion learns the bucket region from a HeadBucket call.
func (p *Provider) headRegion(ctx context.Context, bucket string) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	out, err := p.home.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		if r := aws.ToString(out.BucketRegion); r != "" {
			return r, nil
		}
		return p.awsCfg.Region, nil
	}
	if r := bucketRegionHeader(err); r != "" {
		return r, nil
	}
	werr := p.wrapError("HeadBucket", bucket, "", err)
	if provider.IsNotFound(werr) {
		// HEAD responses carry no error code; 404 on a bucket means it is absent.
		return "", &provider.ProviderError{Op: "HeadBucket", Provider: provider.KindS3, Bucket: bucket, Err: provider.ErrBucketNotFound}
	}
	return "", werr
}

// bucketRegionHeader returns the x-amz-bucket-region header of a failed response.
func bucketRegionHeader(err error) string {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) || respErr.Response == nil || respErr.Response.Response == nil {
		return ""
	}
	return respErr.Response.Header.Get("X-Amz-Bucket-Region")
}

// normalizeLocation maps a LocationConstraint value to a region name.
func normalizeLocation(constraint, home, endpoint string) string {
	switch constraint {
	case "":
		// S3-compatible stores commonly report nothing; keep the home region.
		if endpoint != "" {
			return home
		}
		return DefaultAWSRegion
	case "EU":
		return "eu-west-1"
	default:
		return constraint
	}
}

// ListBuckets returns every bucket visible to the credentials.
//
// A pinned bucket (Config.Bucket) is returned alone after its region probe
// succeeds; if the probe reports the bucket absent the result is empty.
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

	var buckets []provider.Bucket
	var token *string
	for {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		out, err := p.home.ListBuckets(ctx, &s3.ListBucketsInput{ContinuationToken: token})
		if err != nil {
			return nil, p.wrapError("ListBuckets", "", "", err)
		}
		for _, b := range out.Buckets {
			name := aws.ToString(b.Name)
			region := aws.ToString(b.BucketRegion)
			if region != "" {
				p.regions.Remember(name, region)
			} else if cached, ok := p.regions.Cached(name); ok {
				region = cached
			}
			buckets = append(buckets, provider.Bucket{
				Name:         name,
				CreationTime: b.CreationDate,
				Region:       region,
			})
		}
		if aws.ToString(out.ContinuationToken) == "" {
			break
		}
		token = out.ContinuationToken
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// ListObjects returns a page of objects and directory entries under opts.Prefix.
//
// The cursor is the S3 continuation token and is opaque to callers.
func (p *Provider) ListObjects(ctx context.Context, bucket string, opts provider.ListOptions) (*provider.Page, error) {
	maxKeys := clampMaxKeys(opts.PageSize, p.pageSize)

	return provider.WithRegion(ctx, p.regions, bucket, func(region string) (*provider.Page, error) {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		input := &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			MaxKeys: aws.Int32(int32(maxKeys)),
		}
		if opts.Prefix != "" {
			input.Prefix = aws.String(opts.Prefix)
		}
		if opts.Delimiter != "" {
			input.Delimiter = aws.String(opts.Delimiter)
		}
		if opts.Cursor != "" {
			input.ContinuationToken = aws.String(opts.Cursor)
		}

		out, err := p.clientFor(region).ListObjectsV2(ctx, input)
		if err != nil {
			return nil, p.wrapError("ListObjects", bucket, opts.Prefix, err)
		}

		items := make([]provider.Object, 0, len(out.Contents)+len(out.CommonPrefixes))
		for _, cp := range out.CommonPrefixes {
			items = append(items, provider.Object{Key: aws.ToString(cp.Prefix), IsDirectory: true})
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			// The placeholder for the listed directory itself is not an entry.
			if key == opts.Prefix && strings.HasSuffix(key, "/") {
				continue
			}
			items = append(items, provider.Object{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
				IsDirectory:  isPlaceholder(key, aws.ToInt64(obj.Size)),
				ETag:         cleanETag(aws.ToString(obj.ETag)),
			})
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Key < items[j].Key })

		page := &provider.Page{Items: items}
		if aws.ToBool(out.IsTruncated) {
			page.NextCursor = aws.ToString(out.NextContinuationToken)
		}
		return page, nil
	})
}

// GetObject returns object content, optionally restricted to a byte range.
func (p *Provider) GetObject(ctx context.Context, bucket, key string, opts provider.GetOptions) ([]byte, error) {
	return provider.WithRegion(ctx, p.regions, bucket, func(region string) ([]byte, error) {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		input := &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}
		if r := rangeHeader(opts); r != "" {
			input.Range = aws.String(r)
		}

		out, err := p.clientFor(region).GetObject(ctx, input)
		if err != nil {
			if isInvalidRange(err) {
				return []byte{}, nil
			}
			return nil, p.wrapError("GetObject", bucket, key, err)
		}
		defer out.Body.Close()

		data, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, p.wrapError("GetObject", bucket, key, err)
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
		size := int64(len(data))
		input := &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(size),
		}
		if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
			input.ContentType = aws.String(ct)
		}

		out, err := p.clientFor(region).PutObject(ctx, input)
		if err != nil {
			return nil, p.wrapError("PutObject", bucket, key, err)
		}
		now := time.Now().UTC()
		return &provider.Object{
			Key:          key,
			Size:         size,
			LastModified: &now,
			IsDirectory:  isPlaceholder(key, size),
			ETag:         cleanETag(aws.ToString(out.ETag)),
			ContentType:  aws.ToString(input.ContentType),
		}, nil
	})
}

// DeleteObject deletes an object. Deleting an absent key succeeds.
func (p *Provider) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := provider.WithRegion(ctx, p.regions, bucket, func(region string) (struct{}, error) {
		if err := p.wait(ctx); err != nil {
			return struct{}{}, err
		}
		_, err := p.clientFor(region).DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
		if err != nil {
			werr := p.wrapError("DeleteObject", bucket, key, err)
			if provider.IsNotFound(werr) && !provider.IsBucketNotFound(werr) {
				return struct{}{}, nil
			}
			return struct{}{}, werr
		}
		return struct{}{}, nil
	})
	return err
}

// CopyObject copies srcKey to dstKey within bucket, preserving metadata.
func (p *Provider) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) (*provider.Object, error) {
	return p.CopyObjectAcross(ctx, bucket, srcKey, bucket, dstKey)
}

// CopyObjectAcross copies an object between buckets using server-side copy.
// The request is sent to the destination bucket's region.
func (p *Provider) CopyObjectAcross(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (*provider.Object, error) {
	if strings.HasSuffix(srcKey, "/") {
		return nil, &provider.ProviderError{Op: "CopyObject", Provider: provider.KindS3, Bucket: srcBucket, Key: srcKey, Err: provider.ErrUnsupported}
	}
	if _, err := p.regions.Resolve(ctx, srcBucket); err != nil {
		return nil, err
	}

	return provider.WithRegion(ctx, p.regions, dstBucket, func(region string) (*provider.Object, error) {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		out, err := p.clientFor(region).CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(dstBucket),
			Key:               aws.String(dstKey),
			CopySource:        aws.String(copySource(srcBucket, srcKey)),
			MetadataDirective: types.MetadataDirectiveCopy,
		})
		if err != nil {
			return nil, p.wrapError("CopyObject", srcBucket, srcKey, err)
		}
		obj, err := p.headObject(ctx, region, dstBucket, dstKey)
		if err != nil {
			return nil, err
		}
		if out.CopyObjectResult != nil && out.CopyObjectResult.LastModified != nil {
			obj.LastModified = out.CopyObjectResult.LastModified
		}
		return obj, nil
	})
}

// StatObject returns metadata without fetching content.
//
// A key with no object but with children is reported as a directory.
func (p *Provider) StatObject(ctx context.Context, bucket, key string) (*provider.Object, error) {
	return provider.WithRegion(ctx, p.regions, bucket, func(region string) (*provider.Object, error) {
		obj, err := p.headObject(ctx, region, bucket, key)
		if err == nil || !provider.IsNotFound(err) || provider.IsBucketNotFound(err) {
			return obj, err
		}

		dir := strings.TrimSuffix(key, "/") + "/"
		if werr := p.wait(ctx); werr != nil {
			return nil, werr
		}
		out, lerr := p.clientFor(region).ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(dir),
			MaxKeys: aws.Int32(1),
		})
		if lerr != nil {
			return nil, p.wrapError("StatObject", bucket, key, lerr)
		}
		if aws.ToInt32(out.KeyCount) == 0 && len(out.Contents) == 0 {
			return nil, err
		}
		return &provider.Object{Key: dir, IsDirectory: true}, nil
	})
}

func (p *Provider) headObject(ctx context.Context, region, bucket, key string) (*provider.Object, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	out, err := p.clientFor(region).HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.wrapError("StatObject", bucket, key, err)
	}
	size := aws.ToInt64(out.ContentLength)
	return &provider.Object{
		Key:          key,
		Size:         size,
		LastModified: out.LastModified,
		IsDirectory:  isPlaceholder(key, size),
		ETag:         cleanETag(aws.ToString(out.ETag)),
		ContentType:  aws.ToString(out.ContentType),
	}, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.KindS3,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapped
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrBucketNotFound
		case "AccessDenied", "Forbidden", "AllAccessDisabled", "QuotaExceeded":
			wrapped.Err = provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = provider.ErrProviderUnavailable
		case "PermanentRedirect", "AuthorizationHeaderMalformed", "IllegalLocationConstraintException", "MovedPermanently":
			wrapped.Err = provider.ErrRegionMismatch
		case "NotImplemented", "MethodNotAllowed":
			wrapped.Err = provider.ErrUnsupported
		default:
			wrapped.Err = statusSentinel(err, err)
		}
		return wrapped
	}

	if s := statusSentinel(err, nil); s != nil {
		wrapped.Err = s
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = provider.ErrBucketNotFound
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "NotFound") || strings.Contains(errMsg, "404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(errMsg, "PermanentRedirect") || strings.Contains(errMsg, "301"):
		wrapped.Err = provider.ErrRegionMismatch
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = provider.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = provider.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = provider.ErrProviderUnavailable
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		wrapped.Err = provider.ErrProviderUnavailable
	}

	return wrapped
}

// statusSentinel maps an HTTP status carried by err to a sentinel, or returns fallback.
func statusSentinel(err, fallback error) error {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) {
		return fallback
	}
	switch respErr.HTTPStatusCode() {
	case http.StatusMovedPermanently, http.StatusTemporaryRedirect:
		return provider.ErrRegionMismatch
	case http.StatusNotFound:
		return provider.ErrNotFound
	case http.StatusForbidden:
		return provider.ErrAccessDenied
	case http.StatusTooManyRequests:
		return provider.ErrThrottled
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return provider.ErrProviderUnavailable
	}
	return fallback
}

func isInvalidRange(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusRequestedRangeNotSatisfiable
}

// rangeHeader renders GetOptions as an HTTP Range header value.
func rangeHeader(opts provider.GetOptions) string {
	if !opts.Ranged() {
		return ""
	}
	if opts.Length > 0 {
		return fmt.Sprintf("bytes=%d-%d", opts.Offset, opts.Offset+opts.Length-1)
	}
	return fmt.Sprintf("bytes=%d-", opts.Offset)
}

// copySource builds the URL-escaped CopySource value "bucket/key".
func copySource(bucket, key string) string {
	return bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

// isPlaceholder reports whether a key is a zero-byte directory marker.
func isPlaceholder(key string, size int64) bool {
	return strings.HasSuffix(key, "/") && size == 0
}

// cleanETag removes surrounding quotes from an ETag value.
// S3 returns ETags with quotes, e.g., "d41d8cd98f00b204e9800998ecf8427e".
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// clampMaxKeys applies defaults and limits to maxKeys values.
// If requested is <= 0, uses providerDefault. Result is clamped to MaxAllowedKeys.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// resolveRegion determines the home region after SDK config loading.
//
// The sdkRegion parameter already incorporates an explicit cfgRegion or
// env/profile resolution. This function only applies the fallback default:
// us-east-1 for AWS S3, nothing for S3-compatible endpoints.
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return cfgRegion
}
