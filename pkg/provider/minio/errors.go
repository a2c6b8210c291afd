package minio

import (
	"context"
	"errors"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// mapError translates a minio-go error into a *provider.ProviderError.
func mapError(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.KindMinIO,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	// Context cancellation / deadline keep their identity for Classify.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return wrapped
	}

	var resp miniogo.ErrorResponse
	if !errors.As(err, &resp) {
		wrapped.Err = errors.Join(provider.ErrProviderUnavailable, err)
		return wrapped
	}

	// S3 error codes first; they are more specific than the status.
	switch resp.Code {
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case "NoSuchKey", "NoSuchUpload", "NotFound":
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case "AccessDenied", "AllAccessDisabled", "XMinioAdminBucketQuotaExceeded", "QuotaExceeded":
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		wrapped.Err = provider.ErrInvalidCredentials
		return wrapped
	case "AuthorizationHeaderMalformed", "PermanentRedirect", "InvalidRegion":
		wrapped.Err = provider.ErrRegionMismatch
		return wrapped
	case "SlowDown", "XMinioServerNotInitialized":
		wrapped.Err = provider.ErrThrottled
		return wrapped
	case "NotImplemented", "MethodNotAllowed":
		wrapped.Err = provider.ErrUnsupported
		return wrapped
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		wrapped.Err = provider.ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		wrapped.Err = provider.ErrAccessDenied
	case http.StatusMovedPermanently:
		wrapped.Err = provider.ErrRegionMismatch
	case http.StatusTooManyRequests:
		wrapped.Err = provider.ErrThrottled
	case http.StatusNotImplemented:
		wrapped.Err = provider.ErrUnsupported
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			wrapped.Err = provider.ErrProviderUnavailable
		}
	}
	return wrapped
}

func isInvalidRange(err error) bool {
	var resp miniogo.ErrorResponse
	return errors.As(err, &resp) && (resp.Code == "InvalidRange" || resp.StatusCode == http.StatusRequestedRangeNotSatisfiable)
}
