package provider

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions or exhausted quota.
	ErrAccessDenied = errors.New("permission denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates a transient connectivity failure.
	ErrProviderUnavailable = errors.New("backend unavailable")

	// ErrThrottled indicates the request was rate limited by the provider.
	ErrThrottled = errors.New("request throttled")

	// ErrUnsupported indicates the backend does not implement an optional operation.
	ErrUnsupported = errors.New("operation not supported")

	// ErrConfiguration indicates invalid account or connection parameters.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrRegionMismatch indicates a request was sent to the wrong regional endpoint.
	ErrRegionMismatch = errors.New("bucket region mismatch")
)

// ProviderError wraps provider-specific errors with context.
type ProviderError struct {
	// Op is the operation that failed (e.g., "ListObjects", "StatObject").
	Op string

	// Provider is the backend kind (e.g., "s3").
	Provider Kind

	// Bucket is the bucket name, if applicable.
	Bucket string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions
// or rejected credentials.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrInvalidCredentials)
}

// IsBucketNotFound returns true if the error indicates the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsProviderUnavailable returns true if the error indicates a transient
// backend failure (connectivity or throttling).
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrThrottled)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnsupported returns true if the backend declined an optional operation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsConfiguration returns true if the error stems from invalid configuration.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsRegionMismatch returns true if a cached bucket region turned out stale.
func IsRegionMismatch(err error) bool {
	return errors.Is(err, ErrRegionMismatch)
}

// ErrorKind is the coarse classification used for user-facing notices.
type ErrorKind string

const (
	KindBucketNotFound ErrorKind = "BUCKET_NOT_FOUND"
	KindObjectNotFound ErrorKind = "NOT_FOUND"
	KindPermission     ErrorKind = "PERMISSION_DENIED"
	KindUnavailable    ErrorKind = "BACKEND_UNAVAILABLE"
	KindUnsupported    ErrorKind = "UNSUPPORTED"
	KindConfiguration  ErrorKind = "CONFIGURATION"
	KindTimeout        ErrorKind = "TIMEOUT"
	KindCanceled       ErrorKind = "CANCELED"
	KindInternal       ErrorKind = "INTERNAL"
)

// Classify maps an error onto the taxonomy.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsBucketNotFound(err):
		return KindBucketNotFound
	case IsNotFound(err):
		return KindObjectNotFound
	case IsAccessDenied(err):
		return KindPermission
	case IsUnsupported(err):
		return KindUnsupported
	case IsConfiguration(err):
		return KindConfiguration
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case IsProviderUnavailable(err), IsRegionMismatch(err):
		return KindUnavailable
	default:
		return KindInternal
	}
}
