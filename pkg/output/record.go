// Package output provides JSONL output for non-interactive commands.
//
// Output is structured as typed record envelopes containing buckets,
// objects, transfers, errors and summaries. Each line is a self-contained
// JSON object that can be parsed independently.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: nimbrowse.<type>.v<version>
const (
	// TypeBucket identifies bucket listing records.
	TypeBucket = "nimbrowse.bucket.v1"

	// TypeObject identifies object listing records.
	TypeObject = "nimbrowse.object.v1"

	// TypeTransfer identifies completed upload/download/copy/delete records.
	TypeTransfer = "nimbrowse.transfer.v1"

	// TypeError identifies error records.
	TypeError = "nimbrowse.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "nimbrowse.summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "nimbrowse.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID correlates all records of one command invocation.
	RunID string `json:"run_id"`

	// Account is the configured account name.
	Account string `json:"account"`

	// Provider identifies the backend kind (e.g., "s3", "filesystem").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// BucketRecord is the data payload for bucket listings.
type BucketRecord struct {
	Name         string     `json:"name"`
	Region       string     `json:"region,omitempty"`
	CreationTime *time.Time `json:"creation_time,omitempty"`
}

// ObjectRecord is the data payload for object listings and stat.
type ObjectRecord struct {
	// Bucket holds the object.
	Bucket string `json:"bucket"`

	// Key is the full object key. Directory keys end with "/".
	Key string `json:"key"`

	// Size is the object size in bytes (0 for directories).
	Size int64 `json:"size"`

	// ETag is the entity tag, if the backend reports one.
	ETag string `json:"etag,omitempty"`

	// LastModified is when the object was last modified, if known.
	LastModified *time.Time `json:"last_modified,omitempty"`

	// ContentType is the MIME type of the object, if known.
	ContentType string `json:"content_type,omitempty"`

	// IsDirectory marks directory entries.
	IsDirectory bool `json:"is_dir,omitempty"`
}

// NewBucketRecord converts a provider bucket.
func NewBucketRecord(b provider.Bucket) *BucketRecord {
	return &BucketRecord{Name: b.Name, Region: b.Region, CreationTime: b.CreationTime}
}

// NewObjectRecord converts a provider object.
func NewObjectRecord(bucket string, obj provider.Object) *ObjectRecord {
	return &ObjectRecord{
		Bucket:       bucket,
		Key:          obj.Key,
		Size:         obj.Size,
		ETag:         obj.ETag,
		LastModified: obj.LastModified,
		ContentType:  obj.ContentType,
		IsDirectory:  obj.IsDirectory,
	}
}

// Transfer operations.
const (
	OpUpload   = "upload"
	OpDownload = "download"
	OpCopy     = "copy"
	OpDelete   = "delete"
)

// TransferRecord is the data payload for one completed object operation.
type TransferRecord struct {
	Op     string `json:"op"`
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Bytes  int64  `json:"bytes"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the whole command,
// allowing partial results when some operations fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Bucket is the bucket involved, if applicable.
	Bucket string `json:"bucket,omitempty"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Prefix is the prefix being listed when the error occurred.
	Prefix string `json:"prefix,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied        = "ACCESS_DENIED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeBucketNotFound      = "BUCKET_NOT_FOUND"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeThrottled           = "THROTTLED"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeUnsupported         = "UNSUPPORTED"
	ErrCodeConfiguration       = "CONFIGURATION"
	ErrCodeInternal            = "INTERNAL"
)

// ErrorCode maps err onto an ErrorRecord code.
func ErrorCode(err error) string {
	switch {
	case provider.IsBucketNotFound(err):
		return ErrCodeBucketNotFound
	case provider.IsNotFound(err):
		return ErrCodeNotFound
	case provider.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsProviderUnavailable(err), provider.IsRegionMismatch(err):
		return ErrCodeProviderUnavailable
	case provider.IsUnsupported(err):
		return ErrCodeUnsupported
	case provider.IsConfiguration(err):
		return ErrCodeConfiguration
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeInternal
	}
}

// NewErrorRecord builds an error record for err.
func NewErrorRecord(err error, bucket, key string) *ErrorRecord {
	return &ErrorRecord{Code: ErrorCode(err), Message: err.Error(), Bucket: bucket, Key: key}
}

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Objects is the number of records emitted or objects processed.
	Objects int64 `json:"objects"`

	// Bytes is the cumulative size in bytes.
	Bytes int64 `json:"bytes"`

	// Duration is the total command duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Errors is the count of errors encountered.
	Errors int64 `json:"errors"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
