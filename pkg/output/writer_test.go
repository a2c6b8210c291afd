package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	assert.NotNil(t, w)
	assert.Equal(t, "run-123", w.runID)
	assert.Equal(t, "prod", w.account)
	assert.Equal(t, "s3", w.provider)
}

func decodeOne(t *testing.T, line []byte, payload any) Record {
	t.Helper()
	var record Record
	require.NoError(t, json.Unmarshal(line, &record))
	require.NoError(t, json.Unmarshal(record.Data, payload))
	return record
}

func TestJSONLWriter_WriteObject(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	lm := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	obj := NewObjectRecord("photos", provider.Object{
		Key:          "data/2024/file.parquet",
		Size:         1048576,
		ETag:         "abc123",
		LastModified: &lm,
	})

	require.NoError(t, w.WriteObject(context.Background(), obj))

	var objData ObjectRecord
	record := decodeOne(t, buf.Bytes(), &objData)

	assert.Equal(t, TypeObject, record.Type)
	assert.Equal(t, "run-123", record.RunID)
	assert.Equal(t, "prod", record.Account)
	assert.Equal(t, "s3", record.Provider)
	assert.False(t, record.TS.IsZero())

	assert.Equal(t, "photos", objData.Bucket)
	assert.Equal(t, "data/2024/file.parquet", objData.Key)
	assert.Equal(t, int64(1048576), objData.Size)
	assert.Equal(t, "abc123", objData.ETag)
	require.NotNil(t, objData.LastModified)
	assert.Equal(t, lm, *objData.LastModified)
	assert.False(t, objData.IsDirectory)
}

func TestJSONLWriter_WriteBucket(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "prod", "s3")

	require.NoError(t, w.WriteBucket(context.Background(), NewBucketRecord(provider.Bucket{Name: "logs", Region: "eu-west-1"})))

	var b BucketRecord
	record := decodeOne(t, buf.Bytes(), &b)
	assert.Equal(t, TypeBucket, record.Type)
	assert.Equal(t, "logs", b.Name)
	assert.Equal(t, "eu-west-1", b.Region)
	assert.Nil(t, b.CreationTime)
}

func TestJSONLWriter_WriteTransfer(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "local", "filesystem")

	require.NoError(t, w.WriteTransfer(context.Background(), &TransferRecord{
		Op: OpDownload, Source: "data/a.txt", Target: "/tmp/a.txt", Bytes: 10,
	}))

	var tr TransferRecord
	record := decodeOne(t, buf.Bytes(), &tr)
	assert.Equal(t, TypeTransfer, record.Type)
	assert.Equal(t, OpDownload, tr.Op)
	assert.Equal(t, int64(10), tr.Bytes)
}

func TestJSONLWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	errRec := &ErrorRecord{
		Code:    ErrCodeAccessDenied,
		Message: "Access denied to bucket",
		Prefix:  "secret/",
	}

	require.NoError(t, w.WriteError(context.Background(), errRec))

	var errData ErrorRecord
	record := decodeOne(t, buf.Bytes(), &errData)

	assert.Equal(t, TypeError, record.Type)
	assert.Equal(t, ErrCodeAccessDenied, errData.Code)
	assert.Equal(t, "Access denied to bucket", errData.Message)
	assert.Equal(t, "secret/", errData.Prefix)
}

func TestErrorCode(t *testing.T) {
	wrap := func(err error) error {
		return &provider.ProviderError{Op: "GetObject", Provider: provider.KindS3, Bucket: "b", Key: "k", Err: err}
	}
	tests := []struct {
		err  error
		want string
	}{
		{wrap(provider.ErrNotFound), ErrCodeNotFound},
		{wrap(provider.ErrBucketNotFound), ErrCodeBucketNotFound},
		{wrap(provider.ErrAccessDenied), ErrCodeAccessDenied},
		{wrap(provider.ErrInvalidCredentials), ErrCodeAccessDenied},
		{wrap(provider.ErrThrottled), ErrCodeThrottled},
		{wrap(provider.ErrProviderUnavailable), ErrCodeProviderUnavailable},
		{wrap(provider.ErrUnsupported), ErrCodeUnsupported},
		{wrap(provider.ErrConfiguration), ErrCodeConfiguration},
		{context.DeadlineExceeded, ErrCodeTimeout},
		{errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), tt.err.Error())
	}

	rec := NewErrorRecord(wrap(provider.ErrNotFound), "b", "k")
	assert.Equal(t, ErrCodeNotFound, rec.Code)
	assert.Equal(t, "k", rec.Key)
}

func TestJSONLWriter_WriteSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "prod", "s3")

	require.NoError(t, w.WriteSummary(context.Background(), &SummaryRecord{
		Objects:       3,
		Bytes:         30,
		Duration:      2 * time.Second,
		DurationHuman: "2s",
	}))

	var sum SummaryRecord
	record := decodeOne(t, buf.Bytes(), &sum)
	assert.Equal(t, TypeSummary, record.Type)
	assert.Equal(t, int64(3), sum.Objects)
	assert.Equal(t, 2*time.Second, sum.Duration)
}

func TestJSONLWriter_NewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	err := w.WriteObject(context.Background(), &ObjectRecord{Key: "file1.txt"})
	require.NoError(t, err)

	err = w.WriteObject(context.Background(), &ObjectRecord{Key: "file2.txt"})
	require.NoError(t, err)

	// Output should be two lines
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)

	// Each line should be valid JSON
	for _, line := range lines {
		var record Record
		err := json.Unmarshal([]byte(line), &record)
		assert.NoError(t, err)
	}
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	err := w.Close()
	require.NoError(t, err)

	// Writing after close should fail
	err = w.WriteObject(context.Background(), &ObjectRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	const numWriters = 10
	const writesPerWriter = 100

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				obj := &ObjectRecord{
					Key:  "file.txt",
					Size: int64(writerID*writesPerWriter + j),
				}
				_ = w.WriteObject(context.Background(), obj)
			}
		}(i)
	}

	wg.Wait()

	// Verify all lines are complete JSON objects (no interleaving)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)

	for i, line := range lines {
		var record Record
		err := json.Unmarshal([]byte(line), &record)
		assert.NoError(t, err, "line %d should be valid JSON: %s", i, line)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "prod", "s3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := w.WriteObject(ctx, &ObjectRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, context.Canceled)

	// Buffer should be empty (nothing written)
	assert.Empty(t, buf.String())
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	// Create a writer that always fails
	failWriter := &failingWriter{err: errors.New("disk full")}
	w := NewJSONLWriter(failWriter, "run-123", "prod", "s3")

	err := w.WriteObject(context.Background(), &ObjectRecord{Key: "file.txt"})
	require.Error(t, err)

	var writeErr *WriteError
	assert.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "write", writeErr.Op)
}

// failingWriter is an io.Writer that always returns an error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (n int, err error) {
	return 0, f.err
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	// Create a writer that simulates short writes (returns n < len(p) with nil error)
	shortWriter := &shortWriteWriter{bytesPerWrite: 10}
	w := NewJSONLWriter(shortWriter, "run-123", "prod", "s3")

	obj := &ObjectRecord{
		Key:  "data/2024/file.parquet",
		Size: 1048576,
		ETag: "abc123",
	}

	err := w.WriteObject(context.Background(), obj)
	require.NoError(t, err)

	// Verify complete output despite short writes
	lines := strings.Split(strings.TrimSpace(shortWriter.buf.String()), "\n")
	assert.Len(t, lines, 1)

	var record Record
	err = json.Unmarshal([]byte(lines[0]), &record)
	assert.NoError(t, err, "output should be valid JSON despite short writes")
	assert.Equal(t, TypeObject, record.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	// Create a writer that returns 0 bytes written with nil error (pathological case)
	zeroWriter := &zeroWriteWriter{}
	w := NewJSONLWriter(zeroWriter, "run-123", "prod", "s3")

	err := w.WriteObject(context.Background(), &ObjectRecord{Key: "file.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

// shortWriteWriter simulates an io.Writer that performs short writes.
// It writes at most bytesPerWrite bytes per call, returning nil error.
type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (n int, err error) {
	toWrite := len(p)
	if toWrite > sw.bytesPerWrite {
		toWrite = sw.bytesPerWrite
	}
	return sw.buf.Write(p[:toWrite])
}

// zeroWriteWriter always returns 0 bytes written with nil error.
type zeroWriteWriter struct{}

func (zw *zeroWriteWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestRecord_JSONSerialization(t *testing.T) {
	record := Record{
		Type:     TypeObject,
		TS:       time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RunID:    "abc123",
		Account:  "prod",
		Provider: "s3",
		Data:     json.RawMessage(`{"key":"test.txt","size":100}`),
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var parsed map[string]any
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, TypeObject, parsed["type"])
	assert.Equal(t, "abc123", parsed["run_id"])
	assert.Equal(t, "prod", parsed["account"])
	assert.Equal(t, "s3", parsed["provider"])
	assert.NotNil(t, parsed["ts"])
	assert.NotNil(t, parsed["data"])
}

func TestObjectRecord_OmitEmpty(t *testing.T) {
	obj := ObjectRecord{Bucket: "b", Key: "dir/"}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "content_type")
	assert.NotContains(t, string(data), "last_modified")
	assert.NotContains(t, string(data), "etag")
	assert.NotContains(t, string(data), "is_dir")

	obj.IsDirectory = true
	data, err = json.Marshal(obj)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"is_dir":true`)
}

func TestErrorRecord_OmitEmpty(t *testing.T) {
	errRec := ErrorRecord{
		Code:    ErrCodeInternal,
		Message: "Something went wrong",
	}

	data, err := json.Marshal(errRec)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "bucket")
	assert.NotContains(t, string(data), "key")
	assert.NotContains(t, string(data), "prefix")
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Discard.WriteObject(ctx, &ObjectRecord{Key: "a"}))
	assert.NoError(t, Discard.WriteError(ctx, &ErrorRecord{Code: ErrCodeInternal}))
	assert.NoError(t, Discard.Close())
}

// Benchmark for write performance
func BenchmarkJSONLWriter_WriteObject(b *testing.B) {
	w := NewJSONLWriter(io.Discard, "run-123", "prod", "s3")
	lm := time.Now().UTC()
	obj := &ObjectRecord{
		Bucket:       "photos",
		Key:          "data/2024/01/15/file.parquet",
		Size:         1048576,
		ETag:         "abc123def456",
		LastModified: &lm,
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteObject(ctx, obj)
	}
}
