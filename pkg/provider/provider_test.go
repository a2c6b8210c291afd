package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "a.txt", want: "a.txt"},
		{key: "dir/a.txt", want: "a.txt"},
		{key: "dir/sub/", want: "sub"},
		{key: "dir/", want: "dir"},
		{key: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Object{Key: tt.key}.Name())
		})
	}
}

func TestParentPrefix(t *testing.T) {
	assert.Equal(t, "", ParentPrefix(""))
	assert.Equal(t, "", ParentPrefix("a/"))
	assert.Equal(t, "a/", ParentPrefix("a/b/"))
	assert.Equal(t, "a/b/", ParentPrefix("a/b/c/"))
}

func TestPrefixOf(t *testing.T) {
	assert.Equal(t, "", PrefixOf("a.txt"))
	assert.Equal(t, "a/", PrefixOf("a/b.txt"))
	assert.Equal(t, "a/", PrefixOf("a/b/"))
	assert.Equal(t, "a/b/", PrefixOf("a/b/c.txt"))
}

func TestPageExhausted(t *testing.T) {
	var nilPage *Page
	assert.True(t, nilPage.Exhausted())
	assert.True(t, (&Page{}).Exhausted())
	assert.False(t, (&Page{NextCursor: "k"}).Exhausted())
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name:     "with key",
			err:      &ProviderError{Op: "StatObject", Provider: KindS3, Bucket: "b", Key: "k.txt", Err: ErrNotFound},
			expected: "s3 StatObject: b/k.txt: object not found",
		},
		{
			name:     "with bucket",
			err:      &ProviderError{Op: "ListObjects", Provider: KindMinIO, Bucket: "b", Err: ErrBucketNotFound},
			expected: "minio ListObjects: b: bucket not found",
		},
		{
			name:     "bare",
			err:      &ProviderError{Op: "New", Provider: KindFilesystem, Err: errors.New("boom")},
			expected: "filesystem New: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestClassify(t *testing.T) {
	wrap := func(err error) error {
		return &ProviderError{Op: "Op", Provider: KindS3, Err: err}
	}
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{err: nil, want: ""},
		{err: wrap(ErrBucketNotFound), want: KindBucketNotFound},
		{err: wrap(ErrNotFound), want: KindObjectNotFound},
		{err: wrap(ErrAccessDenied), want: KindPermission},
		{err: wrap(ErrInvalidCredentials), want: KindPermission},
		{err: wrap(ErrProviderUnavailable), want: KindUnavailable},
		{err: wrap(ErrThrottled), want: KindUnavailable},
		{err: wrap(ErrUnsupported), want: KindUnsupported},
		{err: fmt.Errorf("load: %w", ErrConfiguration), want: KindConfiguration},
		{err: wrap(context.DeadlineExceeded), want: KindTimeout},
		{err: context.Canceled, want: KindCanceled},
		{err: errors.New("mystery"), want: KindInternal},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

type stubProvider struct {
	Provider
	kind Kind
}

func (s *stubProvider) Kind() Kind { return s.kind }

func TestRegistry(t *testing.T) {
	Register("stub", func(ctx context.Context, params ConnectionParams) (Provider, error) {
		if params.Endpoint == "" {
			return nil, fmt.Errorf("%w: endpoint required", ErrConfiguration)
		}
		return &stubProvider{kind: params.Kind}, nil
	})

	assert.Contains(t, Registered(), Kind("stub"))

	p, err := New(context.Background(), ConnectionParams{Kind: "stub", Endpoint: "x"})
	require.NoError(t, err)
	assert.Equal(t, Kind("stub"), p.Kind())

	_, err = New(context.Background(), ConnectionParams{Kind: "stub"})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	_, err = New(context.Background(), ConnectionParams{Kind: "nope"})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "unknown provider")
}
