package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func TestConfig_Validate(t *testing.T) {
	assert.True(t, provider.IsConfiguration(Config{}.Validate()))
	assert.True(t, provider.IsConfiguration(Config{Endpoint: "h:9000", AccessKey: "a"}.Validate()))
	assert.True(t, provider.IsConfiguration(Config{Endpoint: "h:9000", RateLimit: -2}.Validate()))
	assert.NoError(t, Config{Endpoint: "h:9000", AccessKey: "a", SecretKey: "s"}.Validate())
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		useSSL  bool
		host    string
		secure  bool
		wantErr bool
	}{
		{in: "localhost:9000", host: "localhost:9000"},
		{in: "play.min.io", useSSL: true, host: "play.min.io", secure: true},
		{in: "http://127.0.0.1:9000", useSSL: true, host: "127.0.0.1:9000"},
		{in: "https://s3.example.com/", host: "s3.example.com", secure: true},
		{in: "ftp://x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, secure, err := splitEndpoint(tt.in, tt.useSSL)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, provider.IsConfiguration(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such bucket", miniogo.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}, provider.ErrBucketNotFound},
		{"no such key", miniogo.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, provider.ErrNotFound},
		{"bare 404", miniogo.ErrorResponse{StatusCode: http.StatusNotFound}, provider.ErrNotFound},
		{"access denied", miniogo.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, provider.ErrAccessDenied},
		{"bad creds", miniogo.ErrorResponse{Code: "InvalidAccessKeyId", StatusCode: 403}, provider.ErrInvalidCredentials},
		{"wrong region", miniogo.ErrorResponse{Code: "AuthorizationHeaderMalformed", StatusCode: 400}, provider.ErrRegionMismatch},
		{"redirect", miniogo.ErrorResponse{StatusCode: http.StatusMovedPermanently}, provider.ErrRegionMismatch},
		{"slow down", miniogo.ErrorResponse{Code: "SlowDown", StatusCode: 503}, provider.ErrThrottled},
		{"server error", miniogo.ErrorResponse{Code: "InternalError", StatusCode: 500}, provider.ErrProviderUnavailable},
		{"not implemented", miniogo.ErrorResponse{Code: "NotImplemented", StatusCode: 501}, provider.ErrUnsupported},
		{"transport", errors.New("dial tcp: connection refused"), provider.ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("Op", "b", "k", tt.err)
			assert.ErrorIs(t, err, tt.want)

			var pe *provider.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, provider.KindMinIO, pe.Provider)
		})
	}

	assert.NoError(t, mapError("Op", "b", "", nil))
	err := mapError("Op", "b", "", context.DeadlineExceeded)
	assert.Equal(t, provider.KindTimeout, provider.Classify(err))
}

func TestSkipListed(t *testing.T) {
	assert.True(t, skipListed("docs/", "docs/", ""))
	assert.False(t, skipListed("docs/a", "docs/", ""))
	assert.True(t, skipListed("docs/a", "docs/", "docs/a"))
	assert.True(t, skipListed("docs/img/", "docs/", "docs/img/"))
	assert.True(t, skipListed("docs/img/x.png", "docs/", "docs/img/"))
	assert.False(t, skipListed("docs/img0", "docs/", "docs/img/"))
}

func TestRegistryConstructsMinIO(t *testing.T) {
	_, err := provider.New(context.Background(), provider.ConnectionParams{Kind: provider.KindMinIO})
	require.Error(t, err)
	assert.True(t, provider.IsConfiguration(err))

	p, err := provider.New(context.Background(), provider.ConnectionParams{
		Kind:            provider.KindMinIO,
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	require.NoError(t, err)
	assert.Equal(t, provider.KindMinIO, p.Kind())
}

func TestCopyObject_DirectoryUnsupported(t *testing.T) {
	p, err := New(Config{Endpoint: "localhost:9000"})
	require.NoError(t, err)
	_, err = p.CopyObject(context.Background(), "b", "dir/", "other/")
	assert.True(t, provider.IsUnsupported(err))
}

// fakeServer implements enough of the S3 ListObjectsV2 and location APIs to
// exercise pagination and region handling.
type fakeServer struct {
	mu      sync.Mutex
	buckets map[string]string   // bucket -> region
	keys    map[string][]string // bucket -> sorted keys
	probes  int

	// noLocation answers GetBucketLocation with 501 NotImplemented.
	noLocation bool
}

func signedRegion(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	i := strings.Index(auth, "Credential=")
	if i < 0 {
		return ""
	}
	parts := strings.Split(auth[i+len("Credential="):], "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket := strings.Trim(r.URL.Path, "/")
	q := r.URL.Query()
	region, ok := f.buckets[bucket]

	if q.Has("location") {
		f.probes++
		if f.noLocation {
			writeError(w, http.StatusNotImplemented, "NotImplemented")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "NoSuchBucket")
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">%s</LocationConstraint>`, region)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	if signedRegion(r) != region {
		writeError(w, http.StatusBadRequest, "AuthorizationHeaderMalformed")
		return
	}
	if q.Get("list-type") != "2" {
		writeError(w, http.StatusNotImplemented, "NotImplemented")
		return
	}

	prefix := q.Get("prefix")
	delim := q.Get("delimiter")
	after := q.Get("start-after")
	if tok := q.Get("continuation-token"); tok != "" {
		after = tok
	}
	maxKeys := 1000
	if mk := q.Get("max-keys"); mk != "" {
		maxKeys, _ = strconv.Atoi(mk)
	}

	type entry struct {
		key   string
		isDir bool
	}
	var entries []entry
	seen := map[string]bool{}
	for _, k := range f.keys[bucket] {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		e := entry{key: k}
		if delim != "" {
			if i := strings.Index(k[len(prefix):], delim); i >= 0 {
				e = entry{key: k[:len(prefix)+i+len(delim)], isDir: true}
			}
		}
		if e.key <= after || seen[e.key] {
			continue
		}
		seen[e.key] = true
		entries = append(entries, e)
	}

	truncated := len(entries) > maxKeys
	if truncated {
		entries = entries[:maxKeys]
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, `<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>%d</MaxKeys><IsTruncated>%t</IsTruncated>`,
		bucket, prefix, len(entries), maxKeys, truncated)
	if truncated {
		fmt.Fprintf(&b, `<NextContinuationToken>%s</NextContinuationToken>`, entries[len(entries)-1].key)
	}
	for _, e := range entries {
		if !e.isDir {
			fmt.Fprintf(&b, `<Contents><Key>%s</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified><ETag>&quot;e&quot;</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`, e.key, len(e.key))
		}
	}
	for _, e := range entries {
		if e.isDir {
			fmt.Fprintf(&b, `<CommonPrefixes><Prefix>%s</Prefix></CommonPrefixes>`, e.key)
		}
	}
	b.WriteString(`</ListBucketResult>`)

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, b.String())
}

func newFakeProvider(t *testing.T, f *fakeServer, bucket string) *Provider {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	p, err := New(Config{
		Endpoint:  srv.URL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
		Bucket:    bucket,
	})
	require.NoError(t, err)
	return p
}

func TestListObjects_PaginationCompleteness(t *testing.T) {
	keys := []string{"a.txt", "aa/1", "aa/2", "b.txt", "c/", "c/x", "d.txt", "e/f/g", "zz"}
	sort.Strings(keys)
	f := &fakeServer{
		buckets: map[string]string{"data": "eu-west-1"},
		keys:    map[string][]string{"data": keys},
	}
	p := newFakeProvider(t, f, "")
	want := []string{"a.txt", "aa/", "b.txt", "c/", "d.txt", "e/", "zz"}

	for _, size := range []int{1, 2, 3, 10} {
		t.Run(fmt.Sprintf("page_%d", size), func(t *testing.T) {
			var got []string
			cursor := ""
			for i := 0; i < 50; i++ {
				page, err := p.ListObjects(context.Background(), "data", provider.ListOptions{Delimiter: "/", Cursor: cursor, PageSize: size})
				require.NoError(t, err)
				for _, it := range page.Items {
					got = append(got, it.Key)
				}
				if page.Exhausted() {
					break
				}
				cursor = page.NextCursor
			}
			assert.Equal(t, want, got)
		})
	}

	page, err := p.ListObjects(context.Background(), "data", provider.ListOptions{Prefix: "c/", Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c/x", page.Items[0].Key)

	page, err = p.ListObjects(context.Background(), "data", provider.ListOptions{Prefix: "e/"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e/f/g", page.Items[0].Key)

	assert.Equal(t, 1, f.probes)
}

func TestListObjects_StaleRegionRetriedOnce(t *testing.T) {
	f := &fakeServer{
		buckets: map[string]string{"moved": "ap-southeast-2"},
		keys:    map[string][]string{"moved": {"k"}},
	}
	p := newFakeProvider(t, f, "")
	p.regions.Remember("moved", "us-east-1")

	page, err := p.ListObjects(context.Background(), "moved", provider.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, f.probes)

	region, _ := p.regions.Cached("moved")
	assert.Equal(t, "ap-southeast-2", region)
}

func TestListObjects_LocationUnsupportedUsesConfiguredRegion(t *testing.T) {
	f := &fakeServer{
		buckets:    map[string]string{"data": "us-east-1"},
		keys:       map[string][]string{"data": {"a.txt", "b/c"}},
		noLocation: true,
	}
	p := newFakeProvider(t, f, "")

	page, err := p.ListObjects(context.Background(), "data", provider.ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a.txt", page.Items[0].Key)
	_, cached := p.regions.Cached("data")
	assert.False(t, cached)
}

func TestListBuckets_PinnedProbeFailureNotCached(t *testing.T) {
	f := &fakeServer{buckets: map[string]string{}, keys: map[string][]string{}}
	p := newFakeProvider(t, f, "late")

	buckets, err := p.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, buckets)
	_, cached := p.regions.Cached("late")
	assert.False(t, cached)

	f.mu.Lock()
	f.buckets["late"] = "us-east-1"
	f.mu.Unlock()

	buckets, err = p.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "late", buckets[0].Name)
	assert.Equal(t, 2, f.probes)
}
