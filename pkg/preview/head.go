package preview

import (
	"context"
	"errors"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// HeadBytes reads at most the first n bytes of an object.
//
// Behavior:
// - Always performs a Stat first to capture metadata.
// - Requests only the bytes that exist, as a ranged GetObject.
// - Directory entries return ErrUnsupported.
func HeadBytes(ctx context.Context, p provider.Provider, bucket, key string, n int64) ([]byte, *provider.Object, error) {
	if n < 0 {
		return nil, nil, errors.New("head bytes must be >= 0")
	}

	meta, err := p.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}
	if meta.IsDirectory {
		return nil, meta, &provider.ProviderError{
			Op: "Preview", Provider: p.Kind(), Bucket: bucket, Key: key,
			Err: provider.ErrUnsupported,
		}
	}
	if n == 0 || meta.Size == 0 {
		return nil, meta, nil
	}

	length := n
	if meta.Size < length {
		length = meta.Size
	}
	data, err := p.GetObject(ctx, bucket, key, provider.GetOptions{Length: length})
	if err != nil {
		return nil, meta, err
	}
	// Backends that ignore ranges still must not leak past n.
	if int64(len(data)) > n {
		data = data[:n]
	}
	return data, meta, nil
}
