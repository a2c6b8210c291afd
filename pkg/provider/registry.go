package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ConnectionParams is the resolved connection record for one account.
//
// Backends read only the fields they understand; unknown combinations are
// rejected by the backend constructor with ErrConfiguration.
type ConnectionParams struct {
	// Kind selects the registered backend constructor.
	Kind Kind

	// Endpoint is a custom endpoint URL or host:port.
	Endpoint string

	// Region is the default region for cloud backends.
	Region string

	// Profile is a shared-config profile name (S3).
	Profile string

	// AccessKeyID and SecretAccessKey are explicit static credentials.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle forces path-style addressing (S3).
	ForcePathStyle bool

	// UseSSL enables TLS (MinIO).
	UseSSL bool

	// Root is the base directory for the filesystem backend.
	Root string

	// Bucket is the simulated bucket name for the filesystem backend.
	Bucket string

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
}

// Constructor builds a Provider from connection parameters.
type Constructor func(ctx context.Context, params ConnectionParams) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Constructor{}
)

// Register associates a backend kind with its constructor.
// Backends call this from init; registering a kind twice replaces the constructor.
func Register(kind Kind, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = ctor
}

// Registered returns the registered backend kinds in sorted order.
func Registered() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// New constructs a provider for params.Kind.
//
// An unknown kind or a constructor failure caused by bad parameters is
// reported as ErrConfiguration.
func New(ctx context.Context, params ConnectionParams) (Provider, error) {
	registryMu.RLock()
	ctor, ok := registry[params.Kind]
	registryMu.RUnlock()
	if !ok {
		names := make([]string, 0)
		for _, k := range Registered() {
			names = append(names, k.String())
		}
		available := strings.Join(names, ", ")
		if available == "" {
			available = "none"
		}
		return nil, &ProviderError{
			Op:       "New",
			Provider: params.Kind,
			Err:      fmt.Errorf("%w: unknown provider %q (available: %s)", ErrConfiguration, params.Kind, available),
		}
	}
	return ctor(ctx, params)
}
