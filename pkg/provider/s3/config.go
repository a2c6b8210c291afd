// Package s3 implements the provider interface for AWS S3 and S3-compatible storage.
package s3

import "github.com/3leaps/nimbrowse/pkg/provider"

// Config configures an S3 provider.
//
// Authentication priority (AWS SDK v2 default chain):
//  1. Explicit AccessKeyID/SecretAccessKey (if provided)
//  2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//  3. Shared credentials file (~/.aws/credentials)
//  4. Shared config file (~/.aws/config) with profile
//  5. EC2 instance metadata / ECS task role / EKS IRSA
//
// Region handling:
//   - Region is only the home region used for account-level calls
//     (ListBuckets) and region probes. Each bucket's own region is resolved
//     lazily on first use and cached for the provider's lifetime.
//   - For AWS S3: if Region is empty and not set via environment/profile,
//     defaults to us-east-1.
//   - For S3-compatible stores (Endpoint set) no default region is applied.
type Config struct {
	// Bucket pins the account to a single bucket. When set, ListBuckets
	// returns only that bucket and never calls the account-level API.
	Bucket string

	// Region is the home region.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Leave empty for AWS S3.
	// Examples:
	//   - Wasabi: https://s3.wasabisys.com
	//   - MinIO: http://localhost:9000
	Endpoint string

	// Profile is the AWS profile name to use from shared config.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must also be set.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key. Required if AccessKeyID is set.
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (bucket in path, not subdomain).
	ForcePathStyle bool

	// PageSize is the default page size for ListObjects.
	// Zero uses DefaultPageSize. Values over MaxAllowedKeys are clamped.
	PageSize int

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
}

// DefaultPageSize is the default page size for listing.
const DefaultPageSize = 100

// MaxAllowedKeys is the maximum page size allowed by S3.
const MaxAllowedKeys = 1000

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	// If one explicit credential is set, both must be set
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Message: "must not be negative"}
	}
	if c.PageSize < 0 {
		return &ConfigError{Field: "PageSize", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}

// Unwrap lets callers match provider.ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return provider.ErrConfiguration
}
