// Package config loads nimbrowse configuration.
//
// Sources, lowest to highest precedence: built-in defaults, the config
// file (TOML or YAML), NIMBROWSE_* environment variables, and runtime
// overrides passed to Load (typically CLI flags).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// Config is the root configuration.
type Config struct {
	Default  DefaultConfig      `mapstructure:"default"`
	Browse   BrowseConfig       `mapstructure:"browse"`
	Logging  LoggingConfig      `mapstructure:"logging"`
	Accounts map[string]Account `mapstructure:"accounts"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// DefaultConfig selects the account opened at startup.
type DefaultConfig struct {
	Account string `mapstructure:"account"`
}

// BrowseConfig tunes the browser.
type BrowseConfig struct {
	// PageSize is the number of entries per listing page.
	PageSize int `mapstructure:"page_size"`

	// OpTimeout bounds each provider call. Zero disables the bound.
	OpTimeout time.Duration `mapstructure:"op_timeout"`

	// CacheTTL expires cached pages. Zero keeps pages until invalidated.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// PreviewMaxBytes is the preview truncation threshold.
	PreviewMaxBytes int64 `mapstructure:"preview_max_bytes"`

	// DownloadDir is where downloads land.
	DownloadDir string `mapstructure:"download_dir"`
}

// LoggingConfig configures observability.CLILogger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Account is one configured storage account.
type Account struct {
	Provider        string  `mapstructure:"provider"`
	Root            string  `mapstructure:"root"`
	Bucket          string  `mapstructure:"bucket"`
	Region          string  `mapstructure:"region"`
	Endpoint        string  `mapstructure:"endpoint"`
	Profile         string  `mapstructure:"profile"`
	AccessKeyID     string  `mapstructure:"access_key_id"`
	AccessKeySecret string  `mapstructure:"access_key_secret"`
	ForcePathStyle  bool    `mapstructure:"force_path_style"`
	UseSSL          bool    `mapstructure:"use_ssl"`
	RateLimit       float64 `mapstructure:"rate_limit"`
}

// Kind normalizes the provider name ("fs" and "local" mean filesystem).
func (a Account) Kind() provider.Kind {
	switch strings.ToLower(strings.TrimSpace(a.Provider)) {
	case "filesystem", "fs", "local", "file":
		return provider.KindFilesystem
	case "s3", "aws":
		return provider.KindS3
	case "minio":
		return provider.KindMinIO
	default:
		return provider.Kind(strings.ToLower(a.Provider))
	}
}

// Params converts the account into registry connection parameters.
func (a Account) Params() provider.ConnectionParams {
	return provider.ConnectionParams{
		Kind:            a.Kind(),
		Endpoint:        a.Endpoint,
		Region:          a.Region,
		Profile:         a.Profile,
		AccessKeyID:     a.AccessKeyID,
		SecretAccessKey: a.AccessKeySecret,
		ForcePathStyle:  a.ForcePathStyle,
		UseSSL:          a.UseSSL,
		Root:            a.Root,
		Bucket:          a.Bucket,
		RateLimit:       a.RateLimit,
	}
}

// Redacted returns a copy safe to print.
func (a Account) Redacted() Account {
	if a.AccessKeySecret != "" {
		a.AccessKeySecret = "********"
	}
	return a
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}

// Unwrap lets callers match provider.ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return provider.ErrConfiguration
}

// AccountNames returns configured account names in cycling order
// (lexicographic; config maps carry no order).
func (c *Config) AccountNames() []string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Account looks up an account; an empty name selects the default.
func (c *Config) Account(name string) (string, Account, error) {
	if name == "" {
		name = c.Default.Account
	}
	name = strings.ToLower(name)
	acct, ok := c.Accounts[name]
	if !ok {
		available := strings.Join(c.AccountNames(), ", ")
		if available == "" {
			available = "none"
		}
		return "", Account{}, &ConfigError{
			Field:   "accounts",
			Message: fmt.Sprintf("account %q not found (available: %s)", name, available),
		}
	}
	return name, acct, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return &ConfigError{Field: "accounts", Message: "no accounts configured"}
	}
	if _, _, err := c.Account(""); err != nil {
		return &ConfigError{Field: "default.account", Message: err.(*ConfigError).Message}
	}
	if c.Browse.PageSize < 1 || c.Browse.PageSize > 1000 {
		return &ConfigError{Field: "browse.page_size", Message: "must be between 1 and 1000"}
	}
	if c.Browse.OpTimeout < 0 {
		return &ConfigError{Field: "browse.op_timeout", Message: "must not be negative"}
	}
	if c.Browse.CacheTTL < 0 {
		return &ConfigError{Field: "browse.cache_ttl", Message: "must not be negative"}
	}
	if c.Browse.PreviewMaxBytes <= 0 {
		return &ConfigError{Field: "browse.preview_max_bytes", Message: "must be positive"}
	}
	for _, name := range c.AccountNames() {
		if err := c.Accounts[name].validate("accounts." + name); err != nil {
			return err
		}
	}
	return nil
}

func (a Account) validate(field string) error {
	switch a.Kind() {
	case provider.KindFilesystem:
		if a.Root == "" {
			return &ConfigError{Field: field + ".root", Message: "required for the filesystem provider"}
		}
	case provider.KindMinIO:
		if a.Endpoint == "" {
			return &ConfigError{Field: field + ".endpoint", Message: "required for the minio provider"}
		}
	case provider.KindS3:
	default:
		return &ConfigError{Field: field + ".provider", Message: fmt.Sprintf("unknown provider %q", a.Provider)}
	}
	if (a.AccessKeyID == "") != (a.AccessKeySecret == "") {
		return &ConfigError{Field: field, Message: "access_key_id and access_key_secret must be set together"}
	}
	if a.RateLimit < 0 {
		return &ConfigError{Field: field + ".rate_limit", Message: "must not be negative"}
	}
	return nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
