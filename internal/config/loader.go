package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

const (
	appName   = "nimbrowse"
	envPrefix = "NIMBROWSE"

	// ConfigEnvVar names an explicit config file.
	ConfigEnvVar = envPrefix + "_CONFIG"

	// LocalAccount is synthesized when no accounts are configured.
	LocalAccount = "local"
)

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps one environment variable onto a config path.
type envSpec struct {
	Name string
	Path string
}

func getEnvSpecs() []envSpec {
	return []envSpec{
		{Name: envPrefix + "_ACCOUNT", Path: "default.account"},
		{Name: envPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: envPrefix + "_LOG_FILE", Path: "logging.file"},
		{Name: envPrefix + "_PAGE_SIZE", Path: "browse.page_size"},
		{Name: envPrefix + "_OP_TIMEOUT", Path: "browse.op_timeout"},
		{Name: envPrefix + "_CACHE_TTL", Path: "browse.cache_ttl"},
		{Name: envPrefix + "_PREVIEW_MAX_BYTES", Path: "browse.preview_max_bytes"},
		{Name: envPrefix + "_DOWNLOAD_DIR", Path: "browse.download_dir"},
	}
}

// getUserConfigPaths lists candidate config files in lookup order.
func getUserConfigPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, appName))
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", appName))
	}

	var paths []string
	for _, dir := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	if home != "" {
		paths = append(paths, filepath.Join(home, "."+appName+".toml"))
	}
	return paths
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default.account", "")
	v.SetDefault("browse.page_size", 100)
	v.SetDefault("browse.op_timeout", 30*time.Second)
	v.SetDefault("browse.cache_ttl", time.Duration(0))
	v.SetDefault("browse.preview_max_bytes", 100*1024)
	v.SetDefault("browse.download_dir", ".")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Load reads configuration from the default search path.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile reads configuration with path taking precedence over
// $NIMBROWSE_CONFIG and the user config locations. An explicit path that
// does not exist is an error; a missing default file is not.
//
// The loaded config becomes the one returned by GetConfig.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	source, err := resolveConfigFile(path)
	if err != nil {
		return nil, err
	}
	if source != "" {
		v.SetConfigFile(source)
		if ext := strings.TrimPrefix(filepath.Ext(source), "."); ext == "" {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Field: "file", Message: fmt.Sprintf("read %s: %v", source, err)}
		}
	}

	for _, o := range overrides {
		setOverrides(v, "", o)
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	cfg.Source = source
	finalize(cfg)

	configMu.Lock()
	appConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// GetConfig returns the most recently loaded config, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func resolveConfigFile(path string) (string, error) {
	explicit := path
	if explicit == "" {
		explicit = os.Getenv(ConfigEnvVar)
	}
	if explicit != "" {
		explicit = expandHome(explicit)
		if _, err := os.Stat(explicit); err != nil {
			return "", &ConfigError{Field: "file", Message: fmt.Sprintf("config file %s: %v", explicit, err)}
		}
		return explicit, nil
	}
	for _, candidate := range getUserConfigPaths() {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", &ConfigError{Field: "file", Message: err.Error()}
		}
	}
	return "", nil
}

// setOverrides flattens nested maps so an override of one leaf does not
// hide its siblings.
func setOverrides(v *viper.Viper, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := m[k].(map[string]any); ok {
			setOverrides(v, key, nested)
			continue
		}
		v.Set(key, m[k])
	}
}

func finalize(cfg *Config) {
	if cfg.Accounts == nil {
		cfg.Accounts = map[string]Account{}
	}
	if len(cfg.Accounts) == 0 {
		root, err := os.UserHomeDir()
		if err != nil || root == "" {
			root = "."
		}
		cfg.Accounts[LocalAccount] = Account{Provider: string(provider.KindFilesystem), Root: root}
	}

	normalized := make(map[string]Account, len(cfg.Accounts))
	for name, acct := range cfg.Accounts {
		acct.Root = expandHome(acct.Root)
		normalized[strings.ToLower(name)] = acct
	}
	cfg.Accounts = normalized

	cfg.Default.Account = strings.ToLower(strings.TrimSpace(cfg.Default.Account))
	if cfg.Default.Account == "" {
		cfg.Default.Account = cfg.AccountNames()[0]
	}
	cfg.Browse.DownloadDir = expandHome(cfg.Browse.DownloadDir)
	cfg.Logging.File = expandHome(cfg.Logging.File)
}
