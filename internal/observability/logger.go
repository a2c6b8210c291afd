// Package observability owns the process loggers.
//
// CLILogger is the single structured logger used across commands and the
// browser. Non-interactive commands log to stderr; while the terminal UI
// owns the screen, logs go to a rotating file instead.
package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CLILogger is the process-wide logger. It is a no-op until Init runs.
var CLILogger = zap.NewNop()

// Config selects the log level and sink.
type Config struct {
	// Level is debug | info | warn | error.
	Level string

	// File is the log file used in interactive mode.
	File string

	// Interactive routes logs to File instead of stderr.
	Interactive bool

	// MaxSizeMB and MaxBackups bound the rotating file.
	MaxSizeMB  int
	MaxBackups int
}

// DefaultLogFile returns ~/.cache/nimbrowse/nimbrowse.log, or a path
// under the temp dir when the cache dir is unavailable.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nimbrowse", "nimbrowse.log")
}

// ParseLevel converts a level name; unknown names are an error.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New builds a logger for cfg without installing it.
func New(cfg Config) (*zap.Logger, io.Closer, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if !cfg.Interactive {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), lvl)
		return zap.New(core), nopCloser{}, nil
	}

	file := cfg.File
	if file == "" {
		file = DefaultLogFile()
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log dir: %w", err)
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = 3
	}
	rot := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: backups,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rot), lvl)
	return zap.New(core), rot, nil
}

// Init installs the logger for cfg as CLILogger. The returned func
// flushes and releases the sink.
func Init(cfg Config) (func(), error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return func() {}, err
	}
	prev := CLILogger
	CLILogger = logger
	return func() {
		_ = logger.Sync()
		_ = closer.Close()
		CLILogger = prev
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
