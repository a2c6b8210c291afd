// Package cmd holds the nimbrowse command tree.
//
// With no subcommand nimbrowse opens the interactive browser on the
// default (or given) account. The ls, stat, cat and accounts subcommands
// reuse the same configuration and provider registry for scripting.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/config"
	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/internal/session"
	"github.com/3leaps/nimbrowse/internal/tui"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo is called from main with build-time values.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile     string
	accountFlag string
	logLevel    string
)

// runInteractive starts the terminal UI. Tests swap it out.
var runInteractive session.Runner = tui.Run

var rootCmd = &cobra.Command{
	Use:   "nimbrowse [account]",
	Short: "Browse S3, MinIO and local storage from the terminal",
	Long: `nimbrowse is a two-pane terminal browser for object storage.

Accounts are configured in ~/.config/nimbrowse/config.toml. Without a
config file a single "local" account browses your home directory.

Examples:
  nimbrowse                 # browse the default account
  nimbrowse prod            # browse the "prod" account
  nimbrowse ls prod:logs/2024/
  nimbrowse cat data/readme.md`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBrowse,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: ~/.config/nimbrowse/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&accountFlag, "account", "a", "", "Account to use (default: default.account)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	// The logger is closed by now; report on stderr directly.
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return ExitCode(err)
}

// loadConfig loads configuration, applying --log-level as an override.
func loadConfig(ctx context.Context) (*config.Config, error) {
	var overrides []map[string]any
	if logLevel != "" {
		overrides = append(overrides, map[string]any{"logging": map[string]any{"level": logLevel}})
	}
	cfg, err := config.LoadFile(ctx, cfgFile, overrides...)
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	return cfg, nil
}

// initLogging installs the CLI logger. Interactive sessions log to the
// configured file so the terminal stays clean.
func initLogging(cfg *config.Config, interactive bool) (func(), error) {
	closeLog, err := observability.Init(observability.Config{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		Interactive: interactive,
	})
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	return closeLog, nil
}

// resolveAccount picks the account: explicit argument, then --account,
// then the configured default.
func resolveAccount(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return accountFlag
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	closeLog, err := initLogging(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	account := ""
	if len(args) == 1 {
		account = args[0]
	}
	observability.CLILogger.Info("Starting browser",
		zap.String("version", versionInfo.Version),
		zap.String("config", cfg.Source))

	sess, err := session.OpenSession(ctx, cfg, resolveAccount(account), session.WithRunner(runInteractive))
	if err != nil {
		return accountError(err)
	}
	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return exitError(1, "Browser exited with error", err)
	}
	return nil
}

// accountError maps account resolution and backend construction failures
// to exit codes.
func accountError(err error) error {
	if provider.IsConfiguration(err) {
		return exitError(foundry.ExitInvalidArgument, "Invalid account", err)
	}
	return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
}

// CodedError carries the process exit code for a failed command.
type CodedError struct {
	Code    int
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *CodedError) Unwrap() error { return e.Err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &CodedError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code carried by err, or 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	if errors.Is(err, context.Canceled) {
		return foundry.ExitSignalInt
	}
	return 1
}
