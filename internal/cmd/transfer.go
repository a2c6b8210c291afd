package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/pkg/output"
	"github.com/3leaps/nimbrowse/pkg/provider"
	"github.com/3leaps/nimbrowse/pkg/transfer"
)

var getCmd = &cobra.Command{
	Use:   "get [account:]bucket/key [local-path]",
	Short: "Download an object or a directory prefix",
	Long: `Download an object, or every object under a prefix ending in "/".

local-path defaults to browse.download_dir. Directories are written
below local-path/<dirname>/.

Examples:
  nimbrowse get photos/2024/img_001.jpg ~/Pictures
  nimbrowse get prod:logs/2024/01/ ./logs --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var putCmd = &cobra.Command{
	Use:   "put <local-path> [account:]bucket[/prefix/]",
	Short: "Upload a local file or directory",
	Long: `Upload a local file to prefix+name, or a local directory to
prefix+dirname/... preserving its structure.

Examples:
  nimbrowse put ./report.pdf docs/2024/
  nimbrowse put ./site prod:www/`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

var rmCmd = &cobra.Command{
	Use:   "rm [account:]bucket/key",
	Short: "Delete an object or a directory prefix",
	Long: `Delete an object. A key ending in "/" deletes the whole tree below it.

Examples:
  nimbrowse rm tmp/scratch.txt
  nimbrowse rm tmp/build/ --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var (
	transferConcurrency int
	transferOnExists    string
	transferJSON        bool
	rmYes               bool
)

func init() {
	rootCmd.AddCommand(getCmd, putCmd, rmCmd)

	for _, c := range []*cobra.Command{getCmd, putCmd, rmCmd} {
		c.Flags().IntVar(&transferConcurrency, "concurrency", 4, "Parallel workers")
		c.Flags().BoolVar(&transferJSON, "json", false, "Emit one JSONL record per object")
	}
	for _, c := range []*cobra.Command{getCmd, putCmd} {
		c.Flags().StringVar(&transferOnExists, "on-exists", transfer.OnExistsOverwrite, "When the target exists: overwrite, skip, fail")
	}
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Required to delete a directory prefix")
}

// transferConfig builds the worker config; records go to stdout as JSONL
// with --json.
func transferConfig(cmd *cobra.Command, inv *invocation) (transfer.Config, func(), error) {
	switch transferOnExists {
	case transfer.OnExistsOverwrite, transfer.OnExistsSkip, transfer.OnExistsFail:
	default:
		return transfer.Config{}, nil, exitError(foundry.ExitInvalidArgument, "Invalid --on-exists",
			fmt.Errorf("%q (expected overwrite, skip or fail)", transferOnExists))
	}
	cfg := transfer.Config{Concurrency: transferConcurrency, OnExists: transferOnExists}
	if !transferJSON {
		return cfg, func() {}, nil
	}
	w := output.NewJSONLWriter(cmd.OutOrStdout(), inv.runID, inv.account, inv.backend.Kind().String())
	cfg.Writer = w
	return cfg, func() { _ = w.Close() }, nil
}

// finish reports a transfer summary and maps failures to exit codes.
func finish(ctx context.Context, cmd *cobra.Command, cfg transfer.Config, verb string, sum *transfer.Summary, err error) error {
	if sum != nil {
		observability.CLILogger.Info(verb+" finished",
			zap.Int64("objects", sum.Objects),
			zap.Int64("bytes", sum.Bytes),
			zap.Int64("skipped", sum.Skipped),
			zap.Int64("errors", sum.Errors),
			zap.Duration("duration", sum.Duration))
		if cfg.Writer != nil {
			werr := cfg.Writer.WriteSummary(ctx, &output.SummaryRecord{
				Objects:       sum.Objects,
				Bytes:         sum.Bytes,
				Duration:      sum.Duration,
				DurationHuman: sum.Duration.String(),
				Errors:        sum.Errors,
			})
			if werr != nil {
				return exitError(foundry.ExitFileWriteError, "Failed to write output", werr)
			}
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d objects (%s)", verb, sum.Objects, humanize.IBytes(uint64(sum.Bytes)))
			if sum.Skipped > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), ", %d skipped", sum.Skipped)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
		}
	}
	if err != nil {
		return providerExit(verb+" failed", err)
	}
	return nil
}

// remoteObject describes the object or directory named by path.
func remoteObject(path *ObjectPath) provider.Object {
	if path.IsPrefix() {
		return provider.Object{Key: path.Key, IsDirectory: true}
	}
	return provider.Object{Key: path.Key}
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path, err := parseObjectArg(args[0])
	if err != nil {
		return err
	}
	inv, err := openBackend(ctx, path)
	if err != nil {
		return err
	}
	defer inv.Close()

	dest := inv.cfg.Browse.DownloadDir
	if len(args) == 2 {
		dest = args[1]
	}
	cfg, closeOut, err := transferConfig(cmd, inv)
	if err != nil {
		return err
	}
	defer closeOut()

	obj := remoteObject(path)
	if !obj.IsDirectory {
		meta, err := inv.backend.StatObject(ctx, path.Bucket, path.Key)
		if err != nil {
			return providerExit("Failed to stat object", err)
		}
		obj = *meta
	}
	sum, err := transfer.Download(ctx, inv.backend, path.Bucket, obj, dest, cfg)
	return finish(ctx, cmd, cfg, "Downloaded", sum, err)
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	local := args[0]
	path, err := ParsePath(args[1])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid path", err)
	}
	if path.Bucket == "" || path.IsPattern() {
		return exitError(foundry.ExitInvalidArgument, "Invalid path",
			fmt.Errorf("%w: %q does not name a bucket or prefix", ErrInvalidPath, args[1]))
	}
	prefix := path.Key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	inv, err := openBackend(ctx, path)
	if err != nil {
		return err
	}
	defer inv.Close()

	cfg, closeOut, err := transferConfig(cmd, inv)
	if err != nil {
		return err
	}
	defer closeOut()

	sum, err := transfer.Upload(ctx, inv.backend, path.Bucket, prefix, local, cfg)
	if sum == nil && err != nil {
		return exitError(foundry.ExitFileNotFound, "Cannot read local path", err)
	}
	return finish(ctx, cmd, cfg, "Uploaded", sum, err)
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path, err := parseObjectArg(args[0])
	if err != nil {
		return err
	}
	obj := remoteObject(path)
	if obj.IsDirectory && !rmYes {
		return exitError(foundry.ExitInvalidArgument, "Refusing to delete a directory",
			fmt.Errorf("%s is a prefix; pass --yes to delete everything below it", path))
	}

	inv, err := openBackend(ctx, path)
	if err != nil {
		return err
	}
	defer inv.Close()

	cfg, closeOut, err := transferConfig(cmd, inv)
	if err != nil {
		return err
	}
	defer closeOut()

	sum, err := transfer.Delete(ctx, inv.backend, path.Bucket, obj, cfg)
	return finish(ctx, cmd, cfg, "Deleted", sum, err)
}
