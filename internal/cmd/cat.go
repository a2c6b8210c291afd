package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/pkg/preview"
)

var catCmd = &cobra.Command{
	Use:   "cat [account:]bucket/key [key...]",
	Short: "Print the head of one or more objects",
	Long: `Print object content, bounded by --bytes (default: browse.preview_max_bytes).

Extra arguments are keys in the same bucket and are fetched in parallel.
With more than one key each body is preceded by a "==> key <==" header.

Examples:
  nimbrowse cat data/readme.md
  nimbrowse cat prod:logs/app.log app.log.1 --bytes 4KiB`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCat,
}

var (
	catBytes    string
	catParallel int
)

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().StringVar(&catBytes, "bytes", "", "Max bytes per object (e.g. 512, 4KiB, 1MB)")
	catCmd.Flags().IntVar(&catParallel, "parallel", 4, "Concurrent reads when several keys are given")
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path, err := parseObjectArg(args[0])
	if err != nil {
		return err
	}
	keys := append([]string{path.Key}, args[1:]...)

	inv, err := openBackend(ctx, path)
	if err != nil {
		return err
	}
	defer inv.Close()

	limit := inv.cfg.Browse.PreviewMaxBytes
	if catBytes != "" {
		n, err := humanize.ParseBytes(catBytes)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid --bytes", err)
		}
		limit = int64(n)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 1 {
		data, _, err := preview.HeadBytes(ctx, inv.backend, path.Bucket, path.Key, limit)
		if err != nil {
			return providerExit("Failed to read object", err)
		}
		if _, err := out.Write(data); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return nil
	}

	// Results arrive in completion order; print them in argument order.
	results := make(map[string]preview.HeadResult, len(keys))
	for r := range preview.HeadBytesMulti(ctx, inv.backend, path.Bucket, keys, limit, catParallel) {
		results[r.Key] = r
	}
	var failed error
	for i, key := range keys {
		r, ok := results[key]
		if !ok {
			return exitError(foundry.ExitSignalInt, "Interrupted", ctx.Err())
		}
		if r.Err != nil {
			observability.CLILogger.Warn("Failed to read object",
				zap.String("bucket", path.Bucket), zap.String("key", key), zap.Error(r.Err))
			if failed == nil {
				failed = providerExit("Failed to read object", r.Err)
			}
			continue
		}
		sep := "\n"
		if i == 0 {
			sep = ""
		}
		if _, err := fmt.Fprintf(out, "%s==> %s <==\n", sep, key); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		if _, err := out.Write(r.Data); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	return failed
}
