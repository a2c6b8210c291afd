package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/pkg/match"
	"github.com/3leaps/nimbrowse/pkg/output"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

var lsCmd = &cobra.Command{
	Use:   "ls [[account:]bucket[/prefix]]",
	Short: "List buckets or objects",
	Long: `List buckets, or the objects one level below a prefix.

Keys with glob characters list recursively from the literal prefix and
keep only matching keys. --filter takes the same query as the browser's
search (name, *.glob, size>1MiB, after:2024-01-01, type:dir).

Examples:
  nimbrowse ls                          # buckets of the default account
  nimbrowse ls photos/2024/
  nimbrowse ls prod:logs/**/*.gz --json
  nimbrowse ls data/ --recursive --filter 'size>10MiB'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var (
	lsRecursive bool
	lsLimit     int
	lsFilter    string
	lsJSON      bool
	lsHidden    bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "List every key below the prefix")
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "Max entries to list (0 = all)")
	lsCmd.Flags().StringVarP(&lsFilter, "filter", "f", "", "Filter query applied to each entry")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output as JSONL records")
	lsCmd.Flags().BoolVar(&lsHidden, "hidden", false, "Include dot-files when matching a glob")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := &ObjectPath{}
	if len(args) == 1 {
		var err error
		if path, err = ParsePath(args[0]); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid path", err)
		}
	}
	query, err := match.Parse(lsFilter)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	inv, err := openBackend(ctx, path)
	if err != nil {
		return err
	}
	defer inv.Close()

	start := time.Now()
	out := cmd.OutOrStdout()

	if path.Bucket == "" {
		buckets, err := inv.backend.ListBuckets(ctx)
		if err != nil {
			return providerExit("Failed to list buckets", err)
		}
		if lsJSON {
			return writeBucketsJSON(ctx, out, inv, buckets)
		}
		return writeBucketsTable(out, buckets)
	}

	objects, err := listPath(ctx, inv.backend, path, query)
	if err != nil {
		return providerExit("Failed to list objects", err)
	}
	observability.CLILogger.Debug("Listed objects",
		zap.String("bucket", path.Bucket),
		zap.String("prefix", path.Key),
		zap.Int("count", len(objects)),
		zap.Duration("elapsed", time.Since(start)))

	if lsJSON {
		return writeObjectsJSON(ctx, out, inv, path.Bucket, objects, time.Since(start))
	}
	return writeObjectsTable(out, objects)
}

// listPath lists the entries named by path, honoring --recursive, --limit,
// glob patterns and the filter query.
func listPath(ctx context.Context, p provider.Provider, path *ObjectPath, query *match.Query) ([]provider.Object, error) {
	prefix := path.Key
	delimiter := provider.DefaultDelimiter
	if lsRecursive {
		delimiter = ""
	}

	var globs *match.Globs
	if path.IsPattern() {
		var err error
		globs, err = match.NewGlobs(match.GlobConfig{Includes: []string{path.Pattern}, IncludeHidden: lsHidden})
		if err != nil {
			return nil, &provider.ProviderError{Op: "ListObjects", Bucket: path.Bucket, Key: path.Pattern, Err: fmt.Errorf("%w: %v", provider.ErrConfiguration, err)}
		}
		prefix = globs.ListPrefix()
		delimiter = ""
	} else if !path.IsPrefix() {
		// An exact key: stat it, and treat a miss as a directory name.
		obj, err := p.StatObject(ctx, path.Bucket, path.Key)
		switch {
		case err == nil:
			return query.Apply([]provider.Object{*obj}), nil
		case !provider.IsNotFound(err):
			return nil, err
		}
		prefix = path.Key + "/"
	}

	var (
		objects []provider.Object
		cursor  string
	)
	for {
		page, err := p.ListObjects(ctx, path.Bucket, provider.ListOptions{
			Prefix:    prefix,
			Delimiter: delimiter,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Items {
			if globs != nil && !globs.Match(obj.Key) {
				continue
			}
			if !query.Match(obj) {
				continue
			}
			objects = append(objects, obj)
			if lsLimit > 0 && len(objects) >= lsLimit {
				return objects, nil
			}
		}
		if page.Exhausted() {
			return objects, nil
		}
		cursor = page.NextCursor
	}
}

func writeBucketsJSON(ctx context.Context, out io.Writer, inv *invocation, buckets []provider.Bucket) error {
	w := output.NewJSONLWriter(out, inv.runID, inv.account, inv.backend.Kind().String())
	defer func() { _ = w.Close() }()
	for _, b := range buckets {
		if err := w.WriteBucket(ctx, output.NewBucketRecord(b)); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	return nil
}

func writeBucketsTable(out io.Writer, buckets []provider.Bucket) error {
	if len(buckets) == 0 {
		_, err := fmt.Fprintln(out, "No buckets found.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "BUCKET\tCREATED"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, b := range buckets {
		created := "-"
		if b.CreationTime != nil {
			created = b.CreationTime.Format("2006-01-02 15:04:05")
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", b.Name, created); err != nil {
			return fmt.Errorf("failed to write bucket: %w", err)
		}
	}
	return w.Flush()
}

func writeObjectsJSON(ctx context.Context, out io.Writer, inv *invocation, bucket string, objects []provider.Object, elapsed time.Duration) error {
	w := output.NewJSONLWriter(out, inv.runID, inv.account, inv.backend.Kind().String())
	defer func() { _ = w.Close() }()

	var total int64
	for _, obj := range objects {
		total += obj.Size
		if err := w.WriteObject(ctx, output.NewObjectRecord(bucket, obj)); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	err := w.WriteSummary(ctx, &output.SummaryRecord{
		Objects:       int64(len(objects)),
		Bytes:         total,
		Duration:      elapsed,
		DurationHuman: elapsed.Round(time.Millisecond).String(),
	})
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

func writeObjectsTable(out io.Writer, objects []provider.Object) error {
	if len(objects) == 0 {
		_, err := fmt.Fprintln(out, "No objects found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var totalSize int64
	for _, obj := range objects {
		size, modified := "-", "-"
		if !obj.IsDirectory {
			totalSize += obj.Size
			size = humanize.IBytes(uint64(obj.Size))
		}
		if obj.LastModified != nil {
			modified = obj.LastModified.Format("2006-01-02 15:04:05")
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", obj.Key, size, modified); err != nil {
			return fmt.Errorf("failed to write object: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	_, err := fmt.Fprintf(out, "\n%d entries, %s\n", len(objects), humanize.IBytes(uint64(totalSize)))
	return err
}
