package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/nimbrowse/pkg/output"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

var statCmd = &cobra.Command{
	Use:   "stat [account:]bucket/key",
	Short: "Show object metadata",
	Long: `Show metadata for one object without reading its content.

Examples:
  nimbrowse stat photos/2024/img_001.jpg
  nimbrowse stat prod:logs/app.log --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

var statJSON bool

func init() {
	rootCmd.AddCommand(statCmd)
	statCmd.Flags().BoolVar(&statJSON, "json", false, "Output as a JSONL record")
}

// parseObjectArg parses an argument that must name a single object.
func parseObjectArg(arg string) (*ObjectPath, error) {
	path, err := ParsePath(arg)
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid path", err)
	}
	if path.Bucket == "" || path.Key == "" || path.IsPattern() {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid path",
			fmt.Errorf("%w: %q does not name an object", ErrInvalidPath, arg))
	}
	return path, nil
}

func runStat(cmd *cobra.Command, args []string) error {
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

	obj, err := inv.backend.StatObject(ctx, path.Bucket, path.Key)
	if err != nil {
		return providerExit("Failed to stat object", err)
	}

	out := cmd.OutOrStdout()
	if statJSON {
		w := output.NewJSONLWriter(out, inv.runID, inv.account, inv.backend.Kind().String())
		defer func() { _ = w.Close() }()
		if err := w.WriteObject(ctx, output.NewObjectRecord(path.Bucket, *obj)); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Account", inv.account},
		{"Bucket", path.Bucket},
		{"Key", obj.Key},
		{"Type", kindOf(*obj)},
		{"Size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(obj.Size)), obj.Size)},
	}
	if obj.LastModified != nil {
		rows = append(rows, [2]string{"Modified", fmt.Sprintf("%s (%s)",
			obj.LastModified.Format("2006-01-02 15:04:05 MST"), humanize.Time(*obj.LastModified))})
	}
	if obj.ContentType != "" {
		rows = append(rows, [2]string{"Content-Type", obj.ContentType})
	}
	if obj.ETag != "" {
		rows = append(rows, [2]string{"ETag", obj.ETag})
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s:\t%s\n", r[0], r[1]); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	return w.Flush()
}

func kindOf(obj provider.Object) string {
	if obj.IsDirectory {
		return "directory"
	}
	return "file"
}
