package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := provider.Registered()
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "nimbrowse %s\n  commit:    %s\n  built:     %s\n  go:        %s\n  providers: %s\n",
			versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate, runtime.Version(), strings.Join(names, ", "))
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
