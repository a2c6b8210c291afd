package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/nimbrowse/internal/config"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List configured accounts",
	Long: `List configured accounts in switching order. Secrets are redacted.

Examples:
  nimbrowse accounts
  nimbrowse accounts --yaml`,
	Args: cobra.NoArgs,
	RunE: runAccounts,
}

var accountsYAML bool

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.Flags().BoolVar(&accountsYAML, "yaml", false, "Print the full (redacted) account settings as YAML")
}

// accountView is the YAML shape of one account.
type accountView struct {
	Name            string  `yaml:"name"`
	Default         bool    `yaml:"default,omitempty"`
	Provider        string  `yaml:"provider"`
	Root            string  `yaml:"root,omitempty"`
	Bucket          string  `yaml:"bucket,omitempty"`
	Region          string  `yaml:"region,omitempty"`
	Endpoint        string  `yaml:"endpoint,omitempty"`
	Profile         string  `yaml:"profile,omitempty"`
	AccessKeyID     string  `yaml:"access_key_id,omitempty"`
	AccessKeySecret string  `yaml:"access_key_secret,omitempty"`
	ForcePathStyle  bool    `yaml:"force_path_style,omitempty"`
	UseSSL          bool    `yaml:"use_ssl,omitempty"`
	RateLimit       float64 `yaml:"rate_limit,omitempty"`
}

func accountViews(cfg *config.Config) []accountView {
	names := cfg.AccountNames()
	views := make([]accountView, 0, len(names))
	for _, name := range names {
		a := cfg.Accounts[name].Redacted()
		views = append(views, accountView{
			Name:            name,
			Default:         name == cfg.Default.Account,
			Provider:        a.Kind().String(),
			Root:            a.Root,
			Bucket:          a.Bucket,
			Region:          a.Region,
			Endpoint:        a.Endpoint,
			Profile:         a.Profile,
			AccessKeyID:     a.AccessKeyID,
			AccessKeySecret: a.AccessKeySecret,
			ForcePathStyle:  a.ForcePathStyle,
			UseSSL:          a.UseSSL,
			RateLimit:       a.RateLimit,
		})
	}
	return views
}

func runAccounts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	views := accountViews(cfg)
	out := cmd.OutOrStdout()

	if accountsYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"config": cfg.Source, "accounts": views}); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ACCOUNT\tPROVIDER\tLOCATION"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, v := range views {
		name := v.Name
		if v.Default {
			name += " *"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", name, v.Provider, location(v)); err != nil {
			return fmt.Errorf("failed to write account: %w", err)
		}
	}
	return w.Flush()
}

func location(v accountView) string {
	switch {
	case v.Root != "":
		return v.Root
	case v.Endpoint != "":
		return v.Endpoint
	case v.Region != "":
		return v.Region
	case v.Profile != "":
		return "profile " + v.Profile
	default:
		return "-"
	}
}
