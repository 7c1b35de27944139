package cmd

import (
	"fmt"
	"os"

	"accountability-service/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "accountability",
	Short: "Citizen complaint tracking with SLA escalation",
	Long: `accountability files citizen complaints, moves them through the department
lifecycle and escalates the ones whose response deadline has passed.

Run 'accountability serve' for the HTTP API and the escalation sweep.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.json", "JSON config file")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "accountability %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	},
}

// loadConfig reads the config file. The default path may be absent; one given
// with --config must exist.
func loadConfig() (*config.Config, error) {
	return config.LoadConfig(cfgFile, rootCmd.PersistentFlags().Changed("config"))
}
