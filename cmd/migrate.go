package cmd

import (
	"fmt"

	"accountability-service/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("migrate needs database.driver %q, got %q", config.DriverPostgres, cfg.Database.Driver)
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		applied, err := a.postgres.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "database is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(out, "%s %s\n", green("applied"), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
