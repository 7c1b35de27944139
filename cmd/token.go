package cmd

import (
	"fmt"
	"time"

	"accountability-service/internal/auth"

	"github.com/spf13/cobra"
)

var (
	tokenUser       string
	tokenDepartment string
	tokenTTL        time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a department token for local testing",
	Long: `Sign a department official token with the configured secret. Production
tokens come from the identity service; this is for local development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if tokenDepartment == "" {
			return fmt.Errorf("--department is required")
		}
		tok, err := auth.NewAuthorizer(cfg.JWT.Secret, cfg.DepartmentMap()).Sign(tokenUser, tokenDepartment, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "local-officer", "user id claim")
	tokenCmd.Flags().StringVar(&tokenDepartment, "department", "", "department claim, or * for oversight")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
