package cmd

import (
	"fmt"
	"io"

	"accountability-service/internal/escalation"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one escalation sweep and exit",
	Long: `Evaluate every active complaint against its SLA once and escalate the
overdue ones. Useful from cron when the server runs without its own sweep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		engine := escalation.NewEngine(a.store, a.machine, a.clock, escalation.Options{
			Retry:       cfg.RetryPolicy(),
			Invalidator: a.cache,
		})
		result, err := engine.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		printSweep(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func printSweep(w io.Writer, r escalation.SweepResult) {
	escalated := fmt.Sprintf("%d", r.Escalated)
	if r.Escalated > 0 {
		escalated = yellow(escalated)
	}
	failed := fmt.Sprintf("%d", r.Failed)
	if r.Failed > 0 {
		failed = red(failed)
	}

	table := newTable(w, []string{"Checked", "Escalated", "Skipped", "Failed", "Took"})
	table.Append([]string{fmt.Sprintf("%d", r.Checked), escalated, fmt.Sprintf("%d", r.Skipped), failed, r.Duration.String()})
	table.Render()

	if r.Cancelled {
		fmt.Fprintln(w, color.New(color.FgHiYellow).Sprint("sweep cancelled before every complaint was checked"))
	}
}
