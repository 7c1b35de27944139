package cmd

import (
	"fmt"
	"io"

	"accountability-service/internal/model"
	"accountability-service/internal/service"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print the accountability dashboard",
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

		stats, err := service.NewDashboardService(a.store, a.cache).Aggregates(cmd.Context())
		if err != nil {
			return err
		}
		printDashboard(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func printDashboard(w io.Writer, s *model.AggregateStats) {
	fmt.Fprintf(w, "%s complaints, %s escalated, %s resolved\n\n",
		cyan(fmt.Sprintf("%d", s.Total)),
		yellow(fmt.Sprintf("%d", s.EscalatedCount)),
		green(fmt.Sprintf("%.1f%%", s.ResolutionRate*100)),
	)

	status := newTable(w, []string{"Status", "Count"})
	for _, st := range model.Statuses {
		status.Append([]string{statusColor(st), fmt.Sprintf("%d", s.ByStatus[st])})
	}
	status.Render()
	fmt.Fprintln(w)

	category := newTable(w, []string{"Category", "Count"})
	for _, c := range model.Categories {
		category.Append([]string{c.Label(), fmt.Sprintf("%d", s.ByCategory[c])})
	}
	category.Render()
	fmt.Fprintln(w)

	if len(s.Wards) > 0 {
		wards := newTable(w, []string{"Ward", "Total", "Resolved", "Pending", "Delayed"})
		for _, ws := range s.Wards {
			delayed := fmt.Sprintf("%d", ws.Delayed)
			if ws.Delayed > 0 {
				delayed = red(delayed)
			}
			wards.Append([]string{ws.Ward, fmt.Sprintf("%d", ws.Total), fmt.Sprintf("%d", ws.Resolved), fmt.Sprintf("%d", ws.Pending), delayed})
		}
		wards.Render()
		fmt.Fprintln(w)
	}

	if s.AverageTimeToAcknowledgeSecs > 0 {
		fmt.Fprintf(w, "average time to acknowledge: %.1fh\n", s.AverageTimeToAcknowledgeSecs/3600)
	}
}
