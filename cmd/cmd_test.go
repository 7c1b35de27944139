package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"accountability-service/internal/auth"
	"accountability-service/internal/escalation"
	"accountability-service/internal/model"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintDashboard(t *testing.T) {
	color.NoColor = true

	stats := &model.AggregateStats{
		Total:                        3,
		ByStatus:                     map[model.Status]int{model.StatusPending: 1, model.StatusEscalated: 1, model.StatusResolved: 1},
		ByCategory:                   map[model.Category]int{model.CategoryCivic: 2, model.CategorySafety: 1},
		EscalatedCount:               1,
		ResolutionRate:               1.0 / 3,
		AverageTimeToAcknowledgeSecs: 7200,
		Wards: []model.WardStats{
			{Ward: "Unassigned", Total: 1, Pending: 1},
			{Ward: "Ward 8", Total: 2, Resolved: 1, Delayed: 1},
		},
	}

	var buf bytes.Buffer
	printDashboard(&buf, stats)
	out := buf.String()

	assert.Contains(t, out, "3 complaints, 1 escalated, 33.3% resolved")
	assert.Contains(t, out, "escalated")
	assert.Contains(t, out, "Public Safety")
	assert.Contains(t, out, "Ward 8")
	assert.Contains(t, out, "average time to acknowledge: 2.0h")
}

func TestPrintSweep(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printSweep(&buf, escalation.SweepResult{Checked: 4, Escalated: 2, Skipped: 1, Failed: 1, Duration: 3 * time.Millisecond, Cancelled: true})
	out := buf.String()

	assert.Contains(t, strings.ToLower(out), "checked")
	assert.Contains(t, out, "3ms")
	assert.Contains(t, out, "sweep cancelled")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ACCOUNTABILITY_JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--department", "safety", "--user", "officer-9"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	actor, err := auth.NewAuthorizer("cli-secret", nil).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "officer-9", actor.ID)
	assert.Equal(t, "safety", actor.Department)
}
