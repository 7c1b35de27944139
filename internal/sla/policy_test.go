package sla

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"accountability-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicyOverridesListedCategories(t *testing.T) {
	p, err := ParsePolicy([]byte(`
categories:
  civic:
    acknowledge: 48h
  safety:
    acknowledge: 12h
    action: 36h
`))
	require.NoError(t, err)

	civic, ok := p.Window(model.CategoryCivic)
	require.True(t, ok)
	assert.Equal(t, 48*time.Hour, civic.Acknowledge)

	safety, _ := p.Window(model.CategorySafety)
	assert.Equal(t, 12*time.Hour, safety.Acknowledge)
	assert.Equal(t, 36*time.Hour, safety.Action)

	gov, _ := p.Window(model.CategoryGovernance)
	assert.Equal(t, 72*time.Hour, gov.Acknowledge)
}

func TestParsePolicyRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown category": "categories:\n  roads:\n    acknowledge: 1h\n",
		"zero window":      "categories:\n  civic:\n    acknowledge: 0s\n",
		"bad duration":     "categories:\n  civic:\n    acknowledge: three days\n",
		"action too short": "categories:\n  safety:\n    acknowledge: 24h\n    action: 1h\n",
		"not yaml":         "categories: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  governance:\n    acknowledge: 96h\n"), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	w, _ := p.Window(model.CategoryGovernance)
	assert.Equal(t, 96*time.Hour, w.Acknowledge)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
