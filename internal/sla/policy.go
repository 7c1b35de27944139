package sla

import (
	"fmt"
	"os"
	"time"

	"accountability-service/internal/model"

	"gopkg.in/yaml.v3"
)

// Window holds the response windows for one category.
// Action is zero when the category has no first-action deadline.
type Window struct {
	Acknowledge time.Duration
	Action      time.Duration
}

type Policy struct {
	windows map[model.Category]Window
}

// DefaultPolicy is the published SLA table.
func DefaultPolicy() *Policy {
	return &Policy{windows: map[model.Category]Window{
		model.CategorySafety:     {Acknowledge: 24 * time.Hour, Action: 72 * time.Hour},
		model.CategoryGovernance: {Acknowledge: 72 * time.Hour},
		model.CategoryCivic:      {Acknowledge: 72 * time.Hour},
	}}
}

func (p *Policy) Window(c model.Category) (Window, bool) {
	w, ok := p.windows[c]
	return w, ok
}

type policyFile struct {
	Categories map[string]struct {
		Acknowledge string `yaml:"acknowledge"`
		Action      string `yaml:"action"`
	} `yaml:"categories"`
}

// LoadPolicy reads a YAML override of the default table. Categories the file
// does not mention keep their default windows.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy: %w", err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sla policy: %w", err)
	}

	p := DefaultPolicy()
	for name, entry := range f.Categories {
		cat := model.Category(name)
		if !cat.Valid() {
			return nil, fmt.Errorf("sla policy: unknown category %q", name)
		}
		ack, err := time.ParseDuration(entry.Acknowledge)
		if err != nil {
			return nil, fmt.Errorf("sla policy: %s acknowledge: %w", name, err)
		}
		if ack <= 0 {
			return nil, fmt.Errorf("sla policy: %s acknowledge window must be positive", name)
		}
		w := Window{Acknowledge: ack}
		if entry.Action != "" {
			if w.Action, err = time.ParseDuration(entry.Action); err != nil {
				return nil, fmt.Errorf("sla policy: %s action: %w", name, err)
			}
			if w.Action < ack {
				return nil, fmt.Errorf("sla policy: %s action window shorter than acknowledge window", name)
			}
		}
		p.windows[cat] = w
	}
	return p, nil
}
