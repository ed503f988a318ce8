package config

import (
	"fmt"
	"strings"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Validate checks the config for:
//   - Required top-level fields
//   - Duplicate or unknown node types in policy rules
//   - Empty required-field groups (a group with no keys can never be satisfied)
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	seen := make(map[string]bool)
	for i, rule := range cfg.Policy {
		if rule.Type == "" {
			errs = append(errs, fmt.Sprintf("policy[%d]: type is required", i))
			continue
		}
		if !workflow.NodeType(rule.Type).Known() {
			errs = append(errs, fmt.Sprintf("policy[%d]: unknown node type %q", i, rule.Type))
		}
		if seen[rule.Type] {
			errs = append(errs, fmt.Sprintf("policy[%d]: duplicate rule for type %q", i, rule.Type))
		}
		seen[rule.Type] = true
		for j, group := range rule.Required {
			if len(group) == 0 {
				errs = append(errs, fmt.Sprintf("policy[%d].required[%d]: group must name at least one key", i, j))
			}
		}
	}

	if cfg.Autosave.QuietMs < 0 {
		errs = append(errs, "autosave.quiet_ms must not be negative")
	}
	if cfg.Simulation.Workers < 0 {
		errs = append(errs, "simulation.workers must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
