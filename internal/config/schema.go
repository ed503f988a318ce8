package config

import (
	"time"

	"github.com/quantsight/flowcanvas/internal/validate"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Config is the top-level YAML structure.
type Config struct {
	Version    string         `yaml:"version"`
	Server     ServerConf     `yaml:"server"`
	Autosave   AutosaveConf   `yaml:"autosave"`
	Simulation SimulationConf `yaml:"simulation"`
	Database   DatabaseConf   `yaml:"database"`
	Policy     []TypeRule     `yaml:"policy"`
}

// ServerConf holds HTTP server settings.
type ServerConf struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	IdleTimeoutMs  int    `yaml:"idle_timeout_ms"`
}

// AutosaveConf tunes the debounce scheduler.
type AutosaveConf struct {
	QuietMs int `yaml:"quiet_ms"`
}

// QuietPeriod returns the configured quiet period as a duration.
func (a AutosaveConf) QuietPeriod() time.Duration {
	return time.Duration(a.QuietMs) * time.Millisecond
}

// SimulationConf tunes the node-execution pool.
type SimulationConf struct {
	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`
}

// DatabaseConf points at the persistence collaborator. An empty URL runs
// the service on the in-memory store.
type DatabaseConf struct {
	URL string `yaml:"url"`
}

// TypeRule overrides or extends one entry of the built-in node-type policy
// table.
type TypeRule struct {
	Type      string     `yaml:"type"`
	Singleton bool       `yaml:"singleton"`
	Terminal  bool       `yaml:"terminal"`
	Required  [][]string `yaml:"required"`
}

// PolicyTable merges configured rules over the built-in defaults.
func (c *Config) PolicyTable() validate.Policy {
	pol := validate.DefaultPolicy()
	for _, rule := range c.Policy {
		pol.Types[workflow.NodeType(rule.Type)] = validate.TypePolicy{
			Singleton: rule.Singleton,
			Terminal:  rule.Terminal,
			Required:  rule.Required,
		}
	}
	return pol
}
