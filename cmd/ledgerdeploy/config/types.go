package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable for one deployment run. It is resolved once
// at start-of-run (defaults -> yaml file -> .env -> environment) and
// never mutated afterwards; components receive it by value.
type Config struct {
	// WorkDir is the directory containing the application checkout
	// (build contexts, compose file, manifest directory).
	WorkDir string `yaml:"work_dir"`

	// ComposeFile is the compose manifest used by the compose deploy mode.
	ComposeFile string `yaml:"compose_file"`

	// ManifestDir is the directory holding the cluster resource
	// definitions, relative to WorkDir unless absolute.
	ManifestDir string `yaml:"manifest_dir"`

	// LogFile is the path of the append-only run log artifact.
	LogFile string `yaml:"log_file"`

	// AuditFile is the path of the one-shot image metadata dump.
	AuditFile string `yaml:"audit_file"`

	// BaseURL is the scheme+host the health prober targets; per-service
	// ports are appended to it.
	BaseURL string `yaml:"base_url"`

	// RequiredPorts are host ports that must be free before any
	// mutation happens.
	RequiredPorts []int `yaml:"required_ports"`

	// Health controls the probe loop budget.
	Health HealthConfig `yaml:"health"`
}

type HealthConfig struct {
	// Timeout is the total probe budget per endpoint.
	Timeout Duration `yaml:"timeout"`

	// Interval is the pause between probe attempts.
	Interval Duration `yaml:"interval"`
}

// Duration wraps time.Duration so yaml files can say "90s" or "2m30s".
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// DefaultConfig returns the documented defaults. Ports and endpoints
// match the fixed service table: edge proxy on 80, portfolio API on
// 3000, bank API on 5000.
func DefaultConfig() Config {
	return Config{
		WorkDir:       ".",
		ComposeFile:   "docker-compose.yml",
		ManifestDir:   "k8s",
		LogFile:       "deploy.log",
		AuditFile:     "image-metadata.json",
		BaseURL:       "http://localhost",
		RequiredPorts: []int{80, 3000, 5000},
		Health: HealthConfig{
			Timeout:  Duration(90 * time.Second),
			Interval: Duration(3 * time.Second),
		},
	}
}
