package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked for in the working directory when no
// explicit --config path is given.
const DefaultConfigFile = "ledgerdeploy.yaml"

// Load resolves the configuration for one run.
//
// Precedence, lowest to highest: built-in defaults, the yaml config
// file, variables from an optional .env file, real environment
// variables. A missing config file is fine (defaults apply); a present
// but malformed one is an error, since silently ignoring it would hide
// a configuration mistake.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	// .env is a convenience for local runs; absence is expected.
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// fall through to defaults
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides copies LEDGERDEPLOY_* variables over the loaded
// values. Components never read ambient process state themselves; this
// is the single place environment input enters the run.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LEDGERDEPLOY_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("LEDGERDEPLOY_COMPOSE_FILE"); v != "" {
		cfg.ComposeFile = v
	}
	if v := os.Getenv("LEDGERDEPLOY_MANIFEST_DIR"); v != "" {
		cfg.ManifestDir = v
	}
	if v := os.Getenv("LEDGERDEPLOY_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("LEDGERDEPLOY_AUDIT_FILE"); v != "" {
		cfg.AuditFile = v
	}
	if v := os.Getenv("LEDGERDEPLOY_BASE_URL"); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("LEDGERDEPLOY_REQUIRED_PORTS"); v != "" {
		ports, err := parsePorts(v)
		if err != nil {
			return fmt.Errorf("LEDGERDEPLOY_REQUIRED_PORTS: %w", err)
		}
		cfg.RequiredPorts = ports
	}
	if v := os.Getenv("LEDGERDEPLOY_HEALTH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEDGERDEPLOY_HEALTH_TIMEOUT: %w", err)
		}
		cfg.Health.Timeout = Duration(d)
	}
	if v := os.Getenv("LEDGERDEPLOY_HEALTH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEDGERDEPLOY_HEALTH_INTERVAL: %w", err)
		}
		cfg.Health.Interval = Duration(d)
	}
	return nil
}

func parsePorts(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	ports := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
