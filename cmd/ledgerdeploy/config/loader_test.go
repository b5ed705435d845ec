package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory afterwards. (testing.T.Chdir needs Go 1.24;
// this keeps the tests runnable on older toolchains.)
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

// =============================================================================
// UNIT TESTS: Load
// =============================================================================

// TestLoad_DefaultsWhenNoFile verifies defaults apply when neither a
// config file nor overrides exist.
func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := DefaultConfig()
	if cfg.ComposeFile != want.ComposeFile || cfg.ManifestDir != want.ManifestDir {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if time.Duration(cfg.Health.Timeout) != 90*time.Second {
		t.Errorf("default health timeout = %s, want 90s", cfg.Health.Timeout)
	}
}

// TestLoad_YAMLFile verifies values from the default config file
// override the built-in defaults.
func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := []byte(`
manifest_dir: manifests
base_url: http://10.0.0.5
required_ports: [8080]
health:
  timeout: 2m
  interval: 5s
`)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ManifestDir != "manifests" {
		t.Errorf("manifest_dir = %s", cfg.ManifestDir)
	}
	if cfg.BaseURL != "http://10.0.0.5" {
		t.Errorf("base_url = %s", cfg.BaseURL)
	}
	if len(cfg.RequiredPorts) != 1 || cfg.RequiredPorts[0] != 8080 {
		t.Errorf("required_ports = %v", cfg.RequiredPorts)
	}
	if time.Duration(cfg.Health.Timeout) != 2*time.Minute {
		t.Errorf("health.timeout = %s, want 2m", cfg.Health.Timeout)
	}
	// Untouched keys keep their defaults.
	if cfg.ComposeFile != DefaultConfig().ComposeFile {
		t.Errorf("compose_file should keep its default, got %s", cfg.ComposeFile)
	}
}

// TestLoad_ExplicitMissingFile verifies a --config path that does not
// exist is an error, unlike the optional default file.
func TestLoad_ExplicitMissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load("nope.yaml"); err == nil {
		t.Fatal("expected an error for an explicit missing config file")
	}
}

// TestLoad_MalformedFile verifies a present but unparsable file is an
// error rather than silently ignored.
func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("{not yaml"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(""); err == nil {
		t.Fatal("expected a parse error")
	}
}

// TestLoad_EnvOverridesFile verifies environment variables win over the
// config file.
func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := []byte("base_url: http://from-file\nmanifest_dir: from-file\n")
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LEDGERDEPLOY_BASE_URL", "http://from-env/")
	t.Setenv("LEDGERDEPLOY_REQUIRED_PORTS", "80, 9090")
	t.Setenv("LEDGERDEPLOY_HEALTH_INTERVAL", "10s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "http://from-env" {
		t.Errorf("env override lost, base_url = %s", cfg.BaseURL)
	}
	if cfg.ManifestDir != "from-file" {
		t.Errorf("file value clobbered without an override: %s", cfg.ManifestDir)
	}
	if len(cfg.RequiredPorts) != 2 || cfg.RequiredPorts[1] != 9090 {
		t.Errorf("required_ports = %v", cfg.RequiredPorts)
	}
	if time.Duration(cfg.Health.Interval) != 10*time.Second {
		t.Errorf("health.interval = %s, want 10s", cfg.Health.Interval)
	}
}

// TestLoad_InvalidEnvValues verifies malformed overrides fail loudly.
func TestLoad_InvalidEnvValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("LEDGERDEPLOY_HEALTH_TIMEOUT", "ninety seconds")
	if _, err := Load(""); err == nil {
		t.Error("expected an error for an unparsable duration")
	}

	t.Setenv("LEDGERDEPLOY_HEALTH_TIMEOUT", "90s")
	t.Setenv("LEDGERDEPLOY_REQUIRED_PORTS", "80,notaport")
	if _, err := Load(""); err == nil {
		t.Error("expected an error for an unparsable port list")
	}
}
