package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestRunConfig builds a RunConfig with real temp build contexts and
// manifests so the filesystem checks pass, and no required ports so the
// prereq stage cannot collide with whatever the host has bound.
func newTestRunConfig(t *testing.T) RunConfig {
	t.Helper()
	specs := makeBuildContexts(t, "bank-api", "portfolio-api", "edge-proxy")
	specs[2].Critical = true
	for i, port := range []int{5000, 3000, 80} {
		specs[i].Port = port
	}

	resources := DefaultResourceOrder(specs)
	files := make([]string, len(resources))
	for i, def := range resources {
		files[i] = def.File
	}
	manifestDir := makeManifestDir(t, files...)

	return RunConfig{
		WorkDir:        t.TempDir(),
		ManifestDir:    manifestDir,
		AuditFile:      filepath.Join(t.TempDir(), "image-metadata.json"),
		BaseURL:        "http://localhost",
		HealthTimeout:  4 * time.Second,
		HealthInterval: 2 * time.Second,
		RequiredPorts:  nil,
		Services:       specs,
		Resources:      resources,
		Endpoints:      DefaultEndpoints("http://localhost", specs),
	}
}

// newHappyPathProc returns a mock where every external command succeeds.
func newHappyPathProc() *MockProcessManager {
	return &MockProcessManager{
		LookPathFunc: func(name string) (string, error) {
			return "/usr/bin/" + name, nil
		},
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name == "docker" && args[0] == "images" {
				return []byte("ledgerstack/bank-api:latest\nledgerstack/portfolio-api:latest\nledgerstack/edge-proxy:latest\n"), nil
			}
			if name == "docker" && args[0] == "image" {
				return []byte(`[{"Id":"sha256:abc"}]`), nil
			}
			return []byte("ok"), nil
		},
		RunWithInputFunc: func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
			return []byte("applied"), nil
		},
		RunStreamFunc: func(ctx context.Context, name string, args ...string) error {
			return nil
		},
	}
}

// stageNames extracts the stage sequence from recorded results.
func stageNames(results []StageResult) []string {
	names := make([]string, len(results))
	for i, res := range results {
		names[i] = res.Stage
	}
	return names
}

// =============================================================================
// UNIT TESTS: RunCluster
// =============================================================================

// TestPipeline_RunCluster_HappyPath verifies the full stage sequence
// runs in order and the run log artifact carries one SUCCESS line per
// stage plus the final completion line.
func TestPipeline_RunCluster_HappyPath(t *testing.T) {
	cfg := newTestRunConfig(t)
	logPath := filepath.Join(t.TempDir(), "deploy.log")
	logger := logging.New(logging.Config{Quiet: true, LogFile: logPath, Service: "test"})

	pipeline := NewPipeline(cfg, newHappyPathProc(), logger)
	pipeline.prober = newTestProber(&mockHealthHTTPClient{})

	if err := pipeline.RunCluster(context.Background()); err != nil {
		t.Fatalf("RunCluster failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("closing logger: %v", err)
	}

	want := []string{"prereq", "build", "verify", "audit", "apply", "restart", "wait", "health"}
	got := stageNames(pipeline.Results())
	if len(got) != len(want) {
		t.Fatalf("stage sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
	}
	for _, res := range pipeline.Results() {
		if res.Status == StatusFatal {
			t.Errorf("stage %s unexpectedly fatal: %s", res.Stage, res.Message)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading run log: %v", err)
	}
	content := string(data)
	if n := strings.Count(content, `"level":"SUCCESS"`); n < len(want)+1 {
		t.Errorf("expected at least %d SUCCESS lines in the run log, got %d", len(want)+1, n)
	}
	if !strings.Contains(content, "deployment completed successfully") {
		t.Errorf("run log missing the final completion line")
	}

	if _, err := os.Stat(cfg.AuditFile); err != nil {
		t.Errorf("audit artifact not written: %v", err)
	}
}

// TestPipeline_RunCluster_PrereqFatalAborts verifies a failed
// prerequisite check aborts before any image is built or resource
// applied.
func TestPipeline_RunCluster_PrereqFatalAborts(t *testing.T) {
	cfg := newTestRunConfig(t)
	proc := newHappyPathProc()
	proc.LookPathFunc = func(name string) (string, error) {
		if name == "kubectl" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	pipeline := NewPipeline(cfg, proc, newTestLogger())
	pipeline.prober = newTestProber(&mockHealthHTTPClient{})

	err := pipeline.RunCluster(context.Background())
	if err == nil {
		t.Fatal("expected an error from the aborted run")
	}
	if len(pipeline.Results()) != 1 {
		t.Errorf("expected only the prereq stage to run, got %v", stageNames(pipeline.Results()))
	}
	for _, call := range proc.GetCalls() {
		if call.Method == "RunStream" || call.Method == "RunWithInput" {
			t.Errorf("mutating command ran after a fatal prereq: %s %v", call.Name, call.Args)
		}
	}
}

// TestPipeline_RunCluster_BuildFatalAborts verifies a failed build
// stops the run before resources are applied.
func TestPipeline_RunCluster_BuildFatalAborts(t *testing.T) {
	cfg := newTestRunConfig(t)
	proc := newHappyPathProc()
	proc.RunStreamFunc = func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	}

	pipeline := NewPipeline(cfg, proc, newTestLogger())
	pipeline.prober = newTestProber(&mockHealthHTTPClient{})

	if err := pipeline.RunCluster(context.Background()); err == nil {
		t.Fatal("expected an error from the aborted run")
	}
	for _, call := range proc.GetCalls() {
		if call.Method == "RunWithInput" {
			t.Errorf("resource applied after a fatal build: %v", call.Args)
		}
	}
}

// TestPipeline_RunCluster_WarningsContinue verifies non-fatal
// degradation (missing image, readiness timeout) still completes the
// run.
func TestPipeline_RunCluster_WarningsContinue(t *testing.T) {
	cfg := newTestRunConfig(t)
	proc := newHappyPathProc()
	proc.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name == "docker" && args[0] == "images" {
			return []byte("ledgerstack/bank-api:latest\n"), nil // two images missing
		}
		if name == "kubectl" && args[0] == "wait" {
			return nil, errors.New("timed out waiting for the condition")
		}
		if name == "docker" && args[0] == "image" {
			return []byte(`[{"Id":"sha256:abc"}]`), nil
		}
		return []byte("ok"), nil
	}

	pipeline := NewPipeline(cfg, proc, newTestLogger())
	pipeline.prober = newTestProber(&mockHealthHTTPClient{})

	if err := pipeline.RunCluster(context.Background()); err != nil {
		t.Fatalf("expected warnings to not abort the run, got %v", err)
	}

	warnings := 0
	for _, res := range pipeline.Results() {
		if res.Status == StatusWarning {
			warnings++
		}
	}
	if warnings < 2 {
		t.Errorf("expected the verify and wait warnings recorded, got %d warnings", warnings)
	}
}

// =============================================================================
// UNIT TESTS: RunCompose
// =============================================================================

// TestPipeline_RunCompose_HappyPath verifies the compose mode stage
// sequence.
func TestPipeline_RunCompose_HappyPath(t *testing.T) {
	cfg := newTestRunConfig(t)
	cfg.ComposeFile = filepath.Join(cfg.WorkDir, "docker-compose.yml")

	proc := newHappyPathProc()
	pipeline := NewPipeline(cfg, proc, newTestLogger())
	pipeline.prober = newTestProber(&mockHealthHTTPClient{})

	if err := pipeline.RunCompose(context.Background()); err != nil {
		t.Fatalf("RunCompose failed: %v", err)
	}

	want := []string{"prereq", "compose", "verify", "audit", "health"}
	got := stageNames(pipeline.Results())
	if len(got) != len(want) {
		t.Fatalf("stage sequence = %v, want %v", got, want)
	}

	composeRan := false
	for _, call := range proc.GetCalls() {
		if call.Method == "RunStream" && call.Name == "docker-compose" {
			composeRan = true
			wantArgs := []string{"-f", cfg.ComposeFile, "up", "-d", "--build"}
			for i, a := range wantArgs {
				if call.Args[i] != a {
					t.Errorf("compose args = %v, want %v", call.Args, wantArgs)
					break
				}
			}
		}
	}
	if !composeRan {
		t.Errorf("docker-compose up was never invoked")
	}
}

// TestPipeline_RunCompose_UpFailureFatal verifies a compose failure
// aborts before verification.
func TestPipeline_RunCompose_UpFailureFatal(t *testing.T) {
	cfg := newTestRunConfig(t)
	proc := newHappyPathProc()
	proc.RunStreamFunc = func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	}

	pipeline := NewPipeline(cfg, proc, newTestLogger())
	pipeline.prober = newTestProber(&mockHealthHTTPClient{})

	if err := pipeline.RunCompose(context.Background()); err == nil {
		t.Fatal("expected an error from the aborted run")
	}
	got := stageNames(pipeline.Results())
	if got[len(got)-1] != "compose" {
		t.Errorf("expected the run to stop at the compose stage, got %v", got)
	}
}
