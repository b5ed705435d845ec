package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledgerstack/ledgerdeploy/cmd/ledgerdeploy/config"
)

// DockerfileName is the build descriptor every build context must contain.
const DockerfileName = "Dockerfile"

// AuditImage is the reference external image whose metadata is dumped
// once per run for audit purposes. It never affects control flow.
const AuditImage = "mongo:7"

// =============================================================================
// STAGE RESULTS
// =============================================================================

// StageStatus classifies the outcome of one pipeline stage.
//
// # Description
//
// The driver uses the status to decide whether to continue: StatusFatal
// aborts the run, StatusWarning is recorded and execution continues,
// StatusOK continues silently. The mapping of error conditions to
// statuses is fixed per stage; a stage never escalates beyond what its
// contract allows (the image verifier, for example, can never be fatal).
type StageStatus int

const (
	// StatusOK means the stage completed with nothing to report.
	StatusOK StageStatus = iota

	// StatusWarning means the stage completed but recorded advisory
	// gaps or transient failures that a human should see in the log.
	StatusWarning

	// StatusFatal means the stage hit a structural error; the run must
	// abort with a non-zero exit status.
	StatusFatal
)

// String returns the level name used in log lines and summaries.
func (s StageStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StageResult is the outcome of one pipeline stage.
//
// # Description
//
// Produced by every stage, consumed by the driver. Missing carries the
// sub-items a non-fatal stage could not account for (absent manifest
// files, images not in the local inventory, workloads that did not
// exist yet) so the final summary can list them without re-parsing logs.
type StageResult struct {
	// Stage is the short stage name ("prereq", "build", "apply", ...).
	Stage string

	// Status classifies the outcome.
	Status StageStatus

	// Message is a single human-readable summary line.
	Message string

	// Missing lists sub-items the stage skipped or could not find.
	Missing []string
}

// okResult builds a StatusOK result.
func okResult(stage, format string, args ...any) StageResult {
	return StageResult{Stage: stage, Status: StatusOK, Message: fmt.Sprintf(format, args...)}
}

// warnResult builds a StatusWarning result.
func warnResult(stage, format string, args ...any) StageResult {
	return StageResult{Stage: stage, Status: StatusWarning, Message: fmt.Sprintf(format, args...)}
}

// fatalResult builds a StatusFatal result.
func fatalResult(stage, format string, args ...any) StageResult {
	return StageResult{Stage: stage, Status: StatusFatal, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// SERVICE TABLE
// =============================================================================

// ServiceSpec describes one managed service of the application.
//
// # Description
//
// The set of managed services is fixed and known in advance; specs are
// created from the static table below and never mutated. BuildContext
// is relative to the run's working directory.
type ServiceSpec struct {
	// Name is the workload name used for deployments and restarts.
	Name string

	// BuildContext is the directory holding the service's Dockerfile.
	BuildContext string

	// Image is the tag the build produces and the cluster consumes.
	Image string

	// Port is the host port the service is reachable on (0 if none).
	Port int

	// Critical marks the single externally reachable entry point.
	// Probe exhaustion on a critical service aborts the run; on an
	// advisory one it only warns.
	Critical bool
}

// DefaultServiceSpecs returns the fixed service table.
//
// The edge proxy is the only critical service: it is the user-facing
// entry point, while the backing APIs are probed for diagnosis only.
func DefaultServiceSpecs() []ServiceSpec {
	return []ServiceSpec{
		{
			Name:         "bank-api",
			BuildContext: "backend",
			Image:        "ledgerstack/bank-api:latest",
			Port:         5000,
		},
		{
			Name:         "portfolio-api",
			BuildContext: "portfolio",
			Image:        "ledgerstack/portfolio-api:latest",
			Port:         3000,
		},
		{
			Name:         "edge-proxy",
			BuildContext: "frontend",
			Image:        "ledgerstack/edge-proxy:latest",
			Port:         80,
			Critical:     true,
		},
	}
}

// =============================================================================
// RESOURCE TABLE
// =============================================================================

// ResourceDef names one resource definition file in the fixed apply order.
type ResourceDef struct {
	// File is the manifest filename inside the manifest directory.
	File string

	// Workload is the service the definition belongs to, or "" for
	// shared infrastructure (secrets, config, storage, ingress).
	Workload string
}

// DefaultResourceOrder returns the fixed, dependency-ordered resource
// list: secrets and config before anything that reads them, storage
// before its consumers, per-service triples, and the edge ingress last.
//
// Downstream resources reference upstream ones by name; applying out of
// order fails to bind, so this order is a correctness property and must
// never be re-sorted or parallelized.
func DefaultResourceOrder(specs []ServiceSpec) []ResourceDef {
	ordered := []ResourceDef{
		{File: "mongo-secret.yaml"},
		{File: "app-config.yaml"},
		{File: "mongo-statefulset.yaml"},
		{File: "mongo-service.yaml"},
	}
	for _, spec := range specs {
		ordered = append(ordered,
			ResourceDef{File: spec.Name + "-deployment.yaml", Workload: spec.Name},
			ResourceDef{File: spec.Name + "-service.yaml", Workload: spec.Name},
			ResourceDef{File: spec.Name + "-hpa.yaml", Workload: spec.Name},
		)
	}
	return append(ordered, ResourceDef{File: "edge-proxy-ingress.yaml"})
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Endpoint is one probe target of the health stage.
type Endpoint struct {
	// Name is the service the endpoint belongs to.
	Name string

	// URL is the address probed (base URL plus host port).
	URL string

	// Critical mirrors ServiceSpec.Critical.
	Critical bool
}

// ProbeState is the per-endpoint probe state machine.
//
// Pending -> Healthy on the first successful response,
// Pending -> Exhausted when the tick budget runs out.
type ProbeState string

const (
	ProbePending   ProbeState = "pending"
	ProbeHealthy   ProbeState = "healthy"
	ProbeExhausted ProbeState = "exhausted"
)

// HealthStatus is the probe outcome for one endpoint.
type HealthStatus struct {
	// Endpoint identifies what was probed.
	Endpoint Endpoint

	// State is the terminal probe state.
	State ProbeState

	// Reachable is true when at least one attempt succeeded.
	Reachable bool

	// Attempts is the number of requests actually issued.
	Attempts int

	// Elapsed is the wall time spent probing this endpoint.
	Elapsed time.Duration
}

// DefaultEndpoints derives the probe list from the service table.
//
// Advisory endpoints come first: the edge proxy's own readiness may
// depend on the backing services, so probing them first surfaces the
// root cause instead of the symptom.
func DefaultEndpoints(baseURL string, specs []ServiceSpec) []Endpoint {
	base := strings.TrimRight(baseURL, "/")
	var advisory, critical []Endpoint
	for _, spec := range specs {
		if spec.Port == 0 {
			continue
		}
		ep := Endpoint{
			Name:     spec.Name,
			URL:      fmt.Sprintf("%s:%d", base, spec.Port),
			Critical: spec.Critical,
		}
		if spec.Critical {
			critical = append(critical, ep)
		} else {
			advisory = append(advisory, ep)
		}
	}
	return append(advisory, critical...)
}

// =============================================================================
// RUN CONFIG
// =============================================================================

// RunConfig is the resolved, immutable set of tunables for one
// invocation. It joins the loaded file/env configuration with the
// static service and resource tables; no component reads ambient
// process state directly.
type RunConfig struct {
	WorkDir        string
	ComposeFile    string
	ManifestDir    string
	LogFile        string
	AuditFile      string
	BaseURL        string
	HealthTimeout  time.Duration
	HealthInterval time.Duration
	RequiredPorts  []int
	Services       []ServiceSpec
	Resources      []ResourceDef
	Endpoints      []Endpoint
}

// NewRunConfig resolves a loaded config into a RunConfig.
//
// Relative paths (compose file, manifest dir, build contexts) are
// anchored at WorkDir so the orchestrator behaves the same regardless
// of the directory it is invoked from.
func NewRunConfig(cfg config.Config) RunConfig {
	specs := DefaultServiceSpecs()
	for i := range specs {
		specs[i].BuildContext = joinWorkDir(cfg.WorkDir, specs[i].BuildContext)
	}
	return RunConfig{
		WorkDir:        cfg.WorkDir,
		ComposeFile:    joinWorkDir(cfg.WorkDir, cfg.ComposeFile),
		ManifestDir:    joinWorkDir(cfg.WorkDir, cfg.ManifestDir),
		LogFile:        cfg.LogFile,
		AuditFile:      cfg.AuditFile,
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		HealthTimeout:  time.Duration(cfg.Health.Timeout),
		HealthInterval: time.Duration(cfg.Health.Interval),
		RequiredPorts:  cfg.RequiredPorts,
		Services:       specs,
		Resources:      DefaultResourceOrder(specs),
		Endpoints:      DefaultEndpoints(cfg.BaseURL, specs),
	}
}

// AccessURLs returns the per-service URLs shown in the success banner.
func (c RunConfig) AccessURLs() []string {
	urls := make([]string, 0, len(c.Services))
	for _, spec := range c.Services {
		if spec.Port == 0 {
			continue
		}
		urls = append(urls, fmt.Sprintf("%s: %s:%d", spec.Name, c.BaseURL, spec.Port))
	}
	return urls
}

func joinWorkDir(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
