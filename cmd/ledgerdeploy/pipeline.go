package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
	"github.com/ledgerstack/ledgerdeploy/pkg/ux"
)

// Pipeline drives a full deployment run, stage by stage.
//
// # Description
//
// Stages execute strictly in order; each returns a StageResult and the
// driver decides what happens next. A fatal result aborts immediately
// with a failure banner and a non-zero exit. Warnings are recorded and
// the run continues. Every non-fatal stage gets one SUCCESS line in
// the run log, so the persisted artifact reads as a per-stage audit
// trail even for runs that degrade along the way.
//
// Two run modes share the same skeleton: cluster mode builds images,
// applies resource definitions and restarts workloads; compose mode
// delegates build-and-start to the compose CLI. Both end with the same
// health probe pass, which is the authoritative verdict on the run.
type Pipeline struct {
	cfg  RunConfig
	proc ProcessManager
	log  *logging.Logger

	prereq   *PrereqChecker
	builder  *ImageBuilder
	verifier *ImageVerifier
	auditor  *AuditDumper
	applier  *ResourceApplier
	rollout  *RolloutRefresher
	waiter   *ReadinessWaiter
	prober   *HealthProber

	// results accumulates stage outcomes for the final summary.
	results []StageResult
}

// NewPipeline wires all stage components against one process manager
// and one logger.
func NewPipeline(cfg RunConfig, proc ProcessManager, log *logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		proc:     proc,
		log:      log,
		prereq:   NewPrereqChecker(proc, log),
		builder:  NewImageBuilder(proc, log),
		verifier: NewImageVerifier(proc, log),
		auditor:  NewAuditDumper(proc, log),
		applier:  NewResourceApplier(proc, log, cfg.ManifestDir),
		rollout:  NewRolloutRefresher(proc, log),
		waiter:   NewReadinessWaiter(proc, log),
		prober:   NewHealthProber(log),
	}
}

// Results returns the stage outcomes recorded so far.
func (p *Pipeline) Results() []StageResult {
	return p.results
}

// RunCluster executes the full cluster deployment:
// prereq, build, verify, audit, apply, restart, wait, probe.
func (p *Pipeline) RunCluster(ctx context.Context) error {
	ux.Titlef("Deploying to cluster")

	if err := p.stage(p.prereq.Validate(ctx, []string{"docker", "kubectl"}, p.cfg.RequiredPorts)); err != nil {
		return err
	}
	if err := p.stage(p.builder.BuildAll(ctx, p.cfg.Services)); err != nil {
		return err
	}
	if err := p.stage(p.verifier.VerifyPresence(ctx, p.expectedImages())); err != nil {
		return err
	}
	if err := p.stage(p.auditor.Dump(ctx, AuditImage, p.cfg.AuditFile)); err != nil {
		return err
	}
	if err := p.stage(p.applier.ApplyAll(ctx, p.cfg.Resources)); err != nil {
		return err
	}
	if err := p.stage(p.rollout.RestartAll(ctx, workloadNames(p.cfg.Services))); err != nil {
		return err
	}
	if err := p.stage(p.waiter.WaitReady(ctx, p.cfg.HealthTimeout)); err != nil {
		return err
	}
	return p.probeAndSummarize(ctx)
}

// RunCompose executes the compose deployment:
// prereq, compose up, verify, audit, probe.
func (p *Pipeline) RunCompose(ctx context.Context) error {
	ux.Titlef("Deploying with compose")

	if err := p.stage(p.prereq.Validate(ctx, []string{"docker"}, p.cfg.RequiredPorts)); err != nil {
		return err
	}
	compose, err := ResolveTool(p.proc, p.log, composeCandidates())
	if err != nil {
		return p.stage(fatalResult("prereq", "no compose provider: %v", err))
	}
	if err := p.stage(p.composeUp(ctx, compose)); err != nil {
		return err
	}
	if err := p.stage(p.verifier.VerifyPresence(ctx, p.expectedImages())); err != nil {
		return err
	}
	if err := p.stage(p.auditor.Dump(ctx, AuditImage, p.cfg.AuditFile)); err != nil {
		return err
	}
	return p.probeAndSummarize(ctx)
}

// composeUp builds and starts the stack through the resolved compose
// provider. The compose tool owns build ordering and container
// lifecycle here; any failure is structural because nothing is running
// afterwards.
func (p *Pipeline) composeUp(ctx context.Context, compose ResolvedTool) StageResult {
	p.log.Info("starting compose stack", "file", p.cfg.ComposeFile, "tool", compose.String())
	name, args := compose.Command("-f", p.cfg.ComposeFile, "up", "-d", "--build")
	if err := p.proc.RunStream(ctx, name, args...); err != nil {
		p.log.Error("compose up failed", "file", p.cfg.ComposeFile, "error", err)
		return fatalResult("compose", "compose up failed: %v", err)
	}
	return okResult("compose", "stack started from %s", p.cfg.ComposeFile)
}

// probeAndSummarize runs the shared final health stage and prints the
// closing banner.
func (p *Pipeline) probeAndSummarize(ctx context.Context) error {
	result, statuses := p.prober.ProbeAll(ctx, p.cfg.Endpoints, p.cfg.HealthTimeout, p.cfg.HealthInterval)
	if err := p.stage(result); err != nil {
		return err
	}

	p.log.Success("deployment completed successfully", "endpoints", Summary(statuses))
	p.summarize(statuses)
	return nil
}

// stage records a result and applies the continue/abort policy.
func (p *Pipeline) stage(res StageResult) error {
	p.results = append(p.results, res)

	switch res.Status {
	case StatusFatal:
		p.log.Error("stage failed", "stage", res.Stage, "detail", res.Message)
		p.fail(res)
		return fmt.Errorf("%s: %s", res.Stage, res.Message)
	case StatusWarning:
		p.log.Success("stage completed", "stage", res.Stage, "detail", res.Message, "degraded", true)
		ux.Warningf("%s: %s", res.Stage, res.Message)
	default:
		p.log.Success("stage completed", "stage", res.Stage, "detail", res.Message)
		ux.Successf("%s: %s", res.Stage, res.Message)
	}
	return nil
}

// summarize prints the success banner: reachable endpoints, access
// URLs, and the run log artifact location.
func (p *Pipeline) summarize(statuses []HealthStatus) {
	lines := []string{"Deployment complete", ""}
	for _, s := range statuses {
		mark := "up"
		if !s.Reachable {
			mark = "DOWN"
		}
		lines = append(lines, fmt.Sprintf("%-15s %s  (%s)", s.Endpoint.Name, mark, s.Endpoint.URL))
	}
	lines = append(lines, "")
	lines = append(lines, p.cfg.AccessURLs()...)
	if path := p.log.LogFilePath(); path != "" {
		lines = append(lines, "", "Run log: "+path)
	}
	ux.SuccessBanner(lines...)
}

// fail prints the failure banner with the stage that aborted the run.
func (p *Pipeline) fail(res StageResult) {
	lines := []string{
		"Deployment failed",
		"",
		fmt.Sprintf("Stage:  %s", res.Stage),
		fmt.Sprintf("Reason: %s", res.Message),
	}
	if len(res.Missing) > 0 {
		lines = append(lines, "Items:  "+strings.Join(res.Missing, ", "))
	}
	if path := p.log.LogFilePath(); path != "" {
		lines = append(lines, "", "Run log: "+path)
	}
	ux.FailureBanner(lines...)
}

// expectedImages lists the tags the build pass should have produced.
func (p *Pipeline) expectedImages() []string {
	images := make([]string, 0, len(p.cfg.Services))
	for _, spec := range p.cfg.Services {
		images = append(images, spec.Image)
	}
	return images
}

// workloadNames lists the deployment names to restart.
func workloadNames(specs []ServiceSpec) []string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}
