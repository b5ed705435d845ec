package main

import (
	"context"
	"strings"
	"time"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// RolloutRefresher forces each managed workload onto freshly built
// images via a rolling restart.
//
// # Description
//
// On a first-ever run nothing exists yet to restart — the apply stage
// is what creates the workloads — so a workload that does not exist
// produces a per-item warning, never a fatal. The stage as a whole
// never aborts the run.
type RolloutRefresher struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewRolloutRefresher creates a refresher backed by the control plane CLI.
func NewRolloutRefresher(proc ProcessManager, log *logging.Logger) *RolloutRefresher {
	return &RolloutRefresher{proc: proc, log: log}
}

// RestartAll requests a rolling restart of every named workload.
func (r *RolloutRefresher) RestartAll(ctx context.Context, names []string) StageResult {
	var missed []string
	for _, name := range names {
		_, err := r.proc.Run(ctx, "kubectl", "rollout", "restart", "deployment/"+name)
		if err != nil {
			r.log.Warn("rollout restart failed", "workload", name, "error", err)
			missed = append(missed, name)
			continue
		}
		r.log.Info("rollout restarted", "workload", name)
	}

	if len(missed) > 0 {
		res := warnResult("restart", "%d of %d workload(s) could not be restarted", len(missed), len(names))
		res.Missing = missed
		return res
	}
	return okResult("restart", "restarted %d workload(s)", len(names))
}

// ReadinessWaiter blocks until all workload replicas report ready, or
// the timeout elapses.
//
// # Description
//
// Readiness at this layer is best-effort: the control plane reports
// replicas as ready once their internal startup checks pass, but the
// authoritative confirmation is the health prober, which exercises real
// traffic. A timeout therefore degrades to a warning and the pipeline
// proceeds. The current replica snapshot is always logged before
// returning, for observability either way.
type ReadinessWaiter struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewReadinessWaiter creates a waiter backed by the control plane CLI.
func NewReadinessWaiter(proc ProcessManager, log *logging.Logger) *ReadinessWaiter {
	return &ReadinessWaiter{proc: proc, log: log}
}

// WaitReady blocks on a bulk readiness query bounded by timeout.
func (w *ReadinessWaiter) WaitReady(ctx context.Context, timeout time.Duration) StageResult {
	_, err := w.proc.Run(ctx, "kubectl", "wait",
		"--for=condition=Ready", "pods", "--all",
		"--timeout", timeout.String())

	w.logSnapshot(ctx)

	if err != nil {
		w.log.Warn("not all replicas ready within budget", "timeout", timeout, "error", err)
		return warnResult("wait", "replicas not ready after %s (continuing)", timeout)
	}
	return okResult("wait", "all replicas ready")
}

// logSnapshot records the current pod list in the run log.
func (w *ReadinessWaiter) logSnapshot(ctx context.Context) {
	out, err := w.proc.Run(ctx, "kubectl", "get", "pods", "-o", "wide")
	if err != nil {
		w.log.Warn("cannot list pods", "error", err)
		return
	}
	w.log.Info("replica snapshot", "pods", strings.TrimSpace(string(out)))
}
