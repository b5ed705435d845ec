package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// ResourceApplier submits resource definitions to the cluster control
// plane in a fixed dependency order.
//
// # Description
//
// The ordered list is never re-sorted or parallelized: secrets and
// config come before anything that reads them, storage before its
// consumers, backing services before the edge ingress. Downstream
// resources reference upstream ones by name and fail to bind when the
// referent does not exist yet.
//
// A missing definition file is skipped with a log line — not every
// environment defines every optional resource (an autoscaler, say).
// A present file the control plane rejects is fatal for the whole
// stage: a malformed definition is a configuration error that later
// resources may depend on, so it must not be silently ignored.
//
// # Idempotency
//
// Definitions are submitted via the control plane's upsert semantics
// ("kubectl apply"), so re-running the stage with identical content is
// a no-op. The applier's own contract is just apply-or-fatal,
// repeatable without manual cleanup.
type ResourceApplier struct {
	proc        ProcessManager
	log         *logging.Logger
	manifestDir string
}

// NewResourceApplier creates an applier rooted at manifestDir.
func NewResourceApplier(proc ProcessManager, log *logging.Logger, manifestDir string) *ResourceApplier {
	return &ResourceApplier{proc: proc, log: log, manifestDir: manifestDir}
}

// ApplyAll applies the ordered definitions once, in order.
//
// # Outputs
//
//   - StageResult: fatal on the first rejected submission; ok
//     otherwise, with skipped files recorded in Missing.
func (a *ResourceApplier) ApplyAll(ctx context.Context, ordered []ResourceDef) StageResult {
	var skipped []string
	applied := 0

	for _, def := range ordered {
		path := filepath.Join(a.manifestDir, def.File)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				a.log.Warn("resource definition absent, skipping", "file", def.File)
				skipped = append(skipped, def.File)
				continue
			}
			a.log.Error("resource definition unreadable", "file", def.File, "error", err)
			return fatalResult("apply", "cannot read %s: %v", def.File, err)
		}

		out, err := a.proc.RunWithInput(ctx, "kubectl", data, "apply", "-f", "-")
		if err != nil {
			a.log.Error("resource submission rejected", "file", def.File, "error", err)
			return fatalResult("apply", "apply failed for %s: %v", def.File, err)
		}
		a.log.Info("resource applied", "file", def.File, "result", strings.TrimSpace(string(out)))
		applied++
	}

	res := okResult("apply", "applied %d resource(s), skipped %d", applied, len(skipped))
	res.Missing = skipped
	return res
}
