package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// AuditDumper captures the full metadata of a reference image and
// persists it as a JSON artifact next to the run log.
//
// # Description
//
// The dump exists for audit trails only: which exact database image
// was the deployment built against. It never influences control flow,
// so every failure path here is a warning. The artifact is rewritten
// on each run; the run log carries the history.
type AuditDumper struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewAuditDumper creates a dumper backed by the container CLI.
func NewAuditDumper(proc ProcessManager, log *logging.Logger) *AuditDumper {
	return &AuditDumper{proc: proc, log: log}
}

// Dump inspects image and writes its metadata to path.
//
// # Outputs
//
//   - StageResult: warning when the image cannot be inspected or the
//     artifact cannot be written; ok otherwise. Never fatal.
func (d *AuditDumper) Dump(ctx context.Context, image, path string) StageResult {
	out, err := d.proc.Run(ctx, "docker", "image", "inspect", image)
	if err != nil {
		d.log.Warn("cannot inspect audit image", "image", image, "error", err)
		return warnResult("audit", "inspect failed for %s: %v", image, err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		// Non-JSON output still gets persisted verbatim.
		pretty.Reset()
		pretty.Write(out)
	}

	if err := os.WriteFile(path, pretty.Bytes(), 0644); err != nil {
		d.log.Warn("cannot write audit artifact", "path", path, "error", err)
		return warnResult("audit", "cannot write %s: %v", path, err)
	}

	d.log.Info("audit artifact written", "image", image, "path", path)
	return okResult("audit", "metadata for %s written to %s", image, path)
}
