package main

import (
	"context"
	"strings"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// ImageVerifier confirms expected image tags exist in the local store.
//
// # Description
//
// Runs after the build pass as a sanity check. Matching is by
// repository component only — the part before the ":" — so a digest or
// alternate tag still counts as present. The stage never returns
// fatal: some images are pulled remotely at schedule time rather than
// built locally, so an absent tag is advisory.
type ImageVerifier struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewImageVerifier creates a verifier backed by the local image inventory.
func NewImageVerifier(proc ProcessManager, log *logging.Logger) *ImageVerifier {
	return &ImageVerifier{proc: proc, log: log}
}

// VerifyPresence checks each expected tag against the local inventory.
//
// # Inputs
//
//   - expected: image tags the build pass should have produced
//
// # Outputs
//
//   - StageResult: warning with the missing tags listed, or ok.
//     Never fatal.
func (v *ImageVerifier) VerifyPresence(ctx context.Context, expected []string) StageResult {
	out, err := v.proc.Run(ctx, "docker", "images", "--format", "{{.Repository}}:{{.Tag}}")
	if err != nil {
		v.log.Warn("cannot enumerate local images", "error", err)
		return warnResult("verify", "image inventory unavailable: %v", err)
	}

	inventory := strings.Split(strings.TrimSpace(string(out)), "\n")

	var missing []string
	for _, tag := range expected {
		repo := tag
		if idx := strings.LastIndex(tag, ":"); idx > 0 {
			repo = tag[:idx]
		}
		if !inventoryHasRepo(inventory, repo) {
			v.log.Warn("image not found in local store", "image", tag)
			missing = append(missing, tag)
			continue
		}
		v.log.Info("image present", "image", tag)
	}

	if len(missing) > 0 {
		res := warnResult("verify", "%d of %d image(s) missing from local store", len(missing), len(expected))
		res.Missing = missing
		return res
	}
	return okResult("verify", "all %d image(s) present", len(expected))
}

// inventoryHasRepo reports whether any repository:tag line matches the
// repository component exactly.
func inventoryHasRepo(inventory []string, repo string) bool {
	for _, line := range inventory {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, repo+":") {
			return true
		}
	}
	return false
}
