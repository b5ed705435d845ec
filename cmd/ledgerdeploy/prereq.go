package main

import (
	"context"
	"fmt"
	"net"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// PrereqChecker verifies the environment before any mutation occurs.
//
// # Description
//
// Two classes of checks run back to back: required external tools must
// resolve on the search path, and required host ports must be free. A
// port already bound by an unrelated process would make the later
// health probes report false positives, so a bound port fails the run
// just like a missing tool does.
//
// # Outputs
//
// Each individual check emits one log line with the resolved tool path
// or the bound/free status, so the run log carries the full picture
// even when everything passes.
type PrereqChecker struct {
	proc ProcessManager
	log  *logging.Logger

	// listen is swappable in tests; defaults to net.Listen.
	listen func(network, address string) (net.Listener, error)
}

// NewPrereqChecker creates a checker using the real socket table.
func NewPrereqChecker(proc ProcessManager, log *logging.Logger) *PrereqChecker {
	return &PrereqChecker{
		proc:   proc,
		log:    log,
		listen: net.Listen,
	}
}

// Validate checks tools and ports and returns fatal if anything is off.
//
// # Inputs
//
//   - tools: executables that must resolve on PATH
//   - ports: host ports that must be free
//
// # Outputs
//
//   - StageResult: fatal when any tool is missing or any port is
//     bound; ok otherwise. Missing lists every failed check.
func (c *PrereqChecker) Validate(ctx context.Context, tools []string, ports []int) StageResult {
	var missing []string

	for _, tool := range tools {
		path, err := c.proc.LookPath(tool)
		if err != nil {
			c.log.Error("required tool not found", "tool", tool)
			missing = append(missing, "tool:"+tool)
			continue
		}
		c.log.Info("tool resolved", "tool", tool, "path", path)
	}

	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return fatalResult("prereq", "cancelled: %v", err)
		}
		addr := fmt.Sprintf(":%d", port)
		ln, err := c.listen("tcp", addr)
		if err != nil {
			c.log.Error("port already bound", "port", port)
			missing = append(missing, fmt.Sprintf("port:%d", port))
			continue
		}
		ln.Close()
		c.log.Info("port free", "port", port)
	}

	if len(missing) > 0 {
		res := fatalResult("prereq", "%d prerequisite check(s) failed", len(missing))
		res.Missing = missing
		return res
	}
	return okResult("prereq", "%d tools resolved, %d ports free", len(tools), len(ports))
}
