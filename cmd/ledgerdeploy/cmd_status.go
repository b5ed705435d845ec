package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerstack/ledgerdeploy/pkg/ux"
)

// runStatus shows the current workloads and probes each endpoint once.
//
// This is a read-only command: it never mutates cluster state, so a
// degraded result prints warnings rather than exiting non-zero.
func runStatus(cmd *cobra.Command, args []string) {
	run, logger, err := newRunEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	proc := NewDefaultProcessManager()

	ux.Titlef("Workloads")
	out, err := proc.Run(ctx, "kubectl", "get", "deployments,pods", "-o", "wide")
	if err != nil {
		ux.Warningf("cannot query cluster workloads: %v", err)
	} else {
		ux.Infof("%s", strings.TrimSpace(string(out)))
	}

	ux.Titlef("Endpoints")
	prober := NewHealthProber(logger)
	// One attempt per endpoint: status is a snapshot, not a wait.
	_, statuses := prober.ProbeAll(ctx, run.Endpoints, run.HealthInterval, run.HealthInterval)
	for _, s := range statuses {
		if s.Reachable {
			ux.Successf("%s  %s", s.Endpoint.Name, s.Endpoint.URL)
		} else {
			ux.Warningf("%s  %s (unreachable)", s.Endpoint.Name, s.Endpoint.URL)
		}
	}
	ux.Infof("%s", Summary(statuses))
}
