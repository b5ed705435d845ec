package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
	"github.com/ledgerstack/ledgerdeploy/pkg/ux"
)

// runDown stops and removes the deployed application.
//
// Cluster resources are deleted in reverse apply order, so dependents
// go before the things they reference. The compose stack is brought
// down as well when a compose file exists. With --volumes the data
// volumes are removed too, which destroys the database; that path
// requires an interactive confirmation.
func runDown(cmd *cobra.Command, args []string) {
	run, logger, err := newRunEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if downVolumes && !confirmVolumeRemoval() {
		ux.Infof("Aborted. No changes were made.")
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	proc := NewDefaultProcessManager()

	deleteClusterResources(ctx, proc, logger, run)
	composeDown(ctx, proc, logger, run)

	logger.Success("application stopped")
	ux.Successf("Application stopped.")
}

// confirmVolumeRemoval asks the operator to type yes before data is
// destroyed.
func confirmVolumeRemoval() bool {
	fmt.Println("WARNING: --volumes permanently deletes the application data volumes," +
		" including the database contents. Back the data up first if you need it.")
	fmt.Print("Are you sure you want to continue? (yes/no): ")
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "yes" || input == "y"
}

// deleteClusterResources removes applied definitions in reverse order.
// Absent files and already-gone resources are expected on a partial or
// never-deployed environment and only warn.
func deleteClusterResources(ctx context.Context, proc ProcessManager, log *logging.Logger, run RunConfig) {
	for i := len(run.Resources) - 1; i >= 0; i-- {
		def := run.Resources[i]
		path := filepath.Join(run.ManifestDir, def.File)
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn("cannot read resource definition", "file", def.File, "error", err)
			}
			continue
		}
		if _, err := proc.RunWithInput(ctx, "kubectl", data, "delete", "--ignore-not-found", "-f", "-"); err != nil {
			log.Warn("resource deletion failed", "file", def.File, "error", err)
			continue
		}
		log.Info("resource deleted", "file", def.File)
	}
}

// composeDown tears down the compose stack when a compose file exists.
func composeDown(ctx context.Context, proc ProcessManager, log *logging.Logger, run RunConfig) {
	if _, err := os.Stat(run.ComposeFile); os.IsNotExist(err) {
		return
	}
	compose, err := ResolveTool(proc, log, composeCandidates())
	if err != nil {
		log.Warn("no compose provider available", "error", err)
		return
	}
	downArgs := []string{"-f", run.ComposeFile, "down"}
	if downVolumes {
		downArgs = append(downArgs, "-v")
	}
	name, args := compose.Command(downArgs...)
	if err := proc.RunStream(ctx, name, args...); err != nil {
		log.Warn("compose down failed", "file", run.ComposeFile, "error", err)
		return
	}
	log.Info("compose stack stopped", "file", run.ComposeFile, "volumes", downVolumes)
}
