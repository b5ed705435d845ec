package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerstack/ledgerdeploy/pkg/ux"
)

// runAuditImage dumps the metadata of one image to the audit artifact.
// Defaults to the reference database image when no argument is given.
func runAuditImage(cmd *cobra.Command, args []string) {
	run, logger, err := newRunEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	image := AuditImage
	if len(args) > 0 {
		image = args[0]
	}

	ctx, cancel := signalContext()
	defer cancel()

	dumper := NewAuditDumper(NewDefaultProcessManager(), logger)
	res := dumper.Dump(ctx, image, run.AuditFile)
	switch res.Status {
	case StatusOK:
		ux.Successf("%s", res.Message)
	default:
		ux.Warningf("%s", res.Message)
	}
}
