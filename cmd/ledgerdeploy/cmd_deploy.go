package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ledgerstack/ledgerdeploy/cmd/ledgerdeploy/config"
	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// newRunEnv loads configuration and assembles the logger every command
// shares. The caller owns the returned logger and must Close it.
func newRunEnv() (RunConfig, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return RunConfig{}, nil, err
	}
	run := NewRunConfig(cfg)

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(logLevel),
		LogFile: run.LogFile,
		Service: "ledgerdeploy",
		Quiet:   quietOutput,
	})
	return run, logger, nil
}

// parseLogLevel maps the --log-level flag to a logging.Level,
// defaulting to Info on anything unrecognized.
func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, so a
// Ctrl-C tears down the child process instead of orphaning it.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runDeployCluster(cmd *cobra.Command, args []string) {
	runDeploy(func(ctx context.Context, p *Pipeline) error {
		return p.RunCluster(ctx)
	})
}

func runDeployCompose(cmd *cobra.Command, args []string) {
	runDeploy(func(ctx context.Context, p *Pipeline) error {
		return p.RunCompose(ctx)
	})
}

// runDeploy is the shared deploy driver: wire the pipeline, run the
// chosen mode, exit non-zero on a fatal stage.
func runDeploy(mode func(context.Context, *Pipeline) error) {
	run, logger, err := newRunEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	pipeline := NewPipeline(run, NewDefaultProcessManager(), logger)
	if err := mode(ctx, pipeline); err != nil {
		logger.Close()
		os.Exit(1)
	}
}
