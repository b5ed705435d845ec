package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath  string
	logLevel    string
	quietOutput bool
	downVolumes bool

	rootCmd = &cobra.Command{
		Use:   "ledgerdeploy",
		Short: "A cli to build, deploy and verify the LedgerStack banking services",
		Long: `Ledgerdeploy drives the full deployment of the LedgerStack
				application: it builds the service images, applies the cluster
				resource definitions in dependency order, restarts the
				workloads and verifies the deployed services answer traffic.
				Every run writes a persisted log artifact for later audit.`,
	}

	// --- Deploy ---
	deployCmd = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the full application stack",
	}
	deployClusterCmd = &cobra.Command{
		Use:   "cluster",
		Short: "Build images, apply cluster resources and verify health",
		Run:   runDeployCluster, // Defined in cmd_deploy.go
	}
	deployComposeCmd = &cobra.Command{
		Use:   "compose",
		Short: "Build and start the stack with docker-compose and verify health",
		Run:   runDeployCompose, // Defined in cmd_deploy.go
	}

	// --- Status ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show running workloads and probe the service endpoints",
		Run:   runStatus, // Defined in cmd_status.go
	}

	// --- Down ---
	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the deployed application",
		Run:   runDown, // Defined in cmd_down.go
	}

	// --- Audit ---
	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Audit helpers for the deployed stack",
	}
	auditImageCmd = &cobra.Command{
		Use:   "image [image]",
		Short: "Dump full image metadata to the audit artifact",
		Args:  cobra.MaximumNArgs(1),
		Run:   runAuditImage, // Defined in cmd_audit.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the ledgerdeploy.yaml config file (default: ./ledgerdeploy.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quietOutput, "quiet", "q", false,
		"Suppress console log output (the run log artifact is still written)")

	rootCmd.AddCommand(deployCmd)
	deployCmd.AddCommand(deployClusterCmd)
	deployCmd.AddCommand(deployComposeCmd)

	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(downCmd)
	downCmd.Flags().BoolVar(&downVolumes, "volumes", false,
		"Also remove data volumes (compose mode). DESTROYS persisted data.")

	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditImageCmd)
}
