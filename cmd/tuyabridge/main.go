// Gray Logic Tuya climate bridge.
//
// tuyabridge translates between the Tuya data points of air conditioners,
// reached through an MQTT gateway, and the Gray Logic property model. Each
// configured device gets a sync engine that keeps both sides consistent.
//
// Usage:
//
//	tuyabridge run [--config configs/config.yaml]
//	tuyabridge properties --devices configs/devices.yaml [--device ac-living]
//	tuyabridge version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tuyabridge",
		Short: "Bridge Tuya air conditioners to Gray Logic",
		Long: `tuyabridge exposes Tuya air conditioners as Gray Logic climate devices.
It follows each unit's data points through an MQTT gateway, publishes the derived
properties on the Gray Logic bus and turns property writes back into data point
updates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand(), newPropertiesCommand(), newVersionCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bridge daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("config") {
				configPath = getConfigPath()
			}
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath,
		"configuration file (env GRAYLOGIC_TUYA_CONFIG)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "tuyabridge %s (commit %s, built %s)\n", version, commit, date)
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_TUYA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_TUYA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
