package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "rovlink",
		Short: "Reliable UDP link between a vehicle and its controller",
		Long: `rovlink connects a remote controlled vehicle to its operator over UDP.

High priority messages (pings, values, drive commands, status) are
acknowledged and resent with an adaptive timeout; telemetry is best
effort. Run "rovlink vehicle" on the vehicle and "rovlink controller"
on the operator's machine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&flags.remote, "remote", "", "Remote host (overrides config)")
	pf.IntVarP(&flags.port, "port", "p", 0, "Remote UDP port (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(
		controllerCmd(&flags),
		vehicleCmd(&flags),
		configCmd(),
		versionCmd(),
	)
	return rootCmd
}
