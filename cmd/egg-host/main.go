// Command egg-host runs an egg host with the Aspire integration module.
//
// Usage:
//
//	egg-host [serve] [--config file]... [--http addr]
//	egg-host version
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.eggybyte.com/egg/servicex"
)

var (
	configFiles []string
	httpAddr    string
)

var rootCmd = &cobra.Command{
	Use:           "egg-host",
	Short:         "Run an egg host",
	Long:          "Run an egg host. The Aspire integration activates when Aspire:Enabled is true or the orchestrator sets DOTNET_RESOURCE_SERVICE_ENDPOINT_URL.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the host until interrupted (default)",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), servicex.Build())
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "JSON or YAML configuration file (repeatable)")
	rootCmd.PersistentFlags().StringVar(&httpAddr, "http", "", "HTTP listen address, overrides HTTP_PORT")
	rootCmd.Version = servicex.Build().Version
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "egg-host:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newHost(configFiles, httpAddr).Run(ctx)
}
