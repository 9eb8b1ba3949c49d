// Command sitestatus runs the site status service and its snapshot tools.
//
// Usage:
//
//	sitestatus serve -c config.yaml
//	sitestatus export -c config.yaml snapshot.zst
//	sitestatus import -c config.yaml snapshot.zst
package main

import (
	"os"
	"sitestatus/internal/structures"

	"github.com/spf13/cobra"
)

var flags = &structures.CliFlags{}

var rootCmd = &cobra.Command{
	Use:   "sitestatus",
	Short: "Observatory site status propagation service",
	Long: `sitestatus stores per-site status documents, merges partial updates,
and pushes every change to websocket subscribers of that site.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flags.EnvFile, "env", "e", "", "optional .env file with SITESTATUS_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "enable debug logging to the console")

	rootCmd.AddCommand(serveCmd, exportCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
