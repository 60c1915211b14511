// Package commands implements the deuced CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/sujala/deuce/cmd/deuced/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "deuced",
	Short: "Deuce - multi-tenant content-addressed block storage",
	Long: `Deuce is a multi-tenant, content-addressed block storage service.
Clients upload content-addressed blocks into per-project vaults, assign
them to files at byte offsets, and finalize files once every byte range
is covered.

Use "deuced [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configcmd.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
