// Package config implements the deuced "config" subcommand group.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect deuced's effective configuration.

Subcommands:
  show  Display the merged, effective configuration`,
}

func init() {
	Cmd.AddCommand(showCmd)
}
