package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sujala/deuce/internal/cli/output"
	"github.com/sujala/deuce/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the merged, effective deuced configuration: defaults,
overridden by the config file, overridden by DEUCE_* environment
variables.

Examples:
  # Show default config as YAML
  deuced config show

  # Show as JSON
  deuced config show --output json

  # Show a specific config file
  deuced config show --config /etc/deuce/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
