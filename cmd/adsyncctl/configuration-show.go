package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources, i.e. the environment variables and config file. They
may not reflect the values used by a running server. Secrets are masked.

Config file location: /etc/adsync/config/adsync.yml (or ADSYNC_CONFIG_PATH)

Example:
  adsyncctl configuration show
  adsyncctl configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		if err := showConfiguration(cmd, output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(cmd *cobra.Command, output string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if output == "json" {
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), jsonOutput)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), cfg.FormatText())
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nWarning: %v\n", err)
	}
	return nil
}
