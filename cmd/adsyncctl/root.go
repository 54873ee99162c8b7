package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adsyncctl",
	Short: "Synchronize local records with a directory service",
	Long: `Synchronize local user and group records with a directory service.

Records are matched to directory objects by external identifier and updated
from the attributes named in the attribute mapping.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to adsync.yml (default $ADSYNC_CONFIG_PATH/adsync.yml)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
