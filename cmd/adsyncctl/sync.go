package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local records with the directory",
	Long:  `Reconcile local records with the directory, in batch or one record at a time.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'sync' requires a subcommand (run, record, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addCredentialFlags(syncCmd)
}
