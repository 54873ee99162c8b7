package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
)

// syncRecordCmd represents the sync record command
var syncRecordCmd = &cobra.Command{
	Use:   "record <model> <external-id>",
	Short: "Refresh one record from the directory",
	Long: `Refresh one record from the directory object carrying the external id.

The record is created when it does not exist locally. Nothing is saved when
the directory has no such object.

Example:
  adsyncctl sync record user 5f1d7a3e-0b8c-4c8e-9d0e-5a1f3b2c4d6e`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := syncRecord(cmd, args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.AddCommand(syncRecordCmd)
}

func syncRecord(cmd *cobra.Command, model, externalID string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	res, err := app.Scheduler.SyncRecord(cmd.Context(), model, externalID, scheduler.TriggerCLI)
	if err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("%s %s not found in directory", model, externalID)
	}

	action := "updated"
	if res.Created {
		action = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", model, externalID, action)
	return nil
}
