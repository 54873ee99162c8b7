package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/bootstrap"
	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
)

// syncRunCmd represents the sync run command
var syncRunCmd = &cobra.Command{
	Use:   "run [model...]",
	Short: "Reconcile every matching directory object of a model",
	Long: `Reconcile every matching directory object of a model.

Directory objects matching the --attr filters (local field names) are matched
to local records by external identifier. Missing records are created, existing
ones are updated, and the result is saved. Without a model the configured
sync_models are reconciled in order.

Example:
  adsyncctl sync run
  adsyncctl sync run user --attr login=alice --attr login=bob
  adsyncctl sync run group --memberships --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSync(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.AddCommand(syncRunCmd)
	syncRunCmd.Flags().StringArrayP("attr", "a", nil, "filter on a local field, key=value (repeatable)")
	syncRunCmd.Flags().Bool("memberships", false, "resolve group memberships as part of the run")
	syncRunCmd.Flags().Bool("dry-run", false, "reconcile without saving")
}

func runSync(cmd *cobra.Command, args []string) error {
	attrs, _ := cmd.Flags().GetStringArray("attr")
	params, err := parseAttrs(attrs)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("memberships") {
		cfg.ResolveMembershipsInBatch, _ = cmd.Flags().GetBool("memberships")
	}

	app, err := newAppWithConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	models := args
	if len(models) == 0 {
		models = app.Scheduler.Models()
	}
	if len(models) == 0 {
		return errors.New("no model given and sync_models is empty")
	}
	return syncModels(cmd.Context(), cmd.OutOrStdout(), app, models, params, dryRun)
}

func syncModels(ctx context.Context, out io.Writer, app *bootstrap.App, models []string, params map[string]any, dryRun bool) error {
	var errs []error
	for _, model := range models {
		res, err := app.Scheduler.Sync(ctx, scheduler.Request{
			Model:   model,
			Params:  params,
			DryRun:  dryRun,
			Trigger: scheduler.TriggerCLI,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		suffix := ""
		if res.DryRun {
			suffix = " (dry run, nothing saved)"
		}
		fmt.Fprintf(out, "%s: %d found, %d created, %d updated in %s%s\n",
			res.Model, res.Found, res.Created, res.Updated, res.Duration.Round(time.Millisecond), suffix)
	}
	return errors.Join(errs...)
}
