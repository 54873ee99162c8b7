package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/bootstrap"
	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
)

// syncWatchCmd represents the sync watch command
var syncWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a file and sync the records it lists whenever it changes",
	Long: `Watch a file and sync the records it lists whenever it changes.

Each line of the file names a model and, optionally, an external id:

  user 5f1d7a3e-0b8c-4c8e-9d0e-5a1f3b2c4d6e
  group

A line with an id refreshes that record; a bare model runs a batch sync.
Blank lines and lines starting with # are ignored.

Example:
  adsyncctl sync watch /run/adsync/requests`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := watchRequests(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch requests: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.AddCommand(syncWatchCmd)
}

func watchRequests(cmd *cobra.Command, filename string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	logger := componentLogger(app.Logger, "watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}
	logger.Info().Str("file", filename).Msg("watching for sync requests")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				requests, err := readRequests(filename)
				if err != nil {
					logger.Error().Err(err).Msg("failed to read sync requests")
					continue
				}
				processRequests(ctx, app, logger, requests)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("watcher error")
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return nil
		}
	}
}

type syncRequest struct {
	model      string
	externalID string
}

func readRequests(filename string) ([]syncRequest, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var requests []syncRequest
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		req := syncRequest{model: fields[0]}
		if len(fields) > 1 {
			req.externalID = fields[1]
		}
		requests = append(requests, req)
	}
	return requests, scanner.Err()
}

func processRequests(ctx context.Context, app *bootstrap.App, logger zerolog.Logger, requests []syncRequest) {
	for _, req := range requests {
		if req.externalID == "" {
			_, err := app.Scheduler.Sync(ctx, scheduler.Request{Model: req.model, Trigger: scheduler.TriggerWatch})
			if err != nil {
				logger.Error().Err(err).Str("model", req.model).Msg("sync failed")
			}
			continue
		}
		res, err := app.Scheduler.SyncRecord(ctx, req.model, req.externalID, scheduler.TriggerWatch)
		switch {
		case err != nil:
			logger.Error().Err(err).Str("model", req.model).Str("external_id", req.externalID).Msg("record sync failed")
		case !res.Found:
			logger.Warn().Str("model", req.model).Str("external_id", req.externalID).Msg("not found in directory")
		}
	}
}
