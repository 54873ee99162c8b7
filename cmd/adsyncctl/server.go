package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/server"
	"github.com/doodlesbykumbi/directory-sync/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the directory sync API server and scheduler",
	Long: `Run the directory sync API server and scheduler.

To run the server requires the environment variable DATABASE_URL and either a
directory URL or a directory fixture in the configuration.

By default, database migrations are run on startup. Use --no-migrate to skip.
Scheduled reconciliation runs every sync_interval; zero disables it.`,
	Run: func(cmd *cobra.Command, args []string) {
		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			fmt.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		app, err := newApp(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to start: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = app.Close() }()

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(app, host, port)
		endpoints.RegisterAll(s)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app.Scheduler.Start(ctx)
		defer app.Scheduler.Stop()

		errCh := make(chan error, 1)
		go func() { errCh <- s.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			app.Logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Shutdown failed: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	addCredentialFlags(serverCmd)
}
