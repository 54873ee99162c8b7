package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/server/middleware"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API bearer tokens",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'token' requires a subcommand (issue)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// tokenIssueCmd represents the token issue command
var tokenIssueCmd = &cobra.Command{
	Use:   "issue <subject>",
	Short: "Issue a bearer token for the API",
	Long: `Issue an HS256 bearer token signed with token_secret.

Example:
  adsyncctl token issue provisioning --ttl 24h`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := middleware.IssueToken(cfg.TokenSecret, args[0], ttl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
}
