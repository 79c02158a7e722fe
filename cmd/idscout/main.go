// Package main is the entry point for the idscout CLI.
//
// idscout can be run either as a library (SDK) or as a standalone binary
// configured from YAML and the environment. This CLI provides the
// standalone binary approach.
//
// Usage:
//
//	idscout serve                   # Configure from the environment
//	idscout serve -c idscout.yaml   # Start probing with a config file
//	idscout validate -c idscout.yaml
//	idscout version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "idscout",
	Short: "Adaptive identifier scanner with webhook notifications",
	Long: `idscout samples a numeric identifier space behind a public lookup
endpoint, detects identifiers matching a predicate, and posts each new
match to a webhook.

Concurrency tunes itself to the lookup latency and outbound requests are
bounded by a token bucket.

Quick start:
  1. export discordwebhook=https://discord.com/api/webhooks/...
  2. Run: idscout serve
  3. Check http://localhost:3000/health

Example config:
  webhook_url: ${discordwebhook}
  concurrency: {min: 5, max: 60}
  rate_limit: {tokens_per_sec: 200, max_tokens: 500}`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this idscout binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "idscout %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
