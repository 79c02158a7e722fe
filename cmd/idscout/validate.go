package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/idscout/config"
)

// validateCmd validates a config file without starting the scanner.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an idscout configuration file without starting the scanner.

This command parses the YAML, expands environment variables, applies
environment overrides and validates all fields. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  idscout validate -c idscout.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// build the predicate too, so a bad match tree fails here
	if _, err := config.BuildPredicate(cfg.Lookup.Match); err != nil {
		return fmt.Errorf("invalid config: lookup.match: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:        %d\n", cfg.Port)
	fmt.Fprintf(out, "  Lookup:      %s\n", cfg.Lookup.URLTemplate)
	fmt.Fprintf(out, "  Match:       %s\n", cfg.Lookup.Match.Type)
	fmt.Fprintf(out, "  IDs:         %d-%d (likely %d-%d at %.2f)\n",
		cfg.IDs.Min, cfg.IDs.Max, cfg.IDs.LikelyMin, cfg.IDs.LikelyMax, *cfg.IDs.LikelyWeight)
	fmt.Fprintf(out, "  Concurrency: %d-%d, starting at %d\n",
		cfg.Concurrency.Min, cfg.Concurrency.Max, cfg.Concurrency.Initial)
	fmt.Fprintf(out, "  Rate limit:  %g/s, burst %d\n", cfg.RateLimit.TokensPerSec, cfg.RateLimit.MaxTokens)
	fmt.Fprintf(out, "  Dedupe:      %s\n", cfg.Dedupe.Backend)

	return nil
}
