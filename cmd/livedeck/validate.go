package main

import (
	"fmt"

	"github.com/jpalmerr/livedeck/config"
	"github.com/jpalmerr/livedeck/internal/poller"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without polling.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a livedeck configuration file without polling.

This command parses the file, expands environment variables, and validates
all fields. Each target is listed with the poll interval it would use.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  livedeck validate -c livedeck.yaml
  livedeck validate --config livedeck.jsonc`,
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

	liveAPIURL := cfg.LiveAPIURL
	if liveAPIURL == "" {
		liveAPIURL = poller.DefaultLiveAPIURL
	}
	playerURL := cfg.PlayerURL
	if playerURL == "" {
		playerURL = poller.DefaultPlayerURL
	}
	inspect := "disabled"
	if cfg.InspectPort != 0 {
		inspect = fmt.Sprintf("127.0.0.1:%d", cfg.InspectPort)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Live API:        %s\n", liveAPIURL)
	fmt.Fprintf(out, "  Player:          %s\n", playerURL)
	fmt.Fprintf(out, "  Request timeout: %s\n", cfg.RequestTimeout.Duration())
	fmt.Fprintf(out, "  Inspect API:     %s\n", inspect)
	fmt.Fprintf(out, "  Targets:         %d\n", len(cfg.Targets))
	for _, t := range cfg.Targets {
		interval := poller.ResolveInterval(t.FetchInterval, poller.DefaultInterval)
		fmt.Fprintf(out, "    - %s (%s) every %s\n", t.Name, t.StreamerID, interval)
	}

	return nil
}
