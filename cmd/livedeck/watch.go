package main

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/livedeck"
	"github.com/jpalmerr/livedeck/config"
	"github.com/jpalmerr/livedeck/internal/console"
	"github.com/spf13/cobra"
)

// watchCmd runs livedeck against the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch configured streamers in the terminal",
	Long: `Watch the streamers listed in a config file without a Stream Deck.

Every target is polled on its own fetch_interval and printed as a LIVE or
OFFLINE line whenever its state changes. With inspect_port set, targets are
also served as JSON and Server-Sent Events on 127.0.0.1, and
POST /api/targets/{id}/press simulates a key press.

Example:
  livedeck watch -c livedeck.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Targets) == 0 {
		return errors.New("no targets configured")
	}

	opts := append([]livedeck.Option{livedeck.WithLogger(logger)}, config.BuildOptions(cfg)...)
	p, err := livedeck.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create livedeck: %w", err)
	}

	surface := console.New(config.BuildTargets(cfg), cmd.OutOrStdout())
	logger.Info("watching targets", "count", len(cfg.Targets))

	return runUntilSignal(p, surface, logger)
}
