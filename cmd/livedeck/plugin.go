package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/livedeck"
	"github.com/jpalmerr/livedeck/config"
	"github.com/jpalmerr/livedeck/internal/streamdeck"
	"github.com/spf13/cobra"
)

const dialTimeout = 10 * time.Second

// pluginCmd connects to the Stream Deck application.
var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Run as a Stream Deck plugin",
	Long: `Run as a Stream Deck plugin.

The Stream Deck application launches the plugin with single-dash arguments:

  livedeck -port 28196 -pluginUUID <uuid> -registerEvent registerPlugin -info '{...}'

These are accepted as-is. An optional config file tunes the provider;
targets in it are ignored because keys come from the Stream Deck.`,
	RunE: runPlugin,
}

func init() {
	rootCmd.AddCommand(pluginCmd)

	flags := pluginCmd.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)
	flags.Int("port", 0, "Stream Deck WebSocket port (required)")
	flags.String("pluginUUID", "", "plugin registration uuid (required)")
	flags.String("registerEvent", "", "registration event name (required)")
	flags.String("info", "", "Stream Deck application info (JSON)")
	flags.StringP("config", "c", "", "path to config file")
	_ = pluginCmd.MarkFlagRequired("port")
	_ = pluginCmd.MarkFlagRequired("pluginUUID")
	_ = pluginCmd.MarkFlagRequired("registerEvent")
}

func runPlugin(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	port, _ := cmd.Flags().GetInt("port")
	pluginUUID, _ := cmd.Flags().GetString("pluginUUID")
	registerEvent, _ := cmd.Flags().GetString("registerEvent")
	info, _ := cmd.Flags().GetString("info")

	opts := []livedeck.Option{livedeck.WithLogger(logger)}
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts = append(opts, config.BuildOptions(cfg)...)
	}

	p, err := livedeck.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create livedeck: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	conn, err := streamdeck.Dial(ctx, streamdeck.Params{
		Port:          port,
		PluginUUID:    pluginUUID,
		RegisterEvent: registerEvent,
		Info:          info,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("registered with stream deck", "port", port)
	announce(conn, logger)

	return runUntilSignal(p, conn, logger)
}

// hostLog is the Stream Deck application's plugin log.
type hostLog interface {
	LogMessage(ctx context.Context, message string) error
}

// announce records the running version in the host's plugin log.
func announce(hl hostLog, logger *slog.Logger) {
	if err := hl.LogMessage(context.Background(), "livedeck "+version+" registered"); err != nil {
		logger.Warn("failed to write stream deck log message", "error", err)
	}
}
