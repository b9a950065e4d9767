package config

import (
	"github.com/jpalmerr/livedeck"
	"github.com/jpalmerr/livedeck/host"
	"github.com/jpalmerr/livedeck/internal/console"
)

// BuildOptions converts parsed configuration into [livedeck.Option] values.
//
// Only fields that were set produce an option, so the library defaults
// apply to everything else.
func BuildOptions(cfg *Config) []livedeck.Option {
	var opts []livedeck.Option

	if cfg.LiveAPIURL != "" {
		opts = append(opts, livedeck.WithLiveAPIURL(cfg.LiveAPIURL))
	}
	if cfg.PlayerURL != "" {
		opts = append(opts, livedeck.WithPlayerURL(cfg.PlayerURL))
	}
	if cfg.RequestTimeout != 0 {
		opts = append(opts, livedeck.WithRequestTimeout(cfg.RequestTimeout.Duration()))
	}
	if cfg.InspectPort != 0 {
		opts = append(opts, livedeck.WithInspectPort(cfg.InspectPort))
	}

	return opts
}

// BuildTargets converts configured targets into console targets, keeping
// file order.
func BuildTargets(cfg *Config) []console.Target {
	targets := make([]console.Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		targets = append(targets, console.Target{
			Name: tc.Name,
			Settings: host.Settings{
				StreamerID:    tc.StreamerID,
				FetchInterval: tc.FetchInterval,
			},
		})
	}
	return targets
}
