// Package main is the entry point for the livedeck CLI.
//
// livedeck runs either as a Stream Deck plugin, launched by the Stream Deck
// application, or standalone in a terminal with targets from a config file.
//
// Usage:
//
//	livedeck -port 28196 -pluginUUID ... -registerEvent registerPlugin -info '{...}'
//	livedeck watch -c livedeck.yaml    # watch targets in the terminal
//	livedeck check foo                 # query one streamer once
//	livedeck validate -c livedeck.yaml # validate configuration
//	livedeck version                   # show version info
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "livedeck",
	Short: "SOOP live status on Stream Deck keys",
	Long: `livedeck shows whether SOOP broadcasters are live on Stream Deck keys.

Each key watches one streamer and switches between an OFFLINE and a LIVE
state. Pressing a key opens the streamer's channel page.

The Stream Deck application starts livedeck with its own launch arguments;
there is nothing to run by hand in that mode. To try livedeck without a
Stream Deck, list streamers in a config file and run:

  livedeck watch -c livedeck.yaml

Example config:
  targets:
    - name: Foo
      streamer_id: foo
      fetch_interval: "3000"`,
	SilenceUsage: true,
}

// hostFlags are the launch arguments the Stream Deck application passes
// with a single dash.
var hostFlags = map[string]bool{
	"port":          true,
	"pluginUUID":    true,
	"registerEvent": true,
	"info":          true,
}

// normalizeArgs rewrites the host's single-dash launch arguments into the
// double-dash form cobra expects, and selects the plugin command when the
// host launched the binary without one.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	hostLaunch := false

	for _, arg := range args {
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			name, _, _ := strings.Cut(strings.TrimPrefix(arg, "-"), "=")
			if hostFlags[name] {
				arg = "-" + arg
				if name == "registerEvent" {
					hostLaunch = true
				}
			}
		}
		out = append(out, arg)
	}

	if hostLaunch && (len(out) == 0 || out[0] != pluginCmd.Name()) {
		out = append([]string{pluginCmd.Name()}, out...)
	}
	return out
}

// normalizeFlagName accepts dashed and lowercase spellings of the host's
// camel-case flags.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "pluginuuid":
		name = "pluginUUID"
	case "registerevent":
		name = "registerEvent"
	}
	return pflag.NormalizedName(name)
}

// newLogger creates a JSON logger on stderr. --debug lowers the level.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this livedeck binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "livedeck %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}
