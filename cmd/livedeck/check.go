package main

import (
	"fmt"
	"time"

	"github.com/jpalmerr/livedeck/internal/poller"
	"github.com/spf13/cobra"
)

// checkCmd queries one streamer once.
var checkCmd = &cobra.Command{
	Use:   "check <streamer_id>",
	Short: "Query a streamer's live status once",
	Long: `Query the liveness endpoint once for a streamer and print the result.

Exit codes:
  0 - the query succeeded (live or offline)
  1 - the provider was unreachable or answered with a malformed body

Example:
  livedeck check foo
  livedeck check foo --live-api-url http://127.0.0.1:9000/api`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("live-api-url", poller.DefaultLiveAPIURL, "liveness endpoint")
	checkCmd.Flags().Duration("timeout", 10*time.Second, "request timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	endpoint, _ := cmd.Flags().GetString("live-api-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	provider := poller.NewLiveAPI(poller.NewClient(), endpoint, timeout)
	defer provider.Close()

	live, err := provider.QueryLiveness(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("check %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (code %d, %dms)\n",
		args[0], live.State, live.Code, live.Latency.Milliseconds())
	return nil
}
