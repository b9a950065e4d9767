package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/livedeck"
	"github.com/jpalmerr/livedeck/host"
	"github.com/jpalmerr/livedeck/internal/console"
)

func main() {
	// start mock provider (see mock_server.go)
	go StartMockLiveAPI(":9999")
	time.Sleep(100 * time.Millisecond)

	surface := console.New([]console.Target{
		{Name: "Foo", Settings: host.Settings{StreamerID: "foo", FetchInterval: "2000"}},
		{Name: "Bar", Settings: host.Settings{StreamerID: "bar", FetchInterval: "5000"}},
		// below the minimum, polled every second
		{Name: "Baz", Settings: host.Settings{StreamerID: "baz", FetchInterval: "250"}},
	}, os.Stdout)

	p, err := livedeck.New(
		livedeck.WithLiveAPIURL("http://localhost:9999/afreeca/player_live_api.php"),
		livedeck.WithPlayerURL("http://localhost:9999/play"),
		livedeck.WithInspectPort(8787),
		livedeck.WithStateCallback(func(c livedeck.StateChange) {
			if c.Code == -6 {
				slog.Info("restricted broadcast", "streamer_id", c.StreamerID)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create livedeck", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  livedeck demo")
	fmt.Println()
	fmt.Println("  3 mock streamers cycle through offline, live and restricted.")
	fmt.Println("  Inspect:  curl http://127.0.0.1:8787/api/targets")
	fmt.Println("  Press:    curl -X POST http://127.0.0.1:8787/api/targets/<context_id>/press")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx, surface); err != nil {
		slog.Error("livedeck error", "error", err)
		os.Exit(1)
	}
}
