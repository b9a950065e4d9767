// Package livedeck reflects the live status of SOOP broadcasters on control
// surface buttons.
//
// Every button watches one streamer. livedeck polls the SOOP liveness
// endpoint for each button on its own interval and sets the button to one of
// two states, LIVE or OFFLINE. Pressing a button opens the streamer's
// channel page.
//
// # Quick Start
//
//	p, _ := livedeck.New(livedeck.WithLogger(logger))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	p.Run(ctx, surface) // blocks until ctx is cancelled or the surface closes
//
// A surface is anything implementing [host.Surface]. The livedeck binary
// ships two: the Stream Deck WebSocket transport and a terminal console
// driven by a config file.
//
// # Polling
//
// Each button's fetch_interval setting is a millisecond count. Missing or
// malformed values poll every 5 seconds; values under one second are raised
// to one second. Changing the interval restarts the button's timer and
// resets it to OFFLINE; changing only the streamer keeps the timer running.
//
// # Architecture
//
//   - host: the surface contract (events, settings, states)
//   - internal/poller: per-button timers and the SOOP provider
//   - internal/store: last observation per button with pub/sub
//   - internal/server: optional local JSON and SSE inspect API
//   - internal/streamdeck, internal/console: the bundled surfaces
package livedeck
