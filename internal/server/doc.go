// Package server provides the optional local inspect API for livedeck.
//
// The server binds to the loopback interface only and serves:
//
//   - JSON snapshot of every visible target at "/api/targets"
//   - Server-Sent Events with updates and removals at "/api/sse"
//   - a press endpoint for surfaces that can simulate key presses
//
// There is no HTML UI. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
package server
