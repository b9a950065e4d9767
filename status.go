package livedeck

import (
	"time"

	"github.com/jpalmerr/livedeck/host"
)

// State is the visual state of a button. It is [host.State] re-exported so
// callback consumers need not import the host package.
type State = host.State

const (
	// StateOffline is shown when the streamer is not broadcasting or
	// liveness could not be determined.
	StateOffline = host.StateOffline

	// StateLive is shown while the streamer is broadcasting.
	StateLive = host.StateLive
)

// StateChange is the outcome of one completed poll for one button.
//
// A StateChange is delivered after the state has been written to the
// surface. Error is set when the provider failed; State is then
// [StateOffline].
type StateChange struct {
	// ContextID is the host's identifier for the button.
	ContextID string

	// StreamerID is the broadcaster that was queried.
	StreamerID string

	// State is the state written to the button.
	State State

	// Code is the raw liveness code returned by the provider. It is 0 when
	// the provider failed.
	Code int

	// Interval is the button's poll period.
	Interval time.Duration

	// Latency is how long the provider call took.
	Latency time.Duration

	// CheckedAt is when the poll completed.
	CheckedAt time.Time

	// Error is the provider failure, if any.
	Error error
}
