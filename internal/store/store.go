package store

import "time"

// TargetStatus is the last observation of one button's target.
//
// TargetStatus is the storage representation used by the inspect API (JSON
// and SSE). It is decoupled from the poller's types so the wire shape can
// evolve independently.
type TargetStatus struct {
	// ContextID is the host's identifier for the button.
	ContextID string `json:"context_id"`

	// StreamerID is the broadcaster being watched.
	StreamerID string `json:"streamer_id"`

	// State is "live" or "offline".
	State string `json:"state"`

	// Code is the raw provider liveness code of the last poll.
	Code int `json:"code"`

	// IntervalMs is the target's poll period in milliseconds.
	IntervalMs int64 `json:"interval_ms"`

	// ResponseTimeMs is the provider latency of the last poll.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is the timestamp of the last poll. Zero before the first.
	CheckedAt time.Time `json:"checked_at"`

	// Error contains the provider error of the last poll, if any.
	Error *string `json:"error"`

	// Removed is set on the notification published when the target
	// disappears. Stored statuses never carry it.
	Removed bool `json:"removed,omitempty"`
}

// Store defines the interface for storing and subscribing to target updates.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a status and notifies all subscribers.
	// Statuses are keyed by ContextID.
	Update(status TargetStatus)

	// Remove forgets a target and notifies subscribers with a Removed
	// status. Unknown ids are ignored.
	Remove(contextID string)

	// Get returns the stored status for contextID.
	Get(contextID string) (TargetStatus, bool)

	// GetAll returns all stored statuses ordered by ContextID.
	GetAll() []TargetStatus

	// Subscribe returns a channel that receives updates and removals.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan TargetStatus

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan TargetStatus)
}
