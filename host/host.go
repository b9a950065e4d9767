// Package host defines the contract between livedeck and the control surface
// that owns the buttons.
//
// A host delivers lifecycle [Event] values for each button (appear, settings
// change, disappear, press, release) and accepts two commands: set the
// button's visual [State] and open an external URL. The Stream Deck
// WebSocket transport and the standalone console both implement [Surface].
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// State is the two-valued visual state of a button.
//
// The numeric values match the state indices of a two-state Stream Deck
// action, so a State can be written to the host without translation.
type State int

const (
	// StateOffline is the default state; shown when the streamer is not
	// broadcasting or liveness could not be determined.
	StateOffline State = 0

	// StateLive is shown while the streamer is broadcasting, including
	// restricted broadcasts.
	StateLive State = 1
)

// String returns "live" or "offline".
func (s State) String() string {
	if s == StateLive {
		return "live"
	}
	return "offline"
}

// Controller identifies the kind of physical control an action sits on.
type Controller string

const (
	// ControllerKeypad is a regular key. Only keys are polled.
	ControllerKeypad Controller = "Keypad"

	// ControllerEncoder is a dial or touch strip segment.
	ControllerEncoder Controller = "Encoder"
)

// EventKind names a lifecycle event delivered by the host.
type EventKind string

const (
	EventWillAppear         EventKind = "willAppear"
	EventWillDisappear      EventKind = "willDisappear"
	EventDidReceiveSettings EventKind = "didReceiveSettings"
	EventKeyDown            EventKind = "keyDown"
	EventKeyUp              EventKind = "keyUp"
)

// Event is one lifecycle notification for a single button.
type Event struct {
	// Kind is the event type.
	Kind EventKind

	// Context is the stable opaque identifier of the button instance.
	Context string

	// Controller is the control kind; empty when the host did not say.
	Controller Controller

	// Settings are the button's persisted settings at the time of the event.
	Settings Settings
}

// Settings is the per-button configuration persisted by the host.
type Settings struct {
	// StreamerID is the broadcaster id polled for liveness and used to
	// build the click-through URL.
	StreamerID string `json:"streamer_id" yaml:"streamer_id"`

	// FetchInterval is the raw poll interval in milliseconds as entered by
	// the user. Empty means absent.
	FetchInterval Interval `json:"fetch_interval,omitempty" yaml:"fetch_interval,omitempty"`
}

// Interval is a raw, unparsed millisecond interval.
//
// The host stores it as a string, but older property inspectors wrote a JSON
// number; both decode to the same text so the registry's parser sees one
// format.
type Interval string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (i *Interval) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Interval(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("fetch_interval must be a string or number: %w", err)
	}
	*i = Interval(n.String())
	return nil
}

// UnmarshalYAML keeps any scalar's text, so 3000 and "3000" are equal.
func (i *Interval) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("fetch_interval must be a scalar, got %v", node.Kind)
	}
	if node.Tag == "!!null" {
		*i = ""
		return nil
	}
	*i = Interval(node.Value)
	return nil
}

// MillisInterval formats a millisecond count as an [Interval].
func MillisInterval(ms int) Interval {
	return Interval(strconv.Itoa(ms))
}

// Surface is a control surface hosting livedeck buttons.
//
// Implementations must be safe for concurrent use: SetState is called from
// per-target poll goroutines while Events is drained by the orchestrator.
type Surface interface {
	// Events returns the stream of lifecycle events. The channel is closed
	// when the surface shuts down or loses its connection.
	Events() <-chan Event

	// SetState sets the visual state of the button identified by contextID.
	SetState(ctx context.Context, contextID string, state State) error

	// OpenURL asks the host to open url in the user's browser.
	OpenURL(ctx context.Context, url string) error

	// IsKey reports whether contextID is currently visible and sits on a
	// keypad key (not a dial or other non-key control).
	IsKey(contextID string) bool

	// Close releases the surface's resources.
	Close() error
}

// Presser is implemented by surfaces that can simulate a button press.
type Presser interface {
	// Press delivers a key down followed by a key up for contextID.
	Press(contextID string) error
}
