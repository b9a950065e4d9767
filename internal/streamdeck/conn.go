// Package streamdeck implements [host.Surface] over the Stream Deck plugin
// WebSocket protocol.
//
// The Stream Deck application launches the plugin with a port, a plugin UUID
// and a registration event name. The plugin dials the local WebSocket,
// registers, then receives JSON events for its actions and sends commands
// back on the same connection.
package streamdeck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/livedeck/host"
)

const (
	writeTimeout = 5 * time.Second
	eventBuffer  = 64
)

// ErrClosed is returned by commands issued after the connection closed.
var ErrClosed = errors.New("stream deck connection closed")

// Params are the launch arguments supplied by the Stream Deck application.
type Params struct {
	Port          int
	PluginUUID    string
	RegisterEvent string
	Info          string
}

// inbound is the envelope of every message the host sends.
type inbound struct {
	Action  string          `json:"action"`
	Event   string          `json:"event"`
	Context string          `json:"context"`
	Device  string          `json:"device"`
	Payload json.RawMessage `json:"payload"`
}

type actionPayload struct {
	Settings   json.RawMessage `json:"settings"`
	Controller string          `json:"controller"`
}

type outbound struct {
	Event   string `json:"event"`
	Context string `json:"context,omitempty"`
	UUID    string `json:"uuid,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Conn is a registered plugin connection to the Stream Deck application.
type Conn struct {
	ws     *websocket.Conn
	events chan host.Event
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	visible  map[string]host.Controller
	closed   bool
	closeErr error

	quit chan struct{}
	done chan struct{}
}

// Dial connects to the Stream Deck application on 127.0.0.1 and registers
// the plugin. Events start flowing immediately; read them from
// [Conn.Events].
func Dial(ctx context.Context, p Params, logger *slog.Logger) (*Conn, error) {
	return dialURL(ctx, fmt.Sprintf("ws://127.0.0.1:%d", p.Port), p, logger)
}

func dialURL(ctx context.Context, url string, p Params, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if p.PluginUUID == "" || p.RegisterEvent == "" {
		return nil, errors.New("plugin uuid and register event are required")
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream deck: %w", err)
	}

	c := &Conn{
		ws:      ws,
		events:  make(chan host.Event, eventBuffer),
		logger:  logger,
		visible: make(map[string]host.Controller),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if err := c.send(ctx, outbound{Event: p.RegisterEvent, UUID: p.PluginUUID}); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to register plugin: %w", err)
	}

	go c.readLoop()
	return c, nil
}

// Events implements [host.Surface].
func (c *Conn) Events() <-chan host.Event {
	return c.events
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// SetState implements [host.Surface].
func (c *Conn) SetState(ctx context.Context, contextID string, state host.State) error {
	return c.send(ctx, outbound{
		Event:   "setState",
		Context: contextID,
		Payload: map[string]int{"state": int(state)},
	})
}

// OpenURL implements [host.Surface].
func (c *Conn) OpenURL(ctx context.Context, url string) error {
	return c.send(ctx, outbound{
		Event:   "openUrl",
		Payload: map[string]string{"url": url},
	})
}

// LogMessage writes a line to the Stream Deck application's plugin log.
func (c *Conn) LogMessage(ctx context.Context, message string) error {
	return c.send(ctx, outbound{
		Event:   "logMessage",
		Payload: map[string]string{"message": message},
	})
}

// IsKey implements [host.Surface]. Actions whose appearance carried no
// controller are treated as keys.
func (c *Conn) IsKey(contextID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctrl, ok := c.visible[contextID]
	return ok && (ctrl == host.ControllerKeypad || ctrl == "")
}

// Close closes the connection. The events channel is closed once the read
// loop observes the closure.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.closeErr
	}
	c.closed = true
	close(c.quit)
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.ws.Close()
	c.mu.Lock()
	c.closeErr = err
	c.mu.Unlock()
	return err
}

// send writes one message; gorilla connections allow a single writer at a
// time.
func (c *Conn) send(ctx context.Context, msg outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("stream deck connection lost", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("malformed stream deck message", "error", err)
			continue
		}

		ev, ok := c.decode(msg)
		if !ok {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.quit:
			return
		}
	}
}

// decode converts an inbound message to an event and keeps the visible set
// current before the event is delivered, so IsKey agrees with it.
func (c *Conn) decode(msg inbound) (host.Event, bool) {
	kind := host.EventKind(msg.Event)
	switch kind {
	case host.EventWillAppear, host.EventWillDisappear, host.EventDidReceiveSettings,
		host.EventKeyDown, host.EventKeyUp:
	default:
		c.logger.Debug("ignoring stream deck event", "event", msg.Event)
		return host.Event{}, false
	}

	ev := host.Event{Kind: kind, Context: msg.Context}

	if len(msg.Payload) > 0 {
		var p actionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.logger.Warn("malformed stream deck payload", "event", msg.Event, "context", msg.Context, "error", err)
		} else {
			ev.Controller = host.Controller(p.Controller)
			if len(p.Settings) > 0 {
				if err := json.Unmarshal(p.Settings, &ev.Settings); err != nil {
					c.logger.Warn("malformed action settings", "context", msg.Context, "error", err)
				}
			}
		}
	}

	c.mu.Lock()
	switch kind {
	case host.EventWillAppear:
		c.visible[msg.Context] = ev.Controller
	case host.EventWillDisappear:
		delete(c.visible, msg.Context)
	}
	c.mu.Unlock()

	return ev, true
}
