// Package console implements [host.Surface] for a terminal.
//
// Targets come from a config file instead of physical keys. Each target
// "appears" when the surface is created and renders its state as one styled
// line per change. Presses are simulated through [Surface.Press].
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/jpalmerr/livedeck/host"
)

// ErrClosed is returned by operations on a closed surface.
var ErrClosed = errors.New("console surface closed")

// ErrUnknownTarget is returned by Press for ids the surface never showed.
var ErrUnknownTarget = errors.New("unknown target")

const nameWidth = 20

// Target is one watched streamer shown on the console.
type Target struct {
	// Name labels the target's line. Empty uses the streamer id.
	Name string

	Settings host.Settings
}

type button struct {
	name     string
	settings host.Settings
	state    host.State
	rendered bool
}

// Surface renders button states as lines on an [io.Writer].
type Surface struct {
	out    io.Writer
	events chan host.Event
	now    func() time.Time

	live    lipgloss.Style
	offline lipgloss.Style
	label   lipgloss.Style
	faint   lipgloss.Style

	writeMu sync.Mutex

	mu      sync.Mutex
	order   []string
	buttons map[string]*button
	closed  bool
}

// New creates a surface showing targets on out. Every target gets a fresh
// context id and a willAppear event is queued for it.
func New(targets []Target, out io.Writer) *Surface {
	renderer := lipgloss.NewRenderer(out)
	s := &Surface{
		out: out,
		// room for the appear burst plus a few presses
		events:  make(chan host.Event, len(targets)+16),
		now:     time.Now,
		buttons: make(map[string]*button, len(targets)),
		live: renderer.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#d7263d")).
			Padding(0, 1),
		offline: renderer.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1),
		label: renderer.NewStyle().Width(nameWidth).MaxWidth(nameWidth),
		faint: renderer.NewStyle().Faint(true),
	}

	for _, t := range targets {
		id := uuid.NewString()
		name := t.Name
		if name == "" {
			name = t.Settings.StreamerID
		}
		s.order = append(s.order, id)
		s.buttons[id] = &button{name: name, settings: t.Settings}
		s.events <- host.Event{
			Kind:       host.EventWillAppear,
			Context:    id,
			Controller: host.ControllerKeypad,
			Settings:   t.Settings,
		}
	}
	return s
}

// Events implements [host.Surface].
func (s *Surface) Events() <-chan host.Event {
	return s.events
}

// IDs returns the context ids in config order.
func (s *Surface) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// IsKey implements [host.Surface]. Every console target is a key.
func (s *Surface) IsKey(contextID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buttons[contextID]
	return ok && !s.closed
}

// SetState implements [host.Surface]. A line is printed on the first state
// and on every change.
func (s *Surface) SetState(ctx context.Context, contextID string, state host.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	b, ok := s.buttons[contextID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTarget, contextID)
	}
	changed := !b.rendered || b.state != state
	b.state = state
	b.rendered = true
	name := b.name
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.println(s.renderLine(name, state))
}

// OpenURL implements [host.Surface] by printing the URL.
func (s *Surface) OpenURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.println(s.faint.Render("open " + url))
}

// Press implements [host.Presser] with a keyDown followed by a keyUp
// carrying the target's configured settings.
func (s *Surface) Press(contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	b, ok := s.buttons[contextID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, contextID)
	}

	for _, kind := range []host.EventKind{host.EventKeyDown, host.EventKeyUp} {
		ev := host.Event{Kind: kind, Context: contextID, Controller: host.ControllerKeypad, Settings: b.settings}
		select {
		case s.events <- ev:
		default:
			return errors.New("console event queue full")
		}
	}
	return nil
}

// Close closes the events channel. Further commands fail with [ErrClosed].
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

func (s *Surface) renderLine(name string, state host.State) string {
	badge := s.offline.Render("OFFLINE")
	if state == host.StateLive {
		badge = s.live.Render("LIVE")
	}
	return s.faint.Render(s.now().Format("15:04:05")) + " " + s.label.Render(name) + " " + badge
}

func (s *Surface) println(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := fmt.Fprintln(s.out, line)
	return err
}
