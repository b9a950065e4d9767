package poller

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/livedeck/host"
)

// DefaultPlayerURL is the base of the click-through URL opened on key press.
const DefaultPlayerURL = "https://play.sooplive.co.kr"

// Surface is the part of [host.Surface] the registry drives.
type Surface interface {
	SetState(ctx context.Context, contextID string, state host.State) error
	OpenURL(ctx context.Context, url string) error
	IsKey(contextID string) bool
}

// Observation is the outcome of one poll tick for one target.
type Observation struct {
	// ContextID identifies the button.
	ContextID string

	// StreamerID is the broadcaster that was queried.
	StreamerID string

	// State is the state written to the button.
	State host.State

	// Code is the raw provider liveness code.
	Code int

	// Interval is the target's poll period.
	Interval time.Duration

	// Latency is the provider call duration.
	Latency time.Duration

	// CheckedAt is when the tick completed.
	CheckedAt time.Time

	// Error is the provider failure collapsed into State, if any.
	Error error

	// TimerID is the timer that produced the observation. It matches
	// [Entry.TimerID] until the timer is replaced.
	TimerID uint64
}

// Entry is a snapshot of one registered target.
type Entry struct {
	ContextID string
	Settings  host.Settings
	State     host.State
	Interval  time.Duration

	// TimerID identifies the running timer. It changes only when the timer
	// is replaced.
	TimerID uint64
}

// RegistryConfig holds optional [Registry] settings.
type RegistryConfig struct {
	// PlayerURL is the click-through base URL. Empty uses [DefaultPlayerURL].
	PlayerURL string

	// Observer, when set, is called after every completed tick from the
	// target's poll goroutine. It must not block for long.
	Observer func(Observation)
}

// ticker abstracts time.Ticker so tests can drive ticks by hand.
type ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) Chan() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()                  { t.t.Stop() }

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// timer is the handle owned by a registry entry.
type timer struct {
	id     uint64
	cancel context.CancelFunc
}

type entry struct {
	settings host.Settings
	state    host.State
	interval time.Duration
	timer    *timer
}

// Registry multiplexes independent per-target poll loops through one
// controller.
//
// Each registered context owns exactly one timer goroutine. Ticks for one
// context run sequentially on that goroutine; a slow provider call makes the
// ticker drop the ticks it missed rather than queue them. Registry methods
// are safe for concurrent use, and no lock is held across a provider call.
type Registry struct {
	provider  Provider
	surface   Surface
	playerURL string
	observer  func(Observation)
	logger    *slog.Logger
	newTicker func(time.Duration) ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	entries     map[string]*entry
	nextTimerID uint64
	closed      bool
}

// NewRegistry creates an empty [Registry] polling provider and writing
// results to surface. A nil logger uses slog.Default().
func NewRegistry(provider Provider, surface Surface, cfg RegistryConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	playerURL := cfg.PlayerURL
	if playerURL == "" {
		playerURL = DefaultPlayerURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		provider:  provider,
		surface:   surface,
		playerURL: playerURL,
		observer:  cfg.Observer,
		logger:    logger,
		newTicker: newTimeTicker,
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]*entry),
	}
}

// Register starts polling for a newly visible target.
//
// The interval comes from settings.FetchInterval, falling back to
// [DefaultInterval]. The target starts OFFLINE; the first poll happens one
// interval later. Register is a no-op when contextID already has a timer.
func (r *Registry) Register(contextID string, settings host.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registerLocked(contextID, settings, ResolveInterval(settings.FetchInterval, DefaultInterval))
}

// UpdateSettings applies edited settings to a target.
//
// A malformed interval keeps the current one. If the resolved interval
// differs from the stored one the old timer is cancelled and the target is
// registered afresh (OFFLINE, new timer). Otherwise the timer keeps running
// untouched and only the stored settings change, so the next tick polls the
// new streamer id. An unknown contextID is registered.
func (r *Registry) UpdateSettings(contextID string, settings host.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[contextID]
	if !ok {
		r.registerLocked(contextID, settings, ResolveInterval(settings.FetchInterval, DefaultInterval))
		return
	}

	interval := ResolveInterval(settings.FetchInterval, e.interval)
	if interval == e.interval {
		e.settings = settings
		return
	}

	r.logger.Debug("target interval changed",
		"context", contextID,
		"from", e.interval.String(),
		"to", interval.String(),
	)
	r.removeLocked(contextID)
	r.registerLocked(contextID, settings, interval)
}

// Deregister cancels the target's timer and forgets it. Safe to call for
// unknown contexts.
func (r *Registry) Deregister(contextID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.removeLocked(contextID) {
		r.logger.Debug("target deregistered", "context", contextID)
	}
}

// Activate re-applies the target's last known state, then opens the
// streamer's channel page. The streamer id from settings wins over the
// stored one.
func (r *Registry) Activate(ctx context.Context, contextID string, settings host.Settings) {
	r.reapply(ctx, contextID)

	streamerID := settings.StreamerID
	if streamerID == "" {
		if e, ok := r.Snapshot(contextID); ok {
			streamerID = e.Settings.StreamerID
		}
	}
	if streamerID == "" {
		r.logger.Warn("press ignored: no streamer id configured", "context", contextID)
		return
	}

	target := ChannelURL(r.playerURL, streamerID)
	if err := r.surface.OpenURL(ctx, target); err != nil {
		r.logger.Warn("failed to open channel page", "context", contextID, "url", target, "error", err)
	}
}

// Release re-applies the target's last known state. Hosts reset a key to its
// default state on press transitions; this puts the polled state back
// before the next tick would.
func (r *Registry) Release(ctx context.Context, contextID string, _ host.Settings) {
	r.reapply(ctx, contextID)
}

func (r *Registry) reapply(ctx context.Context, contextID string) {
	state := r.State(contextID)
	if err := r.surface.SetState(ctx, contextID, state); err != nil {
		r.logger.Warn("failed to set state", "context", contextID, "state", state.String(), "error", err)
	}
}

// State returns the last known state of contextID, or StateOffline when the
// context is not registered.
func (r *Registry) State(contextID string) host.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[contextID]; ok {
		return e.state
	}
	return host.StateOffline
}

// Snapshot returns a copy of the entry for contextID.
func (r *Registry) Snapshot(contextID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[contextID]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(contextID), true
}

// Entries returns snapshots of all registered targets ordered by context id.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, e.snapshot(id))
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ContextID < out[j].ContextID })
	return out
}

// Len returns the number of registered targets, which is also the number of
// active timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close cancels every timer and waits for the poll goroutines to exit.
// Later Register calls are ignored. Close is idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	for id := range r.entries {
		r.removeLocked(id)
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

func (e *entry) snapshot(contextID string) Entry {
	var id uint64
	if e.timer != nil {
		id = e.timer.id
	}
	return Entry{
		ContextID: contextID,
		Settings:  e.settings,
		State:     e.state,
		Interval:  e.interval,
		TimerID:   id,
	}
}

func (r *Registry) registerLocked(contextID string, settings host.Settings, interval time.Duration) {
	if r.closed {
		return
	}
	if _, ok := r.entries[contextID]; ok {
		return
	}

	r.nextTimerID++
	ctx, cancel := context.WithCancel(r.ctx)
	t := &timer{id: r.nextTimerID, cancel: cancel}

	r.entries[contextID] = &entry{
		settings: settings,
		state:    host.StateOffline,
		interval: interval,
		timer:    t,
	}

	tk := r.newTicker(interval)
	r.wg.Add(1)
	go r.run(ctx, contextID, t, tk)

	r.logger.Debug("target registered",
		"context", contextID,
		"streamer_id", settings.StreamerID,
		"interval", interval.String(),
	)
}

// removeLocked cancels and forgets the entry; the handle is released before
// any replacement can be created.
func (r *Registry) removeLocked(contextID string) bool {
	e, ok := r.entries[contextID]
	if !ok {
		return false
	}
	e.timer.cancel()
	delete(r.entries, contextID)
	return true
}

func (r *Registry) run(ctx context.Context, contextID string, t *timer, tk ticker) {
	defer r.wg.Done()
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.Chan():
			r.tick(ctx, contextID, t)
		}
	}
}

// current returns the entry's streamer id and interval if t is still the
// entry's timer.
func (r *Registry) current(contextID string, t *timer) (string, time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[contextID]
	if !ok || e.timer != t {
		return "", 0, false
	}
	return e.settings.StreamerID, e.interval, true
}

func (r *Registry) tick(ctx context.Context, contextID string, t *timer) {
	if ctx.Err() != nil || !r.surface.IsKey(contextID) {
		return
	}

	streamerID, interval, ok := r.current(contextID, t)
	if !ok {
		return
	}
	if streamerID == "" {
		r.logger.Debug("poll skipped: no streamer id", "context", contextID)
		return
	}

	live, err := r.query(ctx, streamerID)
	if ctx.Err() != nil {
		// cancelled while in flight; the result belongs to a dead timer
		return
	}
	if err != nil {
		live.State = host.StateOffline
		r.logger.Warn("liveness query failed",
			"context", contextID,
			"streamer_id", streamerID,
			"error", err.Error(),
		)
	}

	r.mu.Lock()
	e, ok := r.entries[contextID]
	stale := !ok || e.timer != t
	if !stale {
		e.state = live.State
	}
	r.mu.Unlock()
	if stale {
		return
	}

	if err := r.surface.SetState(ctx, contextID, live.State); err != nil && ctx.Err() == nil {
		r.logger.Warn("failed to set state", "context", contextID, "state", live.State.String(), "error", err)
	}

	r.logger.Debug("poll completed",
		"context", contextID,
		"streamer_id", streamerID,
		"state", live.State.String(),
		"code", live.Code,
		"latency_ms", live.Latency.Milliseconds(),
	)

	if r.observer != nil {
		r.observer(Observation{
			ContextID:  contextID,
			StreamerID: streamerID,
			State:      live.State,
			Code:       live.Code,
			Interval:   interval,
			Latency:    live.Latency,
			CheckedAt:  time.Now(),
			Error:      err,
			TimerID:    t.id,
		})
	}
}

// query calls the provider with panic recovery. A panic is logged with a
// correlation id and reported as an offline result.
func (r *Registry) query(ctx context.Context, streamerID string) (live Liveness, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			correlationID := uuid.NewString()
			r.logger.Error("liveness provider panic",
				"correlation_id", correlationID,
				"streamer_id", streamerID,
				"panic", fmt.Sprintf("%v", rec),
				"stack", string(debug.Stack()),
			)
			live = Liveness{State: host.StateOffline}
			err = fmt.Errorf("provider panic (correlation_id: %s)", correlationID)
		}
	}()
	return r.provider.QueryLiveness(ctx, streamerID)
}

// ChannelURL builds the click-through URL for streamerID under playerURL.
func ChannelURL(playerURL, streamerID string) string {
	return strings.TrimRight(playerURL, "/") + "/" + url.PathEscape(streamerID)
}
