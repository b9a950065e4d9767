package livedeck

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/livedeck/host"
	"github.com/jpalmerr/livedeck/internal/poller"
	"github.com/jpalmerr/livedeck/internal/server"
	"github.com/jpalmerr/livedeck/internal/store"
)

// observationBuffer decouples poll goroutines from callback processing.
const observationBuffer = 64

// Plugin is the orchestrator between a control surface and the liveness
// provider.
//
// Plugin is created using [New] with functional options and driven with
// [Plugin.Run]. The typical lifecycle is:
//
//	p, err := livedeck.New(livedeck.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	p.Run(ctx, surface) // blocks until ctx is cancelled or the surface closes
type Plugin struct {
	liveAPIURL     string
	playerURL      string
	requestTimeout time.Duration
	inspectPort    int
	logger         *slog.Logger
	callbacks      []func(StateChange)

	// provider overrides the HTTP provider in tests.
	provider poller.Provider
}

// New creates a new [Plugin] with the given options.
//
// Defaults:
//   - Live API URL: the SOOP player_live_api endpoint
//   - Player URL: https://play.sooplive.co.kr
//   - Request timeout: none beyond the transport's
//   - Inspect server: disabled
func New(opts ...Option) (*Plugin, error) {
	cfg := &pluginConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Plugin{
		liveAPIURL:     cfg.liveAPIURL,
		playerURL:      cfg.playerURL,
		requestTimeout: cfg.requestTimeout,
		inspectPort:    cfg.inspectPort,
		logger:         logger,
		callbacks:      cfg.callbacks,
	}, nil
}

// Run consumes surface events until ctx is cancelled or the surface closes
// its event stream.
//
// Events are applied to the target registry in the order the surface
// delivers them:
//
//   - willAppear starts polling the button's streamer
//   - didReceiveSettings applies edited settings
//   - willDisappear stops polling and forgets the button
//   - keyDown re-applies the state and opens the channel page
//   - keyUp re-applies the state
//
// On return every timer is stopped, in-flight requests are aborted and the
// surface is closed. Run returns nil on shutdown and an error only if the
// inspect server fails to start.
func (p *Plugin) Run(ctx context.Context, surface host.Surface) error {
	defer func() {
		if err := surface.Close(); err != nil {
			p.logger.Warn("failed to close surface", "error", err)
		}
	}()

	if ctx.Err() != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	provider := p.provider
	if provider == nil {
		api := poller.NewLiveAPI(poller.NewClient(), p.liveAPIURL, p.requestTimeout)
		defer api.Close()
		provider = api
	}

	statusStore := store.NewMemoryStore()

	observations := make(chan poller.Observation, observationBuffer)
	registry := poller.NewRegistry(provider, surface, poller.RegistryConfig{
		PlayerURL: p.playerURL,
		Observer: func(o poller.Observation) {
			select {
			case observations <- o:
			case <-runCtx.Done():
			}
		},
	}, p.logger)

	tg := &targets{registry: registry, store: statusStore}

	// single consumer keeps store writes and callbacks in order
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for o := range observations {
			if !tg.record(o) {
				continue
			}
			if len(p.callbacks) > 0 {
				change := observationToStateChange(o)
				for _, cb := range p.callbacks {
					invokeCallbackSafe(cb, change, p.logger)
				}
			}
		}
	}()

	cleanup := func() {
		cancel()
		registry.Close() // waits for every observer call
		close(observations)
		wg.Wait()
	}

	if p.inspectPort != 0 {
		presser, _ := surface.(host.Presser)
		inspect := server.NewServer(statusStore, p.inspectPort, presser, p.logger)
		if err := inspect.Start(runCtx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start inspect server: %w", err)
		}
	}

	p.logger.Info("livedeck running")

	for {
		select {
		case <-ctx.Done():
			cleanup()
			p.logger.Info("livedeck stopped")
			return nil
		case ev, ok := <-surface.Events():
			if !ok {
				cleanup()
				p.logger.Info("surface closed, livedeck stopped")
				return nil
			}
			p.dispatch(runCtx, tg, ev)
		}
	}
}

// targets pairs the registry with the store that mirrors it. mu orders
// registry changes against observation writes, so the store never takes a
// result from a replaced timer or a removed target.
type targets struct {
	mu       sync.Mutex
	registry *poller.Registry
	store    store.Store
}

// record stores o if its timer is still the target's current one.
func (t *targets) record(o poller.Observation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.registry.Snapshot(o.ContextID)
	if !ok || e.TimerID != o.TimerID {
		return false
	}
	t.store.Update(observationToStatus(o))
	return true
}

// dispatch applies one surface event.
func (p *Plugin) dispatch(ctx context.Context, tg *targets, ev host.Event) {
	p.logger.Debug("surface event",
		"event", string(ev.Kind),
		"context", ev.Context,
		"streamer_id", ev.Settings.StreamerID,
	)

	switch ev.Kind {
	case host.EventWillAppear:
		tg.mu.Lock()
		tg.registry.Register(ev.Context, ev.Settings)
		tg.publishEntry(ev.Context)
		tg.mu.Unlock()

	case host.EventDidReceiveSettings:
		tg.mu.Lock()
		before, _ := tg.registry.Snapshot(ev.Context)
		tg.registry.UpdateSettings(ev.Context, ev.Settings)
		if after, ok := tg.registry.Snapshot(ev.Context); ok {
			switch {
			case after.TimerID != before.TimerID:
				tg.publishEntry(ev.Context)
			case after.Settings.StreamerID != before.Settings.StreamerID:
				tg.retarget(ev.Context, after.Settings.StreamerID)
			}
		}
		tg.mu.Unlock()

	case host.EventWillDisappear:
		tg.mu.Lock()
		tg.registry.Deregister(ev.Context)
		tg.store.Remove(ev.Context)
		tg.mu.Unlock()

	case host.EventKeyDown:
		tg.registry.Activate(ctx, ev.Context, ev.Settings)

	case host.EventKeyUp:
		tg.registry.Release(ctx, ev.Context, ev.Settings)
	}
}

// publishEntry stores the not-yet-polled status of a freshly registered
// target. Callers hold mu.
func (t *targets) publishEntry(contextID string) {
	e, ok := t.registry.Snapshot(contextID)
	if !ok {
		return
	}
	t.store.Update(store.TargetStatus{
		ContextID:  contextID,
		StreamerID: e.Settings.StreamerID,
		State:      e.State.String(),
		IntervalMs: e.Interval.Milliseconds(),
	})
}

// retarget points a stored status at a new streamer while its timer keeps
// running. Callers hold mu.
func (t *targets) retarget(contextID, streamerID string) {
	status, ok := t.store.Get(contextID)
	if !ok {
		t.publishEntry(contextID)
		return
	}
	status.StreamerID = streamerID
	t.store.Update(status)
}

// observationToStatus converts a poll observation to its stored form.
func observationToStatus(o poller.Observation) store.TargetStatus {
	var errStr *string
	if o.Error != nil {
		s := o.Error.Error()
		errStr = &s
	}

	return store.TargetStatus{
		ContextID:      o.ContextID,
		StreamerID:     o.StreamerID,
		State:          o.State.String(),
		Code:           o.Code,
		IntervalMs:     o.Interval.Milliseconds(),
		ResponseTimeMs: o.Latency.Milliseconds(),
		CheckedAt:      o.CheckedAt,
		Error:          errStr,
	}
}

func observationToStateChange(o poller.Observation) StateChange {
	return StateChange{
		ContextID:  o.ContextID,
		StreamerID: o.StreamerID,
		State:      o.State,
		Code:       o.Code,
		Interval:   o.Interval,
		Latency:    o.Latency,
		CheckedAt:  o.CheckedAt,
		Error:      o.Error,
	}
}

// invokeCallbackSafe calls a state callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(StateChange), change StateChange, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state callback panicked",
				"panic", r,
				"context", change.ContextID,
			)
		}
	}()
	cb(change)
}
