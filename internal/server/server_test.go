package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/livedeck/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPresser implements host.Presser for tests.
type recordingPresser struct {
	mu      sync.Mutex
	pressed []string
	known   map[string]bool
}

func (p *recordingPresser) Press(contextID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.known[contextID] {
		return errors.New("unknown target")
	}
	p.pressed = append(p.pressed, contextID)
	return nil
}

// parseSSEEvents extracts the JSON payloads of an SSE body.
func parseSSEEvents(body string) []store.TargetStatus {
	var results []store.TargetStatus
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			var result store.TargetStatus
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &result); err == nil {
				results = append(results, result)
			}
		}
	}
	return results
}

func startServer(t *testing.T, st store.Store, presser *recordingPresser) *Server {
	t.Helper()
	var srv *Server
	if presser != nil {
		srv = NewServer(st, 0, presser, testLogger())
	} else {
		srv = NewServer(st, 0, nil, testLogger())
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return srv
}

func TestHandleTargets(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(store.TargetStatus{ContextID: "b", StreamerID: "bar", State: "offline"})
	ms.Update(store.TargetStatus{ContextID: "a", StreamerID: "foo", State: "live", Code: 1})

	srv := startServer(t, ms, nil)

	resp, err := http.Get("http://" + srv.Addr() + "/api/targets")
	if err != nil {
		t.Fatalf("GET /api/targets error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got []store.TargetStatus
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got) != 2 || got[0].ContextID != "a" || got[0].State != "live" {
		t.Errorf("targets = %+v, want a (live) first", got)
	}
}

func TestHandleTargets_MethodNotAllowed(t *testing.T) {
	srv := startServer(t, store.NewMemoryStore(), nil)

	resp, err := http.Post("http://"+srv.Addr()+"/api/targets", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/targets error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandlePress(t *testing.T) {
	presser := &recordingPresser{known: map[string]bool{"ctx-1": true}}
	srv := startServer(t, store.NewMemoryStore(), presser)

	resp, err := http.Post("http://"+srv.Addr()+"/api/targets/ctx-1/press", "", nil)
	if err != nil {
		t.Fatalf("POST press error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}

	resp, err = http.Post("http://"+srv.Addr()+"/api/targets/nope/press", "", nil)
	if err != nil {
		t.Fatalf("POST press error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status for unknown target = %d, want 404", resp.StatusCode)
	}

	presser.mu.Lock()
	defer presser.mu.Unlock()
	if len(presser.pressed) != 1 || presser.pressed[0] != "ctx-1" {
		t.Errorf("pressed = %v, want [ctx-1]", presser.pressed)
	}
}

func TestHandlePress_NotRegisteredWithoutPresser(t *testing.T) {
	srv := startServer(t, store.NewMemoryStore(), nil)

	resp, err := http.Post("http://"+srv.Addr()+"/api/targets/ctx-1/press", "", nil)
	if err != nil {
		t.Fatalf("POST press error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a presser", resp.StatusCode)
	}
}

func TestHandleSSE_InitialSnapshot(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(store.TargetStatus{ContextID: "ctx-1", State: "live"})
	ms.Update(store.TargetStatus{ContextID: "ctx-2", State: "offline"})

	srv := NewServer(ms, 0, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", rec.Header().Get("Content-Type"))
	}
}

func TestHandleSSE_StreamsUpdatesAndRemovals(t *testing.T) {
	ms := store.NewMemoryStore()
	srv := NewServer(ms, 0, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	ms.Update(store.TargetStatus{ContextID: "ctx-1", StreamerID: "foo", State: "live"})
	ms.Remove("ctx-1")

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("events = %+v, want update then removal", events)
	}
	if events[0].Removed || events[0].State != "live" {
		t.Errorf("first event = %+v, want live update", events[0])
	}
	if !events[1].Removed {
		t.Errorf("second event = %+v, want removal", events[1])
	}
}

func TestHandleSSE_ServerShutdown(t *testing.T) {
	ms := store.NewMemoryStore()
	srv := NewServer(ms, 0, nil, testLogger())

	serverCtx, serverCancel := context.WithCancel(context.Background())
	if err := srv.Start(serverCtx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/sse")
	if err != nil {
		t.Fatalf("GET /api/sse error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		close(done)
	}()

	serverCancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("SSE stream did not end on server shutdown")
	}
}

type nonFlushWriter struct {
	header http.Header
	code   int
}

func (n *nonFlushWriter) Header() http.Header         { return n.header }
func (n *nonFlushWriter) Write(b []byte) (int, error) { return len(b), nil }
func (n *nonFlushWriter) WriteHeader(statusCode int)  { n.code = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())
	w := &nonFlushWriter{header: http.Header{}}

	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.code)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(store.NewMemoryStore(), port, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestAddr_BeforeStart(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, testLogger())
	if srv.Addr() != "" {
		t.Errorf("Addr() = %q before Start, want empty", srv.Addr())
	}
}
