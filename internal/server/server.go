package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpalmerr/livedeck/host"
	"github.com/jpalmerr/livedeck/internal/store"
)

const (
	// sseWriteTimeout bounds a single SSE write so a stuck client cannot pin
	// its handler goroutine past shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Server exposes the target store over HTTP on the loopback interface.
//
// Routes:
//   - GET /api/targets: current statuses as JSON
//   - GET /api/sse: Server-Sent Events stream of updates and removals
//   - POST /api/targets/{id}/press: simulated key press, only when the
//     surface implements [host.Presser]
type Server struct {
	store      store.Store
	port       int
	presser    host.Presser
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer creates a new inspect [Server]. presser may be nil. Port 0 binds
// an ephemeral port, reported by [Server.Addr] after Start.
func NewServer(st store.Store, port int, presser host.Presser, logger *slog.Logger) *Server {
	return &Server{
		store:   st,
		port:    port,
		presser: presser,
		logger:  logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start returns once the listener is bound. The server shuts down when ctx
// is cancelled, giving in-flight requests five seconds.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/targets", s.handleTargets)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	if s.presser != nil {
		mux.HandleFunc("POST /api/targets/{id}/press", s.handlePress)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("inspect server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("inspect server shutdown error", "error", err)
		}
	}()

	s.logger.Info("inspect server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleTargets returns all current statuses as JSON.
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(s.store.GetAll()); err != nil {
		s.logger.Error("failed to encode targets response", "error", err)
	}
}

// handlePress simulates a key press on the surface.
func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.presser.Press(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleSSE streams target updates via Server-Sent Events.
//
// Writes carry a deadline; without one a blocked write would keep the
// handler from noticing shutdown or unsubscription.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	send := func(status store.TargetStatus) error {
		data, err := json.Marshal(status)
		if err != nil {
			return nil
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, status := range s.store.GetAll() {
		if err := send(status); err != nil {
			return
		}
	}

	for {
		select {
		case status, ok := <-ch:
			if !ok {
				return
			}
			if err := send(status); err != nil {
				return
			}
		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}
