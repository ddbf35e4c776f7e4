// Package server exposes the tutor over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/abhisek/algotutor/internal/agent"
	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/trace"
	"github.com/abhisek/algotutor/internal/tutor"
)

// maxMessageBytes caps a single chat message body.
const maxMessageBytes = 64 << 10

// Tutor is the agent surface served over HTTP.
type Tutor interface {
	Chat(ctx context.Context, sessionID, userID, input string) (agent.Reply, error)
	Profile(ctx context.Context, sessionID string) (tutor.ProfileSnapshot, error)
	Reset(ctx context.Context, sessionID string) error
}

// Server routes HTTP requests to a Tutor.
type Server struct {
	tutor   Tutor
	traces  store.TraceRepo
	origins []string
}

// New returns a Server. traces may be nil, in which case the trace
// endpoint reports 404 for every session.
func New(t Tutor, traces store.TraceRepo, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{tutor: t, traces: traces, origins: allowedOrigins}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(cors(s.origins))

	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleResetSession)
		r.Post("/messages", s.handlePostMessage)
		r.Get("/trace", s.handleGetTrace)
	})
	r.Get("/ws/sessions/{id}", s.handleWebSocket)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Routes(),
		ReadTimeout: 30 * time.Second,
		// Chat turns and websockets are long-lived.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type messageRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		req.UserID = sessionID
	}

	reply, err := s.tutor.Chat(r.Context(), sessionID, req.UserID, req.Message)
	if err != nil {
		slog.ErrorContext(r.Context(), "chat failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	snap, err := s.tutor.Profile(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.tutor.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if s.traces == nil {
		writeError(w, http.StatusNotFound, "tracing is disabled")
		return
	}
	recs, err := s.traces.QueryTrace(r.Context(), sessionID, store.QueryOpts{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "no trace for session")
		return
	}
	writeJSON(w, http.StatusOK, trace.FromRecords(sessionID, recs))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
