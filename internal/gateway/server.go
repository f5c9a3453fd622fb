package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/fakegpt/internal/app"
	"github.com/dohr-michael/fakegpt/internal/conversation"
	"github.com/dohr-michael/fakegpt/internal/events"
	"github.com/dohr-michael/fakegpt/internal/gateway/ws"
	"github.com/dohr-michael/fakegpt/internal/mockapi"
	"github.com/dohr-michael/fakegpt/internal/netsim"
)

// Server is the FakeGPT gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	app        *app.App
	host       string
	port       int
}

// NewServer creates a new gateway server in front of a.
func NewServer(a *app.App, host string, port int) *Server {
	hub := ws.NewHub(a.Bus, func() any { return a.Conversation.Snapshot() })

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	s := &Server{
		hub:  hub,
		app:  a,
		host: host,
		port: port,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ws", hub.ServeWS)
		r.Get("/events", s.handleEvents)
		r.Get("/conversation", s.handleConversation)

		r.Get("/topics", s.handleTopics)
		r.Get("/topics/{id}/response", s.handleTopicResponse)

		r.Get("/demo", s.handleGetDemo)
		r.Put("/demo", s.handleSetDemo)
		r.Delete("/demo", s.handleDisableDemo)

		r.Delete("/cache", s.handleClearCache)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("FakeGPT gateway listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// fetchStatus maps a mock API error onto an HTTP status.
func fetchStatus(err error) int {
	switch {
	case errors.Is(err, mockapi.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, netsim.ErrSimulatedFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	history := s.app.Bus.History(limit)

	// eventJSON carries timestamps as RFC 3339 strings with nanoseconds.
	type eventJSON struct {
		ID        string             `json:"id"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Conversation.Snapshot())
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.API.Topics(r.Context())
	if err != nil {
		writeError(w, fetchStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTopicResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.API.BotResponse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fetchStatus(err), err)
		return
	}
	status := http.StatusOK
	if !resp.Found {
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetDemo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Demo.Snapshot())
}

func (s *Server) handleSetDemo(w http.ResponseWriter, r *http.Request) {
	var body events.DemoSetPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := conversation.ApplyDemo(s.app.Demo, body.Scenario, body.Toggle); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Demo.Snapshot())
}

func (s *Server) handleDisableDemo(w http.ResponseWriter, r *http.Request) {
	s.app.Demo.Disable()
	writeJSON(w, http.StatusOK, s.app.Demo.Snapshot())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.app.API.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
