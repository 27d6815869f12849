package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
)

// maxEventBytes bounds the accepted Slack event payload size.
const maxEventBytes = 1 << 20

// EventHandler processes a raw chat event payload. Implemented by
// orchestrator.Orchestrator.
type EventHandler interface {
	HandleEvent(ctx context.Context, body []byte)
}

// Server exposes the HTTP endpoints the chat platform delivers events to.
type Server struct {
	handler  EventHandler
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new event gateway server.
func NewServer(handler EventHandler, logger *slog.Logger) *Server {
	return &Server{
		handler: handler,
		logger:  logger,
	}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /event/message", s.handleEventMessage)
	mux.HandleFunc("POST /event/feedback", s.handleEventFeedback)

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("event server error", "error", err)
		}
	}()

	s.logger.Info("event server started", "addr", addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleEventMessage accepts a Slack Events API payload. Verification
// challenges are answered inline; real events are acknowledged immediately
// and processed in the background, since Slack retries deliveries that are
// not acknowledged within a few seconds.
func (s *Server) handleEventMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	if challenge, ok := parseChallenge(body); ok {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"challenge": challenge})
		return
	}

	go s.handler.HandleEvent(context.Background(), body)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{}"))
}

// handleEventFeedback acknowledges feedback interactions without acting on
// them.
func (s *Server) handleEventFeedback(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, maxEventBytes))
	w.WriteHeader(http.StatusOK)
}

// parseChallenge extracts the url_verification challenge token, if present.
func parseChallenge(body []byte) (string, bool) {
	var probe struct {
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", false
	}
	return probe.Challenge, probe.Challenge != ""
}
