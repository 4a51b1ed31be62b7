// Package api exposes the suppression engine over HTTP: a synchronous
// POST endpoint for one-shot runs, and a websocket stream that sends one
// progress frame followed by the run's result or error.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ostrichaudit/suppress/internal/suppress"
	"github.com/ostrichaudit/suppress/internal/telemetry/logging"
)

// Server holds the router and dependencies for the suppression HTTP API.
type Server struct {
	router      *mux.Router
	logger      *logging.Logger
	rateLimiter *RateLimiter

	upgrader websocket.Upgrader
}

// NewServer builds a Server with its routes registered and per-client
// rate limiting applied to POST /v1/suppress; the websocket stream is not
// rate limited.
func NewServer(logger *logging.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger.WithComponent("api"),
		rateLimiter: NewRateLimiter(DefaultRateLimitConfig()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router.Handle("/v1/suppress", s.rateLimiter.Middleware(http.HandlerFunc(s.handleSuppress))).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/suppress/stream", s.handleSuppressStream).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return s
}

// ServeHTTP satisfies http.Handler, so a Server can be passed directly to
// http.Server or httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Close releases background resources such as the rate limiter's cleanup
// goroutine.
func (s *Server) Close() { s.rateLimiter.Shutdown() }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// suppressRequest is the POST /v1/suppress request body: `{data, config}`
// per §6.
type suppressRequest struct {
	Rows   []suppress.InputRow `json:"data"`
	Config suppress.Config     `json:"config"`
}

func (s *Server) handleSuppress(w http.ResponseWriter, r *http.Request) {
	var req suppressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, fmt.Errorf("api: decoding request: %w", err), http.StatusBadRequest)
		return
	}

	out, err := suppress.Suppress(r.Context(), req.Rows, req.Config)
	if err != nil {
		s.sendError(w, err, statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// progressMessage is one frame of the /v1/suppress/stream websocket
// protocol: a running pass count followed by a terminal result or error.
type progressMessage struct {
	Type    string          `json:"type"` // "progress", "result", or "error"
	Pass    int             `json:"pass,omitempty"`
	Result  *suppress.Output `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// handleSuppressStream runs a suppression job and reports its lone
// terminal frame over a websocket. The engine itself is synchronous, so
// this cannot emit true per-pass progress; it exists as the transport
// contract long-running datasets can grow into without a client-visible
// break.
func (s *Server) handleSuppressStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	var req suppressRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(progressMessage{Type: "error", Message: err.Error()})
		return
	}

	conn.WriteJSON(progressMessage{Type: "progress", Pass: 0})

	out, err := suppress.Suppress(r.Context(), req.Rows, req.Config)
	if err != nil {
		conn.WriteJSON(progressMessage{Type: "error", Message: err.Error()})
		return
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	conn.WriteJSON(progressMessage{Type: "result", Result: &out})
}

// errorResponse is the `{success: false, error}` shape §6 pins for a
// failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) sendError(w http.ResponseWriter, err error, status int) {
	s.logger.Warn("request failed", map[string]interface{}{"error": err.Error(), "status": status})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Success: false, Error: err.Error()})
}

// statusForError maps a suppress.Error's Kind to the HTTP status a client
// should see; anything else is a 500.
func statusForError(err error) int {
	se, ok := err.(*suppress.Error)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case suppress.InvalidConfig, suppress.MalformedInput:
		return http.StatusBadRequest
	case suppress.InternalInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
