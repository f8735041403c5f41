// Package server provides the local HTTP status and control surface.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vasukaker/gestdj/internal/capture"
	"github.com/vasukaker/gestdj/internal/control"
	"github.com/vasukaker/gestdj/internal/server/api"
	"github.com/vasukaker/gestdj/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Store  *store.Store
	Camera capture.Camera
	Decks  []*control.Deck

	// MIDIAvailable reports whether the MIDI port is currently usable.
	MIDIAvailable func() bool
}

// Server exposes deck state and tuning profiles over HTTP.
type Server struct {
	config Config
	mux    *http.ServeMux
	state  *StateHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)

	// Register the profiles API if Store is configured
	if s.config.Store != nil {
		profileHandler := api.NewProfileHandler(s.config.Store)
		s.mux.Handle("/api/profiles", profileHandler)
		s.mux.Handle("/api/profiles/", profileHandler)
	}

	// Register camera preview endpoint if Camera is configured
	if s.config.Camera != nil {
		streamHandler := NewStreamHandler(s.config.Camera)
		s.mux.Handle("/api/stream", streamHandler)
	}

	// Register deck state WebSocket endpoint if decks are configured
	if len(s.config.Decks) > 0 {
		s.state = NewStateHandler(s.config.Decks, s.config.MIDIAvailable)
		s.mux.Handle("/ws/state", s.state)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// statusResponse is the JSON body served by /api/status.
type statusResponse struct {
	Status        string             `json:"status"`
	Uptime        string             `json:"uptime"`
	MIDIAvailable bool               `json:"midi_available"`
	Decks         []control.Snapshot `json:"decks"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleStatus handles GET requests to /api/status and reports the
// current state of both decks plus MIDI port availability.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := statusResponse{
		Status: "ok",
		Uptime: time.Since(s.start).String(),
		Decks:  make([]control.Snapshot, 0, len(s.config.Decks)),
	}
	if s.config.MIDIAvailable != nil {
		response.MIDIAvailable = s.config.MIDIAvailable()
	}
	for _, d := range s.config.Decks {
		response.Decks = append(response.Decks, d.Snapshot())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Close stops background broadcasters.
func (s *Server) Close() {
	if s.state != nil {
		s.state.Close()
	}
}
