package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vasukaker/gestdj/internal/control"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StateHandler broadcasts deck state snapshots via WebSocket.
type StateHandler struct {
	decks     []*control.Deck
	available func() bool
	clients   map[*websocket.Conn]bool
	mu        sync.RWMutex
	stop      chan struct{}
}

// NewStateHandler creates a new StateHandler broadcasting the given decks.
func NewStateHandler(decks []*control.Deck, available func() bool) *StateHandler {
	h := &StateHandler{
		decks:     decks,
		available: available,
		clients:   make(map[*websocket.Conn]bool),
		stop:      make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close stops the broadcast loop.
func (h *StateHandler) Close() {
	close(h.stop)
}

// broadcast sends deck snapshots to all connected clients.
func (h *StateHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		idle := len(h.clients) == 0
		h.mu.RUnlock()
		if idle {
			continue
		}

		snapshots := make([]control.Snapshot, 0, len(h.decks))
		for _, d := range h.decks {
			snapshots = append(snapshots, d.Snapshot())
		}
		available := false
		if h.available != nil {
			available = h.available()
		}

		msg, _ := json.Marshal(map[string]any{
			"decks":          snapshots,
			"midi_available": available,
			"timestamp":      time.Now().UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
