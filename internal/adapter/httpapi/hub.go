package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

// runNotification is the payload broadcast to websocket clients when an
// analysis run completes.
type runNotification struct {
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	Counts    domain.EventCounts `json:"counts"`
}

// Hub fans completed-run notifications out to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates an empty broadcast hub.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The dashboard is served from a different origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// HandleWS upgrades the connection and registers the client until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.register(conn)
	defer h.unregister(conn)

	// Drain incoming frames; the hub only pushes. A read error means the
	// client went away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends a timestamped JSON envelope to every connected client.
// Clients that fail to receive are dropped.
func (h *Hub) Broadcast(v any) {
	envelope := struct {
		Timestamp time.Time `json:"timestamp"`
		Data      any       `json:"data"`
	}{Timestamp: time.Now().UTC(), Data: v}

	data, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("marshal broadcast payload", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("dropping unresponsive websocket client", "error", err)
			conn.Close() //nolint:errcheck // already failing
			delete(h.clients, conn)
			h.metrics.WSClients.Dec()
		}
	}
}

// Close disconnects all clients, used during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close() //nolint:errcheck // shutting down
		delete(h.clients, conn)
		h.metrics.WSClients.Dec()
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	h.metrics.WSClients.Inc()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		conn.Close() //nolint:errcheck // connection already finished
		delete(h.clients, conn)
		h.metrics.WSClients.Dec()
	}
}
