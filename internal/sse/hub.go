package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/models"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventDesignToggled      EventType = "design.toggled"
	EventDesignsSynced      EventType = "designs.synced"
	EventCatalogInvalidated EventType = "catalog.invalidated"
)

// CatalogEvent is the payload broadcast to admin SSE clients.
type CatalogEvent struct {
	Event     EventType         `json:"event"`
	DesignNo  string            `json:"designNo,omitempty"`
	IsActive  *bool             `json:"isActive,omitempty"`
	Stats     *models.SyncStats `json:"stats,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Message is one encoded event queued for a client.
type Message struct {
	Event EventType
	Data  []byte
}

// Client represents a connected SSE admin client.
type Client struct {
	ID     string
	Events chan Message
}

// Hub manages SSE client connections and broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client and returns it for streaming.
func (h *Hub) Register(clientID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:     clientID,
		Events: make(chan Message, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast sends an event to all connected clients.
// Non-blocking: drops message if client buffer is full.
func (h *Hub) Broadcast(event *CatalogEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	msg := Message{Event: event.Event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Events <- msg:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
