package hub

import (
	"log/slog"
	"sync"
)

// Hub maintains the set of connected dashboard clients and broadcasts
// session events to them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound events to broadcast
	broadcast chan Event

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Shutdown signal
	done chan struct{}

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex

	logger *slog.Logger
}

// New creates a new Hub.
func New(name string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "hub", "hub", name),
	}
}

// Run starts the hub's main loop.
// This should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "remaining", count)

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					// Client's buffer is full - they're too slow.
					// Close and remove them.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts down the hub and disconnects all clients.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast queues an event for all connected clients.
// Drops the event when the broadcast buffer is full.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "kind", event.Kind)
	}
}

// Publish builds and broadcasts an event from a payload.
func (h *Hub) Publish(kind EventKind, data any) error {
	event, err := NewEvent(kind, data)
	if err != nil {
		return err
	}
	h.Broadcast(event)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
