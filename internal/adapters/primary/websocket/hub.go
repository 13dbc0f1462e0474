package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

// Hub maintains the set of active clients and fans feed events out to the
// clients watching each event.
type Hub struct {
	// clients maps accounts to their active connections.
	// A single account can have multiple connections (multiple tabs/devices)
	clients map[domain.AccountID]map[*Client]bool

	// rooms maps event IDs to subscribed clients
	rooms map[string]map[*Client]bool

	broadcast chan domain.FeedEvent

	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns; sends to register and unregister
	// select on it so late callers never block.
	done chan struct{}

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[domain.AccountID]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.FeedEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues a feed event for delivery. A full queue drops the event.
func (h *Hub) Broadcast(event domain.FeedEvent) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"event_id", event.EventID,
		)
	}
	return nil
}

// Run starts the hub's event loop until ctx is done. It closes every client
// on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Register hands client to the running hub. It returns false once the hub
// has stopped; the caller then owns the connection and must close it.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the running hub. After the hub has stopped
// it returns at once; the shutdown already closed every client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Subscribe adds client to the room of eventID.
func (h *Hub) Subscribe(client *Client, eventID string) {
	h.subscribe(client, eventID)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.AccountID] == nil {
		h.clients[client.AccountID] = make(map[*Client]bool)
	}
	h.clients[client.AccountID][client] = true

	h.logger.Info("client registered",
		"account_id", client.AccountID.String(),
		"total_connections", len(h.clients[client.AccountID]),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if accountClients, ok := h.clients[client.AccountID]; ok {
		if _, exists := accountClients[client]; !exists {
			return
		}
		delete(accountClients, client)
		if len(accountClients) == 0 {
			delete(h.clients, client.AccountID)
		}
	}

	for _, eventID := range client.GetSubscriptions() {
		if room, ok := h.rooms[eventID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, eventID)
			}
		}
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "account_id", client.AccountID.String())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, accountClients := range h.clients {
		for client := range accountClients {
			client.CloseSend()
		}
	}
	h.clients = make(map[domain.AccountID]map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

// broadcastEvent sends an event to all clients subscribed to its event room
func (h *Hub) broadcastEvent(event domain.FeedEvent) {
	h.mu.RLock()
	room, ok := h.rooms[event.EventID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"event_id", event.EventID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
		default:
			// Slow consumer. Run is the only reader of unregister, so drop
			// the client directly.
			h.logger.Warn("client send buffer full, unregistering",
				"account_id", client.AccountID.String(),
			)
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) subscribe(client *Client, eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[eventID] == nil {
		h.rooms[eventID] = make(map[*Client]bool)
	}
	h.rooms[eventID][client] = true
	client.AddSubscription(eventID)

	h.logger.Debug("client subscribed to event",
		"account_id", client.AccountID.String(),
		"event_id", eventID,
	)
}

func (h *Hub) unsubscribe(client *Client, eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[eventID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, eventID)
		}
	}
	client.RemoveSubscription(eventID)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, accountClients := range h.clients {
		count += len(accountClients)
	}
	return count
}

// GetClientsInRoom returns the number of clients watching an event
func (h *Hub) GetClientsInRoom(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}
