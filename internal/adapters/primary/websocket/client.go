package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ticketmint/event-program/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBuffer = 256
)

// Client message types.
const (
	MessageSubscribe   = "SUBSCRIBE_TO_EVENT"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_EVENT"
	MessagePing        = "PING"
	MessagePong        = "PONG"
	MessageSubscribed  = "SUBSCRIBED"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.FeedEvent

	AccountID domain.AccountID

	subscriptions map[string]bool
	closeOnce     sync.Once
	mu            sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, account domain.AccountID, logger *slog.Logger) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan domain.FeedEvent, sendBuffer),
		AccountID:     account,
		subscriptions: make(map[string]bool),
		logger:        logger.With("account_id", account.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) AddSubscription(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[eventID] = true
}

func (c *Client) RemoveSubscription(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, eventID)
}

func (c *Client) HasSubscription(eventID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[eventID]
}

// GetSubscriptions returns a copy of all subscriptions
func (c *Client) GetSubscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.subscriptions))
	for eventID := range c.subscriptions {
		subs = append(subs, eventID)
	}
	return subs
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages
type SubscribePayload struct {
	EventID string `json:"eventId"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		if eventID, ok := c.parseEventID(msg.Payload); ok {
			c.Hub.subscribe(c, eventID)
		}

	case MessageUnsubscribe:
		if eventID, ok := c.parseEventID(msg.Payload); ok {
			c.Hub.unsubscribe(c, eventID)
		}

	case MessagePing:
		select {
		case c.Send <- domain.FeedEvent{Type: MessagePong}:
		default:
		}

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

// parseEventID accepts only well-formed event IDs, normalized to their
// canonical form so they match broadcast room keys.
func (c *Client) parseEventID(payload json.RawMessage) (string, bool) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal subscribe payload", "error", err)
		return "", false
	}
	id, err := uuid.Parse(p.EventID)
	if err != nil {
		c.logger.Warn("invalid event ID in subscribe request", "event_id", p.EventID)
		return "", false
	}
	return id.String(), true
}
