package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	wsAdapter "github.com/ticketmint/event-program/internal/adapters/primary/websocket"
	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/config"
	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/infrastructure/logging"
)

const writeAckWait = 5 * time.Second

// WebSocketHandler upgrades authenticated connections into live feed clients
// bound to one event room.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	tm       *auth.TokenManager
	service  ports.BookkeepingService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	tm *auth.TokenManager,
	service ports.BookkeepingService,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:     hub,
		tm:      tm,
		service: service,
		logger:  logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment() {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		// Check against allowed origins
		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:] // Remove the "*", keep ".example.com"
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// ServeHTTP authenticates the token query parameter, resolves the event room
// the client asks for and upgrades the connection to a live feed client.
//
// The room comes from the eventId query parameter and defaults to the
// deployed event. The client is subscribed before its pumps start, so no feed
// event published after the handshake is missed.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	query := r.URL.Query()

	// 1. Authenticate the connection via query parameter
	tokenString := query.Get("token")
	if tokenString == "" {
		h.logger.Warn("websocket connection rejected: missing token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.logger.Warn("websocket connection rejected: invalid token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	// 2. Resolve the room before upgrading so errors are plain HTTP
	room, status, msg := h.resolveRoom(r, query.Get("eventId"))
	if status != http.StatusOK {
		h.logger.Warn("websocket connection rejected: bad room",
			"request_id", requestID,
			"account_id", claims.AccountID.String(),
			"event_id", query.Get("eventId"),
		)
		http.Error(w, msg, status)
		return
	}
	ctx := logging.WithEventID(r.Context(), room)

	// 3. Upgrade the connection
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to upgrade websocket connection",
			"account_id", claims.AccountID.String(),
			"error", err,
		)
		return
	}

	// 4. Register, then join the room
	client := wsAdapter.NewClient(h.hub, conn, claims.AccountID, h.logger.With("event_id", room))
	if !h.hub.Register(client) {
		h.logger.WarnContext(ctx, "websocket hub stopped, closing new connection",
			"account_id", claims.AccountID.String(),
		)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	h.hub.Subscribe(client, room)

	// The pumps are not running yet, so this is the only writer.
	_ = conn.SetWriteDeadline(time.Now().Add(writeAckWait))
	if err := conn.WriteJSON(domain.FeedEvent{Type: wsAdapter.MessageSubscribed, EventID: room}); err != nil {
		h.logger.WarnContext(ctx, "failed to acknowledge subscription", "error", err)
		h.hub.Unregister(client)
		_ = conn.Close()
		return
	}

	h.logger.InfoContext(ctx, "websocket connection established",
		"account_id", claims.AccountID.String(),
		"remote_addr", r.RemoteAddr,
	)

	// 5. Start the I/O pumps in new goroutines
	go client.WritePump()
	go client.ReadPump()
}

// resolveRoom returns the canonical event id the connection watches, or an
// HTTP status and message explaining why it cannot.
func (h *WebSocketHandler) resolveRoom(r *http.Request, requested string) (string, int, string) {
	if requested == "" {
		listing := h.service.Listing()
		if listing == nil {
			return "", http.StatusServiceUnavailable, "Event listing not ready"
		}
		return listing.ID.String(), http.StatusOK, ""
	}

	id, err := uuid.Parse(requested)
	if err != nil {
		return "", http.StatusBadRequest, "Invalid eventId"
	}
	if _, err := h.service.GetEvent(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			return "", http.StatusNotFound, "Event not found"
		}
		return "", http.StatusInternalServerError, "Event lookup failed"
	}
	return id.String(), http.StatusOK, ""
}
