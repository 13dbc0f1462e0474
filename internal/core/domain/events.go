package domain

// FeedEventType defines the type of real-time event.
type FeedEventType string

const (
	FeedTicketPurchased FeedEventType = "TICKET_PURCHASED"
	FeedTicketCheckedIn FeedEventType = "TICKET_CHECKED_IN"
	FeedTicketResold    FeedEventType = "TICKET_RESOLD"
	FeedTicketListed    FeedEventType = "TICKET_LISTED"
)

// FeedEvent is the payload sent over WebSocket.
type FeedEvent struct {
	Type    FeedEventType `json:"type"`
	Payload interface{}   `json:"payload"`
	EventID string        `json:"eventId"` // Used for routing to event "rooms"
}
