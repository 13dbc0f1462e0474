package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ticketmint/event-program/internal/core/domain"
)

// Caller roles carried in access tokens.
const (
	RoleHolder    = "holder"
	RoleGate      = "gate"
	RoleOrganizer = "organizer"
)

// RegisterEventParams defines the display fields of the event mirror.
type RegisterEventParams struct {
	Description string
	ImageURL    string
}

// PurchaseParams defines the input for a primary purchase.
type PurchaseParams struct {
	Buyer  domain.AccountID
	Amount uint64
}

// ResaleParams defines the input for buying a listed ticket.
type ResaleParams struct {
	Buyer  domain.AccountID
	Seller domain.AccountID
	Amount uint64
}

// CheckInParams defines the input for a gate check-in. Digest is set when
// the ticket was identified by its scanned code.
type CheckInParams struct {
	TicketID  uuid.UUID
	Digest    string
	ActorID   domain.AccountID
	ActorRole string
}

// ResaleResult is a completed resale as seen by the off-chain index.
type ResaleResult struct {
	Ticket *domain.Ticket
	Split  domain.ResaleSplit
}

// ProgramStatus is the public state of the deployed program.
type ProgramStatus struct {
	Account domain.AccountID
	Event   domain.EventRecord
	Balance uint64
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	Recipient domain.AccountID
	Subject   string
	Message   string
	TicketID  uuid.UUID
}

// BookkeepingService is the off-chain collaborator: it calls the program and
// mirrors successful results for listing, search and display.
type BookkeepingService interface {
	EnsureListing(ctx context.Context, params RegisterEventParams) (*domain.EventListing, error)
	Listing() *domain.EventListing
	Status(ctx context.Context) (ProgramStatus, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]*domain.EventListing, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.EventListing, error)
	EventMetadata(ctx context.Context, id uuid.UUID) (domain.EventMetadata, error)

	Fund(ctx context.Context, funder domain.AccountID, amount uint64) error
	MintTickets(ctx context.Context, caller domain.AccountID) (domain.AssetID, error)
	Purchase(ctx context.Context, params PurchaseParams) (*domain.Ticket, error)
	ListForSale(ctx context.Context, caller domain.AccountID, price uint64) error
	CancelListing(ctx context.Context, caller domain.AccountID) error
	Resale(ctx context.Context, params ResaleParams) (*ResaleResult, error)
	Withdraw(ctx context.Context, caller domain.AccountID) (uint64, error)

	GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	ListTickets(ctx context.Context, limit, offset int32) ([]*domain.Ticket, error)
	CheckIn(ctx context.Context, params CheckInParams) (*domain.Ticket, error)
	TicketCode(ticket *domain.Ticket) string
	Participant(ctx context.Context, account domain.AccountID) (domain.ParticipantRecord, bool)
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster defines the port for pushing live feed events.
type EventBroadcaster interface {
	Broadcast(event domain.FeedEvent) error
}
