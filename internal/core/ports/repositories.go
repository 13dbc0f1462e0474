package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ticketmint/event-program/internal/core/domain"
)

// ListEventsParams defines pagination for the event mirror.
type ListEventsParams struct {
	Limit  int32
	Offset int32
}

// EventRepository persists the event mirror.
type EventRepository interface {
	Create(ctx context.Context, event *domain.EventListing) (*domain.EventListing, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EventListing, error)
	GetByProgramAccount(ctx context.Context, account domain.AccountID) (*domain.EventListing, error)
	UpdateAsset(ctx context.Context, id uuid.UUID, asset domain.AssetID) error
	List(ctx context.Context, params ListEventsParams) ([]*domain.EventListing, error)
}

// TicketRepository persists the ticket mirror.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByOwner(ctx context.Context, eventID uuid.UUID, owner domain.AccountID) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int32) ([]*domain.Ticket, error)
}

// TicketCache fronts ticket lookups.
type TicketCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, bool, error)
	Set(ctx context.Context, ticket *domain.Ticket) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// ProgramStore durably records program state. Writes made through the context
// of a running transaction commit or roll back with it.
type ProgramStore interface {
	Load(ctx context.Context, program domain.AccountID) (*domain.EventRecord, map[domain.AccountID]domain.ParticipantRecord, error)
	SaveEvent(ctx context.Context, program domain.AccountID, record domain.EventRecord) error
	SaveParticipant(ctx context.Context, program domain.AccountID, account domain.AccountID, record domain.ParticipantRecord) error
}
