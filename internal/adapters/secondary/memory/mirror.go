package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

var now = func() time.Time { return time.Now().UTC() }

// EventRepository keeps the event mirror in process memory. It enforces the
// same uniqueness as the relational schema.
type EventRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]domain.EventListing
	order  []uuid.UUID
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[uuid.UUID]domain.EventListing)}
}

func (r *EventRepository) Create(_ context.Context, event *domain.EventListing) (*domain.EventListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.events {
		if existing.ProgramAccount == event.ProgramAccount {
			return nil, apperrors.ErrConflict
		}
	}

	stored := *event
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now()
	}
	r.events[stored.ID] = stored
	r.order = append(r.order, stored.ID)

	out := stored
	return &out, nil
}

func (r *EventRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.EventListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return &event, nil
}

func (r *EventRepository) GetByProgramAccount(_ context.Context, account domain.AccountID) (*domain.EventListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, event := range r.events {
		if event.ProgramAccount == account {
			out := event
			return &out, nil
		}
	}
	return nil, apperrors.ErrEventNotFound
}

func (r *EventRepository) UpdateAsset(_ context.Context, id uuid.UUID, asset domain.AssetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	event.AssetID = asset
	r.events[id] = event
	return nil
}

// List returns events newest first.
func (r *EventRepository) List(_ context.Context, params ports.ListEventsParams) ([]*domain.EventListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.EventListing, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		event := r.events[r.order[i]]
		out = append(out, &event)
	}
	return page(out, params.Limit, params.Offset), nil
}

// TicketRepository keeps the ticket mirror in process memory, one row per
// owner per event.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]domain.Ticket
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[uuid.UUID]domain.Ticket)}
}

func (r *TicketRepository) ownerTaken(eventID uuid.UUID, owner domain.AccountID, except uuid.UUID) bool {
	for id, t := range r.tickets {
		if id != except && t.EventID == eventID && t.Owner == owner {
			return true
		}
	}
	return false
}

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[ticket.ID]; exists || r.ownerTaken(ticket.EventID, ticket.Owner, uuid.Nil) {
		return nil, apperrors.ErrConflict
	}

	stored := *ticket
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now()
	}
	r.tickets[stored.ID] = stored

	out := stored
	return &out, nil
}

func (r *TicketRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return &t, nil
}

func (r *TicketRepository) GetByOwner(_ context.Context, eventID uuid.UUID, owner domain.AccountID) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tickets {
		if t.EventID == eventID && t.Owner == owner {
			out := t
			return &out, nil
		}
	}
	return nil, apperrors.ErrTicketNotFound
}

func (r *TicketRepository) Update(_ context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticket.ID]; !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	if r.ownerTaken(ticket.EventID, ticket.Owner, ticket.ID) {
		return nil, apperrors.ErrConflict
	}

	stored := *ticket
	updated := now()
	stored.UpdatedAt = &updated
	r.tickets[stored.ID] = stored

	out := stored
	return &out, nil
}

// ListByEvent returns an event's tickets, oldest first.
func (r *TicketRepository) ListByEvent(_ context.Context, eventID uuid.UUID, limit, offset int32) ([]*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Ticket, 0)
	for _, t := range r.tickets {
		if t.EventID == eventID {
			row := t
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int32) []T {
	if offset < 0 {
		offset = 0
	}
	if int(offset) >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}
