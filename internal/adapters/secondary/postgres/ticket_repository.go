package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/core/utils"
)

// TicketRepository is the secondary adapter for the ticket mirror.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, event_id, owner, asset_id, purchase_price, source, checked_in,
	checked_in_at, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t           domain.Ticket
		source      string
		checkedInAt pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&t.ID, &t.EventID, &t.Owner, &t.AssetID, &t.PurchasePrice, &source,
		&t.CheckedIn, &checkedInAt, &t.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Source = domain.TicketSource(source)
	t.CheckedInAt = utils.FromNullTime(checkedInAt)
	t.UpdatedAt = utils.FromNullTime(updatedAt)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// Create persists a new ticket row.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	createdAt := ticket.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	created, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO tickets (id, event_id, owner, asset_id, purchase_price, source, checked_in,
		                      checked_in_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+ticketColumns,
		ticket.ID, ticket.EventID, ticket.Owner.String(), ticket.AssetID, ticket.PurchasePrice,
		string(ticket.Source), ticket.CheckedIn, utils.ToNullTime(ticket.CheckedInAt), createdAt,
	))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("ticket for %s: %w", ticket.Owner, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	ticket, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, err
}

// GetByOwner retrieves the ticket owner holds for an event.
func (r *TicketRepository) GetByOwner(ctx context.Context, eventID uuid.UUID, owner domain.AccountID) (*domain.Ticket, error) {
	ticket, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE event_id = $1 AND owner = $2`,
		eventID, owner.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, err
}

// Update writes the mutable fields of a ticket: owner, price, source and check-in.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	updated, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx,
		`UPDATE tickets SET
		    owner          = $2,
		    purchase_price = $3,
		    source         = $4,
		    checked_in     = $5,
		    checked_in_at  = $6,
		    updated_at     = now()
		  WHERE id = $1
		  RETURNING `+ticketColumns,
		ticket.ID, ticket.Owner.String(), ticket.PurchasePrice, string(ticket.Source),
		ticket.CheckedIn, utils.ToNullTime(ticket.CheckedInAt),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("ticket for %s: %w", ticket.Owner, apperrors.ErrConflict)
	}
	return updated, err
}

// ListByEvent returns an event's tickets oldest first.
func (r *TicketRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int32) ([]*domain.Ticket, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE event_id = $1
		  ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
