package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/core/utils"
)

const uniqueViolation = "23505"

// EventRepository is the secondary adapter for the event mirror.
type EventRepository struct {
	pool *pgxpool.Pool
}

// Ensure EventRepository implements the ports.EventRepository interface.
var _ ports.EventRepository = (*EventRepository)(nil)

// NewEventRepository creates a new event repository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `id, name, description, image_url, venue, event_date, ticket_price,
	ticket_supply, asset_id, program_account, organizer, created_at`

func scanEvent(row pgx.Row) (*domain.EventListing, error) {
	var (
		e           domain.EventListing
		description pgtype.Text
		imageURL    pgtype.Text
		assetID     pgtype.Int8
	)
	err := row.Scan(&e.ID, &e.Name, &description, &imageURL, &e.Venue, &e.Date, &e.TicketPrice,
		&e.TicketSupply, &assetID, &e.ProgramAccount, &e.Organizer, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Description = utils.FromString(description)
	e.ImageURL = utils.FromString(imageURL)
	e.AssetID = domain.AssetID(utils.FromNullUint(assetID))
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create persists a new event listing.
func (r *EventRepository) Create(ctx context.Context, event *domain.EventListing) (*domain.EventListing, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO events (id, name, description, image_url, venue, event_date, ticket_price,
		                     ticket_supply, asset_id, program_account, organizer)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+eventColumns,
		event.ID, event.Name, utils.ToString(event.Description), utils.ToString(event.ImageURL),
		event.Venue, event.Date, event.TicketPrice, event.TicketSupply,
		utils.ToNullUint(uint64(event.AssetID)), event.ProgramAccount.String(), event.Organizer.String(),
	)
	created, err := scanEvent(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("event for program %s: %w", event.ProgramAccount, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a single event by its ID.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EventListing, error) {
	event, err := scanEvent(GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrEventNotFound
	}
	return event, err
}

// GetByProgramAccount retrieves the event mirrored for a program account.
func (r *EventRepository) GetByProgramAccount(ctx context.Context, account domain.AccountID) (*domain.EventListing, error) {
	event, err := scanEvent(GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE program_account = $1`, account.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrEventNotFound
	}
	return event, err
}

// UpdateAsset records the ticket asset once it is minted.
func (r *EventRepository) UpdateAsset(ctx context.Context, id uuid.UUID, asset domain.AssetID) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx,
		`UPDATE events SET asset_id = $2 WHERE id = $1`, id, utils.ToNullUint(uint64(asset)))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// List returns events newest first.
func (r *EventRepository) List(ctx context.Context, params ports.ListEventsParams) ([]*domain.EventListing, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.EventListing, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
