package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

// ProgramStore persists program state next to the ledger so both commit in
// the same transaction.
type ProgramStore struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

var _ ports.ProgramStore = (*ProgramStore)(nil)

// NewProgramStore creates a new program store.
func NewProgramStore(pool *pgxpool.Pool) *ProgramStore {
	return &ProgramStore{pool: pool, tm: NewTransactionManager(pool)}
}

// Load reads the event record and every participant record of program from
// one snapshot. It returns a nil record when the program was never created.
func (s *ProgramStore) Load(ctx context.Context, program domain.AccountID) (*domain.EventRecord, map[domain.AccountID]domain.ParticipantRecord, error) {
	var (
		record       *domain.EventRecord
		participants map[domain.AccountID]domain.ParticipantRecord
	)

	err := s.tm.WithReadOnlyTransaction(ctx, func(ctx context.Context) error {
		q := GetDBTX(ctx, s.pool)

		var r domain.EventRecord
		err := q.QueryRow(ctx,
			`SELECT organizer, name, event_date, venue, ticket_price, ticket_supply,
			        tickets_sold, ticket_asset, minted
			   FROM program_events WHERE program = $1`,
			program.String(),
		).Scan(&r.Organizer, &r.Name, &r.Date, &r.Venue, &r.TicketPrice, &r.TicketSupply,
			&r.TicketsSold, &r.TicketAsset, &r.Minted)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load event record: %w", err)
		}
		record = &r

		rows, err := q.Query(ctx,
			`SELECT account, owned, used, listed_for_sale, listed_price
			   FROM program_participants WHERE program = $1`,
			program.String(),
		)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		defer rows.Close()

		participants = make(map[domain.AccountID]domain.ParticipantRecord)
		for rows.Next() {
			var (
				account domain.AccountID
				p       domain.ParticipantRecord
			)
			if err := rows.Scan(&account, &p.Owned, &p.Used, &p.ListedForSale, &p.ListedPrice); err != nil {
				return err
			}
			participants[account] = p
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}
	return record, participants, nil
}

// SaveEvent upserts the event record of program.
func (s *ProgramStore) SaveEvent(ctx context.Context, program domain.AccountID, r domain.EventRecord) error {
	_, err := GetDBTX(ctx, s.pool).Exec(ctx,
		`INSERT INTO program_events
		    (program, organizer, name, event_date, venue, ticket_price, ticket_supply, tickets_sold, ticket_asset, minted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (program) DO UPDATE SET
		    tickets_sold = EXCLUDED.tickets_sold,
		    ticket_asset = EXCLUDED.ticket_asset,
		    minted       = EXCLUDED.minted,
		    updated_at   = now()`,
		program.String(), r.Organizer.String(), r.Name, r.Date, r.Venue,
		r.TicketPrice, r.TicketSupply, r.TicketsSold, r.TicketAsset, r.Minted,
	)
	if err != nil {
		return fmt.Errorf("save event record: %w", err)
	}
	return nil
}

// SaveParticipant upserts the record of account within program.
func (s *ProgramStore) SaveParticipant(ctx context.Context, program, account domain.AccountID, p domain.ParticipantRecord) error {
	_, err := GetDBTX(ctx, s.pool).Exec(ctx,
		`INSERT INTO program_participants (program, account, owned, used, listed_for_sale, listed_price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (program, account) DO UPDATE SET
		    owned           = EXCLUDED.owned,
		    used            = EXCLUDED.used,
		    listed_for_sale = EXCLUDED.listed_for_sale,
		    listed_price    = EXCLUDED.listed_price,
		    updated_at      = now()`,
		program.String(), account.String(), p.Owned, p.Used, p.ListedForSale, p.ListedPrice,
	)
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}
