// Package program implements the per-event ticket program: supply limits,
// ownership uniqueness, one-time check-in and a face-value capped resale
// market. One Program is deployed per event and executes its calls one at a
// time, each inside a single ledger transaction.
package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

const (
	ticketUnitName = "TICKET"
	ticketUnit     = 1
)

// ErrProgramNotFound is returned by Open when the store has no state for the account.
var ErrProgramNotFound = errors.New("program not found")

// Recorder receives call outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveCall(operation, outcome string)
	SetTicketsSold(sold, supply uint64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCall(string, string)    {}
func (nopRecorder) SetTicketsSold(uint64, uint64) {}

// Deps are the collaborators a program runs on.
type Deps struct {
	// Account is the program's own account: it receives payments, holds unsold
	// units and is the clawback authority of the ticket asset.
	Account domain.AccountID
	Ledger  ports.Ledger
	// Store is optional; when set, state changes are written through it inside
	// the call transaction.
	Store   ports.ProgramStore
	Logger  *slog.Logger
	Metrics Recorder
}

// Program is one deployed event program.
type Program struct {
	mu sync.Mutex

	account domain.AccountID
	ledger  ports.Ledger
	store   ports.ProgramStore
	logger  *slog.Logger
	metrics Recorder

	event        domain.EventRecord
	participants map[domain.AccountID]domain.ParticipantRecord
}

var _ ports.EventProgram = (*Program)(nil)

func newProgram(deps Deps) (*Program, error) {
	if deps.Account.IsZero() {
		return nil, errors.New("program account is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics Recorder = nopRecorder{}
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}

	return &Program{
		account:      deps.Account,
		ledger:       deps.Ledger,
		store:        deps.Store,
		logger:       logger.With("component", "event_program", "program", deps.Account.String()),
		metrics:      metrics,
		participants: make(map[domain.AccountID]domain.ParticipantRecord),
	}, nil
}

// New instantiates a program for an event (createEvent). The organizer is
// recorded as the creating identity; no currency or units move.
func New(ctx context.Context, deps Deps, organizer domain.AccountID, params domain.EventParams) (*Program, error) {
	record, err := domain.NewEventRecord(organizer, params)
	if err != nil {
		return nil, err
	}

	p, err := newProgram(deps)
	if err != nil {
		return nil, err
	}
	p.event = *record

	if p.store != nil {
		err := p.ledger.WithTransaction(ctx, func(ctx context.Context) error {
			return p.store.SaveEvent(ctx, p.account, p.event)
		})
		if err != nil {
			return nil, fmt.Errorf("persist event record: %w", err)
		}
	}

	p.metrics.SetTicketsSold(p.event.TicketsSold, p.event.TicketSupply)
	p.logger.InfoContext(ctx, "event created",
		"organizer", organizer.String(),
		"name", params.Name,
		"supply", params.Supply,
		"price", params.Price,
	)
	return p, nil
}

// Open restores a previously created program from its store.
func Open(ctx context.Context, deps Deps) (*Program, error) {
	if deps.Store == nil {
		return nil, errors.New("program store is required to open a program")
	}
	p, err := newProgram(deps)
	if err != nil {
		return nil, err
	}

	record, participants, err := p.store.Load(ctx, p.account)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrProgramNotFound
	}
	p.event = *record
	for account, rec := range participants {
		p.participants[account] = rec
	}

	p.metrics.SetTicketsSold(p.event.TicketsSold, p.event.TicketSupply)
	p.logger.InfoContext(ctx, "program restored",
		"tickets_sold", p.event.TicketsSold,
		"participants", len(p.participants),
	)
	return p, nil
}

// ProgramAccount returns the account that receives payments and holds unsold units.
func (p *Program) ProgramAccount() domain.AccountID {
	return p.account
}

// Event returns a copy of the event record.
func (p *Program) Event() domain.EventRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.event
}

// Participant returns the record of account and whether one was ever granted.
func (p *Program) Participant(account domain.AccountID) (domain.ParticipantRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.participants[account]
	return rec, ok
}

// Balance returns the program's pooled currency balance.
func (p *Program) Balance(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Balance(ctx, p.account)
}

// isSelf reports whether any of accounts is the program's own account, which
// may never act as a buyer, seller or payer.
func (p *Program) isSelf(accounts ...domain.AccountID) bool {
	for _, a := range accounts {
		if a == p.account {
			return true
		}
	}
	return false
}
