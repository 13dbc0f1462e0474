package program

import (
	"context"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

// call stages the state writes of one program invocation. Nothing it holds is
// visible to other calls until the ledger transaction commits.
type call struct {
	ctx     context.Context
	p       *Program
	event   domain.EventRecord
	touched map[domain.AccountID]domain.ParticipantRecord
	dirty   bool
}

func (c *call) participant(account domain.AccountID) (domain.ParticipantRecord, bool) {
	if rec, ok := c.touched[account]; ok {
		return rec, true
	}
	rec, ok := c.p.participants[account]
	return rec, ok
}

func (c *call) setParticipant(account domain.AccountID, rec domain.ParticipantRecord) {
	c.touched[account] = rec
}

func (c *call) setEvent(record domain.EventRecord) {
	c.event = record
	c.dirty = true
}

// registered reports whether account was ever granted a record. An identity
// is granted at most once.
func (c *call) registered(account domain.AccountID) bool {
	_, ok := c.participant(account)
	return ok
}

func (c *call) persist(ctx context.Context) error {
	store := c.p.store
	if store == nil {
		return nil
	}
	if c.dirty {
		if err := store.SaveEvent(ctx, c.p.account, c.event); err != nil {
			return err
		}
	}
	for account, rec := range c.touched {
		if err := store.SaveParticipant(ctx, c.p.account, account, rec); err != nil {
			return err
		}
	}
	return nil
}

// atomic runs fn as one indivisible call: the payment leg, unit-transfer leg
// and state-update leg commit together or not at all. Calls are serialized.
func (p *Program) atomic(ctx context.Context, operation string, fn func(c *call) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := &call{
		p:       p,
		event:   p.event,
		touched: make(map[domain.AccountID]domain.ParticipantRecord),
	}

	err := p.ledger.WithTransaction(ctx, func(txCtx context.Context) error {
		c.ctx = txCtx
		if err := fn(c); err != nil {
			return err
		}
		return c.persist(txCtx)
	})
	if err != nil {
		p.reject(ctx, operation, err)
		return err
	}

	p.event = c.event
	for account, rec := range c.touched {
		p.participants[account] = rec
	}

	p.metrics.ObserveCall(operation, "committed")
	if c.dirty {
		p.metrics.SetTicketsSold(p.event.TicketsSold, p.event.TicketSupply)
	}
	return nil
}

func (p *Program) reject(ctx context.Context, operation string, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindUnknown {
		p.metrics.ObserveCall(operation, "failed")
		p.logger.ErrorContext(ctx, "program call failed",
			"operation", operation,
			"error", err,
		)
		return
	}

	p.metrics.ObserveCall(operation, "rejected")
	p.logger.WarnContext(ctx, "program call rejected",
		"operation", operation,
		"kind", string(kind),
		"code", apperrors.CodeOf(err),
	)
}
