package program

import (
	"context"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

// VerifyAndUse checks holder's ticket in. It succeeds once per ticket; any
// later call for the same holder fails with AlreadyUsed.
//
// The program does not restrict who may call this; gate authorization is the
// job of the off-chain caller.
func (p *Program) VerifyAndUse(ctx context.Context, holder domain.AccountID) (bool, error) {
	err := p.atomic(ctx, "verify_and_use", func(c *call) error {
		rec, ok := c.participant(holder)
		if !ok {
			return apperrors.ErrNoValidTicket
		}
		if err := rec.Use(); err != nil {
			return err
		}
		c.setParticipant(holder, rec)
		return nil
	})
	if err != nil {
		return false, err
	}

	p.logger.InfoContext(ctx, "ticket checked in", "holder", holder.String())
	return true, nil
}
