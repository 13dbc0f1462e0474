package program

import (
	"context"
	"fmt"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

// BuyTicket sells one unit at face value to caller. The payment is executed in
// the same transaction as the unit transfer; either both happen or neither does.
func (p *Program) BuyTicket(ctx context.Context, caller domain.AccountID, payment domain.Payment) error {
	if payment.Sender.IsZero() {
		payment.Sender = caller
	}

	var sold uint64
	err := p.atomic(ctx, "buy_ticket", func(c *call) error {
		if p.isSelf(caller, payment.Sender) {
			return apperrors.ErrUnauthorized
		}
		if c.registered(caller) {
			return apperrors.ErrAlreadyRegistered
		}

		event := c.event
		if err := event.CheckSellable(); err != nil {
			return err
		}
		if payment.Receiver != p.account {
			return apperrors.ErrWrongReceiver
		}
		if payment.Amount < event.TicketPrice {
			return apperrors.ErrInsufficientPayment
		}

		if err := p.ledger.Pay(c.ctx, payment.Sender, p.account, payment.Amount); err != nil {
			return fmt.Errorf("payment leg: %w", err)
		}
		if err := p.ledger.Transfer(c.ctx, event.TicketAsset, p.account, caller, ticketUnit); err != nil {
			return fmt.Errorf("ticket transfer: %w", err)
		}

		if err := event.RecordSale(); err != nil {
			return err
		}
		c.setEvent(event)
		c.setParticipant(caller, domain.GrantedParticipant())
		sold = event.TicketsSold
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "ticket purchased",
		"buyer", caller.String(),
		"amount", payment.Amount,
		"tickets_sold", sold,
	)
	return nil
}
