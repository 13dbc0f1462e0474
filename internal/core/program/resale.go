package program

import (
	"context"
	"fmt"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

// ListForSale offers caller's unused ticket at price, capped at face value.
func (p *Program) ListForSale(ctx context.Context, caller domain.AccountID, price uint64) error {
	return p.atomic(ctx, "list_for_sale", func(c *call) error {
		rec, ok := c.participant(caller)
		if !ok {
			return apperrors.ErrNoValidTicket
		}
		if err := rec.List(price, c.event.TicketPrice); err != nil {
			return err
		}
		c.setParticipant(caller, rec)
		return nil
	})
}

// CancelListing takes caller's ticket off the resale market.
func (p *Program) CancelListing(ctx context.Context, caller domain.AccountID) error {
	return p.atomic(ctx, "cancel_listing", func(c *call) error {
		rec, ok := c.participant(caller)
		if !ok {
			return apperrors.ErrNoValidTicket
		}
		if err := rec.CancelListing(); err != nil {
			return err
		}
		c.setParticipant(caller, rec)
		return nil
	})
}

// BuyResale buys seller's listed ticket. The royalty stays in the program's
// pooled balance; the seller is paid the rest and the unit is clawed back from
// the seller to the buyer.
func (p *Program) BuyResale(ctx context.Context, caller domain.AccountID, payment domain.Payment, seller domain.AccountID) (domain.ResaleSplit, error) {
	if payment.Sender.IsZero() {
		payment.Sender = caller
	}
	var split domain.ResaleSplit

	err := p.atomic(ctx, "buy_resale", func(c *call) error {
		if p.isSelf(caller, seller, payment.Sender) {
			return apperrors.ErrUnauthorized
		}
		if c.registered(caller) {
			return apperrors.ErrAlreadyRegistered
		}

		sellerRec, ok := c.participant(seller)
		if !ok {
			return apperrors.ErrSellerHasNoTicket
		}
		if err := sellerRec.CheckResellable(); err != nil {
			return err
		}
		if payment.Receiver != p.account {
			return apperrors.ErrWrongReceiver
		}
		if payment.Amount < sellerRec.ListedPrice {
			return apperrors.ErrBelowAsking
		}
		if payment.Amount > c.event.TicketPrice {
			return apperrors.ErrAboveFaceValue
		}

		if err := p.ledger.Pay(c.ctx, payment.Sender, p.account, payment.Amount); err != nil {
			return fmt.Errorf("payment leg: %w", err)
		}

		split = domain.SplitResale(payment.Amount)
		if split.SellerPayout > 0 {
			if err := p.ledger.Pay(c.ctx, p.account, seller, split.SellerPayout); err != nil {
				return fmt.Errorf("seller payout: %w", err)
			}
		}

		if err := p.ledger.ForceTransfer(c.ctx, p.account, c.event.TicketAsset, seller, caller, ticketUnit); err != nil {
			return fmt.Errorf("ticket clawback: %w", err)
		}

		c.setParticipant(seller, domain.ParticipantRecord{})
		c.setParticipant(caller, domain.GrantedParticipant())
		return nil
	})
	if err != nil {
		return domain.ResaleSplit{}, err
	}

	p.logger.InfoContext(ctx, "ticket resold",
		"seller", seller.String(),
		"buyer", caller.String(),
		"amount", split.Amount,
		"royalty", split.Royalty,
		"seller_payout", split.SellerPayout,
	)
	return split, nil
}
