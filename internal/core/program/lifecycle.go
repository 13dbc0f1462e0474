package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

// Fund pays currency into the program account so it can hold the minimum
// reserve the ticket asset requires.
func (p *Program) Fund(ctx context.Context, payment domain.Payment) error {
	return p.atomic(ctx, "fund", func(c *call) error {
		if p.isSelf(payment.Sender) {
			return apperrors.ErrUnauthorized
		}
		if payment.Receiver != p.account {
			return apperrors.ErrWrongReceiver
		}
		if payment.Amount == 0 {
			return apperrors.ErrInvalidAmount
		}
		return p.ledger.Pay(c.ctx, payment.Sender, p.account, payment.Amount)
	})
}

// MintTickets issues ticketSupply indivisible units of a new asset, with the
// program as manager, reserve and clawback authority.
func (p *Program) MintTickets(ctx context.Context, caller domain.AccountID) (domain.AssetID, error) {
	var (
		asset  domain.AssetID
		supply uint64
	)

	err := p.atomic(ctx, "mint_tickets", func(c *call) error {
		event := c.event
		if !event.IsOrganizer(caller) {
			return apperrors.ErrUnauthorized
		}
		if event.Minted {
			return apperrors.ErrAlreadyMinted
		}

		balance, err := p.ledger.Balance(c.ctx, p.account)
		if err != nil {
			return err
		}
		if balance == 0 {
			return apperrors.ErrProgramNotFunded
		}

		asset, err = p.ledger.CreateAsset(c.ctx, ports.AssetParams{
			Creator:  p.account,
			Name:     event.Name,
			UnitName: ticketUnitName,
			Total:    event.TicketSupply,
			Manager:  p.account,
			Reserve:  p.account,
			Clawback: p.account,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrBelowMinimumBalance) {
				return apperrors.ErrProgramNotFunded
			}
			return fmt.Errorf("create ticket asset: %w", err)
		}

		if err := event.MarkMinted(asset); err != nil {
			return err
		}
		c.setEvent(event)
		supply = event.TicketSupply
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.logger.InfoContext(ctx, "tickets minted",
		"asset_id", uint64(asset),
		"supply", supply,
	)
	return asset, nil
}

// Withdraw pays the organizer everything above the program's minimum reserve.
// Primary proceeds and resale royalties share one balance and are swept together.
func (p *Program) Withdraw(ctx context.Context, caller domain.AccountID) (uint64, error) {
	var amount uint64

	err := p.atomic(ctx, "withdraw", func(c *call) error {
		if !c.event.IsOrganizer(caller) {
			return apperrors.ErrUnauthorized
		}

		balance, err := p.ledger.Balance(c.ctx, p.account)
		if err != nil {
			return err
		}
		reserve, err := p.ledger.MinimumBalance(c.ctx, p.account)
		if err != nil {
			return err
		}
		if balance <= reserve {
			return apperrors.ErrNoFunds
		}

		amount = balance - reserve
		return p.ledger.Pay(c.ctx, p.account, c.event.Organizer, amount)
	})
	if err != nil {
		return 0, err
	}

	p.logger.InfoContext(ctx, "balance withdrawn", "amount", amount)
	return amount, nil
}
