package domain

import (
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

// TicketState is the per-holder check-in state machine.
type TicketState string

const (
	TicketUnissued TicketState = "UNISSUED"
	TicketOwned    TicketState = "OWNED"
	TicketUsed     TicketState = "USED"
)

// ParticipantRecord is the per-account state tracked by the program.
// The zero value is the reset state of an account whose unit moved away.
type ParticipantRecord struct {
	Owned         bool
	Used          bool
	ListedForSale bool
	ListedPrice   uint64
}

// GrantedParticipant is the record of an account that just received a unit.
func GrantedParticipant() ParticipantRecord {
	return ParticipantRecord{Owned: true}
}

// State maps the record onto UNISSUED -> OWNED -> USED.
func (p ParticipantRecord) State() TicketState {
	switch {
	case p.Owned && p.Used:
		return TicketUsed
	case p.Owned:
		return TicketOwned
	default:
		return TicketUnissued
	}
}

// Use checks the ticket in. A used ticket cannot stay listed.
func (p *ParticipantRecord) Use() error {
	if !p.Owned {
		return apperrors.ErrNoValidTicket
	}
	if p.Used {
		return apperrors.ErrAlreadyUsed
	}
	p.Used = true
	p.ListedForSale = false
	p.ListedPrice = 0
	return nil
}

// List offers the ticket for resale at price, capped at faceValue.
func (p *ParticipantRecord) List(price, faceValue uint64) error {
	if !p.Owned {
		return apperrors.ErrNoValidTicket
	}
	if p.Used {
		return apperrors.ErrAlreadyUsed
	}
	if price == 0 {
		return apperrors.ErrInvalidPrice
	}
	if price > faceValue {
		return apperrors.ErrAboveFaceValue
	}
	p.ListedForSale = true
	p.ListedPrice = price
	return nil
}

// CancelListing withdraws the ticket from the resale market.
func (p *ParticipantRecord) CancelListing() error {
	if !p.Owned {
		return apperrors.ErrNoValidTicket
	}
	p.ListedForSale = false
	p.ListedPrice = 0
	return nil
}

// CheckResellable validates the seller side of a resale.
func (p ParticipantRecord) CheckResellable() error {
	if !p.Owned {
		return apperrors.ErrSellerHasNoTicket
	}
	if p.Used {
		return apperrors.ErrAlreadyUsed
	}
	if !p.ListedForSale {
		return apperrors.ErrNotListed
	}
	return nil
}
