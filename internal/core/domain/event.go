package domain

import (
	"strings"

	apperrors "github.com/ticketmint/event-program/internal/core/errors"
)

const (
	MaxEventNameLength  = 64
	MaxEventVenueLength = 128
	MaxEventDateLength  = 64
)

// EventParams holds the descriptive and economic parameters of an event.
type EventParams struct {
	Name   string
	Date   string
	Venue  string
	Supply uint64
	Price  uint64
}

// Validate validates event creation parameters
func (p *EventParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if strings.TrimSpace(p.Name) == "" {
		errs.Add("name", "Event name is required")
	} else if len(p.Name) > MaxEventNameLength {
		errs.Add("name", "Event name must be 64 characters or less")
	}

	if strings.TrimSpace(p.Date) == "" {
		errs.Add("date", "Event date is required")
	} else if len(p.Date) > MaxEventDateLength {
		errs.Add("date", "Event date must be 64 characters or less")
	}

	if strings.TrimSpace(p.Venue) == "" {
		errs.Add("venue", "Venue is required")
	} else if len(p.Venue) > MaxEventVenueLength {
		errs.Add("venue", "Venue must be 128 characters or less")
	}

	if p.Supply < 1 {
		errs.Add("supply", "Ticket supply must be at least 1")
	}
	if p.Price < 1 {
		errs.Add("price", "Ticket price must be at least 1")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// EventRecord is the global state of one deployed event program.
type EventRecord struct {
	Organizer    AccountID
	Name         string
	Date         string
	Venue        string
	TicketPrice  uint64
	TicketSupply uint64
	TicketsSold  uint64
	TicketAsset  AssetID
	Minted       bool
}

// NewEventRecord creates the record for a freshly instantiated program.
func NewEventRecord(organizer AccountID, params EventParams) (*EventRecord, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if organizer.IsZero() {
		errs := apperrors.NewValidationErrors()
		errs.Add("organizer", "Organizer account is required")
		return nil, errs
	}

	return &EventRecord{
		Organizer:    organizer,
		Name:         params.Name,
		Date:         params.Date,
		Venue:        params.Venue,
		TicketPrice:  params.Price,
		TicketSupply: params.Supply,
	}, nil
}

// IsOrganizer reports whether account created the event.
func (e *EventRecord) IsOrganizer(account AccountID) bool {
	return e.Organizer == account
}

// Remaining returns the number of unsold tickets.
func (e *EventRecord) Remaining() uint64 {
	return e.TicketSupply - e.TicketsSold
}

// MarkMinted records the ticket asset. It can happen only once.
func (e *EventRecord) MarkMinted(asset AssetID) error {
	if e.Minted {
		return apperrors.ErrAlreadyMinted
	}
	e.TicketAsset = asset
	e.Minted = true
	return nil
}

// RecordSale counts one primary sale, enforcing the supply cap.
func (e *EventRecord) RecordSale() error {
	if !e.Minted {
		return apperrors.ErrNotMinted
	}
	if e.TicketsSold >= e.TicketSupply {
		return apperrors.ErrSoldOut
	}
	e.TicketsSold++
	return nil
}

// CheckSellable returns the reason a primary sale cannot happen, if any.
func (e *EventRecord) CheckSellable() error {
	if !e.Minted {
		return apperrors.ErrNotMinted
	}
	if e.TicketsSold >= e.TicketSupply {
		return apperrors.ErrSoldOut
	}
	return nil
}
