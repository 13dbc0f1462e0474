package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyDecimals is the number of decimal places of one currency unit;
// program amounts are integers in the smallest unit.
const CurrencyDecimals = 6

// TicketSource records how a mirrored ticket reached its holder.
type TicketSource string

const (
	SourcePrimary TicketSource = "PRIMARY"
	SourceResale  TicketSource = "RESALE"
)

// EventListing is the relational mirror of a deployed event program.
type EventListing struct {
	ID             uuid.UUID
	Name           string
	Description    string
	ImageURL       string
	Venue          string
	Date           string
	TicketPrice    uint64
	TicketSupply   uint64
	AssetID        AssetID
	ProgramAccount AccountID
	Organizer      AccountID
	CreatedAt      time.Time
}

// Ticket is the relational mirror of one holder's ticket unit.
type Ticket struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	Owner         AccountID
	AssetID       AssetID
	PurchasePrice uint64
	Source        TicketSource
	CheckedIn     bool
	CheckedInAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// NewTicket builds the mirror row for a unit just granted to owner.
func NewTicket(eventID uuid.UUID, owner AccountID, asset AssetID, price uint64, source TicketSource) *Ticket {
	return &Ticket{
		ID:            uuid.New(),
		EventID:       eventID,
		Owner:         owner,
		AssetID:       asset,
		PurchasePrice: price,
		Source:        source,
		CreatedAt:     time.Now().UTC(),
	}
}

// MarkCheckedIn records a confirmed check-in on the mirror.
func (t *Ticket) MarkCheckedIn(at time.Time) {
	t.CheckedIn = true
	at = at.UTC()
	t.CheckedInAt = &at
	t.UpdatedAt = &at
}

// EventMetadata is the display document served per event.
type EventMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Venue       string `json:"venue"`
	Date        string `json:"date"`
	Price       string `json:"price"`
	Supply      uint64 `json:"supply"`
	AssetID     uint64 `json:"assetId,omitempty"`
}

// FormatAmount renders an integer amount of smallest units as a decimal string.
func FormatAmount(amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -CurrencyDecimals).
		StringFixed(CurrencyDecimals)
}

// NewEventMetadata builds the display document for a mirrored event.
func NewEventMetadata(e *EventListing) EventMetadata {
	return EventMetadata{
		Name:        e.Name,
		Description: e.Description,
		Image:       e.ImageURL,
		Venue:       e.Venue,
		Date:        e.Date,
		Price:       FormatAmount(e.TicketPrice),
		Supply:      e.TicketSupply,
		AssetID:     uint64(e.AssetID),
	}
}
