package domain

import (
	"time"
)

// TicketSnapshot matches the API response shape for mirrored tickets.
type TicketSnapshot struct {
	ID            string  `json:"id"`
	EventID       string  `json:"eventId"`
	Owner         string  `json:"owner"`
	AssetID       uint64  `json:"assetId"`
	PurchasePrice uint64  `json:"purchasePrice"`
	Source        string  `json:"source"`
	CheckedIn     bool    `json:"checkedIn"`
	CheckedInAt   *string `json:"checkedInAt"`
	CreatedAt     string  `json:"createdAt"`
}

// ResaleSnapshot is broadcast when a ticket changes hands on the resale market.
type ResaleSnapshot struct {
	Seller       string `json:"seller"`
	Buyer        string `json:"buyer"`
	Amount       uint64 `json:"amount"`
	Royalty      uint64 `json:"royalty"`
	SellerPayout uint64 `json:"sellerPayout"`
}

// NewTicketSnapshot builds a ticket snapshot from a mirrored ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var checkedInAt *string
	if ticket.CheckedInAt != nil {
		value := ticket.CheckedInAt.UTC().Format(time.RFC3339)
		checkedInAt = &value
	}

	return TicketSnapshot{
		ID:            ticket.ID.String(),
		EventID:       ticket.EventID.String(),
		Owner:         ticket.Owner.String(),
		AssetID:       uint64(ticket.AssetID),
		PurchasePrice: ticket.PurchasePrice,
		Source:        string(ticket.Source),
		CheckedIn:     ticket.CheckedIn,
		CheckedInAt:   checkedInAt,
		CreatedAt:     ticket.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewResaleSnapshot builds a resale snapshot from a completed split.
func NewResaleSnapshot(seller, buyer AccountID, split ResaleSplit) ResaleSnapshot {
	return ResaleSnapshot{
		Seller:       seller.String(),
		Buyer:        buyer.String(),
		Amount:       split.Amount,
		Royalty:      split.Royalty,
		SellerPayout: split.SellerPayout,
	}
}
