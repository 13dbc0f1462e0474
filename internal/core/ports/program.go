package ports

import (
	"context"

	"github.com/ticketmint/event-program/internal/core/domain"
)

// EventProgram is the method surface of one deployed event program.
// Every mutating call commits or aborts as a single unit.
type EventProgram interface {
	ProgramAccount() domain.AccountID
	Event() domain.EventRecord
	Participant(account domain.AccountID) (domain.ParticipantRecord, bool)
	Balance(ctx context.Context) (uint64, error)

	Fund(ctx context.Context, payment domain.Payment) error
	MintTickets(ctx context.Context, caller domain.AccountID) (domain.AssetID, error)
	BuyTicket(ctx context.Context, caller domain.AccountID, payment domain.Payment) error
	VerifyAndUse(ctx context.Context, holder domain.AccountID) (bool, error)
	ListForSale(ctx context.Context, caller domain.AccountID, price uint64) error
	CancelListing(ctx context.Context, caller domain.AccountID) error
	BuyResale(ctx context.Context, caller domain.AccountID, payment domain.Payment, seller domain.AccountID) (domain.ResaleSplit, error)
	Withdraw(ctx context.Context, caller domain.AccountID) (uint64, error)
}
