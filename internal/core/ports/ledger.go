package ports

import (
	"context"

	"github.com/ticketmint/event-program/internal/core/domain"
)

// AssetParams describes a new indivisible asset.
type AssetParams struct {
	Creator     domain.AccountID
	Name        string
	UnitName    string
	Total       uint64
	Manager     domain.AccountID
	Reserve     domain.AccountID
	Clawback    domain.AccountID
	MetadataURL string
}

// AssetRegistry holds ticket units and who owns them.
// All issued units start in the creator's holding.
type AssetRegistry interface {
	CreateAsset(ctx context.Context, params AssetParams) (domain.AssetID, error)
	// Transfer moves units out of from's own holding.
	Transfer(ctx context.Context, asset domain.AssetID, from, to domain.AccountID, amount uint64) error
	// ForceTransfer moves units without the holder's consent. Only the asset's
	// clawback authority may call it.
	ForceTransfer(ctx context.Context, authority domain.AccountID, asset domain.AssetID, from, to domain.AccountID, amount uint64) error
	BalanceOf(ctx context.Context, asset domain.AssetID, holder domain.AccountID) (uint64, error)
}

// PaymentRail moves native currency between accounts.
type PaymentRail interface {
	Balance(ctx context.Context, account domain.AccountID) (uint64, error)
	// MinimumBalance is the floor an account must retain to stay viable.
	MinimumBalance(ctx context.Context, account domain.AccountID) (uint64, error)
	Pay(ctx context.Context, from, to domain.AccountID, amount uint64) error
}

// Ledger is the combined substrate an event program runs on.
type Ledger interface {
	AssetRegistry
	PaymentRail
	TransactionManager
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Faucet credits accounts outside any program call. It seeds genesis balances.
type Faucet interface {
	Deposit(ctx context.Context, account domain.AccountID, amount uint64) error
}

// WalletGrant is a genesis balance credited through a Faucet.
type WalletGrant struct {
	Account domain.AccountID
	Amount  uint64
}
