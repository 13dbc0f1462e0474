package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

type asset struct {
	params   ports.AssetParams
	holdings map[domain.AccountID]uint64
}

// Ledger is an in-memory AssetRegistry and PaymentRail with transactional
// rollback. Mutations made through a transaction context are undone if the
// transaction function fails.
type Ledger struct {
	txMu sync.Mutex // serializes transactions
	mu   sync.Mutex // guards the maps below

	reserve   domain.Reserve
	balances  map[domain.AccountID]uint64
	assets    map[domain.AssetID]*asset
	nextAsset domain.AssetID
}

var (
	_ ports.Ledger = (*Ledger)(nil)
	_ ports.Faucet = (*Ledger)(nil)
)

// NewLedger creates an empty ledger.
func NewLedger(reserve domain.Reserve) *Ledger {
	return &Ledger{
		reserve:   reserve,
		balances:  make(map[domain.AccountID]uint64),
		assets:    make(map[domain.AssetID]*asset),
		nextAsset: 1,
	}
}

// journal is the undo log of one running transaction.
type journal struct {
	undo []func()
}

type txContextKey struct{}

func journalFromContext(ctx context.Context) *journal {
	j, _ := ctx.Value(txContextKey{}).(*journal)
	return j
}

// record registers an undo step. Callers must hold l.mu.
func (l *Ledger) record(ctx context.Context, undo func()) {
	if j := journalFromContext(ctx); j != nil {
		j.undo = append(j.undo, undo)
	}
}

// WithTransaction runs fn atomically. If fn returns an error or panics every
// ledger mutation it made is rolled back. Nested calls join the outer transaction.
func (l *Ledger) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFromContext(ctx) != nil {
		return fn(ctx)
	}

	l.txMu.Lock()
	defer l.txMu.Unlock()

	j := &journal{}
	txCtx := context.WithValue(ctx, txContextKey{}, j)

	defer func() {
		if p := recover(); p != nil {
			l.rollback(j)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		l.rollback(j)
		return err
	}
	return nil
}

func (l *Ledger) rollback(j *journal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Deposit credits account out of thin air. It is the genesis faucet used to
// seed balances and is not part of any program call.
func (l *Ledger) Deposit(ctx context.Context, account domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setBalance(ctx, account, l.balances[account]+amount)
	return nil
}

// setBalance writes a balance and journals the previous value. Callers must hold l.mu.
func (l *Ledger) setBalance(ctx context.Context, account domain.AccountID, amount uint64) {
	prev, existed := l.balances[account]
	l.balances[account] = amount
	l.record(ctx, func() {
		if existed {
			l.balances[account] = prev
		} else {
			delete(l.balances, account)
		}
	})
}

// setHolding writes a holding and journals the previous value. Callers must hold l.mu.
func (l *Ledger) setHolding(ctx context.Context, a *asset, holder domain.AccountID, amount uint64) {
	prev, existed := a.holdings[holder]
	a.holdings[holder] = amount
	l.record(ctx, func() {
		if existed {
			a.holdings[holder] = prev
		} else {
			delete(a.holdings, holder)
		}
	})
}

func (l *Ledger) createdBy(account domain.AccountID) uint64 {
	var n uint64
	for _, a := range l.assets {
		if a.params.Creator == account {
			n++
		}
	}
	return n
}

func (l *Ledger) minimumBalance(account domain.AccountID) uint64 {
	return l.reserve.Minimum(l.createdBy(account))
}

// CreateAsset issues params.Total units into the creator's holding.
func (l *Ledger) CreateAsset(ctx context.Context, params ports.AssetParams) (domain.AssetID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if params.Total == 0 {
		return 0, fmt.Errorf("asset total must be positive")
	}
	required := l.reserve.MinimumToCreate(l.createdBy(params.Creator))
	if l.balances[params.Creator] < required {
		return 0, apperrors.ErrBelowMinimumBalance
	}

	id := l.nextAsset
	l.nextAsset++
	a := &asset{params: params, holdings: map[domain.AccountID]uint64{params.Creator: params.Total}}
	l.assets[id] = a
	l.record(ctx, func() {
		delete(l.assets, id)
		l.nextAsset = id
	})
	return id, nil
}

// Transfer moves amount units of asset out of from's own holding.
func (l *Ledger) Transfer(ctx context.Context, id domain.AssetID, from, to domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.assets[id]
	if !ok {
		return apperrors.ErrAssetNotFound
	}
	return l.move(ctx, a, from, to, amount)
}

// ForceTransfer moves units without from's consent. Only the clawback
// authority of the asset may call it.
func (l *Ledger) ForceTransfer(ctx context.Context, authority domain.AccountID, id domain.AssetID, from, to domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.assets[id]
	if !ok {
		return apperrors.ErrAssetNotFound
	}
	if a.params.Clawback.IsZero() || a.params.Clawback != authority {
		return apperrors.ErrNotClawback
	}
	return l.move(ctx, a, from, to, amount)
}

func (l *Ledger) move(ctx context.Context, a *asset, from, to domain.AccountID, amount uint64) error {
	if a.holdings[from] < amount {
		return apperrors.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	l.setHolding(ctx, a, from, a.holdings[from]-amount)
	l.setHolding(ctx, a, to, a.holdings[to]+amount)
	return nil
}

// BalanceOf returns the units of asset held by holder.
func (l *Ledger) BalanceOf(ctx context.Context, id domain.AssetID, holder domain.AccountID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.assets[id]
	if !ok {
		return 0, apperrors.ErrAssetNotFound
	}
	return a.holdings[holder], nil
}

// Balance returns account's currency balance.
func (l *Ledger) Balance(ctx context.Context, account domain.AccountID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// MinimumBalance returns the reserve account must retain.
func (l *Ledger) MinimumBalance(ctx context.Context, account domain.AccountID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minimumBalance(account), nil
}

// Pay moves currency from one account to another. The sender may not drop
// below its minimum balance.
func (l *Ledger) Pay(ctx context.Context, from, to domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == 0 || from == to {
		return nil
	}
	balance := l.balances[from]
	if balance < amount {
		return apperrors.ErrInsufficientBalance
	}
	if balance-amount < l.minimumBalance(from) {
		return apperrors.ErrBelowMinimumBalance
	}
	l.setBalance(ctx, from, balance-amount)
	l.setBalance(ctx, to, l.balances[to]+amount)
	return nil
}
