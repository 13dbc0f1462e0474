package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/core/utils"
)

// Ledger is the durable AssetRegistry and PaymentRail. Every mutation runs in
// a transaction; when the context already carries one it joins it, so a
// program call commits its payment, unit transfer and state writes together.
type Ledger struct {
	*TransactionManager
	pool    *pgxpool.Pool
	reserve domain.Reserve
}

var (
	_ ports.Ledger = (*Ledger)(nil)
	_ ports.Faucet = (*Ledger)(nil)
)

// NewLedger creates a ledger over pool.
func NewLedger(pool *pgxpool.Pool, reserve domain.Reserve) *Ledger {
	return &Ledger{
		TransactionManager: NewTransactionManager(pool),
		pool:               pool,
		reserve:            reserve,
	}
}

// balanceForUpdate returns account's balance, locking its row.
func (l *Ledger) balanceForUpdate(ctx context.Context, account domain.AccountID) (uint64, error) {
	var balance uint64
	err := GetDBTX(ctx, l.pool).QueryRow(ctx,
		`SELECT balance FROM ledger_accounts WHERE account = $1 FOR UPDATE`,
		account.String(),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (l *Ledger) credit(ctx context.Context, account domain.AccountID, amount uint64) error {
	_, err := GetDBTX(ctx, l.pool).Exec(ctx,
		`INSERT INTO ledger_accounts (account, balance) VALUES ($1, $2)
		 ON CONFLICT (account) DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance`,
		account.String(), amount,
	)
	return err
}

func (l *Ledger) debit(ctx context.Context, account domain.AccountID, amount uint64) error {
	_, err := GetDBTX(ctx, l.pool).Exec(ctx,
		`UPDATE ledger_accounts SET balance = balance - $2 WHERE account = $1`,
		account.String(), amount,
	)
	return err
}

func (l *Ledger) createdBy(ctx context.Context, account domain.AccountID) (uint64, error) {
	var n uint64
	err := GetDBTX(ctx, l.pool).QueryRow(ctx,
		`SELECT count(*) FROM ledger_assets WHERE creator = $1`,
		account.String(),
	).Scan(&n)
	return n, err
}

// Deposit credits account outside any program call.
func (l *Ledger) Deposit(ctx context.Context, account domain.AccountID, amount uint64) error {
	return l.WithTransaction(ctx, func(ctx context.Context) error {
		return l.credit(ctx, account, amount)
	})
}

// Balance returns account's currency balance.
func (l *Ledger) Balance(ctx context.Context, account domain.AccountID) (uint64, error) {
	var balance uint64
	err := GetDBTX(ctx, l.pool).QueryRow(ctx,
		`SELECT balance FROM ledger_accounts WHERE account = $1`,
		account.String(),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// MinimumBalance returns the reserve account must retain.
func (l *Ledger) MinimumBalance(ctx context.Context, account domain.AccountID) (uint64, error) {
	created, err := l.createdBy(ctx, account)
	if err != nil {
		return 0, err
	}
	return l.reserve.Minimum(created), nil
}

// Pay moves currency from one account to another. The sender may not drop
// below its minimum balance.
func (l *Ledger) Pay(ctx context.Context, from, to domain.AccountID, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	return l.WithTransaction(ctx, func(ctx context.Context) error {
		balance, err := l.balanceForUpdate(ctx, from)
		if err != nil {
			return fmt.Errorf("read sender balance: %w", err)
		}
		if balance < amount {
			return apperrors.ErrInsufficientBalance
		}
		minimum, err := l.MinimumBalance(ctx, from)
		if err != nil {
			return err
		}
		if balance-amount < minimum {
			return apperrors.ErrBelowMinimumBalance
		}
		if err := l.debit(ctx, from, amount); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if err := l.credit(ctx, to, amount); err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}
		return nil
	})
}

// CreateAsset issues params.Total units into the creator's holding.
func (l *Ledger) CreateAsset(ctx context.Context, params ports.AssetParams) (domain.AssetID, error) {
	if params.Total == 0 {
		return 0, fmt.Errorf("asset total must be positive")
	}

	var id domain.AssetID
	err := l.WithTransaction(ctx, func(ctx context.Context) error {
		balance, err := l.balanceForUpdate(ctx, params.Creator)
		if err != nil {
			return err
		}
		created, err := l.createdBy(ctx, params.Creator)
		if err != nil {
			return err
		}
		if balance < l.reserve.MinimumToCreate(created) {
			return apperrors.ErrBelowMinimumBalance
		}

		q := GetDBTX(ctx, l.pool)
		err = q.QueryRow(ctx,
			`INSERT INTO ledger_assets (creator, name, unit_name, total, manager, reserve, clawback, metadata_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			params.Creator.String(),
			params.Name,
			params.UnitName,
			params.Total,
			utils.ToString(params.Manager.String()),
			utils.ToString(params.Reserve.String()),
			utils.ToString(params.Clawback.String()),
			utils.ToString(params.MetadataURL),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}

		_, err = q.Exec(ctx,
			`INSERT INTO ledger_holdings (asset_id, holder, amount) VALUES ($1, $2, $3)`,
			id, params.Creator.String(), params.Total,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) clawbackOf(ctx context.Context, id domain.AssetID) (domain.AccountID, error) {
	var clawback pgtype.Text
	err := GetDBTX(ctx, l.pool).QueryRow(ctx,
		`SELECT clawback FROM ledger_assets WHERE id = $1`, id,
	).Scan(&clawback)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.ErrAssetNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.AccountID(utils.FromString(clawback)), nil
}

// Transfer moves amount units of asset out of from's own holding.
func (l *Ledger) Transfer(ctx context.Context, id domain.AssetID, from, to domain.AccountID, amount uint64) error {
	return l.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := l.clawbackOf(ctx, id); err != nil {
			return err
		}
		return l.move(ctx, id, from, to, amount)
	})
}

// ForceTransfer moves units without from's consent. Only the clawback
// authority of the asset may call it.
func (l *Ledger) ForceTransfer(ctx context.Context, authority domain.AccountID, id domain.AssetID, from, to domain.AccountID, amount uint64) error {
	return l.WithTransaction(ctx, func(ctx context.Context) error {
		clawback, err := l.clawbackOf(ctx, id)
		if err != nil {
			return err
		}
		if clawback.IsZero() || clawback != authority {
			return apperrors.ErrNotClawback
		}
		return l.move(ctx, id, from, to, amount)
	})
}

func (l *Ledger) move(ctx context.Context, id domain.AssetID, from, to domain.AccountID, amount uint64) error {
	q := GetDBTX(ctx, l.pool)

	var held uint64
	err := q.QueryRow(ctx,
		`SELECT amount FROM ledger_holdings WHERE asset_id = $1 AND holder = $2 FOR UPDATE`,
		id, from.String(),
	).Scan(&held)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if held < amount {
		return apperrors.ErrInsufficientBalance
	}
	if from == to || amount == 0 {
		return nil
	}

	if _, err := q.Exec(ctx,
		`UPDATE ledger_holdings SET amount = amount - $3 WHERE asset_id = $1 AND holder = $2`,
		id, from.String(), amount,
	); err != nil {
		return fmt.Errorf("debit holding: %w", err)
	}
	if _, err := q.Exec(ctx,
		`INSERT INTO ledger_holdings (asset_id, holder, amount) VALUES ($1, $2, $3)
		 ON CONFLICT (asset_id, holder) DO UPDATE SET amount = ledger_holdings.amount + EXCLUDED.amount`,
		id, to.String(), amount,
	); err != nil {
		return fmt.Errorf("credit holding: %w", err)
	}
	return nil
}

// BalanceOf returns the units of asset held by holder.
func (l *Ledger) BalanceOf(ctx context.Context, id domain.AssetID, holder domain.AccountID) (uint64, error) {
	if _, err := l.clawbackOf(ctx, id); err != nil {
		return 0, err
	}
	var held uint64
	err := GetDBTX(ctx, l.pool).QueryRow(ctx,
		`SELECT amount FROM ledger_holdings WHERE asset_id = $1 AND holder = $2`,
		id, holder.String(),
	).Scan(&held)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return held, err
}
