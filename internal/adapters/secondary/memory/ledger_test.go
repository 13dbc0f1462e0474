package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

const (
	creator = domain.AccountID("CREATOR")
	alice   = domain.AccountID("ALICE")
	bob     = domain.AccountID("BOB")
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := NewLedger(domain.DefaultReserve())
	ctx := context.Background()
	l.Deposit(ctx, creator, 1_000_000)
	l.Deposit(ctx, alice, 1_000_000)
	return l
}

func createTicketAsset(t *testing.T, l *Ledger) domain.AssetID {
	t.Helper()
	id, err := l.CreateAsset(context.Background(), ports.AssetParams{
		Creator:  creator,
		Name:     "Summer Fest",
		UnitName: "TICKET",
		Total:    10,
		Manager:  creator,
		Reserve:  creator,
		Clawback: creator,
	})
	require.NoError(t, err)
	return id
}

func TestLedger_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("moves currency", func(t *testing.T) {
		l := newTestLedger(t)

		require.NoError(t, l.Pay(ctx, alice, bob, 400_000))

		aliceBal, _ := l.Balance(ctx, alice)
		bobBal, _ := l.Balance(ctx, bob)
		assert.Equal(t, uint64(600_000), aliceBal)
		assert.Equal(t, uint64(400_000), bobBal)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		l := newTestLedger(t)
		assert.ErrorIs(t, l.Pay(ctx, bob, alice, 1), apperrors.ErrInsufficientBalance)
	})

	t.Run("cannot drop below minimum balance", func(t *testing.T) {
		l := newTestLedger(t)
		assert.ErrorIs(t, l.Pay(ctx, alice, bob, 950_000), apperrors.ErrBelowMinimumBalance)

		aliceBal, _ := l.Balance(ctx, alice)
		assert.Equal(t, uint64(1_000_000), aliceBal)
	})
}

func TestLedger_CreateAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("issues total to creator and raises reserve", func(t *testing.T) {
		l := newTestLedger(t)
		id := createTicketAsset(t, l)

		held, err := l.BalanceOf(ctx, id, creator)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), held)

		minBal, _ := l.MinimumBalance(ctx, creator)
		assert.Equal(t, uint64(200_000), minBal)
	})

	t.Run("holding units does not raise reserve", func(t *testing.T) {
		l := newTestLedger(t)
		id := createTicketAsset(t, l)
		require.NoError(t, l.Transfer(ctx, id, creator, alice, 1))

		minBal, _ := l.MinimumBalance(ctx, alice)
		assert.Equal(t, domain.DefaultReserve().Minimum(0), minBal)
		require.NoError(t, l.Pay(ctx, alice, bob, 900_000))
	})

	t.Run("requires funded creator", func(t *testing.T) {
		l := NewLedger(domain.DefaultReserve())
		l.Deposit(ctx, creator, 150_000)

		_, err := l.CreateAsset(ctx, ports.AssetParams{Creator: creator, Total: 10})
		assert.ErrorIs(t, err, apperrors.ErrBelowMinimumBalance)
	})
}

func TestLedger_ForceTransfer(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	id := createTicketAsset(t, l)
	require.NoError(t, l.Transfer(ctx, id, creator, alice, 1))

	t.Run("only the clawback authority may force a transfer", func(t *testing.T) {
		err := l.ForceTransfer(ctx, bob, id, alice, bob, 1)
		assert.ErrorIs(t, err, apperrors.ErrNotClawback)
	})

	t.Run("clawback moves the unit without holder consent", func(t *testing.T) {
		require.NoError(t, l.ForceTransfer(ctx, creator, id, alice, bob, 1))

		aliceHeld, _ := l.BalanceOf(ctx, id, alice)
		bobHeld, _ := l.BalanceOf(ctx, id, bob)
		assert.Equal(t, uint64(0), aliceHeld)
		assert.Equal(t, uint64(1), bobHeld)
	})

	t.Run("unknown asset", func(t *testing.T) {
		err := l.ForceTransfer(ctx, creator, id+100, alice, bob, 1)
		assert.ErrorIs(t, err, apperrors.ErrAssetNotFound)
	})
}

func TestLedger_WithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls back every leg on error", func(t *testing.T) {
		l := newTestLedger(t)
		id := createTicketAsset(t, l)
		boom := errors.New("boom")

		err := l.WithTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, l.Pay(ctx, alice, creator, 300_000))
			require.NoError(t, l.Transfer(ctx, id, creator, alice, 1))
			_, err := l.CreateAsset(ctx, ports.AssetParams{Creator: creator, Total: 5})
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		aliceBal, _ := l.Balance(ctx, alice)
		creatorBal, _ := l.Balance(ctx, creator)
		aliceHeld, _ := l.BalanceOf(ctx, id, alice)
		creatorHeld, _ := l.BalanceOf(ctx, id, creator)
		assert.Equal(t, uint64(1_000_000), aliceBal)
		assert.Equal(t, uint64(1_000_000), creatorBal)
		assert.Equal(t, uint64(0), aliceHeld)
		assert.Equal(t, uint64(10), creatorHeld)

		// The rolled-back asset id is reused.
		next := createTicketAsset(t, l)
		assert.Equal(t, id+1, next)
	})

	t.Run("commits on success", func(t *testing.T) {
		l := newTestLedger(t)

		err := l.WithTransaction(ctx, func(ctx context.Context) error {
			return l.Pay(ctx, alice, bob, 100_000)
		})
		require.NoError(t, err)

		bobBal, _ := l.Balance(ctx, bob)
		assert.Equal(t, uint64(100_000), bobBal)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		l := newTestLedger(t)

		assert.Panics(t, func() {
			_ = l.WithTransaction(ctx, func(ctx context.Context) error {
				_ = l.Pay(ctx, alice, bob, 100_000)
				panic("boom")
			})
		})

		bobBal, _ := l.Balance(ctx, bob)
		assert.Equal(t, uint64(0), bobBal)
	})
}
