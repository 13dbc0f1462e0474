package program_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketmint/event-program/internal/adapters/secondary/memory"
	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/mocks"
	"github.com/ticketmint/event-program/internal/core/program"
)

const (
	organizer  = domain.AccountID("ORGANIZER")
	faceValue  = uint64(1_000_000)
	funding    = uint64(1_000_000)
	walletSeed = uint64(5_000_000)
)

type fixture struct {
	ctx     context.Context
	ledger  *memory.Ledger
	program *program.Program
	account domain.AccountID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, supply uint64) *fixture {
	t.Helper()
	ctx := context.Background()
	ledger := memory.NewLedger(domain.DefaultReserve())
	account := domain.DeriveProgramAccount(t.Name())
	ledger.Deposit(ctx, organizer, 10*walletSeed)

	p, err := program.New(ctx, program.Deps{
		Account: account,
		Ledger:  ledger,
		Logger:  discardLogger(),
	}, organizer, domain.EventParams{
		Name:   "Summer Fest",
		Date:   "2026-07-01",
		Venue:  "Riverside Park",
		Supply: supply,
		Price:  faceValue,
	})
	require.NoError(t, err)

	return &fixture{ctx: ctx, ledger: ledger, program: p, account: account}
}

// minted returns a fixture whose program is funded and has minted its tickets.
func minted(t *testing.T, supply uint64) *fixture {
	t.Helper()
	f := newFixture(t, supply)
	require.NoError(t, f.program.Fund(f.ctx, f.pay(organizer, funding)))
	_, err := f.program.MintTickets(f.ctx, organizer)
	require.NoError(t, err)
	return f
}

func (f *fixture) pay(sender domain.AccountID, amount uint64) domain.Payment {
	return domain.Payment{Sender: sender, Receiver: f.account, Amount: amount}
}

func (f *fixture) wallet(name string) domain.AccountID {
	account := domain.AccountID(name)
	f.ledger.Deposit(f.ctx, account, walletSeed)
	return account
}

func (f *fixture) balance(t *testing.T, account domain.AccountID) uint64 {
	t.Helper()
	bal, err := f.ledger.Balance(f.ctx, account)
	require.NoError(t, err)
	return bal
}

func (f *fixture) units(t *testing.T, account domain.AccountID) uint64 {
	t.Helper()
	held, err := f.ledger.BalanceOf(f.ctx, f.program.Event().TicketAsset, account)
	require.NoError(t, err)
	return held
}

// buyer returns a funded account that has completed a primary purchase.
func (f *fixture) buyer(t *testing.T, name string) domain.AccountID {
	t.Helper()
	account := f.wallet(name)
	require.NoError(t, f.program.BuyTicket(f.ctx, account, f.pay(account, faceValue)))
	return account
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger(domain.DefaultReserve())

	t.Run("records organizer and zero state", func(t *testing.T) {
		f := newFixture(t, 10)
		event := f.program.Event()

		assert.Equal(t, organizer, event.Organizer)
		assert.Equal(t, uint64(10), event.TicketSupply)
		assert.Equal(t, faceValue, event.TicketPrice)
		assert.Equal(t, uint64(0), event.TicketsSold)
		assert.False(t, event.Minted)
		assert.Equal(t, uint64(0), f.balance(t, f.account))
	})

	t.Run("rejects zero supply", func(t *testing.T) {
		_, err := program.New(ctx, program.Deps{Account: "P", Ledger: ledger}, organizer,
			domain.EventParams{Name: "x", Date: "d", Venue: "v", Supply: 0, Price: 1})

		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "supply")
	})

	t.Run("requires a ledger", func(t *testing.T) {
		_, err := program.New(ctx, program.Deps{Account: "P"}, organizer,
			domain.EventParams{Name: "x", Date: "d", Venue: "v", Supply: 1, Price: 1})
		assert.Error(t, err)
	})
}

func TestMintTickets(t *testing.T) {
	t.Run("non-organizer is unauthorized", func(t *testing.T) {
		f := newFixture(t, 10)
		require.NoError(t, f.program.Fund(f.ctx, f.pay(organizer, funding)))

		_, err := f.program.MintTickets(f.ctx, f.wallet("MALLORY"))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
		assert.False(t, f.program.Event().Minted)
	})

	t.Run("unfunded program cannot mint", func(t *testing.T) {
		f := newFixture(t, 10)

		_, err := f.program.MintTickets(f.ctx, organizer)
		assert.ErrorIs(t, err, apperrors.ErrProgramNotFunded)
		assert.False(t, f.program.Event().Minted)
	})

	t.Run("underfunded program cannot mint", func(t *testing.T) {
		f := newFixture(t, 10)
		require.NoError(t, f.program.Fund(f.ctx, f.pay(organizer, 150_000)))

		_, err := f.program.MintTickets(f.ctx, organizer)
		assert.ErrorIs(t, err, apperrors.ErrProgramNotFunded)
		assert.False(t, f.program.Event().Minted)
	})

	t.Run("issues supply units held by the program", func(t *testing.T) {
		f := newFixture(t, 10)
		require.NoError(t, f.program.Fund(f.ctx, f.pay(organizer, funding)))

		asset, err := f.program.MintTickets(f.ctx, organizer)
		require.NoError(t, err)

		event := f.program.Event()
		assert.True(t, event.Minted)
		assert.Equal(t, asset, event.TicketAsset)
		assert.Equal(t, uint64(10), f.units(t, f.account))
	})

	t.Run("second mint fails", func(t *testing.T) {
		f := minted(t, 10)
		asset := f.program.Event().TicketAsset

		_, err := f.program.MintTickets(f.ctx, organizer)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyMinted)
		assert.Equal(t, asset, f.program.Event().TicketAsset)
	})
}

func TestFund(t *testing.T) {
	f := newFixture(t, 1)

	err := f.program.Fund(f.ctx, domain.Payment{Sender: organizer, Receiver: "ELSEWHERE", Amount: funding})
	assert.ErrorIs(t, err, apperrors.ErrWrongReceiver)

	err = f.program.Fund(f.ctx, f.pay(organizer, 0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	require.NoError(t, f.program.Fund(f.ctx, f.pay(organizer, funding)))
	assert.Equal(t, funding, f.balance(t, f.account))
}

// Ten distinct buyers exhaust a supply of ten; the eleventh is sold out.
func TestBuyTicket_SellsOutAtSupply(t *testing.T) {
	f := minted(t, 10)

	for i := 0; i < 10; i++ {
		buyer := f.wallet(fmt.Sprintf("BUYER-%d", i))
		require.NoError(t, f.program.BuyTicket(f.ctx, buyer, f.pay(buyer, faceValue)))

		rec, ok := f.program.Participant(buyer)
		require.True(t, ok)
		assert.Equal(t, domain.GrantedParticipant(), rec)
		assert.Equal(t, uint64(1), f.units(t, buyer))
	}
	assert.Equal(t, uint64(10), f.program.Event().TicketsSold)

	late := f.wallet("LATE")
	err := f.program.BuyTicket(f.ctx, late, f.pay(late, faceValue))
	assert.ErrorIs(t, err, apperrors.ErrSoldOut)
	assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))
	assert.Equal(t, uint64(10), f.program.Event().TicketsSold)
	assert.Equal(t, walletSeed, f.balance(t, late))
	assert.Equal(t, funding+10*faceValue, f.balance(t, f.account))
}

func TestBuyTicket_Preconditions(t *testing.T) {
	t.Run("not minted", func(t *testing.T) {
		f := newFixture(t, 10)
		buyer := f.wallet("BUYER")

		err := f.program.BuyTicket(f.ctx, buyer, f.pay(buyer, faceValue))
		assert.ErrorIs(t, err, apperrors.ErrNotMinted)
	})

	tests := []struct {
		name    string
		payment func(f *fixture, buyer domain.AccountID) domain.Payment
		wantErr error
	}{
		{
			name: "wrong receiver",
			payment: func(f *fixture, buyer domain.AccountID) domain.Payment {
				return domain.Payment{Sender: buyer, Receiver: organizer, Amount: faceValue}
			},
			wantErr: apperrors.ErrWrongReceiver,
		},
		{
			name: "insufficient payment",
			payment: func(f *fixture, buyer domain.AccountID) domain.Payment {
				return f.pay(buyer, faceValue-1)
			},
			wantErr: apperrors.ErrInsufficientPayment,
		},
		{
			name: "payment leg fails for an empty wallet",
			payment: func(f *fixture, buyer domain.AccountID) domain.Payment {
				return f.pay("EMPTY", faceValue)
			},
			wantErr: apperrors.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := minted(t, 10)
			buyer := f.wallet("BUYER")
			programBefore := f.balance(t, f.account)

			err := f.program.BuyTicket(f.ctx, buyer, tt.payment(f, buyer))

			assert.ErrorIs(t, err, tt.wantErr)
			_, ok := f.program.Participant(buyer)
			assert.False(t, ok)
			assert.Equal(t, uint64(0), f.program.Event().TicketsSold)
			assert.Equal(t, walletSeed, f.balance(t, buyer))
			assert.Equal(t, programBefore, f.balance(t, f.account))
			assert.Equal(t, uint64(0), f.units(t, buyer))
			assert.Equal(t, uint64(10), f.units(t, f.account))
		})
	}
}

func TestBuyTicket_OncePerIdentity(t *testing.T) {
	f := minted(t, 10)
	buyer := f.buyer(t, "BUYER")

	err := f.program.BuyTicket(f.ctx, buyer, f.pay(buyer, faceValue))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	assert.Equal(t, uint64(1), f.program.Event().TicketsSold)
	assert.Equal(t, uint64(1), f.units(t, buyer))
	assert.Equal(t, walletSeed-faceValue, f.balance(t, buyer))
}

func TestBuyTicket_UniquenessCheckedFirst(t *testing.T) {
	f := minted(t, 1)
	buyer := f.buyer(t, "BUYER")

	// Sold out, but the repeat buyer is rejected on identity before supply.
	err := f.program.BuyTicket(f.ctx, buyer, f.pay(buyer, faceValue))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
}

func TestBuyTicket_ConcurrentBuyersNeverOversell(t *testing.T) {
	const supply, buyers = 5, 40
	f := minted(t, supply)

	accounts := make([]domain.AccountID, buyers)
	for i := range accounts {
		accounts[i] = f.wallet(fmt.Sprintf("RACER-%d", i))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		soldOut int
	)
	for _, account := range accounts {
		wg.Add(1)
		go func(account domain.AccountID) {
			defer wg.Done()
			err := f.program.BuyTicket(f.ctx, account, f.pay(account, faceValue))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, apperrors.ErrSoldOut):
				soldOut++
			}
		}(account)
	}
	wg.Wait()

	assert.Equal(t, supply, success)
	assert.Equal(t, buyers-supply, soldOut)
	assert.Equal(t, uint64(supply), f.program.Event().TicketsSold)
	assert.Equal(t, uint64(0), f.units(t, f.account))
}

func TestVerifyAndUse(t *testing.T) {
	f := minted(t, 10)
	holder := f.buyer(t, "HOLDER")

	ok, err := f.program.VerifyAndUse(f.ctx, holder)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, _ := f.program.Participant(holder)
	assert.True(t, rec.Used)
	assert.Equal(t, domain.TicketUsed, rec.State())

	for i := 0; i < 3; i++ {
		ok, err = f.program.VerifyAndUse(f.ctx, holder)
		assert.False(t, ok)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
	}

	t.Run("unknown holder has no valid ticket", func(t *testing.T) {
		ok, err := f.program.VerifyAndUse(f.ctx, "STRANGER")
		assert.False(t, ok)
		assert.ErrorIs(t, err, apperrors.ErrNoValidTicket)
	})

	t.Run("any caller may verify", func(t *testing.T) {
		other := f.buyer(t, "OTHER")
		ok, err := f.program.VerifyAndUse(f.ctx, other)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestListForSale(t *testing.T) {
	tests := []struct {
		name    string
		price   uint64
		wantErr error
	}{
		{"below face value", 900_000, nil},
		{"at face value", faceValue, nil},
		{"one unit", 1, nil},
		{"above face value", 1_100_000, apperrors.ErrAboveFaceValue},
		{"zero price", 0, apperrors.ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := minted(t, 10)
			seller := f.buyer(t, "SELLER")

			err := f.program.ListForSale(f.ctx, seller, tt.price)

			rec, _ := f.program.Participant(seller)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
				assert.Equal(t, domain.GrantedParticipant(), rec)
				return
			}
			require.NoError(t, err)
			assert.True(t, rec.ListedForSale)
			assert.Equal(t, tt.price, rec.ListedPrice)
		})
	}

	t.Run("used ticket cannot be listed", func(t *testing.T) {
		f := minted(t, 10)
		seller := f.buyer(t, "SELLER")
		_, err := f.program.VerifyAndUse(f.ctx, seller)
		require.NoError(t, err)

		assert.ErrorIs(t, f.program.ListForSale(f.ctx, seller, 500_000), apperrors.ErrAlreadyUsed)
	})

	t.Run("non-holder cannot list", func(t *testing.T) {
		f := minted(t, 10)
		assert.ErrorIs(t, f.program.ListForSale(f.ctx, "NOBODY", 500_000), apperrors.ErrNoValidTicket)
	})
}

func TestCancelListing(t *testing.T) {
	f := minted(t, 10)
	seller := f.buyer(t, "SELLER")
	require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))

	require.NoError(t, f.program.CancelListing(f.ctx, seller))
	rec, _ := f.program.Participant(seller)
	assert.False(t, rec.ListedForSale)
	assert.Equal(t, uint64(0), rec.ListedPrice)

	assert.ErrorIs(t, f.program.CancelListing(f.ctx, "NOBODY"), apperrors.ErrNoValidTicket)
}

// A ticket listed at 900,000 is bought for 900,000: 45,000 royalty, 855,000 to the seller.
func TestBuyResale_SplitsRoyalty(t *testing.T) {
	f := minted(t, 10)
	seller := f.buyer(t, "SELLER")
	require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
	buyer := f.wallet("RESALE-BUYER")

	sellerBefore := f.balance(t, seller)
	programBefore := f.balance(t, f.account)

	split, err := f.program.BuyResale(f.ctx, buyer, f.pay(buyer, 900_000), seller)
	require.NoError(t, err)

	assert.Equal(t, uint64(45_000), split.Royalty)
	assert.Equal(t, uint64(855_000), split.SellerPayout)
	assert.Equal(t, uint64(900_000), split.Royalty+split.SellerPayout)

	assert.Equal(t, sellerBefore+855_000, f.balance(t, seller))
	assert.Equal(t, programBefore+45_000, f.balance(t, f.account))
	assert.Equal(t, walletSeed-900_000, f.balance(t, buyer))

	sellerRec, ok := f.program.Participant(seller)
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantRecord{}, sellerRec)
	buyerRec, ok := f.program.Participant(buyer)
	require.True(t, ok)
	assert.Equal(t, domain.GrantedParticipant(), buyerRec)

	assert.Equal(t, uint64(0), f.units(t, seller))
	assert.Equal(t, uint64(1), f.units(t, buyer))
	assert.Equal(t, uint64(1), f.program.Event().TicketsSold)
}

func TestBuyResale_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture, seller domain.AccountID)
		seller  func(seller domain.AccountID) domain.AccountID
		amount  uint64
		wantErr error
	}{
		{
			name:    "seller never held a ticket",
			seller:  func(domain.AccountID) domain.AccountID { return "NOBODY" },
			amount:  900_000,
			wantErr: apperrors.ErrSellerHasNoTicket,
		},
		{
			name:    "ticket not listed",
			amount:  900_000,
			wantErr: apperrors.ErrNotListed,
		},
		{
			name: "ticket already used",
			setup: func(t *testing.T, f *fixture, seller domain.AccountID) {
				require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
				_, err := f.program.VerifyAndUse(f.ctx, seller)
				require.NoError(t, err)
			},
			amount:  900_000,
			wantErr: apperrors.ErrAlreadyUsed,
		},
		{
			name: "below asking price",
			setup: func(t *testing.T, f *fixture, seller domain.AccountID) {
				require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
			},
			amount:  899_999,
			wantErr: apperrors.ErrBelowAsking,
		},
		{
			name: "above face value",
			setup: func(t *testing.T, f *fixture, seller domain.AccountID) {
				require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
			},
			amount:  faceValue + 1,
			wantErr: apperrors.ErrAboveFaceValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := minted(t, 10)
			seller := f.buyer(t, "SELLER")
			if tt.setup != nil {
				tt.setup(t, f, seller)
			}
			target := seller
			if tt.seller != nil {
				target = tt.seller(seller)
			}
			buyer := f.wallet("RESALE-BUYER")
			sellerRecBefore, _ := f.program.Participant(seller)
			programBefore := f.balance(t, f.account)

			_, err := f.program.BuyResale(f.ctx, buyer, f.pay(buyer, tt.amount), target)

			assert.ErrorIs(t, err, tt.wantErr)
			_, ok := f.program.Participant(buyer)
			assert.False(t, ok)
			sellerRecAfter, _ := f.program.Participant(seller)
			assert.Equal(t, sellerRecBefore, sellerRecAfter)
			assert.Equal(t, walletSeed, f.balance(t, buyer))
			assert.Equal(t, programBefore, f.balance(t, f.account))
			assert.Equal(t, uint64(1), f.units(t, seller))
		})
	}

	t.Run("wrong receiver", func(t *testing.T) {
		f := minted(t, 10)
		seller := f.buyer(t, "SELLER")
		require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
		buyer := f.wallet("RESALE-BUYER")

		_, err := f.program.BuyResale(f.ctx, buyer,
			domain.Payment{Sender: buyer, Receiver: seller, Amount: 900_000}, seller)
		assert.ErrorIs(t, err, apperrors.ErrWrongReceiver)
	})

	t.Run("existing holder cannot buy a second ticket", func(t *testing.T) {
		f := minted(t, 10)
		seller := f.buyer(t, "SELLER")
		require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
		holder := f.buyer(t, "HOLDER")

		_, err := f.program.BuyResale(f.ctx, holder, f.pay(holder, 900_000), seller)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	})

	t.Run("failed payment leg leaves the listing in place", func(t *testing.T) {
		f := minted(t, 10)
		seller := f.buyer(t, "SELLER")
		require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
		broke := domain.AccountID("BROKE")
		f.ledger.Deposit(f.ctx, broke, 500_000)

		_, err := f.program.BuyResale(f.ctx, broke, f.pay(broke, 900_000), seller)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

		rec, _ := f.program.Participant(seller)
		assert.True(t, rec.ListedForSale)
		assert.Equal(t, uint64(1), f.units(t, seller))
		assert.Equal(t, uint64(500_000), f.balance(t, broke))
	})
}

func TestBuyResale_SellerIsResetForGood(t *testing.T) {
	f := minted(t, 10)
	seller := f.buyer(t, "SELLER")
	require.NoError(t, f.program.ListForSale(f.ctx, seller, faceValue))
	buyer := f.wallet("RESALE-BUYER")
	_, err := f.program.BuyResale(f.ctx, buyer, f.pay(buyer, faceValue), seller)
	require.NoError(t, err)

	assert.ErrorIs(t, f.program.BuyTicket(f.ctx, seller, f.pay(seller, faceValue)), apperrors.ErrAlreadyRegistered)
	assert.ErrorIs(t, f.program.ListForSale(f.ctx, seller, 1), apperrors.ErrNoValidTicket)
	_, err = f.program.VerifyAndUse(f.ctx, seller)
	assert.ErrorIs(t, err, apperrors.ErrNoValidTicket)

	ok, err := f.program.VerifyAndUse(f.ctx, buyer)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithdraw(t *testing.T) {
	t.Run("non-organizer is unauthorized regardless of balance", func(t *testing.T) {
		f := minted(t, 10)
		f.buyer(t, "BUYER")
		before := f.balance(t, f.account)

		_, err := f.program.Withdraw(f.ctx, f.wallet("MALLORY"))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, before, f.balance(t, f.account))
	})

	t.Run("nothing above the reserve", func(t *testing.T) {
		f := newFixture(t, 10)
		require.NoError(t, f.program.Fund(f.ctx, f.pay(organizer, 200_000)))
		_, err := f.program.MintTickets(f.ctx, organizer)
		require.NoError(t, err)

		_, err = f.program.Withdraw(f.ctx, organizer)
		assert.ErrorIs(t, err, apperrors.ErrNoFunds)
	})

	t.Run("sweeps primary proceeds and royalties together", func(t *testing.T) {
		f := minted(t, 10)
		seller := f.buyer(t, "SELLER")
		require.NoError(t, f.program.ListForSale(f.ctx, seller, 900_000))
		buyer := f.wallet("RESALE-BUYER")
		_, err := f.program.BuyResale(f.ctx, buyer, f.pay(buyer, 900_000), seller)
		require.NoError(t, err)

		reserve, err := f.ledger.MinimumBalance(f.ctx, f.account)
		require.NoError(t, err)
		organizerBefore := f.balance(t, organizer)
		expected := funding + faceValue + 45_000 - reserve

		amount, err := f.program.Withdraw(f.ctx, organizer)
		require.NoError(t, err)

		assert.Equal(t, expected, amount)
		assert.Equal(t, reserve, f.balance(t, f.account))
		assert.Equal(t, organizerBefore+expected, f.balance(t, organizer))

		_, err = f.program.Withdraw(f.ctx, organizer)
		assert.ErrorIs(t, err, apperrors.ErrNoFunds)
		assert.Equal(t, reserve, f.balance(t, f.account))
	})
}

func TestAtomicity_StoreFailureRollsBackLedger(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger(domain.DefaultReserve())
	ledger.Deposit(ctx, organizer, 10*walletSeed)
	store := mocks.NewMockProgramStore()
	account := domain.DeriveProgramAccount("store-failure")

	store.On("SaveEvent", mock.Anything, account, mock.Anything).Return(nil)
	store.On("SaveParticipant", mock.Anything, account, mock.Anything, mock.Anything).
		Return(fmt.Errorf("disk full"))

	p, err := program.New(ctx, program.Deps{Account: account, Ledger: ledger, Store: store, Logger: discardLogger()},
		organizer, domain.EventParams{Name: "Fest", Date: "d", Venue: "v", Supply: 3, Price: faceValue})
	require.NoError(t, err)
	require.NoError(t, p.Fund(ctx, domain.Payment{Sender: organizer, Receiver: account, Amount: funding}))
	asset, err := p.MintTickets(ctx, organizer)
	require.NoError(t, err)

	buyer := domain.AccountID("BUYER")
	ledger.Deposit(ctx, buyer, walletSeed)

	err = p.BuyTicket(ctx, buyer, domain.Payment{Sender: buyer, Receiver: account, Amount: faceValue})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnknown, apperrors.KindOf(err))

	bal, _ := ledger.Balance(ctx, buyer)
	held, _ := ledger.BalanceOf(ctx, asset, buyer)
	assert.Equal(t, walletSeed, bal)
	assert.Equal(t, uint64(0), held)
	assert.Equal(t, uint64(0), p.Event().TicketsSold)
	_, ok := p.Participant(buyer)
	assert.False(t, ok)
}

func TestOpen_RestoresState(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger(domain.DefaultReserve())
	store := mocks.NewMockProgramStore()
	account := domain.DeriveProgramAccount("restore")

	record := &domain.EventRecord{
		Organizer:    organizer,
		Name:         "Fest",
		Date:         "d",
		Venue:        "v",
		TicketPrice:  faceValue,
		TicketSupply: 2,
		TicketsSold:  1,
		TicketAsset:  7,
		Minted:       true,
	}
	participants := map[domain.AccountID]domain.ParticipantRecord{
		"HOLDER": domain.GrantedParticipant(),
	}
	store.On("Load", ctx, account).Return(record, participants, nil)

	p, err := program.Open(ctx, program.Deps{Account: account, Ledger: ledger, Store: store, Logger: discardLogger()})
	require.NoError(t, err)

	assert.Equal(t, *record, p.Event())
	rec, ok := p.Participant("HOLDER")
	assert.True(t, ok)
	assert.True(t, rec.Owned)

	t.Run("missing program", func(t *testing.T) {
		other := domain.DeriveProgramAccount("missing")
		store.On("Load", ctx, other).Return(nil, nil, nil)

		_, err := program.Open(ctx, program.Deps{Account: other, Ledger: ledger, Store: store})
		assert.ErrorIs(t, err, program.ErrProgramNotFound)
	})
}

// The program account holds unsold units and pooled proceeds; it can never
// take part in a sale as buyer, seller or payer.
func TestProgramAccountCannotTrade(t *testing.T) {
	t.Run("fund from itself", func(t *testing.T) {
		f := minted(t, 3)
		before := f.balance(t, f.account)

		err := f.program.Fund(f.ctx, f.pay(f.account, funding))

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, before, f.balance(t, f.account))
	})

	t.Run("primary purchase", func(t *testing.T) {
		f := minted(t, 3)
		before := f.balance(t, f.account)

		err := f.program.BuyTicket(f.ctx, f.account, f.pay(f.account, faceValue))

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, ok := f.program.Participant(f.account)
		assert.False(t, ok)
		assert.Equal(t, uint64(0), f.program.Event().TicketsSold)
		assert.Equal(t, uint64(3), f.units(t, f.account))
		assert.Equal(t, before, f.balance(t, f.account))
	})

	t.Run("primary purchase paid by the program", func(t *testing.T) {
		f := minted(t, 3)
		buyer := f.wallet("BUYER")

		err := f.program.BuyTicket(f.ctx, buyer, f.pay(f.account, faceValue))

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, uint64(0), f.program.Event().TicketsSold)
	})

	t.Run("resale bought by the program", func(t *testing.T) {
		f := minted(t, 3)
		seller := f.buyer(t, "SELLER")
		require.NoError(t, f.program.ListForSale(f.ctx, seller, faceValue))
		before := f.balance(t, f.account)

		_, err := f.program.BuyResale(f.ctx, f.account, f.pay(f.account, faceValue), seller)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, before, f.balance(t, f.account))
		assert.Equal(t, uint64(1), f.units(t, seller))
		rec, ok := f.program.Participant(seller)
		require.True(t, ok)
		assert.True(t, rec.ListedForSale)
	})

	t.Run("resale paid by the program", func(t *testing.T) {
		f := minted(t, 3)
		seller := f.buyer(t, "SELLER")
		require.NoError(t, f.program.ListForSale(f.ctx, seller, faceValue))
		buyer := f.wallet("RESALE-BUYER")
		before := f.balance(t, f.account)

		_, err := f.program.BuyResale(f.ctx, buyer, f.pay(f.account, faceValue), seller)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, before, f.balance(t, f.account))
	})

	t.Run("program named as seller", func(t *testing.T) {
		f := minted(t, 3)
		buyer := f.wallet("RESALE-BUYER")

		_, err := f.program.BuyResale(f.ctx, buyer, f.pay(buyer, faceValue), f.account)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, walletSeed, f.balance(t, buyer))
	})
}
