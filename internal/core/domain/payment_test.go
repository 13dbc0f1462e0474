package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ticketmint/event-program/internal/core/domain"
)

func TestSplitResale(t *testing.T) {
	tests := []struct {
		amount      uint64
		wantRoyalty uint64
	}{
		{900_000, 45_000},
		{1_000_000, 50_000},
		{19, 0},
		{20, 1},
		{39, 1},
		{1, 0},
		{0, 0},
		{math.MaxUint64, math.MaxUint64 / 100 * 5},
	}

	for _, tt := range tests {
		split := domain.SplitResale(tt.amount)

		assert.Equal(t, tt.wantRoyalty, split.Royalty, "royalty for %d", tt.amount)
		assert.Equal(t, tt.amount, split.Royalty+split.SellerPayout, "no rounding drift for %d", tt.amount)
	}
}

func TestSplitResale_MatchesFloorFormula(t *testing.T) {
	for amount := uint64(0); amount < 5_000; amount++ {
		split := domain.SplitResale(amount)
		assert.Equal(t, amount*5/100, split.Royalty)
		assert.Equal(t, amount-amount*5/100, split.SellerPayout)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.000000", domain.FormatAmount(1_000_000))
	assert.Equal(t, "0.045000", domain.FormatAmount(45_000))
	assert.Equal(t, "0.000000", domain.FormatAmount(0))
}
