package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ticketmint/event-program/internal/core/ports"
)

// SeedWallets credits each grant through faucet. It runs once, when a fresh
// program is created, so buyers have currency to pay with.
func SeedWallets(ctx context.Context, faucet ports.Faucet, grants []ports.WalletGrant, logger *slog.Logger) error {
	for _, g := range grants {
		if g.Amount == 0 {
			continue
		}
		if err := faucet.Deposit(ctx, g.Account, g.Amount); err != nil {
			return fmt.Errorf("seed wallet %s: %w", g.Account, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "wallet seeded", "account", g.Account.String(), "amount", g.Amount)
		}
	}
	return nil
}
