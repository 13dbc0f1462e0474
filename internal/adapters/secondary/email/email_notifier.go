package email

import (
	"context"
	"log/slog"

	"github.com/ticketmint/event-program/internal/core/ports"
)

// ReceiptNotifier is a secondary adapter that stands in for a mail relay: it
// logs the receipt it would have sent. It implements ports.Notifier.
type ReceiptNotifier struct {
	logger *slog.Logger
}

// NewReceiptNotifier creates a notifier that writes receipts to logger.
func NewReceiptNotifier(logger *slog.Logger) *ReceiptNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptNotifier{
		logger: logger.With("component", "receipt_notifier"),
	}
}

var _ ports.Notifier = (*ReceiptNotifier)(nil)

// Notify logs the receipt instead of sending an email.
func (n *ReceiptNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	if params.Recipient.IsZero() {
		n.logger.WarnContext(ctx, "receipt dropped: no recipient", "subject", params.Subject)
		return
	}

	n.logger.InfoContext(ctx, "receipt sent",
		"to", params.Recipient.String(),
		"subject", params.Subject,
		"message", params.Message,
		"ticket_id", params.TicketID.String(),
	)
}
