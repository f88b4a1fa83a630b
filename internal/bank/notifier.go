package bank

import (
	"github.com/rs/zerolog"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Notifier is the fire-and-forget event sink for payment lifecycle events.
// Implementations must not block reconciliation; failures are theirs to
// handle.
type Notifier interface {
	PaymentCreated(p model.Payment)
	InvoicePaid(inv model.Invoice, p model.Payment)
	PaymentReceipt(client model.Client, p model.Payment)
}

// LogNotifier writes events to the structured log. Stands in for the
// email/webhook subsystems downstream of the engine.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// PaymentCreated implements Notifier.
func (n *LogNotifier) PaymentCreated(p model.Payment) {
	n.log.Info().
		Str("payment_id", p.ID).
		Str("amount", p.Amount.String()).
		Str("currency", p.Currency).
		Msg("payment created")
}

// InvoicePaid implements Notifier.
func (n *LogNotifier) InvoicePaid(inv model.Invoice, p model.Payment) {
	n.log.Info().
		Str("invoice_id", inv.ID).
		Str("payment_id", p.ID).
		Str("balance", inv.Balance.String()).
		Msg("invoice paid")
}

// PaymentReceipt implements Notifier.
func (n *LogNotifier) PaymentReceipt(client model.Client, p model.Payment) {
	n.log.Info().
		Str("client_id", client.ID).
		Str("payment_id", p.ID).
		Msg("payment receipt queued")
}
