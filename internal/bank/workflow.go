package bank

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/number"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

// Workflow runs post-payment lifecycle hooks on an invoice. Opaque to the
// matcher; hooks mutate the invoice in place before it is saved.
type Workflow interface {
	ApplyNumber(inv *model.Invoice)
	TouchPDF(inv *model.Invoice)
	Advance(inv *model.Invoice)
}

// StandardWorkflow numbers invoices on demand and auto-archives them on
// full payment.
type StandardWorkflow struct {
	store *store.Store
	log   zerolog.Logger
}

// NewStandardWorkflow creates a StandardWorkflow.
func NewStandardWorkflow(st *store.Store, log zerolog.Logger) *StandardWorkflow {
	return &StandardWorkflow{store: st, log: log}
}

// ApplyNumber assigns the next invoice number if the invoice has none.
func (w *StandardWorkflow) ApplyNumber(inv *model.Invoice) {
	if inv.Number != "" {
		return
	}
	inv.Number = number.FormatInvoice(w.store.NextNumber(inv.CompanyID, number.InvoicePrefix))
}

// TouchPDF signals the rendering subsystem that the invoice PDF is stale.
func (w *StandardWorkflow) TouchPDF(inv *model.Invoice) {
	w.log.Debug().Str("invoice_id", inv.ID).Msg("pdf regeneration queued")
}

// Advance moves the invoice along its lifecycle: fully paid invoices are
// archived.
func (w *StandardWorkflow) Advance(inv *model.Invoice) {
	if inv.Status == model.InvoiceStatusPaid && inv.ArchivedAt == nil {
		now := time.Now()
		inv.ArchivedAt = &now
	}
}
