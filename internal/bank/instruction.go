// Package bank converts unmatched bank transactions into expenses or
// invoice payments, keeping invoice, client, and ledger balances consistent.
package bank

import "github.com/ledgerline-dev/ledgerline/internal/model"

// MatchInstruction describes one reconciliation decision: a payment match
// when InvoiceIDs is non-empty, otherwise an expense match. Instructions are
// consumed once per batch and never persisted.
type MatchInstruction struct {
	TransactionID string
	InvoiceIDs    []string
	VendorID      string
	CategoryID    string // explicit expense category; overrides the provider taxonomy
}

// IsPaymentMatch reports whether the instruction targets invoices.
func (in MatchInstruction) IsPaymentMatch() bool {
	return len(in.InvoiceIDs) > 0
}

// Skip records an instruction that was seen but produced no mutation.
type Skip struct {
	TransactionID string
	Reason        string
}

// Result reports what one batch produced. TransactionIDs lists every
// transaction the batch touched, including ones whose instruction was
// skipped on a logical failure.
type Result struct {
	TransactionIDs []string
	Payments       []model.Payment
	Expenses       []model.Expense
	Skipped        []Skip
}
