package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// LineItem is one billable row on an invoice.
type LineItem struct {
	ProductKey string
	Notes      string
	Cost       decimal.Decimal
	Quantity   decimal.Decimal
	Category   ProductTaxCategory
	Taxes      LineTaxes
}

// Subtotal returns cost * quantity before tax.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Cost.Mul(li.Quantity)
}

// TaxAmount returns the tax owed on the line at its resolved rates.
func (li LineItem) TaxAmount() decimal.Decimal {
	return li.Subtotal().Mul(li.Taxes.TotalRate()).Div(decimal.NewFromInt(100))
}

// Invoice is the billing aggregate mutated by payment allocation.
type Invoice struct {
	ID           string
	CompanyID    string
	ClientID     string
	Number       string
	Status       InvoiceStatus
	Amount       decimal.Decimal // total including tax
	Balance      decimal.Decimal // remaining amount owed
	PaidToDate   decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
	LineItems    []LineItem
	TaxData      *TaxJurisdiction // jurisdiction lookup captured at calculation time
	Date         time.Time
	NextSendDate *time.Time
	ArchivedAt   *time.Time // soft-archive marker; archived invoices stay payable-resolvable
	UpdatedAt    time.Time
}

// MarkSent moves a draft invoice into the sent state. Sending is a
// precondition for accepting payment. No-op for any other status.
func (inv *Invoice) MarkSent() {
	if inv.Status == InvoiceStatusDraft {
		inv.Status = InvoiceStatusSent
	}
}

// IsPayable reports whether the invoice can accept a payment right now.
func (inv *Invoice) IsPayable() bool {
	switch inv.Status {
	case InvoiceStatusSent, InvoiceStatusPartial:
		return inv.Balance.IsPositive()
	default:
		return false
	}
}

// ApplyPayment reduces the balance and grows paid-to-date by amount, then
// recomputes the derived status. Callers must hold the invoice row lock.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal) {
	inv.Balance = inv.Balance.Sub(amount)
	inv.PaidToDate = inv.PaidToDate.Add(amount)
	inv.setCalculatedStatus()
	inv.UpdatedAt = time.Now()
}

func (inv *Invoice) setCalculatedStatus() {
	switch {
	case inv.Balance.IsZero():
		inv.Status = InvoiceStatusPaid
	case inv.Balance.LessThan(inv.Amount):
		inv.Status = InvoiceStatusPartial
	}
}

// IsArchived reports whether the invoice has been soft-archived.
func (inv *Invoice) IsArchived() bool {
	return inv.ArchivedAt != nil
}
