package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Paymentable links a payment to one invoice with the amount applied to it.
type Paymentable struct {
	InvoiceID string
	Amount    decimal.Decimal
}

// Payment aggregates one or more invoice allocations from a single bank
// transaction. Invariant: the allocation amounts sum to Applied.
type Payment struct {
	ID                   string
	CompanyID            string
	ClientID             string
	Number               string
	Amount               decimal.Decimal
	Applied              decimal.Decimal
	Status               PaymentStatus
	Currency             string
	ExchangeRate         decimal.Decimal // 1 unless the client currency differs from the company's
	ExchangeCurrency     string
	IsManual             bool
	Date                 time.Time
	TransactionID        string
	TransactionReference string
	Invoices             []Paymentable
}

// AllocatedTotal sums the per-invoice allocation amounts.
func (p Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, pv := range p.Invoices {
		total = total.Add(pv.Amount)
	}
	return total
}
