package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the reconciliation state of a bank transaction.
type TransactionStatus string

const (
	// TransactionUnmatched means the transaction has not been reconciled.
	TransactionUnmatched TransactionStatus = "unmatched"
	// TransactionConverted means the transaction became an expense or a
	// payment. Terminal: converted transactions are never reprocessed.
	TransactionConverted TransactionStatus = "converted"
)

// BankTransaction is one externally-sourced bank ledger event.
type BankTransaction struct {
	ID          string
	CompanyID   string
	UserID      string
	ProviderID  string // provider-side transaction id; idempotency key for sync
	Amount      decimal.Decimal
	Currency    string
	Date        time.Time
	Description string
	Status      TransactionStatus
	BaseType    string // DEBIT or CREDIT
	CategoryID  int64  // provider category hint

	// Set when the transaction is matched.
	ExpenseID  string
	PaymentID  string
	VendorID   string
	InvoiceIDs string // comma-joined invoice ids the payment was applied against
}
