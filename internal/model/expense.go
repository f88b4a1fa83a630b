package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense records money leaving the business, created from a matched
// bank transaction.
type Expense struct {
	ID                   string
	CompanyID            string
	UserID               string
	Number               string
	CategoryID           string
	VendorID             string
	Amount               decimal.Decimal
	Currency             string
	Date                 time.Time
	PaymentDate          time.Time
	TransactionID        string
	TransactionReference string
}

// ExpenseCategory groups expenses. Categories sourced from the bank
// provider's taxonomy carry the provider category id so repeated
// transactions reuse the same row.
type ExpenseCategory struct {
	ID             string
	CompanyID      string
	Name           string
	BankCategoryID int64 // provider category id; 0 when user-created
}
