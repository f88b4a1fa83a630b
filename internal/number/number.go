// Package number formats and parses document numbers for payments,
// expenses, and invoices.
package number

import (
	"fmt"
	"strconv"
	"strings"
)

// Document number prefixes.
const (
	PaymentPrefix = "PAY"
	ExpensePrefix = "EXP"
	InvoicePrefix = "INV"
)

// Format returns a document number like "PAY-0007".
func Format(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

// FormatPayment returns a payment number like "PAY-0007".
func FormatPayment(seq int) string {
	return Format(PaymentPrefix, seq)
}

// FormatExpense returns an expense number like "EXP-0012".
func FormatExpense(seq int) string {
	return Format(ExpensePrefix, seq)
}

// FormatInvoice returns an invoice number like "INV-0003".
func FormatInvoice(seq int) string {
	return Format(InvoicePrefix, seq)
}

// Parse splits a document number into prefix and sequence.
func Parse(number string) (prefix string, seq int, err error) {
	parts := strings.SplitN(number, "-", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid document number format: %q", number)
	}

	seq, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid sequence in document number %q: %w", number, err)
	}

	return parts[0], seq, nil
}
