// Package ledger is the append-only trail of balance changes behind
// invoice, payment, and client totals.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies which balance an entry adjusts.
type EntryKind string

const (
	KindInvoice EntryKind = "invoice"
	KindPayment EntryKind = "payment"
	KindClient  EntryKind = "client"
)

// Entry is one row in ledger.csv. Entries are never updated or deleted.
type Entry struct {
	ID        string
	Timestamp time.Time
	CompanyID string
	Kind      EntryKind
	RefID     string          // invoice, payment, or client id
	Delta     decimal.Decimal // balance change, negative = balance reduced
	PaidDelta decimal.Decimal // paid-to-date change (client entries only)
	Memo      string
}

// Header is the CSV header for ledger.csv.
const Header = "id,timestamp,company_id,kind,ref_id,delta,paid_delta,memo"

const (
	numFields    = 8
	colID        = 0
	colTimestamp = 1
	colCompanyID = 2
	colKind      = 3
	colRefID     = 4
	colDelta     = 5
	colPaidDelta = 6
	colMemo      = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colCompanyID] = e.CompanyID
	row[colKind] = string(e.Kind)
	row[colRefID] = e.RefID
	row[colDelta] = e.Delta.String()
	if !e.PaidDelta.IsZero() {
		row[colPaidDelta] = e.PaidDelta.String()
	}
	row[colMemo] = e.Memo
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	delta, err := decimal.NewFromString(record[colDelta])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing delta %q: %w", record[colDelta], err)
	}

	var paidDelta decimal.Decimal
	if record[colPaidDelta] != "" {
		paidDelta, err = decimal.NewFromString(record[colPaidDelta])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing paid_delta %q: %w", record[colPaidDelta], err)
		}
	}

	return Entry{
		ID:        record[colID],
		Timestamp: ts,
		CompanyID: record[colCompanyID],
		Kind:      EntryKind(record[colKind]),
		RefID:     record[colRefID],
		Delta:     delta,
		PaidDelta: paidDelta,
		Memo:      record[colMemo],
	}, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
