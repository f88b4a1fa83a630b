package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book appends balance-change entries to a ledger.csv file. Safe for
// concurrent use within one process.
type Book struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open creates a Book writing to path. The file and parent directory are
// created on first append.
func Open(path string) *Book {
	return &Book{path: path, now: time.Now}
}

// UpdateInvoiceBalance records a balance change against an invoice.
func (b *Book) UpdateInvoiceBalance(companyID, invoiceID string, delta decimal.Decimal, memo string) error {
	return b.append(Entry{
		CompanyID: companyID,
		Kind:      KindInvoice,
		RefID:     invoiceID,
		Delta:     delta,
		Memo:      memo,
	})
}

// UpdatePaymentBalance records a balance change against a payment.
func (b *Book) UpdatePaymentBalance(companyID, paymentID string, delta decimal.Decimal, memo string) error {
	return b.append(Entry{
		CompanyID: companyID,
		Kind:      KindPayment,
		RefID:     paymentID,
		Delta:     delta,
		Memo:      memo,
	})
}

// UpdateClientBalance records a client aggregate change: outstanding balance
// delta plus paid-to-date delta.
func (b *Book) UpdateClientBalance(companyID, clientID string, balanceDelta, paidDelta decimal.Decimal, memo string) error {
	return b.append(Entry{
		CompanyID: companyID,
		Kind:      KindClient,
		RefID:     clientID,
		Delta:     balanceDelta,
		PaidDelta: paidDelta,
		Memo:      memo,
	})
}

// Entries reads the full trail back. Returns nil if the file does not exist.
func (b *Book) Entries() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// Balance sums the deltas for one reference, giving its running total.
func (b *Book) Balance(kind EntryKind, refID string) (decimal.Decimal, error) {
	entries, err := b.Entries()
	if err != nil {
		return decimal.Decimal{}, err
	}

	total := decimal.Zero
	for _, e := range entries {
		if e.Kind == kind && e.RefID == refID {
			total = total.Add(e.Delta)
		}
	}
	return total, nil
}

func (b *Book) append(e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating ledger dir: %w", err)
		}
	}

	needsHeader := false
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := cw.Write(MarshalEntry(e)); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
