package ledger

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tempBook(t *testing.T) *Book {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "ledger.csv"))
}

func TestBook_AppendAndRead(t *testing.T) {
	book := tempBook(t)

	require.NoError(t, book.UpdateInvoiceBalance("co-1", "inv-1", dec("-60"), "bank transaction applied"))
	require.NoError(t, book.UpdatePaymentBalance("co-1", "pay-1", dec("-70"), "payment created"))
	require.NoError(t, book.UpdateClientBalance("co-1", "cl-1", dec("-70"), dec("70"), "payment created"))

	entries, err := book.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, KindInvoice, entries[0].Kind)
	assert.Equal(t, "inv-1", entries[0].RefID)
	assert.True(t, dec("-60").Equal(entries[0].Delta))
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())

	assert.Equal(t, KindClient, entries[2].Kind)
	assert.True(t, dec("70").Equal(entries[2].PaidDelta))
}

func TestBook_Balance(t *testing.T) {
	book := tempBook(t)

	require.NoError(t, book.UpdateInvoiceBalance("co-1", "inv-1", dec("-60"), ""))
	require.NoError(t, book.UpdateInvoiceBalance("co-1", "inv-1", dec("-10"), ""))
	require.NoError(t, book.UpdateInvoiceBalance("co-1", "inv-2", dec("-40"), ""))

	balance, err := book.Balance(KindInvoice, "inv-1")
	require.NoError(t, err)
	assert.True(t, dec("-70").Equal(balance), "got %s", balance)
}

func TestBook_EmptyFile(t *testing.T) {
	book := tempBook(t)
	entries, err := book.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntryRoundTrip(t *testing.T) {
	entries, err := readEntriesFromRows(t, Entry{
		ID:        "e-1",
		CompanyID: "co-1",
		Kind:      KindClient,
		RefID:     "cl-1",
		Delta:     dec("-70"),
		PaidDelta: dec("70"),
		Memo:      "payment PAY-0001",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "payment PAY-0001", entries[0].Memo)
}

func readEntriesFromRows(t *testing.T, e Entry) ([]Entry, error) {
	t.Helper()
	book := tempBook(t)
	if err := book.append(e); err != nil {
		return nil, err
	}
	return book.Entries()
}
