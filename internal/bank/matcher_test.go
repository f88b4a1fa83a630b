package bank

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memLedger records ledger mutations in memory.
type memLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
}

type ledgerEntry struct {
	kind      string
	refID     string
	delta     decimal.Decimal
	paidDelta decimal.Decimal
	memo      string
}

func (l *memLedger) UpdateInvoiceBalance(_, invoiceID string, delta decimal.Decimal, memo string) error {
	l.record(ledgerEntry{kind: "invoice", refID: invoiceID, delta: delta, memo: memo})
	return nil
}

func (l *memLedger) UpdatePaymentBalance(_, paymentID string, delta decimal.Decimal, memo string) error {
	l.record(ledgerEntry{kind: "payment", refID: paymentID, delta: delta, memo: memo})
	return nil
}

func (l *memLedger) UpdateClientBalance(_, clientID string, balanceDelta, paidDelta decimal.Decimal, memo string) error {
	l.record(ledgerEntry{kind: "client", refID: clientID, delta: balanceDelta, paidDelta: paidDelta, memo: memo})
	return nil
}

func (l *memLedger) record(e ledgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *memLedger) byKind(kind string) []ledgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ledgerEntry
	for _, e := range l.entries {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// recordNotifier captures emitted events.
type recordNotifier struct {
	mu       sync.Mutex
	created  []model.Payment
	paid     []string // invoice ids
	receipts []string // client ids
}

func (n *recordNotifier) PaymentCreated(p model.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, p)
}

func (n *recordNotifier) InvoicePaid(inv model.Invoice, _ model.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, inv.ID)
}

func (n *recordNotifier) PaymentReceipt(client model.Client, _ model.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, client.ID)
}

// fakeTaxonomy serves a fixed taxonomy and counts fetches.
type fakeTaxonomy struct {
	mu         sync.Mutex
	fetchCount int
	categories []ProviderCategory
	err        error
}

func (f *fakeTaxonomy) Categories(context.Context) ([]ProviderCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

// fakeRates is a Converter with a fixed answer.
type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeRates) ExchangeRate(context.Context, string, string, time.Time) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Decimal{}, f.err
	}
	return f.rate, nil
}

type fixture struct {
	store    *store.Store
	ledger   *memLedger
	notifier *recordNotifier
	rates    *fakeRates
	taxonomy *fakeTaxonomy
	matcher  *Matcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.New(store.WithLockTimeout(200 * time.Millisecond))
	st.PutCompany(model.Company{ID: "co-1", Name: "Acme", Currency: "USD"})
	st.PutClient(model.Client{ID: "cl-1", CompanyID: "co-1", Currency: "USD"})

	f := &fixture{
		store:    st,
		ledger:   &memLedger{},
		notifier: &recordNotifier{},
		rates:    &fakeRates{rate: dec("1.08")},
		taxonomy: &fakeTaxonomy{categories: []ProviderCategory{
			{ID: 10000, Name: "Groceries"},
			{ID: 10001, Name: "Travel"},
		}},
	}

	log := zerolog.Nop()
	resolver := NewCategoryResolver(st, NewTaxonomyCache(f.taxonomy, 0))
	f.matcher = NewMatcher(st, f.ledger, f.rates, f.notifier, NewStandardWorkflow(st, log), resolver, log)
	return f
}

func (f *fixture) seedInvoice(id, balance string) {
	bal := dec(balance)
	f.store.PutInvoice(model.Invoice{
		ID:        id,
		CompanyID: "co-1",
		ClientID:  "cl-1",
		Status:    model.InvoiceStatusSent,
		Amount:    bal,
		Balance:   bal,
	})
}

func (f *fixture) seedTransaction(id, amount string) {
	f.store.PutTransaction(model.BankTransaction{
		ID:          id,
		CompanyID:   "co-1",
		Amount:      dec(amount),
		Currency:    "USD",
		Date:        time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		Description: "ACME WIRE " + id,
		Status:      model.TransactionUnmatched,
		BaseType:    "CREDIT",
	})
}

func TestMatcher_ExpenseMatch(t *testing.T) {
	f := newFixture(t)
	f.store.PutTransaction(model.BankTransaction{
		ID:          "bt-1",
		CompanyID:   "co-1",
		Amount:      dec("-42.50"),
		Currency:    "USD",
		Date:        time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		Description: "WHOLE FOODS",
		Status:      model.TransactionUnmatched,
		CategoryID:  10000,
	})

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{{TransactionID: "bt-1"}})
	require.NoError(t, err)
	require.Len(t, res.Expenses, 1)
	assert.Empty(t, res.Skipped)

	expense := res.Expenses[0]
	assert.True(t, dec("-42.50").Equal(expense.Amount))
	assert.Equal(t, "WHOLE FOODS", expense.TransactionReference)
	assert.Equal(t, "bt-1", expense.TransactionID)
	assert.Equal(t, expense.Date, expense.PaymentDate)
	assert.Equal(t, "EXP-0001", expense.Number)

	cat, err := f.store.Category(expense.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", cat.Name)
	assert.Equal(t, int64(10000), cat.BankCategoryID)

	bt, err := f.store.Transaction("bt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionConverted, bt.Status)
	assert.Equal(t, expense.ID, bt.ExpenseID)

	// Expense matching never writes to the ledger.
	assert.Empty(t, f.ledger.entries)
}

func TestMatcher_ExpenseMatch_CategoryReused(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"bt-1", "bt-2"} {
		f.store.PutTransaction(model.BankTransaction{
			ID: id, CompanyID: "co-1", Amount: dec("-10"), Currency: "USD",
			Status: model.TransactionUnmatched, CategoryID: 10000,
		})
	}

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1"},
		{TransactionID: "bt-2"},
	})
	require.NoError(t, err)
	require.Len(t, res.Expenses, 2)

	assert.Equal(t, res.Expenses[0].CategoryID, res.Expenses[1].CategoryID)
	assert.Equal(t, 1, f.store.CategoryCount("co-1"))
	assert.Equal(t, 1, f.taxonomy.fetchCount, "taxonomy fetched once and cached")
}

func TestMatcher_Waterfall_OrderSensitive(t *testing.T) {
	tests := []struct {
		name     string
		balances []string // in allocation order
		want     []string
	}{
		{"60 then 40", []string{"60", "40"}, []string{"60", "10"}},
		{"40 then 60", []string{"40", "60"}, []string{"40", "30"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ids := []string{"inv-1", "inv-2"}
			for i, bal := range tc.balances {
				f.seedInvoice(ids[i], bal)
			}
			f.seedTransaction("bt-1", "70")

			res, err := f.matcher.Process(context.Background(), []MatchInstruction{
				{TransactionID: "bt-1", InvoiceIDs: ids},
			})
			require.NoError(t, err)
			require.Len(t, res.Payments, 1)
			require.Empty(t, res.Skipped)

			payment := res.Payments[0]
			assert.True(t, dec("70").Equal(payment.Applied))
			assert.True(t, payment.AllocatedTotal().Equal(payment.Applied),
				"allocations must sum to applied")

			require.Len(t, payment.Invoices, 2)
			for i, want := range tc.want {
				assert.Equal(t, ids[i], payment.Invoices[i].InvoiceID)
				assert.True(t, dec(want).Equal(payment.Invoices[i].Amount),
					"invoice %s want %s got %s", ids[i], want, payment.Invoices[i].Amount)
			}
		})
	}
}

func TestMatcher_Waterfall_FirstInvoiceFullyPaid(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "60")
	f.seedInvoice("inv-2", "40")
	f.seedTransaction("bt-1", "70")

	_, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1", "inv-2"}},
	})
	require.NoError(t, err)

	inv1, err := f.store.Invoice("inv-1")
	require.NoError(t, err)
	assert.True(t, inv1.Balance.IsZero())
	assert.Equal(t, model.InvoiceStatusPaid, inv1.Status)
	assert.NotNil(t, inv1.ArchivedAt, "fully paid invoices auto-archive")

	inv2, err := f.store.Invoice("inv-2")
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(inv2.Balance))
	assert.True(t, dec("10").Equal(inv2.PaidToDate))
	assert.Equal(t, model.InvoiceStatusPartial, inv2.Status)
	assert.Nil(t, inv2.ArchivedAt)
}

func TestMatcher_Waterfall_ExactBalanceTakesEqualBranch(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "30")
	f.seedInvoice("inv-2", "40")
	f.seedInvoice("inv-3", "50")
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1", "inv-2", "inv-3"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)

	payment := res.Payments[0]
	require.Len(t, payment.Invoices, 3)
	assert.True(t, dec("30").Equal(payment.Invoices[0].Amount))
	// inv-2's balance equals the remaining 40: the >= branch drains it all.
	assert.True(t, dec("40").Equal(payment.Invoices[1].Amount))
	// Waterfall exhausted; inv-3 stays in the set with zero allocation.
	assert.True(t, payment.Invoices[2].Amount.IsZero())

	inv3, err := f.store.Invoice("inv-3")
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(inv3.Balance), "untouched past exhaustion")
}

func TestMatcher_SingleInvoiceTakesFullAmount(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "100")
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)

	inv, err := f.store.Invoice("inv-1")
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(inv.Balance))
	assert.Equal(t, "PAY-0001", res.Payments[0].Number)
	assert.Equal(t, model.PaymentStatusCompleted, res.Payments[0].Status)
	assert.False(t, res.Payments[0].IsManual)
}

func TestMatcher_DraftInvoiceMarkedSentThenPaid(t *testing.T) {
	f := newFixture(t)
	bal := dec("70")
	f.store.PutInvoice(model.Invoice{
		ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1",
		Status: model.InvoiceStatusDraft, Amount: bal, Balance: bal,
	})
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)

	inv, err := f.store.Invoice("inv-1")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
}

func TestMatcher_NotPayableSkipsWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "60")
	// Already paid: zero balance makes the instruction unpayable.
	f.store.PutInvoice(model.Invoice{
		ID: "inv-2", CompanyID: "co-1", ClientID: "cl-1",
		Status: model.InvoiceStatusPaid, Amount: dec("40"),
		PaidToDate: dec("40"),
	})
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1", "inv-2"}},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Payments)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "not payable")
	// The transaction is still reported as processed.
	assert.Equal(t, []string{"bt-1"}, res.TransactionIDs)

	bt, err := f.store.Transaction("bt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionUnmatched, bt.Status)

	inv1, err := f.store.Invoice("inv-1")
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(inv1.Balance), "no balance change on skip")
	assert.Empty(t, f.ledger.entries)
}

func TestMatcher_PaymentDateFallsBackToNow(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "50")
	f.store.PutTransaction(model.BankTransaction{
		ID: "bt-1", CompanyID: "co-1", Amount: dec("50"), Currency: "USD",
		Status: model.TransactionUnmatched,
	})

	before := time.Now()
	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)
	assert.False(t, res.Payments[0].Date.Before(before))
}

func TestMatcher_ExchangeRateApplied(t *testing.T) {
	f := newFixture(t)
	f.store.PutClient(model.Client{ID: "cl-1", CompanyID: "co-1", Currency: "EUR"})
	f.seedInvoice("inv-1", "50")
	f.seedTransaction("bt-1", "50")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)

	payment, err := f.store.Payment(res.Payments[0].ID)
	require.NoError(t, err)
	assert.True(t, dec("1.08").Equal(payment.ExchangeRate))
	assert.Equal(t, "USD", payment.ExchangeCurrency)
}

func TestMatcher_ExchangeRateFailureKeepsDefault(t *testing.T) {
	f := newFixture(t)
	f.rates.err = errors.New("rate provider down")
	f.store.PutClient(model.Client{ID: "cl-1", CompanyID: "co-1", Currency: "EUR"})
	f.seedInvoice("inv-1", "50")
	f.seedTransaction("bt-1", "50")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err, "rate failure must not fail the payment")
	require.Len(t, res.Payments, 1)

	payment, err := f.store.Payment(res.Payments[0].ID)
	require.NoError(t, err)
	assert.True(t, payment.ExchangeRate.Equal(dec("1")), "keeps 1:1 on failure")
	assert.Empty(t, payment.ExchangeCurrency)
}

func TestMatcher_LedgerAndClientTrail(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "60")
	f.seedInvoice("inv-2", "40")
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1", "inv-2"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)

	invoiceEntries := f.ledger.byKind("invoice")
	require.Len(t, invoiceEntries, 2)
	assert.True(t, dec("-60").Equal(invoiceEntries[0].delta))
	assert.True(t, dec("-10").Equal(invoiceEntries[1].delta))

	paymentEntries := f.ledger.byKind("payment")
	require.Len(t, paymentEntries, 1)
	assert.True(t, dec("-70").Equal(paymentEntries[0].delta))

	clientEntries := f.ledger.byKind("client")
	require.Len(t, clientEntries, 1)
	assert.True(t, dec("-70").Equal(clientEntries[0].delta))
	assert.True(t, dec("70").Equal(clientEntries[0].paidDelta))

	client, err := f.store.Client("cl-1")
	require.NoError(t, err)
	assert.True(t, dec("-70").Equal(client.Balance))
	assert.True(t, dec("70").Equal(client.PaidToDate))
}

func TestMatcher_EventsAndReceipt(t *testing.T) {
	f := newFixture(t)
	f.store.PutClient(model.Client{ID: "cl-1", CompanyID: "co-1", Currency: "USD", SendPaymentReceipt: true})
	f.seedInvoice("inv-1", "70")
	f.seedTransaction("bt-1", "70")

	_, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err)

	assert.Len(t, f.notifier.created, 1)
	assert.Equal(t, []string{"inv-1"}, f.notifier.paid)
	assert.Equal(t, []string{"cl-1"}, f.notifier.receipts)
}

func TestMatcher_TransactionRecordsInvoiceIDs(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "60")
	f.seedInvoice("inv-2", "40")
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1", "inv-2"}},
	})
	require.NoError(t, err)

	bt, err := f.store.Transaction("bt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionConverted, bt.Status)
	assert.Equal(t, "inv-1,inv-2", bt.InvoiceIDs)
	assert.Equal(t, res.Payments[0].ID, bt.PaymentID)
}

func TestMatcher_ArchivedInvoiceStillMatchable(t *testing.T) {
	f := newFixture(t)
	archived := time.Now()
	bal := dec("70")
	f.store.PutInvoice(model.Invoice{
		ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1",
		Status: model.InvoiceStatusSent, Amount: bal, Balance: bal,
		ArchivedAt: &archived,
	})
	f.seedTransaction("bt-1", "70")

	res, err := f.matcher.Process(context.Background(), []MatchInstruction{
		{TransactionID: "bt-1", InvoiceIDs: []string{"inv-1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)

	inv, err := f.store.Invoice("inv-1")
	require.NoError(t, err)
	assert.True(t, inv.Balance.IsZero())
}

func TestMatcher_ConcurrentAllocationsNeverDoubleSpend(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice("inv-1", "100")
	f.seedInvoice("inv-2", "1000")
	f.seedTransaction("bt-1", "100")
	f.seedTransaction("bt-2", "100")

	var wg sync.WaitGroup
	for _, btID := range []string{"bt-1", "bt-2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.matcher.Process(context.Background(), []MatchInstruction{
				{TransactionID: id, InvoiceIDs: []string{"inv-1", "inv-2"}},
			})
			assert.NoError(t, err)
		}(btID)
	}
	wg.Wait()

	inv1, err := f.store.Invoice("inv-1")
	require.NoError(t, err)
	assert.False(t, inv1.Balance.IsNegative(), "balance went negative: %s", inv1.Balance)
	assert.True(t, inv1.PaidToDate.LessThanOrEqual(dec("100")),
		"combined allocations %s exceed the pre-lock balance", inv1.PaidToDate)
}
