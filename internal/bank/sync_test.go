package bank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

type fakeFeed struct {
	transactions []model.BankTransaction
	err          error
}

func (f *fakeFeed) Transactions(context.Context, string) ([]model.BankTransaction, error) {
	return f.transactions, f.err
}

func feedTransaction(providerID, amount string) model.BankTransaction {
	return model.BankTransaction{
		ProviderID:  providerID,
		Amount:      dec(amount),
		Currency:    "USD",
		Date:        time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		Description: "FEED " + providerID,
	}
}

func TestSyncer_InsertsUnseen(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{transactions: []model.BankTransaction{
		feedTransaction("prov-1", "100"),
		feedTransaction("prov-2", "-25"),
	}}
	syncer := NewSyncer(st, feed, zerolog.Nop())

	n, err := syncer.Sync(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bt, err := st.TransactionByProviderID("co-1", "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "co-1", bt.CompanyID)
	assert.Equal(t, model.TransactionUnmatched, bt.Status)
	assert.NotEmpty(t, bt.ID, "store assigns an id")
}

func TestSyncer_RerunIsIdempotent(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{transactions: []model.BankTransaction{feedTransaction("prov-1", "100")}}
	syncer := NewSyncer(st, feed, zerolog.Nop())

	n, err := syncer.Sync(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same feed again, plus one new transaction.
	feed.transactions = append(feed.transactions, feedTransaction("prov-2", "50"))
	n, err = syncer.Sync(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the unseen transaction inserts")

	assert.Len(t, st.UnmatchedTransactions("co-1"), 2)
}

func TestSyncer_MissingProviderID(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{transactions: []model.BankTransaction{{Description: "NO ID"}}}
	syncer := NewSyncer(st, feed, zerolog.Nop())

	_, err := syncer.Sync(context.Background(), "co-1")
	assert.ErrorContains(t, err, "missing provider id")
}

func TestSyncer_FeedError(t *testing.T) {
	st := store.New()
	feed := &fakeFeed{err: errors.New("provider timeout")}
	syncer := NewSyncer(st, feed, zerolog.Nop())

	_, err := syncer.Sync(context.Background(), "co-1")
	assert.ErrorContains(t, err, "provider timeout")
}
