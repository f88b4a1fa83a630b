package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

// TransactionFeed supplies raw bank transactions from the aggregation
// provider for one company.
type TransactionFeed interface {
	Transactions(ctx context.Context, companyID string) ([]model.BankTransaction, error)
}

// Syncer pulls provider transactions into the store as unmatched work.
type Syncer struct {
	store *store.Store
	feed  TransactionFeed
	log   zerolog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(st *store.Store, feed TransactionFeed, log zerolog.Logger) *Syncer {
	return &Syncer{store: st, feed: feed, log: log}
}

// Sync inserts unseen provider transactions for a company, keyed by the
// provider transaction id so re-running never duplicates. Returns how many
// transactions were inserted.
func (s *Syncer) Sync(ctx context.Context, companyID string) (int, error) {
	raw, err := s.feed.Transactions(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("fetching provider transactions: %w", err)
	}

	inserted := 0
	for _, bt := range raw {
		if bt.ProviderID == "" {
			return inserted, fmt.Errorf("provider transaction %q missing provider id", bt.Description)
		}

		_, err := s.store.TransactionByProviderID(companyID, bt.ProviderID)
		if err == nil {
			continue // already synced
		}
		if !errors.Is(err, store.ErrNotFound) {
			return inserted, err
		}

		bt.CompanyID = companyID
		bt.Status = model.TransactionUnmatched
		s.store.PutTransaction(bt)
		inserted++
	}

	s.log.Info().Str("company_id", companyID).
		Int("fetched", len(raw)).Int("inserted", inserted).
		Msg("bank transaction sync complete")
	return inserted, nil
}
