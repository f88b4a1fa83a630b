package bank

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

// Service runs reconciliation batches with at most one run per company at a
// time. A second run queued for the same company waits for the first.
type Service struct {
	matcher *Matcher
	store   *store.Store
	log     zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a Service around a Matcher.
func NewService(matcher *Matcher, st *store.Store, log zerolog.Logger) *Service {
	return &Service{
		matcher: matcher,
		store:   st,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

// companyLock returns the mutex keyed by company id.
func (s *Service) companyLock(companyID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[companyID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[companyID] = lock
	}
	return lock
}

// Reconcile runs a batch of instructions for one company under its
// exclusive lock. Instructions whose transaction is not in the unmatched
// state are dropped up front, so reprocessing a converted transaction is a
// no-op.
func (s *Service) Reconcile(ctx context.Context, companyID string, instructions []MatchInstruction) (*Result, error) {
	lock := s.companyLock(companyID)
	lock.Lock()
	defer lock.Unlock()

	eligible := make([]MatchInstruction, 0, len(instructions))
	for _, in := range instructions {
		bt, err := s.store.Transaction(in.TransactionID)
		if err != nil {
			s.log.Warn().Str("transaction_id", in.TransactionID).Msg("unknown transaction in batch")
			continue
		}
		if bt.CompanyID != companyID || bt.Status != model.TransactionUnmatched {
			continue
		}
		eligible = append(eligible, in)
	}

	s.log.Info().Str("company_id", companyID).
		Int("instructions", len(instructions)).Int("eligible", len(eligible)).
		Msg("reconciliation batch starting")

	return s.matcher.Process(ctx, eligible)
}
