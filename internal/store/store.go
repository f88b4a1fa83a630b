// Package store is an in-memory repository for the reconciliation engine.
// It provides row-level invoice locking with select-for-update semantics and
// snapshot rollback for failed units of work.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrLockTimeout is returned when an invoice row lock cannot be
	// acquired in time. Callers may retry the unit of work once.
	ErrLockTimeout = errors.New("store: invoice lock timeout")
)

const defaultLockTimeout = 5 * time.Second

// invoiceRow pairs an invoice with its row lock. The lock is held for the
// duration of a balance mutation and released at unit-of-work end.
type invoiceRow struct {
	lock chan struct{}
	inv  *model.Invoice
}

// Store holds all engine state for one process.
type Store struct {
	mu           sync.RWMutex
	companies    map[string]model.Company
	clients      map[string]*model.Client
	invoices     map[string]*invoiceRow
	transactions map[string]*model.BankTransaction
	payments     map[string]*model.Payment
	expenses     map[string]*model.Expense
	categories   map[string]*model.ExpenseCategory
	counters     map[string]int

	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout overrides how long a lock acquisition waits before
// reporting a conflict.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		companies:    make(map[string]model.Company),
		clients:      make(map[string]*model.Client),
		invoices:     make(map[string]*invoiceRow),
		transactions: make(map[string]*model.BankTransaction),
		payments:     make(map[string]*model.Payment),
		expenses:     make(map[string]*model.Expense),
		categories:   make(map[string]*model.ExpenseCategory),
		counters:     make(map[string]int),
		lockTimeout:  defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutCompany stores a company.
func (s *Store) PutCompany(c model.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = c
}

// Company returns a company by id.
func (s *Store) Company(id string) (model.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return model.Company{}, fmt.Errorf("company %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// PutClient stores a client.
func (s *Store) PutClient(c model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = &c
}

// Client returns a copy of a client by id.
func (s *Store) Client(id string) (model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return model.Client{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return *c, nil
}

// UpdateClientBalance adjusts a client's aggregate balance and paid-to-date.
func (s *Store) UpdateClientBalance(id string, balanceDelta, paidDelta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	c.Balance = c.Balance.Add(balanceDelta)
	c.PaidToDate = c.PaidToDate.Add(paidDelta)
	return nil
}

// PutInvoice stores an invoice, creating its row lock.
func (s *Store) PutInvoice(inv model.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.invoices[inv.ID]; ok {
		row.inv = &inv
		return
	}
	s.invoices[inv.ID] = &invoiceRow{
		lock: make(chan struct{}, 1),
		inv:  &inv,
	}
}

// Invoice returns a copy of an invoice by id, archived ones included.
func (s *Store) Invoice(id string) (model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.invoices[id]
	if !ok {
		return model.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	return cloneInvoice(*row.inv), nil
}

// SaveInvoice persists changes to an existing invoice outside a unit of
// work. Balance mutations must instead go through Update + LockInvoice.
func (s *Store) SaveInvoice(inv model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.invoices[inv.ID]
	if !ok {
		return fmt.Errorf("invoice %s: %w", inv.ID, ErrNotFound)
	}
	*row.inv = inv
	return nil
}

// PutTransaction stores a bank transaction, assigning an id if empty.
func (s *Store) PutTransaction(bt model.BankTransaction) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bt.ID == "" {
		bt.ID = uuid.NewString()
	}
	s.transactions[bt.ID] = &bt
	return bt.ID
}

// Transaction returns a copy of a bank transaction by id.
func (s *Store) Transaction(id string) (model.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bt, ok := s.transactions[id]
	if !ok {
		return model.BankTransaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return *bt, nil
}

// SaveTransaction persists changes to an existing bank transaction.
func (s *Store) SaveTransaction(bt model.BankTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[bt.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", bt.ID, ErrNotFound)
	}
	s.transactions[bt.ID] = &bt
	return nil
}

// TransactionByProviderID finds a company's transaction by its provider-side
// id. Used as the idempotency key during sync.
func (s *Store) TransactionByProviderID(companyID, providerID string) (model.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bt := range s.transactions {
		if bt.CompanyID == companyID && bt.ProviderID == providerID {
			return *bt, nil
		}
	}
	return model.BankTransaction{}, fmt.Errorf("transaction provider id %s: %w", providerID, ErrNotFound)
}

// UnmatchedTransactions returns a company's unmatched transactions ordered
// by date, then id for a stable order.
func (s *Store) UnmatchedTransactions(companyID string) []model.BankTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BankTransaction
	for _, bt := range s.transactions {
		if bt.CompanyID == companyID && bt.Status == model.TransactionUnmatched {
			out = append(out, *bt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SavePayment stores a payment, assigning an id if empty.
func (s *Store) SavePayment(p model.Payment) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.payments[p.ID] = &p
	return p.ID
}

// Payment returns a copy of a payment by id.
func (s *Store) Payment(id string) (model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return *p, nil
}

// SaveExpense stores an expense, assigning an id if empty.
func (s *Store) SaveExpense(e model.Expense) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.expenses[e.ID] = &e
	return e.ID
}

// Expense returns a copy of an expense by id.
func (s *Store) Expense(id string) (model.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return model.Expense{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return *e, nil
}

// FindOrCreateCategory returns the company's expense category for a bank
// provider category id, creating it on first sight. Idempotent: a second
// call with the same provider id returns the same row.
func (s *Store) FindOrCreateCategory(companyID string, bankCategoryID int64, name string) model.ExpenseCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ec := range s.categories {
		if ec.CompanyID == companyID && ec.BankCategoryID == bankCategoryID {
			return *ec
		}
	}
	ec := &model.ExpenseCategory{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		Name:           name,
		BankCategoryID: bankCategoryID,
	}
	s.categories[ec.ID] = ec
	return *ec
}

// Category returns a copy of an expense category by id.
func (s *Store) Category(id string) (model.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ec, ok := s.categories[id]
	if !ok {
		return model.ExpenseCategory{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return *ec, nil
}

// CategoryCount reports how many categories a company has. Test hook for
// idempotency checks.
func (s *Store) CategoryCount(companyID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ec := range s.categories {
		if ec.CompanyID == companyID {
			count++
		}
	}
	return count
}

// NextNumber increments and returns the per-company counter for a document
// prefix.
func (s *Store) NextNumber(companyID, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := companyID + ":" + prefix
	s.counters[key]++
	return s.counters[key]
}

func cloneInvoice(inv model.Invoice) model.Invoice {
	if inv.LineItems != nil {
		items := make([]model.LineItem, len(inv.LineItems))
		copy(items, inv.LineItems)
		inv.LineItems = items
	}
	return inv
}
