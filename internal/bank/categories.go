package bank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

// ProviderCategory is one entry of the bank provider's category taxonomy.
type ProviderCategory struct {
	ID   int64
	Name string
}

// CategoryTaxonomy supplies the provider's category taxonomy.
type CategoryTaxonomy interface {
	Categories(ctx context.Context) ([]ProviderCategory, error)
}

// TaxonomyCache caches the provider taxonomy with an explicit TTL. A zero
// TTL keeps the taxonomy for the process lifetime; Invalidate forces a
// refetch either way. Injected rather than ambient so tests control its
// contents deterministically.
type TaxonomyCache struct {
	mu      sync.Mutex
	source  CategoryTaxonomy
	ttl     time.Duration
	fetched time.Time
	byID    map[int64]string
	now     func() time.Time
}

// NewTaxonomyCache creates a cache over a taxonomy source.
func NewTaxonomyCache(source CategoryTaxonomy, ttl time.Duration) *TaxonomyCache {
	return &TaxonomyCache{source: source, ttl: ttl, now: time.Now}
}

// Name returns the category name for a provider category id, fetching the
// taxonomy on first use or after expiry. The second return reports whether
// the id exists in the taxonomy.
func (c *TaxonomyCache) Name(ctx context.Context, id int64) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshLocked(ctx); err != nil {
		return "", false, err
	}
	name, ok := c.byID[id]
	return name, ok, nil
}

// Invalidate drops the cached taxonomy.
func (c *TaxonomyCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = nil
}

func (c *TaxonomyCache) refreshLocked(ctx context.Context) error {
	if c.byID != nil {
		if c.ttl == 0 || c.now().Sub(c.fetched) < c.ttl {
			return nil
		}
	}

	cats, err := c.source.Categories(ctx)
	if err != nil {
		return fmt.Errorf("fetching bank category taxonomy: %w", err)
	}

	byID := make(map[int64]string, len(cats))
	for _, cat := range cats {
		byID[cat.ID] = cat.Name
	}
	c.byID = byID
	c.fetched = c.now()
	return nil
}

// CategoryResolver finds or creates the expense category for a transaction.
type CategoryResolver struct {
	store    *store.Store
	taxonomy *TaxonomyCache
}

// NewCategoryResolver creates a resolver over a store and taxonomy cache.
func NewCategoryResolver(st *store.Store, taxonomy *TaxonomyCache) *CategoryResolver {
	return &CategoryResolver{store: st, taxonomy: taxonomy}
}

// Resolve picks the expense category for a transaction. An explicit caller
// category wins outright. Otherwise the provider category id is looked up in
// the taxonomy and an ExpenseCategory is found-or-created for the company,
// keyed by that provider id so repeats reuse the same row. Returns "" when
// the transaction carries no resolvable category.
func (r *CategoryResolver) Resolve(ctx context.Context, bt model.BankTransaction, explicitID string) (string, error) {
	if explicitID != "" {
		if _, err := r.store.Category(explicitID); err != nil {
			return "", fmt.Errorf("explicit category: %w", err)
		}
		return explicitID, nil
	}

	if bt.CategoryID == 0 {
		return "", nil
	}

	name, ok, err := r.taxonomy.Name(ctx, bt.CategoryID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	ec := r.store.FindOrCreateCategory(bt.CompanyID, bt.CategoryID, name)
	return ec.ID, nil
}
