package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Tx is a unit of work. Invoice rows locked through it stay locked until the
// unit finishes; on failure every locked row rolls back to its pre-lock
// snapshot.
type Tx struct {
	s      *Store
	locked []lockedInvoice
}

type lockedInvoice struct {
	row      *invoiceRow
	snapshot model.Invoice
}

// Update runs fn as one atomic unit of work. If fn returns an error, all
// invoice mutations made through the Tx are rolled back and the error is
// returned; otherwise the changes commit. Locks release either way.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{s: s}
	defer tx.release()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// LockInvoice acquires the row lock for an invoice (select-for-update
// semantics) and returns the live row, archived invoices included. The
// returned pointer may be mutated freely until the unit of work ends.
// Waiting longer than the store's lock timeout yields ErrLockTimeout.
func (tx *Tx) LockInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	tx.s.mu.RLock()
	row, ok := tx.s.invoices[id]
	tx.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}

	timer := time.NewTimer(tx.s.lockTimeout)
	defer timer.Stop()

	select {
	case row.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("invoice %s: %w", id, ErrLockTimeout)
	}

	tx.locked = append(tx.locked, lockedInvoice{
		row:      row,
		snapshot: cloneInvoice(*row.inv),
	})
	return row.inv, nil
}

func (tx *Tx) rollback() {
	for _, li := range tx.locked {
		*li.row.inv = li.snapshot
	}
}

func (tx *Tx) release() {
	// Release in reverse acquisition order.
	for i := len(tx.locked) - 1; i >= 0; i-- {
		<-tx.locked[i].row.lock
	}
	tx.locked = nil
}
