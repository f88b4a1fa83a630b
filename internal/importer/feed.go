package importer

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Feed serves parsed CSV transactions from <root>/import/ as a bank
// transaction feed. Files are left in place; callers move them to
// processed/ once a sync succeeds.
type Feed struct {
	root     string
	parser   Parser
	currency string
	log      zerolog.Logger
}

// NewFeed creates a Feed over an import directory. Parsed transactions are
// denominated in currency.
func NewFeed(root string, parser Parser, currency string, log zerolog.Logger) *Feed {
	return &Feed{root: root, parser: parser, currency: currency, log: log}
}

// Transactions parses every CSV in the import directory.
func (f *Feed) Transactions(_ context.Context, companyID string) ([]model.BankTransaction, error) {
	files, err := Scan(f.root)
	if err != nil {
		return nil, err
	}

	var all []model.BankTransaction
	for _, file := range files {
		r, err := os.Open(file.Path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", file.Name, err)
		}
		txns, err := f.parser.Parse(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file.Name, err)
		}

		for i := range txns {
			txns[i].CompanyID = companyID
			txns[i].Currency = f.currency
		}
		all = append(all, txns...)
		f.log.Debug().Str("file", file.Name).Int("transactions", len(txns)).
			Msg("parsed import file")
	}
	return all, nil
}
