package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Calculate resolves taxes for every line item and recomputes the invoice's
// amount and balance. The invoice's TaxData must already hold the jurisdiction
// lookup for the client's address. Returns an updated copy; the input invoice
// is not mutated.
func Calculate(company model.Company, client model.Client, inv model.Invoice) (model.Invoice, error) {
	rule, err := ForRegion(client.Region)
	if err != nil {
		return inv, err
	}
	cfg := company.Tax.Region(client.Region)

	total := decimal.Zero
	items := make([]model.LineItem, len(inv.LineItems))
	for i, item := range inv.LineItems {
		taxes, err := rule.Resolve(client, cfg, inv.TaxData, item)
		if err != nil {
			return inv, fmt.Errorf("resolving taxes for line %d: %w", i+1, err)
		}
		item.Taxes = taxes
		items[i] = item
		total = total.Add(item.Subtotal()).Add(item.TaxAmount())
	}

	inv.LineItems = items
	inv.Amount = total
	inv.Balance = total.Sub(inv.PaidToDate)
	return inv, nil
}
