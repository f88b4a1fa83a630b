// Package tax resolves per-line-item sales tax from client exemption status,
// company tax configuration, and a third-party jurisdiction lookup.
package tax

import (
	"errors"
	"fmt"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// ErrNoLookup is returned when a rule runs without jurisdiction data.
// A missing lookup is a caller bug, never a reason to silently zero tax.
var ErrNoLookup = errors.New("tax: jurisdiction lookup is required")

// Rule resolves the taxes for one line item in a specific selling region.
// Implementations are pure: no side effects, same inputs same output.
type Rule interface {
	// Resolve computes the taxes for item. The item's existing Taxes are
	// consulted only by the manual-override category, which passes them
	// through untouched.
	Resolve(client model.Client, cfg model.RegionTaxConfig, lookup *model.TaxJurisdiction, item model.LineItem) (model.LineTaxes, error)
}

// ForRegion returns the Rule for a region code. Every region implements the
// same contract; only the US rule set exists today.
func ForRegion(region string) (Rule, error) {
	switch region {
	case "US":
		return USRule{}, nil
	default:
		return nil, fmt.Errorf("tax: no rule for region %q", region)
	}
}
