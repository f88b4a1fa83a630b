package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

var hundred = decimal.NewFromInt(100)

// USRule implements United States sales-tax resolution. Dispatch order:
// client exemption first, then the company-wide tax-all toggle, then
// product category.
type USRule struct{}

// Resolve implements Rule.
func (USRule) Resolve(client model.Client, cfg model.RegionTaxConfig, lookup *model.TaxJurisdiction, item model.LineItem) (model.LineTaxes, error) {
	if lookup == nil {
		return model.LineTaxes{}, ErrNoLookup
	}

	if client.IsTaxExempt {
		return model.LineTaxes{}, nil
	}

	if cfg.TaxAll {
		return salesTax(lookup), nil
	}

	switch item.Category {
	case model.CategoryExempt:
		return model.LineTaxes{}, nil
	case model.CategoryService:
		if lookup.ServicesTaxable {
			return salesTax(lookup), nil
		}
		return model.LineTaxes{}, nil
	case model.CategoryShipping:
		if lookup.FreightTaxable {
			return salesTax(lookup), nil
		}
		return model.LineTaxes{}, nil
	case model.CategoryOverride:
		// Manual rates set by the caller pass through untouched.
		return item.Taxes, nil
	case model.CategoryDigital, model.CategoryPhysical, model.CategoryReduced:
		// Reduced-rate goods currently tax at the full default rate.
		return salesTax(lookup), nil
	default:
		return salesTax(lookup), nil
	}
}

// salesTax builds the single default entry. The lookup rate is a fraction;
// the stored rate is a percentage, so multiply by 100 exactly once.
func salesTax(lookup *model.TaxJurisdiction) model.LineTaxes {
	return model.LineTaxes{
		Name1: fmt.Sprintf("%s Sales Tax", lookup.Region),
		Rate1: lookup.SalesTaxRate.Mul(hundred),
	}
}
