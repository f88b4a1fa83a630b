package model

import "github.com/shopspring/decimal"

// ProductTaxCategory classifies a product for tax purposes. Immutable per product.
type ProductTaxCategory int

const (
	CategoryPhysical ProductTaxCategory = 1
	CategoryService  ProductTaxCategory = 2
	CategoryDigital  ProductTaxCategory = 3
	CategoryShipping ProductTaxCategory = 4
	CategoryExempt   ProductTaxCategory = 5
	CategoryReduced  ProductTaxCategory = 6
	CategoryOverride ProductTaxCategory = 7
)

// LineTaxes holds up to three stacked (name, rate) pairs for one line item;
// jurisdictions may levy state + county + district simultaneously.
// Rates are percentages (8.75 means 8.75%). An untaxed line has every pair
// empty-name and zero-rate, never a nil/zero mix.
type LineTaxes struct {
	Name1 string
	Rate1 decimal.Decimal
	Name2 string
	Rate2 decimal.Decimal
	Name3 string
	Rate3 decimal.Decimal
}

// IsZero reports whether no tax applies to the line.
func (t LineTaxes) IsZero() bool {
	return t.Name1 == "" && t.Rate1.IsZero() &&
		t.Name2 == "" && t.Rate2.IsZero() &&
		t.Name3 == "" && t.Rate3.IsZero()
}

// TotalRate returns the combined percentage across all three slots.
func (t LineTaxes) TotalRate() decimal.Decimal {
	return t.Rate1.Add(t.Rate2).Add(t.Rate3)
}

// TaxJurisdiction is the result of an address-to-tax-rate lookup from the
// third-party jurisdiction service. Read-only input to the tax rules.
type TaxJurisdiction struct {
	Region          string          // state/region code, e.g. "CA"
	City            string
	County          string
	PostalCode      string
	SalesTaxRate    decimal.Decimal // combined rate as a fraction, e.g. 0.0875
	ServicesTaxable bool
	FreightTaxable  bool
}
