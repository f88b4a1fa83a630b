package model

import "github.com/shopspring/decimal"

// Company owns invoices, clients, and bank transactions.
type Company struct {
	ID       string
	Name     string
	Currency string // base currency code, e.g. "USD"
	Tax      TaxConfig
}

// TaxConfig is the per-company tax configuration.
type TaxConfig struct {
	SellerRegion string // region the company sells from, e.g. "US"
	Regions      map[string]RegionTaxConfig
}

// RegionTaxConfig configures tax behavior for one region.
type RegionTaxConfig struct {
	// TaxAll applies sales tax to every line item regardless of product category.
	TaxAll bool
	// SalesThresholdMet records whether the economic-nexus threshold has been
	// crossed. Informational only; it does not suppress tax on its own.
	SalesThresholdMet bool
}

// Region returns the config for a region code, zero value if unconfigured.
func (c TaxConfig) Region(code string) RegionTaxConfig {
	return c.Regions[code]
}

// Address is a physical address used for jurisdiction lookups.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Client is a billable customer of a company.
type Client struct {
	ID         string
	CompanyID  string
	Name       string
	Region     string // tax region, e.g. "US"
	Currency   string
	Address    Address
	Balance    decimal.Decimal // aggregate outstanding across invoices
	PaidToDate decimal.Decimal

	// IsTaxExempt is an absolute override: an exempt client is never taxed.
	IsTaxExempt bool

	// SendPaymentReceipt enables the payment-receipt email on mark-paid.
	SendPaymentReceipt bool
}
